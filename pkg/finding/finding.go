package finding

import (
	"encoding/hex"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/spaolacci/murmur3"

	"github.com/sigfuzz/sigfuzz/pkg/defaults"
	"github.com/sigfuzz/sigfuzz/pkg/scoring"
	"github.com/sigfuzz/sigfuzz/pkg/signal"
	"github.com/sigfuzz/sigfuzz/pkg/transport"
)

// ImpactedParameter names the injection point a Finding concerns.
// Value is the reported, possibly shortened payload; Payload is what was sent.
type ImpactedParameter struct {
	Method   string `json:"method"`
	Location string `json:"location"`
	Name     string `json:"name"`
	Value    string `json:"value"`
	Payload  string `json:"-"`
}

// NewImpactedParameter records payload in full and in reportable form.
func NewImpactedParameter(method, location, name, payload string) ImpactedParameter {
	return ImpactedParameter{
		Method:   method,
		Location: location,
		Name:     name,
		Value:    TruncatePayload(payload),
		Payload:  payload,
	}
}

// TruncatePayload shortens payloads of 512 runes or more to the first and
// last 256 runes joined by a "...(N chars)..." marker, where N is the full
// rune count. Shorter payloads are returned unchanged.
func TruncatePayload(s string) string {
	n := utf8.RuneCountInString(s)
	if n < defaults.TruncateAt {
		return s
	}
	r := []rune(s)
	return fmt.Sprintf("%s...(%d chars)...%s",
		string(r[:defaults.TruncateKeep]), n, string(r[n-defaults.TruncateKeep:]))
}

// Finding is a single reported defect for one candidate request.
type Finding struct {
	ID          string         `json:"id"`
	Fingerprint string         `json:"fingerprint"`
	CampaignID  string         `json:"campaign_id,omitempty"`
	Test        string         `json:"test"`
	TestType    string         `json:"test_type"`
	DefectType  string         `json:"defect_type,omitempty"`
	Severity    Severity       `json:"severity"`
	Confidence  scoring.Bucket `json:"confidence"`
	Score       float64        `json:"score"`
	Text        string         `json:"text"`
	Reasons     []string       `json:"reasons,omitempty"`

	Target      string            `json:"target"`
	Path        string            `json:"path"`
	ContentType string            `json:"content_type,omitempty"`
	Parameter   ImpactedParameter `json:"impacted_parameter"`

	Request        *transport.Request  `json:"request,omitempty"`
	Response       *transport.Response `json:"-"`
	StatusCode     int                 `json:"status_code,omitempty"`
	ResponseLength int                 `json:"response_length,omitempty"`
	ElapsedMs      float64             `json:"elapsed_ms,omitempty"`
	Failure        string              `json:"failure,omitempty"`

	Signals   []signal.Signal `json:"signals,omitempty"`
	Sequence  int             `json:"sequence"`
	CreatedAt time.Time       `json:"created_at"`
}

// New fills the identity fields of f and copies response metadata into
// its reportable fields.
func New(f Finding) *Finding {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	if f.Response != nil {
		f.StatusCode = f.Response.StatusCode
		f.ResponseLength = f.Response.Len()
		f.ElapsedMs = float64(f.Response.Elapsed.Microseconds()) / 1000
	}
	if f.Fingerprint == "" {
		f.Fingerprint = f.ComputeFingerprint()
	}
	return &f
}

// ComputeFingerprint hashes the fields that identify the same defect
// across campaigns: test, target, path and impacted parameter.
func (f *Finding) ComputeFingerprint() string {
	h := murmur3.New128()
	for _, part := range []string{
		f.Test, f.TestType, f.Target, f.Path,
		f.Parameter.Method, f.Parameter.Location, f.Parameter.Name, f.Parameter.Payload,
	} {
		_, _ = h.Write([]byte(part))
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SignalKeys returns the keys of the Signals attached to f.
func (f *Finding) SignalKeys() []string {
	keys := make([]string, len(f.Signals))
	for i, s := range f.Signals {
		keys[i] = s.Key
	}
	return keys
}
