package report

import (
	"io"
	"sync"

	"github.com/sigfuzz/sigfuzz/pkg/campaign"
	"github.com/sigfuzz/sigfuzz/pkg/finding"
	"github.com/sigfuzz/sigfuzz/pkg/jsonutil"
)

// Compile-time interface check.
var _ Writer = (*JSONLWriter)(nil)

// Line types.
const (
	LineCampaign = "campaign"
	LineFinding  = "finding"
)

// CampaignLine is the JSONL record for one campaign.
type CampaignLine struct {
	Type       string `json:"type"`
	CampaignID string `json:"campaign_id"`
	Template   string `json:"template"`
	Status     string `json:"status"`
	Candidates int    `json:"candidates"`
	Failures   int    `json:"failures"`
	Findings   int    `json:"findings"`
	Error      string `json:"error,omitempty"`
}

// FindingLine is the JSONL record for one finding.
type FindingLine struct {
	Type    string           `json:"type"`
	Finding *finding.Finding `json:"finding"`
}

// JSONLWriter writes one JSON object per line. Each campaign produces a
// CampaignLine followed by a FindingLine per finding, written as soon as
// the campaign's result arrives.
type JSONLWriter struct {
	mu      sync.Mutex
	encoder *jsonutil.Encoder
}

// NewJSONLWriter creates a JSONL writer. It is safe for concurrent use.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	return &JSONLWriter{encoder: jsonutil.NewEncoder(w)}
}

// Write streams res.
func (jw *JSONLWriter) Write(res *campaign.Result) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.encoder.Encode(CampaignLine{
		Type:       LineCampaign,
		CampaignID: res.CampaignID,
		Template:   res.Template,
		Status:     res.Status,
		Candidates: res.Candidates,
		Failures:   res.Failures,
		Findings:   len(res.Findings),
		Error:      res.Error,
	}); err != nil {
		return err
	}
	for _, f := range res.Findings {
		if err := jw.encoder.Encode(FindingLine{Type: LineFinding, Finding: f}); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; lines are written immediately.
func (jw *JSONLWriter) Close() error {
	return nil
}
