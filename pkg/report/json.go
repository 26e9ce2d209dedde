package report

import (
	"io"
	"sync"
	"time"

	"github.com/sigfuzz/sigfuzz/pkg/campaign"
	"github.com/sigfuzz/sigfuzz/pkg/defaults"
	"github.com/sigfuzz/sigfuzz/pkg/jsonutil"
)

// Compile-time interface check.
var _ Writer = (*JSONWriter)(nil)

// Document is the JSON report layout.
type Document struct {
	Tool        string             `json:"tool"`
	Version     string             `json:"version"`
	GeneratedAt time.Time          `json:"generated_at"`
	Summary     Summary            `json:"summary"`
	Campaigns   []*campaign.Result `json:"campaigns"`
}

// JSONWriter buffers results and writes a single Document on Close.
type JSONWriter struct {
	w       io.Writer
	mu      sync.Mutex
	pretty  bool
	results []*campaign.Result
}

// NewJSONWriter creates a JSON writer.
func NewJSONWriter(w io.Writer, pretty bool) *JSONWriter {
	return &JSONWriter{w: w, pretty: pretty}
}

// Write buffers res.
func (jw *JSONWriter) Write(res *campaign.Result) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	jw.results = append(jw.results, res)
	return nil
}

// Close writes the document.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	doc := Document{
		Tool:        defaults.ToolName,
		Version:     defaults.Version,
		GeneratedAt: time.Now().UTC(),
		Summary:     Summarize(jw.results),
		Campaigns:   jw.results,
	}
	if doc.Campaigns == nil {
		doc.Campaigns = []*campaign.Result{}
	}
	enc := jsonutil.NewEncoder(jw.w)
	if jw.pretty {
		enc.SetIndent("  ")
	}
	return enc.Encode(doc)
}
