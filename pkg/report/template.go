package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"

	"github.com/sigfuzz/sigfuzz/pkg/campaign"
	"github.com/sigfuzz/sigfuzz/pkg/defaults"
	"github.com/sigfuzz/sigfuzz/pkg/finding"
	"github.com/sigfuzz/sigfuzz/pkg/jsonutil"
)

// Compile-time interface check.
var _ Writer = (*TemplateWriter)(nil)

// TemplateConfig configures the template writer.
type TemplateConfig struct {
	// TemplatePath is the path to a custom template file.
	TemplatePath string

	// TemplateString is an inline template string (alternative to TemplatePath).
	TemplateString string

	// BuiltIn is the name of a built-in template: "csv" or "text-summary".
	BuiltIn string
}

var builtInTemplates = map[string]string{
	"csv": `campaign,template,test,severity,confidence,location,parameter,status,payload
{{- range .Findings }}
{{ .CampaignID }},{{ escapeCSV (index $.TemplateOf .CampaignID) }},{{ .Test }},{{ .Severity }},{{ .Confidence }},{{ .Parameter.Location }},{{ escapeCSV .Parameter.Name }},{{ .StatusCode }},{{ escapeCSV .Parameter.Value }}
{{- end }}`,

	"text-summary": `{{ .Tool }} {{ .Version }} scan summary
Generated: {{ .Generated | date "2006-01-02T15:04:05Z07:00" }}

Campaigns: {{ .Summary.Campaigns }} ({{ .Summary.Completed }} completed, {{ .Summary.Failed }} failed, {{ .Summary.Canceled }} canceled)
Candidates: {{ .Summary.Candidates }} ({{ .Summary.Failures }} transport failures)
Findings: {{ .Summary.Findings }}
{{- range $sev, $n := .Summary.BySeverity }}
  {{ $sev | title }}: {{ $n }}
{{- end }}
{{ range .Campaigns }}
{{ .Template }}: {{ .Status }}{{ if .Error }} ({{ .Error }}){{ end }}
{{- range .Findings }}
  [{{ .Severity | toString | upper }}] {{ .Test }} {{ .Parameter.Location }}:{{ .Parameter.Name }} {{ .Parameter.Value | trunc 60 | quote }}
{{- end }}
{{- end }}
`,
}

// TemplateData is the context templates are executed with.
type TemplateData struct {
	Tool      string
	Version   string
	Generated time.Time
	Summary   Summary
	Campaigns []*campaign.Result
	Findings  []*finding.Finding
	// TemplateOf maps a campaign ID to its template name.
	TemplateOf map[string]string
}

// TemplateWriter buffers results and renders a template on Close.
type TemplateWriter struct {
	w       io.Writer
	mu      sync.Mutex
	tmpl    *template.Template
	results []*campaign.Result
}

// NewTemplateWriter parses the configured template.
func NewTemplateWriter(w io.Writer, cfg TemplateConfig) (*TemplateWriter, error) {
	var content string
	switch {
	case cfg.TemplatePath != "":
		data, err := os.ReadFile(cfg.TemplatePath)
		if err != nil {
			return nil, fmt.Errorf("report: read template: %w", err)
		}
		content = string(data)
	case cfg.TemplateString != "":
		content = cfg.TemplateString
	case cfg.BuiltIn != "":
		c, ok := builtInTemplates[cfg.BuiltIn]
		if !ok {
			return nil, fmt.Errorf("report: unknown built-in template: %s (available: csv, text-summary)", cfg.BuiltIn)
		}
		content = c
	default:
		content = builtInTemplates["text-summary"]
	}

	funcMap := sprig.TxtFuncMap()
	funcMap["escapeCSV"] = escapeCSV
	funcMap["json"] = toJSON

	tmpl, err := template.New(defaults.ToolName).Funcs(funcMap).Parse(content)
	if err != nil {
		return nil, fmt.Errorf("report: parse template: %w", err)
	}
	return &TemplateWriter{w: w, tmpl: tmpl}, nil
}

// Write buffers res.
func (tw *TemplateWriter) Write(res *campaign.Result) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.results = append(tw.results, res)
	return nil
}

// Close renders the template.
func (tw *TemplateWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	data := TemplateData{
		Tool:       defaults.ToolName,
		Version:    defaults.Version,
		Generated:  time.Now().UTC(),
		Summary:    Summarize(tw.results),
		Campaigns:  tw.results,
		Findings:   findings(tw.results),
		TemplateOf: make(map[string]string, len(tw.results)),
	}
	for _, r := range tw.results {
		data.TemplateOf[r.CampaignID] = r.Template
	}
	if err := tw.tmpl.Execute(tw.w, data); err != nil {
		return fmt.Errorf("report: render template: %w", err)
	}
	return nil
}

// escapeCSV quotes s when it contains a delimiter, quote or newline.
func escapeCSV(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func toJSON(v any) (string, error) {
	b, err := jsonutil.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
