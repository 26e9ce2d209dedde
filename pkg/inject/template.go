package inject

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sigfuzz/sigfuzz/pkg/defaults"
	"github.com/sigfuzz/sigfuzz/pkg/transport"
)

// Template is a request a campaign fuzzes.
type Template struct {
	Name    string
	Request *transport.Request
	// Marker designates URL injection points (default "FUZZ").
	Marker string
	// MarkerDefault replaces markers that are not being injected,
	// including every marker in the baseline request.
	MarkerDefault string
}

func (t Template) marker() string {
	if t.Marker == "" {
		return defaults.Marker
	}
	return t.Marker
}

// Baseline returns the unfuzzed request with every marker filled.
func (t Template) Baseline() *transport.Request {
	req := t.Request.Clone()
	req.URL = strings.ReplaceAll(req.URL, t.marker(), t.MarkerDefault)
	return req
}

// Points enumerates the template's injection sites.
func (t Template) Points() ([]Point, error) {
	return Points(t.Request, t.marker())
}

// Candidate builds the request carrying payload at p.
func (t Template) Candidate(p Point, payload string) (*transport.Request, error) {
	if p.Location == URL {
		req := t.Request.Clone()
		req.URL = fillMarkers(t.Request.URL, t.marker(), p.occurrence, payload, t.MarkerDefault)
		return req, nil
	}
	return p.Inject(t.Baseline(), payload)
}

// Validate checks that the template yields a sendable request.
func (t Template) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidTemplate)
	}
	if t.Request == nil {
		return fmt.Errorf("%w: %s: missing request", ErrInvalidTemplate, t.Name)
	}
	u, err := url.Parse(t.Baseline().URL)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidTemplate, t.Name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %s: unsupported scheme %q", ErrInvalidTemplate, t.Name, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %s: missing host", ErrInvalidTemplate, t.Name)
	}
	return nil
}

// templateFile is the on-disk YAML shape.
type templateFile struct {
	Templates []templateSpec `yaml:"templates"`
}

type templateSpec struct {
	Name          string            `yaml:"name"`
	Method        string            `yaml:"method"`
	URL           string            `yaml:"url"`
	Headers       map[string]string `yaml:"headers"`
	Query         map[string]string `yaml:"query"`
	Body          string            `yaml:"body"`
	Marker        string            `yaml:"marker"`
	MarkerDefault string            `yaml:"marker_default"`
}

func (s templateSpec) template() Template {
	req := &transport.Request{Method: s.Method, URL: s.URL, Body: s.Body}
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if len(s.Headers) > 0 {
		req.Headers = http.Header{}
		for k, v := range s.Headers {
			req.Headers.Set(k, v)
		}
	}
	if len(s.Query) > 0 {
		req.Query = url.Values{}
		for k, v := range s.Query {
			req.Query.Set(k, v)
		}
	}
	return Template{Name: s.Name, Request: req, Marker: s.Marker, MarkerDefault: s.MarkerDefault}
}

// ParseTemplates decodes a YAML document holding a templates list.
func ParseTemplates(data []byte) ([]Template, error) {
	var f templateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	out := make([]Template, 0, len(f.Templates))
	for _, s := range f.Templates {
		t := s.template()
		if err := t.Validate(); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// LoadTemplates reads templates from a YAML file, or from every .yaml and
// .yml file in a directory in name order.
func LoadTemplates(path string) ([]Template, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	files := []string{path}
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		files = files[:0]
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
		slices.Sort(files)
	}

	var out []Template
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		ts, err := ParseTemplates(data)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
		out = append(out, ts...)
	}
	return out, nil
}
