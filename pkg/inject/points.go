package inject

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/sigfuzz/sigfuzz/pkg/defaults"
	"github.com/sigfuzz/sigfuzz/pkg/jsonutil"
	"github.com/sigfuzz/sigfuzz/pkg/transport"
)

// bodyKind distinguishes how a Data point rewrites the body.
type bodyKind int

const (
	bodyRaw bodyKind = iota
	bodyForm
	bodyJSON
)

// Point is a single injection site within a request.
type Point struct {
	Location Location
	Name     string

	marker     string
	occurrence int
	body       bodyKind
	path       []any
}

func (p Point) String() string {
	return fmt.Sprintf("%s:%s", p.Location, p.Name)
}

// Points enumerates the injection sites of req in location order: URL
// marker occurrences, query parameters, headers, then body fields. Names
// within a location are sorted.
func Points(req *transport.Request, marker string) ([]Point, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil request", ErrInvalidTemplate)
	}
	if marker == "" {
		marker = defaults.Marker
	}
	var pts []Point

	for i := range strings.Count(req.URL, marker) {
		name := marker
		if i > 0 {
			name = marker + "#" + strconv.Itoa(i+1)
		}
		pts = append(pts, Point{Location: URL, Name: name, marker: marker, occurrence: i})
	}

	params, err := queryParams(req)
	if err != nil {
		return nil, err
	}
	for _, k := range params {
		pts = append(pts, Point{Location: Params, Name: k})
	}

	var headers []string
	for k := range req.Headers {
		headers = append(headers, k)
	}
	slices.Sort(headers)
	for _, k := range headers {
		pts = append(pts, Point{Location: Headers, Name: k})
	}

	pts = append(pts, bodyPoints(req)...)
	return pts, nil
}

// Filter returns the points whose location is in locs. An empty locs
// keeps every point.
func Filter(pts []Point, locs []Location) []Point {
	if len(locs) == 0 {
		return pts
	}
	var out []Point
	for _, p := range pts {
		if slices.Contains(locs, p.Location) {
			out = append(out, p)
		}
	}
	return out
}

func queryParams(req *transport.Request) ([]string, error) {
	seen := map[string]bool{}
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	for k := range u.Query() {
		seen[k] = true
	}
	for k := range req.Query {
		seen[k] = true
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

func bodyPoints(req *transport.Request) []Point {
	if req.Body == "" {
		return nil
	}
	ct := strings.ToLower(req.ContentType())
	trimmed := strings.TrimSpace(req.Body)

	if strings.Contains(ct, "json") || (ct == "" && (strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "["))) {
		var v any
		if err := jsonutil.Unmarshal([]byte(req.Body), &v); err == nil {
			var pts []Point
			walkJSON(v, nil, func(path []any) {
				pts = append(pts, Point{Location: Data, Name: pathName(path), body: bodyJSON, path: path})
			})
			if len(pts) > 0 {
				return pts
			}
		}
	}

	if strings.Contains(ct, defaults.ContentTypeForm) || (ct == "" && strings.Contains(req.Body, "=")) {
		if form, err := url.ParseQuery(req.Body); err == nil && len(form) > 0 {
			keys := make([]string, 0, len(form))
			for k := range form {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			pts := make([]Point, 0, len(keys))
			for _, k := range keys {
				pts = append(pts, Point{Location: Data, Name: k, body: bodyForm})
			}
			return pts
		}
	}

	return []Point{{Location: Data, Name: "body", body: bodyRaw}}
}

// walkJSON visits every scalar leaf of v in sorted key order.
func walkJSON(v any, path []any, visit func([]any)) {
	switch x := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			walkJSON(x[k], append(slices.Clone(path), k), visit)
		}
	case []any:
		for i, e := range x {
			walkJSON(e, append(slices.Clone(path), i), visit)
		}
	default:
		if len(path) > 0 {
			visit(path)
		}
	}
}

func pathName(path []any) string {
	var b strings.Builder
	for _, p := range path {
		switch x := p.(type) {
		case string:
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			b.WriteString(x)
		case int:
			fmt.Fprintf(&b, "[%d]", x)
		}
	}
	return b.String()
}

// Inject returns a copy of base with payload placed at p.
func (p Point) Inject(base *transport.Request, payload string) (*transport.Request, error) {
	req := base.Clone()
	switch p.Location {
	case URL:
		req.URL = fillMarkers(req.URL, p.marker, p.occurrence, payload, p.marker)
	case Params:
		u, err := url.Parse(req.URL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
		}
		q := u.Query()
		if q.Has(p.Name) {
			q.Set(p.Name, payload)
			u.RawQuery = q.Encode()
			req.URL = u.String()
		}
		if req.Query.Has(p.Name) || !q.Has(p.Name) {
			if req.Query == nil {
				req.Query = url.Values{}
			}
			req.Query.Set(p.Name, payload)
		}
	case Headers:
		if req.Headers == nil {
			req.Headers = map[string][]string{}
		}
		req.Headers.Set(p.Name, payload)
	case Data:
		body, err := p.injectBody(req.Body, payload)
		if err != nil {
			return nil, err
		}
		req.Body = body
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLocation, p.Location)
	}
	return req, nil
}

func (p Point) injectBody(body, payload string) (string, error) {
	switch p.body {
	case bodyJSON:
		var v any
		if err := jsonutil.Unmarshal([]byte(body), &v); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
		}
		v = setPath(v, p.path, payload)
		out, err := jsonutil.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(out), nil
	case bodyForm:
		form, err := url.ParseQuery(body)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
		}
		form.Set(p.Name, payload)
		return form.Encode(), nil
	default:
		return payload, nil
	}
}

func setPath(v any, path []any, payload string) any {
	if len(path) == 0 {
		return payload
	}
	switch x := v.(type) {
	case map[string]any:
		k, _ := path[0].(string)
		x[k] = setPath(x[k], path[1:], payload)
		return x
	case []any:
		i, _ := path[0].(int)
		if i >= 0 && i < len(x) {
			x[i] = setPath(x[i], path[1:], payload)
		}
		return x
	}
	return v
}

// fillMarkers replaces the n-th (0-based) occurrence of marker with payload
// and every other occurrence with fill.
func fillMarkers(s, marker string, n int, payload, fill string) string {
	parts := strings.Split(s, marker)
	if len(parts) == 1 {
		return s
	}
	var b strings.Builder
	for i, part := range parts {
		b.WriteString(part)
		if i == len(parts)-1 {
			break
		}
		if i == n {
			b.WriteString(payload)
		} else {
			b.WriteString(fill)
		}
	}
	return b.String()
}
