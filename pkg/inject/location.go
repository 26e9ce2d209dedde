// Package inject enumerates the places in a request a payload can be
// substituted into, and loads the request templates campaigns start from.
//
// Usage:
//
//	points, err := inject.Points(tmpl.Request, defaults.Marker)
//	for _, p := range points {
//	    req, err := p.Inject(tmpl.Request, payload)
//	}
package inject

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for template loading and injection.
var (
	// ErrInvalidTemplate indicates a template that cannot produce a request.
	ErrInvalidTemplate = errors.New("inject: invalid template")

	// ErrUnknownLocation indicates a location name that is not recognized.
	ErrUnknownLocation = errors.New("inject: unknown location")
)

// Location is the part of a request a payload is placed into.
type Location string

const (
	// URL substitutes the marker occurring in the URL.
	URL Location = "url"
	// Params substitutes query parameter values.
	Params Location = "params"
	// Headers substitutes header values.
	Headers Location = "headers"
	// Data substitutes body fields, or the whole body if it has no fields.
	Data Location = "data"
)

// AllLocations lists every location in enumeration order.
var AllLocations = []Location{URL, Params, Headers, Data}

// ParseLocation accepts a location name in any case. "body" is accepted
// as an alias for Data.
func ParseLocation(s string) (Location, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "url":
		return URL, nil
	case "params", "query":
		return Params, nil
	case "headers", "header":
		return Headers, nil
	case "data", "body":
		return Data, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLocation, s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Location) UnmarshalText(text []byte) error {
	parsed, err := ParseLocation(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
