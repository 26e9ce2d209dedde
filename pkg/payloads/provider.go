package payloads

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sigfuzz/sigfuzz/pkg/finding"
)

// Provider resolves the payload Source for a test type from the name of a
// payload file and the test type's inline payloads.
type Provider interface {
	Source(file string, inline []string) (Source, error)
}

// Inline is a Provider that only serves inline payloads.
type Inline struct{}

// Source implements Provider.
func (Inline) Source(_ string, inline []string) (Source, error) {
	if len(inline) == 0 {
		return nil, finding.ErrNoPayloads
	}
	return Slice(inline), nil
}

// Dir resolves payload files inside Base. A missing file falls back to
// the inline payloads when there are any.
type Dir struct {
	Base string
}

// Source implements Provider.
func (d Dir) Source(file string, inline []string) (Source, error) {
	if file == "" || d.Base == "" {
		return Inline{}.Source(file, inline)
	}
	path, err := d.resolve(file)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return missing(path, inline, err)
	}
	return File{Path: path}, nil
}

// resolve joins file onto Base and rejects names that escape it.
func (d Dir) resolve(file string) (string, error) {
	joined := filepath.Join(d.Base, file)
	absFile, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("resolving payload path: %w", err)
	}
	absBase, err := filepath.Abs(d.Base)
	if err != nil {
		return "", fmt.Errorf("resolving base path: %w", err)
	}
	if !strings.HasPrefix(absFile, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrPathEscape, file)
	}
	return absFile, nil
}

// FS resolves payload files inside Root, typically an embedded bundle.
// Like Dir, a missing file falls back to the inline payloads.
type FS struct {
	Root fs.FS
}

// Source implements Provider.
func (p FS) Source(file string, inline []string) (Source, error) {
	if file == "" || p.Root == nil {
		return Inline{}.Source(file, inline)
	}
	if !fs.ValidPath(file) {
		return nil, fmt.Errorf("%w: %q", ErrPathEscape, file)
	}
	if _, err := fs.Stat(p.Root, file); err != nil {
		return missing(file, inline, err)
	}
	return File{FS: p.Root, Path: file}, nil
}

func missing(path string, inline []string, err error) (Source, error) {
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if len(inline) > 0 {
		return Slice(inline), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrPayloadNotFound, path)
}
