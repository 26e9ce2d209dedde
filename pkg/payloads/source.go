// Package payloads supplies the fuzz strings a campaign injects.
//
// A Source yields payloads lazily and can be iterated more than once, so
// a campaign can walk the same list for every injection point without
// holding a large file in memory.
//
// Usage:
//
//	src, err := payloads.Dir{Base: "payloads"}.Source("command_injection.txt", nil)
//	err = src.Each(func(p string) bool {
//	    fmt.Println(p)
//	    return true
//	})
package payloads

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// Source is a lazy, restartable sequence of payloads.
type Source interface {
	// Each calls fn for every payload in order until fn returns false.
	Each(fn func(payload string) bool) error
}

// Slice is an in-memory Source.
type Slice []string

// Each implements Source.
func (s Slice) Each(fn func(string) bool) error {
	for _, p := range s {
		if !fn(p) {
			return nil
		}
	}
	return nil
}

// File streams one payload per line from Path. Empty lines are skipped.
type File struct {
	Path string
	// FS, when set, is opened instead of the local filesystem.
	FS fs.FS
	// MaxLineSize bounds a single payload in bytes (default 1MB).
	MaxLineSize int
}

// Each implements Source. The file is reopened on every call.
func (f File) Each(fn func(string) bool) error {
	fh, err := f.open()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrPayloadNotFound, f.Path)
		}
		return err
	}
	defer fh.Close()

	limit := f.MaxLineSize
	if limit <= 0 {
		limit = 1024 * 1024
	}
	sc := bufio.NewScanner(fh)
	sc.Buffer(make([]byte, 0, 64*1024), limit)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		if !fn(line) {
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", f.Path, err)
	}
	return nil
}

func (f File) open() (io.ReadCloser, error) {
	if f.FS != nil {
		return f.FS.Open(f.Path)
	}
	return os.Open(f.Path)
}

// Concat yields every payload of each Source in turn.
type Concat []Source

// Each implements Source.
func (c Concat) Each(fn func(string) bool) error {
	stopped := false
	for _, src := range c {
		err := src.Each(func(p string) bool {
			if !fn(p) {
				stopped = true
				return false
			}
			return true
		})
		if err != nil {
			return err
		}
		if stopped {
			return nil
		}
	}
	return nil
}

// Count walks src and returns the number of payloads.
func Count(src Source) (int, error) {
	n := 0
	err := src.Each(func(string) bool {
		n++
		return true
	})
	return n, err
}

// Collect walks src and returns its payloads.
func Collect(src Source) ([]string, error) {
	var out []string
	err := src.Each(func(p string) bool {
		out = append(out, p)
		return true
	})
	return out, err
}
