// Package presets embeds the bundled payload lists for the built-in test
// types.
//
// The CLI serves payload files from this bundle unless a payload
// directory is given on the command line.
//
// Usage:
//
//	provider := payloads.FS{Root: presets.FS}
//	src, err := provider.Source("command_injection.txt", nil)
package presets

import "embed"

// FS contains one payload per line for each bundled list.
//
//go:embed *.txt
var FS embed.FS
