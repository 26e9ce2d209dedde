// Package report renders campaign results.
//
// The package is organized by output format:
//
// # Summary (summary.go)
//
// Summary and Summarize aggregate a run: campaigns by status, candidates,
// transport failures and findings by severity and test.
//
// # Machine-readable (json.go, jsonl.go)
//
// JSONWriter emits one document with every campaign and a summary when
// closed. JSONLWriter streams one line per campaign and per finding as
// results arrive.
//
// # Console (console.go)
//
// ConsoleWriter prints findings with lipgloss styles. Colour is disabled
// when the destination is not a terminal or NoColor is set.
//
// # Templates (template.go)
//
// TemplateWriter renders a text/template with sprig functions over the
// whole run. Built-ins: "text-summary" and "csv".
package report
