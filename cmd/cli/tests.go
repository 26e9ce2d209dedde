package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/sigfuzz/sigfuzz/pkg/config"
	"github.com/sigfuzz/sigfuzz/pkg/defaults"
)

// runTests lists the test types a scan would load.
func runTests(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tests", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var files stringList
	fs.Var(&files, "test-file", "Additional test type YAML file(s)")
	noBuiltins := fs.Bool("no-builtins", false, "Do not load built-in test types")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return defaults.ExitSuccess
		}
		return defaults.ExitUserError
	}

	cfg := config.Default()
	cfg.TestFiles = files
	cfg.NoBuiltins = *noBuiltins
	tests, err := loadTests(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return defaults.ExitUserError
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDEFECT\tSEVERITY\tCHECKS\tTRIGGERS")
	for _, tt := range tests {
		var kinds, triggers []string
		for _, k := range tt.Checks {
			kinds = append(kinds, string(k))
		}
		for _, tr := range tt.AllTriggers() {
			triggers = append(triggers, tr.Name)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			tt.Name, tt.DefectType, tt.Severity,
			strings.Join(kinds, ","), strings.Join(triggers, ","))
	}
	if err := tw.Flush(); err != nil {
		return defaults.ExitInternalError
	}
	return defaults.ExitSuccess
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}
