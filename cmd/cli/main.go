// Command sigfuzz runs signal-based fuzzing campaigns against HTTP API
// request templates and reports the findings.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sigfuzz/sigfuzz/pkg/config"
	"github.com/sigfuzz/sigfuzz/pkg/defaults"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run dispatches the subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "scan":
			return runScan(ctx, args[1:], stdout, stderr)
		case "tests", "list-tests":
			return runTests(args[1:], stdout, stderr)
		case "-v", "--version", "version":
			fmt.Fprintf(stdout, "%s %s\n", defaults.ToolName, defaults.Version)
			return defaults.ExitSuccess
		case "-h", "--help", "help":
			printUsage(stdout)
			return defaults.ExitSuccess
		}
	}
	// Flags without a subcommand mean scan.
	return runScan(ctx, args, stdout, stderr)
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "%s %s - signal-based API fuzzer\n\n", defaults.ToolName, defaults.Version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  scan      Run campaigns against request templates (default)")
	fmt.Fprintln(w, "  tests     List the available test types")
	fmt.Fprintln(w, "  version   Print the version")
	fmt.Fprintln(w)
	config.Usage(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Exit codes:")
	fmt.Fprintf(w, "  %d  no findings\n", defaults.ExitSuccess)
	fmt.Fprintf(w, "  %d  findings reported\n", defaults.ExitFindingsFound)
	fmt.Fprintf(w, "  %d  invalid arguments or configuration\n", defaults.ExitUserError)
	fmt.Fprintf(w, "  %d  baseline failed for every template\n", defaults.ExitNetworkError)
	fmt.Fprintf(w, "  %d  internal error\n", defaults.ExitInternalError)
}
