package defaults

// Exit codes for the CLI.
const (
	ExitSuccess       = 0 // Clean exit, no findings
	ExitFindingsFound = 1 // At least one finding emitted
	ExitUserError     = 2 // Invalid arguments or configuration
	ExitNetworkError  = 3 // Baseline failed for every template
	ExitInternalError = 4 // Unexpected internal error
)
