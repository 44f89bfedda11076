package defaults

// Exit codes for the CLI.
const (
	ExitSuccess       = 0 // Scan settled, at least one category succeeded
	ExitAllFailed     = 1 // Scan settled but every category failed
	ExitUserError     = 2 // Invalid arguments, configuration or precondition
	ExitInternalError = 4 // Unexpected internal error
)
