// Package exitcode defines the process exit codes of the forge CLI.
package exitcode

// Exit codes for forge CLI
const (
	// Success: the command did what was asked and, for check, the tree passed.
	Success = 0
	// Failure: validation found errors, or a write or external tool failed.
	Failure = 1
	// Usage: the invocation itself was wrong (bad flags, unknown project
	// type, missing path, broken structure document).
	Usage = 2
)

// String returns a human-readable description of the exit code
func String(code int) string {
	switch code {
	case Success:
		return "Success"
	case Failure:
		return "Failure"
	case Usage:
		return "Invalid invocation"
	default:
		return "Unknown error"
	}
}
