package errors

import "fmt"

var (
	// ErrInvalidTestIR is returned when the test IR is malformed or its type
	// tag does not match any registered adapter.
	ErrInvalidTestIR = New("invalid or unsupported test IR")

	// ErrToolTimeout is returned when a child process exceeds its wall-clock budget.
	ErrToolTimeout = New("external tool timed out")

	// ErrToolCrashed is returned when a child process exits with a system fault.
	ErrToolCrashed = New("external tool crashed")

	// ErrParseOutput is returned when the framework output could not be parsed.
	ErrParseOutput = New("could not parse tool output")

	// ErrNoASCIIPath is returned when no writable ASCII build location could be
	// found. The stager falls back to the original directory with a warning
	// before surfacing this.
	ErrNoASCIIPath = New("no writable ASCII build path available")
)

// ToolMissingErr is returned when a required external binary was not found.
// The message carries the install hint so it can be surfaced verbatim.
func ToolMissingErr(tool, hint string) error {
	if hint == "" {
		return New(fmt.Sprintf("required tool %q not found in PATH or configured locations", tool))
	}
	return New(fmt.Sprintf("required tool %q not found. %s", tool, hint))
}
