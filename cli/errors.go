package cli

import "fmt"

// Exit codes reported by Execute.
const (
	exitFailure = 1
	exitUsage   = 2
)

// CommandError carries what Execute prints for a failed command: a message, an optional hint
// and the process exit code.
type CommandError struct {
	Message    string
	Cause      error
	Suggestion string
	ExitCode   int
}

func (e CommandError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Cause != nil:
		return e.Cause.Error()
	}
	return "command failed"
}

func (e CommandError) Unwrap() error { return e.Cause }

// ExitStatus defaults to exitFailure.
func (e CommandError) ExitStatus() int {
	if e.ExitCode == 0 {
		return exitFailure
	}
	return e.ExitCode
}

// wrapError builds a CommandError; an empty message falls back to the cause's text.
func wrapError(message string, cause error, suggestion string, exitCode int) error {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return CommandError{Message: message, Cause: cause, Suggestion: suggestion, ExitCode: exitCode}
}

// usageError reports invalid flags, arguments or configuration.
func usageError(message, suggestion string) error {
	return wrapError(message, nil, suggestion, exitUsage)
}

func formatSuggestion(hint string) string {
	if hint == "" {
		return ""
	}
	return fmt.Sprintf("hint: %s", hint)
}
