package cmd

import "fmt"

// Exit codes for hitstep CLI
const (
	// ExitSuccess indicates all scenarios passed
	ExitSuccess = 0

	// ExitTestFailure indicates one or more scenarios failed
	ExitTestFailure = 1

	// ExitParseError indicates a feature file parsing error
	ExitParseError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates the service under test never became ready
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func exitErrorf(code int, format string, args ...any) error {
	return &ExitError{Code: code, Err: fmt.Errorf(format, args...)}
}
