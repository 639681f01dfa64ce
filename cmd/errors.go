package cmd

import "errors"

// Exit codes per the tool's external interface: 0 success, 2 usage error,
// 3 input error, 4 resource limit exceeded, 1 other.
const (
	ExitSuccess       = 0
	ExitOther         = 1
	ExitUsageError    = 2
	ExitInputError    = 3
	ExitResourceLimit = 4
)

// ExitError pairs an error with the process exit code it should produce,
// letting subcommands classify their own failures without Execute having
// to inspect error strings.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

// usageError, inputError, resourceLimitError wrap an error with its exit
// code classification.
func usageError(err error) error         { return &ExitError{Code: ExitUsageError, Err: err} }
func inputError(err error) error         { return &ExitError{Code: ExitInputError, Err: err} }
func resourceLimitError(err error) error { return &ExitError{Code: ExitResourceLimit, Err: err} }

// ExitCode extracts the intended process exit code from an error returned
// by a subcommand's RunE, defaulting to ExitOther for anything not
// explicitly classified.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitOther
}
