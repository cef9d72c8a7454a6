package cli

import "fmt"

// Host protocol exit codes.
const (
	ExitAllow   = 0
	ExitFailure = 1
	ExitBlock   = 2
)

// ExitError carries a non-zero exit code out of a command. main turns it
// into the process status.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

func exitCode(code int) error {
	if code == ExitAllow {
		return nil
	}
	return &ExitError{Code: code}
}
