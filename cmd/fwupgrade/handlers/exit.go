package handlers

import (
	"errors"

	"github.com/imamik/fwupgrade/internal/upgrade"
)

// Process exit codes.
const (
	ExitOK                = 0
	ExitFailed            = 1
	ExitAborted           = 2
	ExitConnectionFailure = 3
	ExitChecksumMismatch  = 4
	ExitRoleVerification  = 5
	ExitInvalidInvocation = 64
)

// ExitError carries the process exit code of a failed job.
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

// ExitCodeFor maps a job outcome to an exit code.
func ExitCodeFor(outcome upgrade.Outcome) int {
	switch outcome {
	case upgrade.OutcomeCompleted, upgrade.OutcomeDryRun:
		return ExitOK
	case upgrade.OutcomeAborted:
		return ExitAborted
	case upgrade.OutcomeConnection:
		return ExitConnectionFailure
	case upgrade.OutcomeChecksumMismatch:
		return ExitChecksumMismatch
	case upgrade.OutcomeRoleVerification:
		return ExitRoleVerification
	default:
		return ExitFailed
	}
}

// ExitCode returns the exit code for an error returned by a command.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailed
}
