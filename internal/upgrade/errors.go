package upgrade

import (
	"context"
	"errors"
)

// Error kinds. Match with errors.Is.
var (
	ErrConnectionFailure = errors.New("connection failure")
	ErrInsufficientSpace = errors.New("insufficient space")
	ErrJobAborted        = errors.New("job aborted")
	ErrChecksumMismatch  = errors.New("checksum mismatch")
	ErrRoleVerification  = errors.New("role verification failure")
)

// Outcome is the terminal state of a job.
type Outcome string

// Outcomes.
const (
	OutcomeCompleted        Outcome = "completed"
	OutcomeDryRun           Outcome = "dry-run"
	OutcomeChecksumMismatch Outcome = "checksum-mismatch"
	OutcomeAborted          Outcome = "aborted"
	OutcomeConnection       Outcome = "connection-failure"
	OutcomeRoleVerification Outcome = "role-verification-failure"
	OutcomeFailed           Outcome = "failed"
)

// Outcomes lists every outcome, for metrics and documentation.
var Outcomes = []Outcome{
	OutcomeCompleted,
	OutcomeDryRun,
	OutcomeChecksumMismatch,
	OutcomeAborted,
	OutcomeConnection,
	OutcomeRoleVerification,
	OutcomeFailed,
}

// OutcomeFor classifies the error a job ended with.
func OutcomeFor(err error, dryRun bool) Outcome {
	switch {
	case err == nil && dryRun:
		return OutcomeDryRun
	case err == nil:
		return OutcomeCompleted
	case errors.Is(err, ErrChecksumMismatch):
		return OutcomeChecksumMismatch
	case errors.Is(err, ErrJobAborted), errors.Is(err, context.Canceled):
		return OutcomeAborted
	case errors.Is(err, ErrRoleVerification):
		return OutcomeRoleVerification
	case errors.Is(err, ErrConnectionFailure):
		return OutcomeConnection
	default:
		return OutcomeFailed
	}
}
