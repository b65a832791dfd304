package campaign

import (
	"errors"
	"fmt"
)

// Sentinel errors for the operation taxonomy. API handlers map these onto
// transport status codes.
var (
	// ErrValidation marks malformed campaign or group configuration,
	// rejected before any ledger submission.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an absent campaign, group, or allow-list.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized marks an authority-only operation invoked by a
	// different principal.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict marks a state conflict, e.g. a duplicate group label or
	// an allow-list set on an unrestricted group.
	ErrConflict = errors.New("conflict")

	// ErrTooEarly marks a thaw attempted before the freeze expiry.
	ErrTooEarly = errors.New("too early")

	// ErrPreconditionFailed marks an unlock whose condition does not yet
	// hold.
	ErrPreconditionFailed = errors.New("precondition not met")
)

// SubmissionError wraps a ledger submission or confirmation failure.
// Retryable failures (expired blockhash reference) may be resubmitted with
// a fresh reference point; fatal ones must surface to the caller.
type SubmissionError struct {
	Op        string
	Signature string
	Retryable bool
	Err       error
}

func (e *SubmissionError) Error() string {
	kind := "fatal"
	if e.Retryable {
		kind = "retryable"
	}
	if e.Signature != "" {
		return fmt.Sprintf("%s: %s submission failure (sig %s): %v", e.Op, kind, e.Signature, e.Err)
	}
	return fmt.Sprintf("%s: %s submission failure: %v", e.Op, kind, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// BatchFailure identifies one failed item insertion batch.
type BatchFailure struct {
	BatchIndex int
	StartIndex int
	Err        error
}

// PartialLoadError reports that some item batches failed while others
// succeeded. Successful batches are never rolled back; the caller retries
// only the failed ranges.
type PartialLoadError struct {
	Loaded int
	Failed []BatchFailure
}

func (e *PartialLoadError) Error() string {
	return fmt.Sprintf("partial item load: %d items loaded, %d batches failed", e.Loaded, len(e.Failed))
}
