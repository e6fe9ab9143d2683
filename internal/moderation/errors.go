package moderation

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSubmissionShape = errors.New("invalid submission shape")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrForbidden              = errors.New("forbidden")
	ErrNotFound               = errors.New("submission not found")
	ErrInvalidStatus          = errors.New("invalid status filter")
)

// ApplyFailedError reports that the listing mutation of an approval failed.
// The submission is still pending.
type ApplyFailedError struct {
	SubmissionID string
	Err          error
}

func (e *ApplyFailedError) Error() string {
	return fmt.Sprintf("apply submission %s: %v", e.SubmissionID, e.Err)
}

func (e *ApplyFailedError) Unwrap() error {
	return e.Err
}
