package app

import (
	"errors"

	"github.com/hylla/ctrain/internal/submission"
)

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound        = errors.New("not found")
	ErrUnknownSink     = errors.New("unknown submission sink")
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// SubmissionError wraps a failed submission with the message shown to the submitter.
type SubmissionError struct {
	Sink    string
	Message string
	Err     error
}

// newSubmissionError wraps err with its user-facing message.
func newSubmissionError(sink string, err error) *SubmissionError {
	return &SubmissionError{
		Sink:    sink,
		Message: submission.UserMessage(err),
		Err:     err,
	}
}

// Error returns the wrapped error text.
func (e *SubmissionError) Error() string {
	if e.Sink == "" {
		return "submit: " + e.Err.Error()
	}
	return "submit via " + e.Sink + ": " + e.Err.Error()
}

// Unwrap exposes the underlying cause.
func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// UserMessage returns the single human-readable failure message.
func (e *SubmissionError) UserMessage() string {
	return e.Message
}
