package ride

import (
	"errors"
	"fmt"
)

var (
	ErrMissingPoint   = errors.New("origin and destination are required")
	ErrMissingQuote   = errors.New("no valid quote for this trip")
	ErrActiveRide     = errors.New("rider already has an active ride")
	ErrNoActiveRide   = errors.New("no active ride")
	ErrNotCancellable = errors.New("ride can no longer be cancelled")
	ErrNothingToRate  = errors.New("no completed ride to rate")
	ErrInvalidScore   = errors.New("score must be between 1 and 5")
	ErrNotFound       = errors.New("ride not found")
)

// SubmissionError is a ride request rejected locally or by the backend. It is
// never retried automatically.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("ride submission failed: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// Local reports whether the request was rejected before reaching the store.
func (e *SubmissionError) Local() bool {
	return errors.Is(e.Err, ErrMissingPoint) || errors.Is(e.Err, ErrMissingQuote)
}
