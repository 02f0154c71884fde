package engine

import (
	"errors"
	"fmt"
	"time"
)

// TransportError is a failed network call or a non-2xx response
type TransportError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: HTTP %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError means the server answered but not in the expected shape
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string { return e.Msg }

// TriggerError wraps any failure of the submission step
type TriggerError struct {
	Job string
	Err error
}

func (e *TriggerError) Error() string {
	return fmt.Sprintf("failed to trigger job '%s': %v", e.Job, e.Err)
}

func (e *TriggerError) Unwrap() error { return e.Err }

// RemoteOutcomeError is a build that finished with a non-success result
type RemoteOutcomeError struct {
	Job     string
	Outcome Outcome
}

func (e *RemoteOutcomeError) Error() string {
	return fmt.Sprintf("Job '%s' failed with status %s.", e.Job, e.Outcome)
}

// CancelledError is a queue item cancelled before it got a build
type CancelledError struct {
	Job string
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("Job '%s' was cancelled.", e.Job)
}

// TimeoutError is raised by the watchdog once the run budget is spent
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("job timeout: timed out after %s", e.After)
}

// OutcomeOf maps an error returned by a run to its Outcome. A nil error is
// SUCCESS, anything unrecognised is FAILURE.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}

	var timeoutErr *TimeoutError
	var cancelledErr *CancelledError
	var remoteErr *RemoteOutcomeError
	switch {
	case errors.As(err, &timeoutErr):
		return OutcomeTimeout
	case errors.As(err, &cancelledErr):
		return OutcomeCancelled
	case errors.As(err, &remoteErr):
		return remoteErr.Outcome
	default:
		return OutcomeFailure
	}
}
