package engine

import "context"

// Outcome is the final state of a run
type Outcome string

const (
	OutcomeSuccess   Outcome = "SUCCESS"
	OutcomeFailure   Outcome = "FAILURE"
	OutcomeAborted   Outcome = "ABORTED"
	OutcomeUnstable  Outcome = "UNSTABLE"
	OutcomeCancelled Outcome = "CANCELLED"
	OutcomeTimeout   Outcome = "TIMEOUT"

	// OutcomeTriggered is reported when the caller did not ask to wait
	OutcomeTriggered Outcome = "TRIGGERED"
)

// Succeeded reports whether the outcome is a non-error terminal state
func (o Outcome) Succeeded() bool {
	return o == OutcomeSuccess || o == OutcomeTriggered
}

// RunResult represents the result of a trigger-and-wait run
type RunResult struct {
	RunID    string  `json:"run_id"`
	Job      string  `json:"job"`
	QueueURL string  `json:"queue_url,omitempty"`
	BuildURL string  `json:"build_url,omitempty"`
	Outcome  Outcome `json:"outcome"`
	Message  string  `json:"message"`
}

// BuildResult is what the waiter knows once a build has finished
type BuildResult struct {
	BuildURL        string
	FullDisplayName string
	Outcome         Outcome
}

// CIEngine is an interface for CI engines
type CIEngine interface {
	// Trigger submits a build for jobName and returns the queue item URL
	Trigger(ctx context.Context, jobName string, params map[string]string) (string, error)

	// Wait follows a queue item until its build reaches a terminal state.
	// The returned BuildResult carries whatever was learned even on error.
	Wait(ctx context.Context, jobName, queueURL string) (*BuildResult, error)
}
