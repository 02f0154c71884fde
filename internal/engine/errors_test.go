package engine

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{"nil", nil, OutcomeSuccess},
		{"timeout", &TimeoutError{After: time.Second}, OutcomeTimeout},
		{"wrapped timeout", fmt.Errorf("poll: %w", &TimeoutError{}), OutcomeTimeout},
		{"cancelled", &CancelledError{Job: "a"}, OutcomeCancelled},
		{"unstable", &RemoteOutcomeError{Job: "a", Outcome: OutcomeUnstable}, OutcomeUnstable},
		{"aborted", &RemoteOutcomeError{Job: "a", Outcome: OutcomeAborted}, OutcomeAborted},
		{"trigger", &TriggerError{Job: "a", Err: &ProtocolError{Msg: "x"}}, OutcomeFailure},
		{"plain", errors.New("boom"), OutcomeFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OutcomeOf(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	remote := &RemoteOutcomeError{Job: "deploy #4", Outcome: OutcomeFailure}
	assert.Equal(t, "Job 'deploy #4' failed with status FAILURE.", remote.Error())

	cancelled := &CancelledError{Job: "deploy"}
	assert.Equal(t, "Job 'deploy' was cancelled.", cancelled.Error())

	transport := &TransportError{Op: "GET", URL: "http://j/x", StatusCode: 502, Err: errors.New("bad gateway")}
	assert.Contains(t, transport.Error(), "HTTP 502")

	trigger := &TriggerError{Job: "deploy", Err: transport}
	assert.ErrorIs(t, trigger, transport.Err)
}

func TestOutcomeSucceeded(t *testing.T) {
	assert.True(t, OutcomeSuccess.Succeeded())
	assert.True(t, OutcomeTriggered.Succeeded())
	for _, o := range []Outcome{OutcomeFailure, OutcomeAborted, OutcomeUnstable, OutcomeCancelled, OutcomeTimeout} {
		assert.False(t, o.Succeeded(), string(o))
	}
}
