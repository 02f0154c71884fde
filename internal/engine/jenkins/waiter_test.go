package jenkins

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobwait/internal/clock"
	"jobwait/internal/engine"
)

const (
	queueURL = "http://jenkins/queue/item/1/"
	buildURL = "http://jenkins/job/deploy/7/"
)

type read struct {
	snapshot Snapshot
	err      error
}

// scriptedReader serves canned reads per URL, repeating the last one
type scriptedReader struct {
	script map[string][]read
	calls  []string
}

func (r *scriptedReader) ReadStatus(ctx context.Context, statusURL string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Unknown(), err
	}
	n := 0
	for _, c := range r.calls {
		if c == statusURL {
			n++
		}
	}
	r.calls = append(r.calls, statusURL)

	reads := r.script[statusURL]
	if len(reads) == 0 {
		return Unknown(), errors.New("unscripted url " + statusURL)
	}
	if n >= len(reads) {
		n = len(reads) - 1
	}
	return reads[n].snapshot, reads[n].err
}

func snap(t *testing.T, body string) read {
	t.Helper()
	s, err := decodeSnapshot([]byte(body))
	require.NoError(t, err)
	return read{snapshot: s}
}

func unknown() read {
	return read{snapshot: Unknown()}
}

func newTestWaiter(reader StatusReader, sleeper clock.Sleeper) *Waiter {
	return NewWaiter(reader, WithSleeper(sleeper), WithWaiterLogger(discardLogger))
}

func TestWait_QueueThenSuccess(t *testing.T) {
	reader := &scriptedReader{script: map[string][]read{
		queueURL: {
			snap(t, `{"why":"waiting"}`),
			snap(t, `{"executable":{"url":"`+buildURL+`"}}`),
		},
		buildURL: {
			snap(t, `{"result":"SUCCESS","fullDisplayName":"deploy #7"}`),
		},
	}}
	sleeper := &clock.Recorder{}

	result, err := newTestWaiter(reader, sleeper).Wait(context.Background(), "deploy", queueURL)
	require.NoError(t, err)

	assert.Equal(t, engine.OutcomeSuccess, result.Outcome)
	assert.Equal(t, buildURL, result.BuildURL)
	assert.Equal(t, "deploy #7", result.FullDisplayName)
	assert.Equal(t, []string{queueURL, queueURL, buildURL}, reader.calls)
	assert.Equal(t, []time.Duration{DefaultPollInterval}, sleeper.Slept)
}

func TestWait_BuildTargetNeverReverts(t *testing.T) {
	reader := &scriptedReader{script: map[string][]read{
		queueURL: {
			snap(t, `{"executable":{"url":"`+buildURL+`"}}`),
			// a later queue read would claim cancellation; it must never happen
			snap(t, `{"cancelled":true}`),
		},
		buildURL: {
			snap(t, `{"result":null,"duration":1000,"estimatedDuration":5000}`),
			snap(t, `{"result":null,"duration":2000,"estimatedDuration":5000}`),
			snap(t, `{"result":"SUCCESS"}`),
		},
	}}
	sleeper := &clock.Recorder{}

	_, err := newTestWaiter(reader, sleeper).Wait(context.Background(), "deploy", queueURL)
	require.NoError(t, err)

	assert.Equal(t, []string{queueURL, buildURL, buildURL, buildURL}, reader.calls)
	assert.Len(t, sleeper.Slept, 2)
}

func TestWait_Cancelled(t *testing.T) {
	reader := &scriptedReader{script: map[string][]read{
		queueURL: {snap(t, `{"cancelled":true}`)},
	}}

	result, err := newTestWaiter(reader, &clock.Recorder{}).Wait(context.Background(), "deploy", queueURL)

	var cancelledErr *engine.CancelledError
	require.ErrorAs(t, err, &cancelledErr)
	assert.Equal(t, engine.OutcomeCancelled, engine.OutcomeOf(err))
	assert.Empty(t, result.BuildURL)
	assert.Equal(t, []string{queueURL}, reader.calls)
}

func TestWait_CancelledCheckedBeforeExecutable(t *testing.T) {
	reader := &scriptedReader{script: map[string][]read{
		queueURL: {snap(t, `{"cancelled":true,"executable":{"url":"`+buildURL+`"}}`)},
		buildURL: {snap(t, `{"result":"SUCCESS"}`)},
	}}

	_, err := newTestWaiter(reader, &clock.Recorder{}).Wait(context.Background(), "deploy", queueURL)

	var cancelledErr *engine.CancelledError
	require.ErrorAs(t, err, &cancelledErr)
	assert.NotContains(t, reader.calls, buildURL)
}

func TestWait_ResultMapping(t *testing.T) {
	for _, code := range []engine.Outcome{engine.OutcomeFailure, engine.OutcomeAborted, engine.OutcomeUnstable} {
		t.Run(string(code), func(t *testing.T) {
			reader := &scriptedReader{script: map[string][]read{
				queueURL: {snap(t, `{"executable":{"url":"`+buildURL+`"}}`)},
				buildURL: {snap(t, `{"result":"`+string(code)+`","fullDisplayName":"deploy #7"}`)},
			}}

			result, err := newTestWaiter(reader, &clock.Recorder{}).Wait(context.Background(), "deploy", queueURL)

			var remoteErr *engine.RemoteOutcomeError
			require.ErrorAs(t, err, &remoteErr)
			assert.Equal(t, code, remoteErr.Outcome)
			assert.Equal(t, code, result.Outcome)
			assert.Contains(t, err.Error(), string(code))
			assert.Contains(t, err.Error(), "deploy #7")
		})
	}
}

func TestWait_UnknownSnapshotsKeepPolling(t *testing.T) {
	reader := &scriptedReader{script: map[string][]read{
		queueURL: {
			unknown(),
			snap(t, `{"executable":{"url":"`+buildURL+`"}}`),
		},
		buildURL: {
			unknown(),
			snap(t, `{"result":"NOT_BUILT"}`),
			snap(t, `{"result":"FAILURE"}`),
		},
	}}
	sleeper := &clock.Recorder{}

	_, err := newTestWaiter(reader, sleeper).Wait(context.Background(), "deploy", queueURL)

	var remoteErr *engine.RemoteOutcomeError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, engine.OutcomeFailure, remoteErr.Outcome)
	assert.Contains(t, err.Error(), "FAILURE")
	// display name falls back to the job name
	assert.Contains(t, err.Error(), "'deploy'")
	assert.Equal(t, []string{queueURL, queueURL, buildURL, buildURL, buildURL}, reader.calls)
	assert.Len(t, sleeper.Slept, 3)
}

func TestWait_TransportErrorIsFatal(t *testing.T) {
	boom := &engine.TransportError{Op: "GET", URL: buildURL, Err: errors.New("connection reset")}
	reader := &scriptedReader{script: map[string][]read{
		queueURL: {snap(t, `{"executable":{"url":"`+buildURL+`"}}`)},
		buildURL: {{snapshot: Unknown(), err: boom}},
	}}

	result, err := newTestWaiter(reader, &clock.Recorder{}).Wait(context.Background(), "deploy", queueURL)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, buildURL, result.BuildURL)
	assert.Len(t, reader.calls, 2)
}

func TestWait_ContextCancelledWhileSleeping(t *testing.T) {
	reader := &scriptedReader{script: map[string][]read{
		queueURL: {snap(t, `{"executable":{"url":"`+buildURL+`"}}`)},
		buildURL: {snap(t, `{"result":null}`)},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sleeper := &clock.Recorder{OnSleep: func(call int) {
		if call == 3 {
			cancel()
		}
	}}

	result, err := newTestWaiter(reader, sleeper).Wait(ctx, "deploy", queueURL)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, buildURL, result.BuildURL)
	assert.Len(t, sleeper.Slept, 3)
}

func TestWait_CustomInterval(t *testing.T) {
	reader := &scriptedReader{script: map[string][]read{
		queueURL: {snap(t, `{}`), snap(t, `{"executable":{"url":"`+buildURL+`"}}`)},
		buildURL: {snap(t, `{}`), snap(t, `{"result":"SUCCESS"}`)},
	}}
	sleeper := &clock.Recorder{}

	w := NewWaiter(reader, WithSleeper(sleeper), WithWaiterLogger(discardLogger), WithPollInterval(2*time.Second))
	_, err := w.Wait(context.Background(), "deploy", queueURL)
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, sleeper.Slept)
}

func TestWait_StoppedBackOff(t *testing.T) {
	reader := &scriptedReader{script: map[string][]read{
		queueURL: {snap(t, `{"why":"blocked"}`)},
	}}

	w := NewWaiter(reader, WithSleeper(&clock.Recorder{}), WithWaiterLogger(discardLogger), WithBackOff(&backoff.StopBackOff{}))
	_, err := w.Wait(context.Background(), "deploy", queueURL)
	assert.Error(t, err)
}

func TestEngine_DelegatesToTriggerAndWaiter(t *testing.T) {
	reader := &scriptedReader{script: map[string][]read{
		queueURL: {snap(t, `{"executable":{"url":"`+buildURL+`"}}`)},
		buildURL: {snap(t, `{"result":"SUCCESS"}`)},
	}}
	e := NewEngine(nil, newTestWaiter(reader, &clock.Recorder{}))

	result, err := e.Wait(context.Background(), "deploy", queueURL)
	require.NoError(t, err)
	assert.Equal(t, engine.OutcomeSuccess, result.Outcome)
}

func TestWait_LogsBuildNumberOnStart(t *testing.T) {
	reader := &scriptedReader{script: map[string][]read{
		queueURL: {snap(t, `{"executable":{"number":7,"url":"`+buildURL+`"}}`)},
		buildURL: {snap(t, `{"result":"SUCCESS"}`)},
	}}
	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, nil))

	w := NewWaiter(reader, WithSleeper(&clock.Recorder{}), WithWaiterLogger(log))
	_, err := w.Wait(context.Background(), "deploy", queueURL)
	require.NoError(t, err)

	assert.Contains(t, logs.String(), "build_number=7")
}
