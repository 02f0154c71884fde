package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealSleep_Elapses(t *testing.T) {
	start := time.Now()
	err := Real{}.Sleep(context.Background(), 20*time.Millisecond)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestRealSleep_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := Real{}.Sleep(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRealSleep_NonPositive(t *testing.T) {
	assert.NoError(t, Real{}.Sleep(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Real{}.Sleep(ctx, -time.Second), context.Canceled)
}

func TestRecorder(t *testing.T) {
	calls := 0
	r := &Recorder{OnSleep: func(call int) { calls = call }}

	require.NoError(t, r.Sleep(context.Background(), time.Second))
	require.NoError(t, r.Sleep(context.Background(), 2*time.Second))

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, r.Slept)
	assert.Equal(t, 2, calls)
}
