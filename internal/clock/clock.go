// Package clock provides the delay primitive used between status polls.
package clock

import (
	"context"
	"time"
)

// Sleeper suspends the caller for a duration or until ctx is done
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Real sleeps on the wall clock
type Real struct{}

// Sleep waits for d without busy-waiting. It returns ctx.Err() if the context
// ends first.
func (Real) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recorder is a Sleeper that returns immediately and remembers every
// requested delay. OnSleep, when set, runs before each return and may cancel
// the caller's context to simulate time passing.
type Recorder struct {
	Slept   []time.Duration
	OnSleep func(call int)
}

// Sleep records d and returns ctx.Err()
func (r *Recorder) Sleep(ctx context.Context, d time.Duration) error {
	r.Slept = append(r.Slept, d)
	if r.OnSleep != nil {
		r.OnSleep(len(r.Slept))
	}
	return ctx.Err()
}
