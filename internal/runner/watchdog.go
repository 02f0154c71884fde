package runner

import (
	"context"
	"sync/atomic"
	"time"

	"jobwait/internal/engine"
)

// watchdog cancels a run's context with a *engine.TimeoutError cause once its
// budget is spent. A zero budget never fires.
type watchdog struct {
	timer  *time.Timer
	cancel context.CancelCauseFunc
	fired  atomic.Bool
}

// armWatchdog derives a cancellable context from parent and schedules its
// cancellation after budget. Stop must be called on every exit path.
func armWatchdog(parent context.Context, budget time.Duration) (context.Context, *watchdog) {
	ctx, cancel := context.WithCancelCause(parent)
	w := &watchdog{cancel: cancel}

	if budget > 0 {
		w.timer = time.AfterFunc(budget, func() {
			w.fired.Store(true)
			cancel(&engine.TimeoutError{After: budget})
		})
	}
	return ctx, w
}

// Fired reports whether the budget ran out
func (w *watchdog) Fired() bool {
	return w.fired.Load()
}

// Stop disarms the timer and releases the context
func (w *watchdog) Stop() {
	if w.timer != nil {
		w.timer.Stop()
	}
	w.cancel(nil)
}
