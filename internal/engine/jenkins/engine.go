package jenkins

import (
	"context"

	"jobwait/internal/engine"
)

// Engine implements engine.CIEngine for Jenkins
type Engine struct {
	trigger *Trigger
	waiter  *Waiter
}

var _ engine.CIEngine = (*Engine)(nil)

// NewEngine combines a Trigger and a Waiter
func NewEngine(trigger *Trigger, waiter *Waiter) *Engine {
	return &Engine{
		trigger: trigger,
		waiter:  waiter,
	}
}

// Trigger submits a build and returns its queue item URL
func (e *Engine) Trigger(ctx context.Context, jobName string, params map[string]string) (string, error) {
	return e.trigger.TriggerBuild(ctx, jobName, params)
}

// Wait follows the queue item to a terminal build result
func (e *Engine) Wait(ctx context.Context, jobName, queueURL string) (*engine.BuildResult, error) {
	return e.waiter.Wait(ctx, jobName, queueURL)
}
