// Package runner drives one trigger-and-wait run against a CI engine.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"jobwait/internal/engine"
	"jobwait/internal/logger"
)

// Request describes one run
type Request struct {
	Job     string
	Params  map[string]string
	Wait    bool
	Timeout time.Duration // zero disables the watchdog
}

// Recorder keeps a history of finished runs
type Recorder interface {
	RecordRun(result *engine.RunResult, params map[string]string, at time.Time) error
}

// Runner triggers a job, optionally waits for it, and reports the outcome
type Runner struct {
	engine   engine.CIEngine
	recorder Recorder
	logger   *slog.Logger
}

// Option configures a Runner
type Option func(*Runner)

// WithRecorder enables the run history
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) {
		r.recorder = rec
	}
}

// WithLogger sets the logger used for run messages
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Runner on top of e
func New(e engine.CIEngine, opts ...Option) *Runner {
	r := &Runner{
		engine: e,
		logger: logger.Get(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes req. The returned RunResult is always populated; the error is
// non-nil for every outcome except SUCCESS and TRIGGERED. Once the watchdog
// fires the error is a *engine.TimeoutError, whatever call was in flight.
func (r *Runner) Run(ctx context.Context, req Request) (*engine.RunResult, error) {
	started := time.Now()
	result := &engine.RunResult{
		RunID: uuid.NewString(),
		Job:   req.Job,
	}
	log := r.logger.With("run_id", result.RunID, "job", req.Job)

	ctx, dog := armWatchdog(ctx, req.Timeout)
	defer dog.Stop()

	displayName, err := r.execute(ctx, req, result, log)
	if err != nil && dog.Fired() {
		err = context.Cause(ctx)
	}

	switch {
	case err != nil:
		result.Outcome = engine.OutcomeOf(err)
		result.Message = err.Error()
	case req.Wait:
		result.Outcome = engine.OutcomeSuccess
		result.Message = fmt.Sprintf("Job '%s' completed successfully with status %s!", displayName, engine.OutcomeSuccess)
	default:
		result.Outcome = engine.OutcomeTriggered
		result.Message = fmt.Sprintf("Job '%s' triggered, queue item %s", req.Job, result.QueueURL)
	}

	log.Info("Run finished",
		"outcome", result.Outcome,
		"build_url", result.BuildURL,
		"elapsed", time.Since(started).Round(time.Millisecond).String(),
	)

	if r.recorder != nil {
		if recErr := r.recorder.RecordRun(result, req.Params, started); recErr != nil {
			log.Warn("Failed to record run", "error", recErr)
		}
	}

	return result, err
}

// execute triggers the job and, when asked, follows it. It fills result as it
// learns references and returns the build's display name on success.
func (r *Runner) execute(ctx context.Context, req Request, result *engine.RunResult, log *slog.Logger) (string, error) {
	queueURL, err := r.engine.Trigger(ctx, req.Job, req.Params)
	if err != nil {
		return "", err
	}
	result.QueueURL = queueURL
	log.Info("Job triggered", "queue_url", queueURL)

	if !req.Wait {
		return req.Job, nil
	}

	build, err := r.engine.Wait(ctx, req.Job, queueURL)
	if build == nil {
		return req.Job, err
	}
	result.BuildURL = build.BuildURL
	if build.FullDisplayName != "" {
		return build.FullDisplayName, err
	}
	return req.Job, err
}
