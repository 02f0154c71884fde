package jenkins

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff"

	"jobwait/internal/clock"
	"jobwait/internal/engine"
	"jobwait/internal/logger"
)

// DefaultPollInterval is the delay between two status reads
const DefaultPollInterval = 5 * time.Second

// Waiter follows a queue item to its build and the build to a terminal result
type Waiter struct {
	reader   StatusReader
	sleeper  clock.Sleeper
	interval backoff.BackOff
	logger   *slog.Logger
}

// WaiterOption configures a Waiter
type WaiterOption func(*Waiter)

// WithPollInterval sets a constant delay between polls
func WithPollInterval(d time.Duration) WaiterOption {
	return func(w *Waiter) {
		w.interval = backoff.NewConstantBackOff(d)
	}
}

// WithBackOff sets the policy that decides each delay between polls
func WithBackOff(b backoff.BackOff) WaiterOption {
	return func(w *Waiter) {
		w.interval = b
	}
}

// WithSleeper replaces the wall-clock sleeper
func WithSleeper(s clock.Sleeper) WaiterOption {
	return func(w *Waiter) {
		w.sleeper = s
	}
}

// WithWaiterLogger sets the logger used for progress messages
func WithWaiterLogger(l *slog.Logger) WaiterOption {
	return func(w *Waiter) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWaiter creates a Waiter reading status through reader
func NewWaiter(reader StatusReader, opts ...WaiterOption) *Waiter {
	w := &Waiter{
		reader:   reader,
		sleeper:  clock.Real{},
		interval: backoff.NewConstantBackOff(DefaultPollInterval),
		logger:   logger.Get(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Wait polls queueURL until the queue item is cancelled or gets a build, then
// polls the build until it reports a result. A build result is the only thing
// that ends the build phase; there is no iteration bound, so callers bound the
// wait through ctx.
func (w *Waiter) Wait(ctx context.Context, jobName, queueURL string) (*engine.BuildResult, error) {
	result := &engine.BuildResult{}
	w.interval.Reset()

	w.logger.Info("Waiting for job", "job", jobName, "queue_url", queueURL)

	for {
		// check the queue until the job is assigned a build
		if result.BuildURL == "" {
			queued, err := w.reader.ReadStatus(ctx, queueURL)
			if err != nil {
				return result, err
			}

			if queued.Cancelled {
				return result, &engine.CancelledError{Job: jobName}
			}

			if queued.ExecutableURL == "" {
				w.logger.Info("Job is queued", "job", jobName, "why", queued.Why, "unknown", queued.IsUnknown())
				if err := w.sleep(ctx); err != nil {
					return result, err
				}
				continue
			}

			result.BuildURL = queued.ExecutableURL
			w.logger.Info("Job started executing", "job", jobName, "build_number", queued.Number, "build_url", result.BuildURL)
		}

		build, err := w.reader.ReadStatus(ctx, result.BuildURL)
		if err != nil {
			return result, err
		}
		if build.FullDisplayName != "" {
			result.FullDisplayName = build.FullDisplayName
		}

		switch outcome := engine.Outcome(build.Result); outcome {
		case engine.OutcomeSuccess:
			result.Outcome = outcome
			w.logger.Info("Job completed successfully", "job", w.displayName(result, jobName), "result", outcome, "build_url", result.BuildURL)
			return result, nil
		case engine.OutcomeFailure, engine.OutcomeAborted, engine.OutcomeUnstable:
			result.Outcome = outcome
			return result, &engine.RemoteOutcomeError{Job: w.displayName(result, jobName), Outcome: outcome}
		}

		if build.IsUnknown() {
			w.logger.Info("Build status unavailable, polling again", "job", w.displayName(result, jobName), "build_url", result.BuildURL)
		} else {
			w.logger.Info("Job is executing", "job", w.displayName(result, jobName),
				"duration_ms", build.Duration, "estimated_ms", build.EstimatedDuration)
		}
		if err := w.sleep(ctx); err != nil {
			return result, err
		}
	}
}

// sleep waits for the next interval given by the back-off policy
func (w *Waiter) sleep(ctx context.Context) error {
	d := w.interval.NextBackOff()
	if d == backoff.Stop {
		return fmt.Errorf("poll interval policy stopped")
	}
	w.logger.Debug("Sleeping before next poll", "interval", d.String())
	return w.sleeper.Sleep(ctx, d)
}

func (w *Waiter) displayName(result *engine.BuildResult, jobName string) string {
	if result.FullDisplayName != "" {
		return result.FullDisplayName
	}
	return jobName
}
