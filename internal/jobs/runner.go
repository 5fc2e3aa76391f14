// Package jobs wraps the three pipelines (audit, reinforcement, content
// build) with job-run bookkeeping and completion notifications.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/echorank/echorank/internal/domain"
	"github.com/echorank/echorank/internal/observability"
)

// JobFunc is one pipeline invocation. The returned summary lands in the
// completion event.
type JobFunc func(ctx context.Context) (map[string]any, error)

// Runner records job runs in the ledger and emits completion events.
type Runner struct {
	ledger   domain.JobLedger
	notifier domain.Notifier
}

// NewRunner creates a job runner.
func NewRunner(ledger domain.JobLedger, notifier domain.Notifier) *Runner {
	return &Runner{ledger: ledger, notifier: notifier}
}

// Run executes fn under a job-run ledger row. Panics inside fn are
// recovered and recorded as failures so a bad pipeline never takes the
// process down. The completion event is fire-and-forget.
func (r *Runner) Run(ctx context.Context, jobType, triggeredBy string, fn JobFunc) (err error) {
	run := &domain.JobRun{
		ID:          uuid.New().String(),
		JobType:     jobType,
		Status:      domain.JobStatusRunning,
		TriggeredBy: triggeredBy,
		StartedAt:   time.Now(),
	}
	if err := r.ledger.CreateJobRun(ctx, run); err != nil {
		return fmt.Errorf("failed to create job run: %w", err)
	}

	ctx = observability.WithJob(ctx, jobType)
	logger := observability.FromContext(ctx)
	logger.Info("job started", observability.String("triggered_by", triggeredBy))

	var summary map[string]any
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job panicked: %v", rec)
		}

		run.CompletedAt = time.Now()
		run.DurationSeconds = run.CompletedAt.Sub(run.StartedAt).Seconds()
		if err != nil {
			run.Status = domain.JobStatusFailed
			run.ErrorMessage = err.Error()
			logger.Error("job failed", observability.Error(err))
		} else {
			run.Status = domain.JobStatusSuccess
			logger.Info("job completed",
				observability.Float64("duration_seconds", run.DurationSeconds))
		}

		if finishErr := r.ledger.FinishJobRun(ctx, run); finishErr != nil {
			logger.Error("failed to finalize job run", observability.Error(finishErr))
			if err == nil {
				err = finishErr
			}
		}

		event := domain.JobEvent{
			Name:     jobType,
			Success:  run.Status == domain.JobStatusSuccess,
			Duration: run.CompletedAt.Sub(run.StartedAt),
			Summary:  summary,
		}
		go r.notifier.Notify(context.WithoutCancel(ctx), event)
	}()

	summary, err = fn(ctx)
	return err
}
