package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tempus/internal/executor"
	"tempus/internal/metrics"
	"tempus/internal/retry"
	"tempus/internal/store"
)

// JobStore is the subset of the Store Gateway a Runner needs to
// record a job's terminal or retry outcome. Keeping it an interface
// (rather than depending on *store.Gateway directly) lets tests
// substitute a fake store instead of a live Postgres connection.
type JobStore interface {
	MarkCompleted(ctx context.Context, jobID uuid.UUID) error
	RescheduleForRetry(ctx context.Context, jobID uuid.UUID, newTime time.Time, newRetries int) error
	MarkFailed(ctx context.Context, jobID uuid.UUID, failureMsg string) error
}

// Runner carries one claimed job through to a terminal state:
// success, retry-scheduled, or permanent failure. It holds no durable
// state of its own — everything it learns about a job's outcome is
// written back to the store before it returns.
type Runner struct {
	gateway    JobStore
	executors  executor.Registry
	sink       metrics.Sink
	log        *zap.SugaredLogger
	maxRetries int
	baseDelay  time.Duration
}

// NewRunner builds a Runner with the given dependencies.
func NewRunner(gateway JobStore, executors executor.Registry, sink metrics.Sink, log *zap.SugaredLogger, maxRetries int, baseDelay time.Duration) *Runner {
	return &Runner{
		gateway:    gateway,
		executors:  executors,
		sink:       sink,
		log:        log,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

// Run executes job and writes the resulting terminal or retry state.
// A failure to write the terminal metadata is logged and the row is
// left Processing for a future claim round to rediscover via the
// visibility timeout.
func (r *Runner) Run(ctx context.Context, job store.ClaimedJob) {
	start := time.Now()

	exec, ok := r.executors.For(job.Type)
	if !ok {
		r.log.Errorw("no executor registered for job type", "job_id", job.ID, "type", job.Type)
		r.fail(ctx, job, "no executor registered for job type "+string(job.Type))
		return
	}

	err := exec.Execute(ctx, job.Target, job.Payload)
	r.sink.ObserveJobDuration(time.Since(start).Seconds())

	if err == nil {
		r.complete(ctx, job)
		return
	}

	r.log.Infow("job execution failed", "job_id", job.ID, "attempt", job.Retries, "error", err)
	r.handleFailure(ctx, job, err)
}

func (r *Runner) complete(ctx context.Context, job store.ClaimedJob) {
	if err := r.gateway.MarkCompleted(ctx, job.ID); err != nil {
		r.log.Errorw("failed to persist job completion, row left processing", "job_id", job.ID, "error", err)
		return
	}
	r.sink.IncJobsProcessed("success")
	r.log.Infow("job completed", "job_id", job.ID)
}

func (r *Runner) handleFailure(ctx context.Context, job store.ClaimedJob, cause error) {
	newRetries := job.Retries + 1

	if executor.IsValidation(cause) {
		r.log.Infow("job input validation failed, skipping retry", "job_id", job.ID, "error", cause)
		r.fail(ctx, job, cause.Error())
		return
	}

	if retry.ShouldRetry(job.Retries, r.maxRetries) {
		nextTime := retry.Backoff(job.Time, newRetries, r.baseDelay)
		if err := r.gateway.RescheduleForRetry(ctx, job.ID, nextTime, newRetries); err != nil {
			r.log.Errorw("failed to persist retry reschedule, row left processing", "job_id", job.ID, "error", err)
			return
		}
		r.sink.IncJobsProcessed("retry")
		r.log.Infow("job rescheduled for retry", "job_id", job.ID, "attempt", newRetries, "next_time", nextTime)
		return
	}

	r.fail(ctx, job, cause.Error())
}

func (r *Runner) fail(ctx context.Context, job store.ClaimedJob, message string) {
	if err := r.gateway.MarkFailed(ctx, job.ID, message); err != nil {
		r.log.Errorw("failed to persist permanent failure, row left processing", "job_id", job.ID, "error", err)
		return
	}
	r.sink.IncJobsProcessed("failure")
	r.log.Warnw("job permanently failed", "job_id", job.ID, "message", message)
}
