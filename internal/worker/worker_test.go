package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tempus/internal/executor"
	"tempus/internal/store"
)

type fakeStore struct {
	completed   []uuid.UUID
	rescheduled []rescheduleCall
	failed      []failCall
	failErr     error
}

type rescheduleCall struct {
	jobID      uuid.UUID
	newTime    time.Time
	newRetries int
}

type failCall struct {
	jobID   uuid.UUID
	failure string
}

func (f *fakeStore) MarkCompleted(ctx context.Context, jobID uuid.UUID) error {
	f.completed = append(f.completed, jobID)
	return nil
}

func (f *fakeStore) RescheduleForRetry(ctx context.Context, jobID uuid.UUID, newTime time.Time, newRetries int) error {
	f.rescheduled = append(f.rescheduled, rescheduleCall{jobID, newTime, newRetries})
	return nil
}

func (f *fakeStore) MarkFailed(ctx context.Context, jobID uuid.UUID, failure string) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.failed = append(f.failed, failCall{jobID, failure})
	return nil
}

type fakeExecutor struct {
	err error
}

func (e *fakeExecutor) Execute(ctx context.Context, target string, payload []byte) error {
	return e.err
}

type noopSink struct{}

func (noopSink) IncJobsProcessed(status string)     {}
func (noopSink) ObserveJobDuration(seconds float64) {}
func (noopSink) IncHTTPRequests(statusCode int)     {}
func (noopSink) IncKafkaMessages()                  {}
func (noopSink) SetCurrentProcessingJobs(n int)     {}

func newJob(retries int) store.ClaimedJob {
	return store.ClaimedJob{
		Job: store.Job{
			ID:      uuid.New(),
			Time:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			Retries: retries,
			Target:  "http://example.com",
			Type:    store.JobTypeHTTP,
		},
		Metadata: store.JobMetadata{Status: store.StatusProcessing},
	}
}

func TestRunnerMarksCompletedOnSuccess(t *testing.T) {
	fs := &fakeStore{}
	registry := executor.Registry{store.JobTypeHTTP: &fakeExecutor{}}
	r := NewRunner(fs, registry, noopSink{}, zap.NewNop().Sugar(), 3, time.Minute)

	job := newJob(0)
	r.Run(context.Background(), job)

	require.Equal(t, []uuid.UUID{job.ID}, fs.completed)
	require.Empty(t, fs.rescheduled)
	require.Empty(t, fs.failed)
}

func TestRunnerReschedulesOnRetryableFailure(t *testing.T) {
	fs := &fakeStore{}
	registry := executor.Registry{store.JobTypeHTTP: &fakeExecutor{err: errors.New("transport error")}}
	r := NewRunner(fs, registry, noopSink{}, zap.NewNop().Sugar(), 3, time.Minute)

	job := newJob(0)
	r.Run(context.Background(), job)

	require.Len(t, fs.rescheduled, 1)
	call := fs.rescheduled[0]
	require.Equal(t, job.ID, call.jobID)
	require.Equal(t, 1, call.newRetries)
	require.True(t, call.newTime.Equal(job.Time.Add(2*time.Minute)))
	require.Empty(t, fs.failed)
}

func TestRunnerFailsPermanentlyOnceRetriesExhausted(t *testing.T) {
	fs := &fakeStore{}
	registry := executor.Registry{store.JobTypeHTTP: &fakeExecutor{err: errors.New("still broken")}}
	r := NewRunner(fs, registry, noopSink{}, zap.NewNop().Sugar(), 3, time.Minute)

	job := newJob(3)
	r.Run(context.Background(), job)

	require.Empty(t, fs.rescheduled)
	require.Len(t, fs.failed, 1)
	require.Equal(t, job.ID, fs.failed[0].jobID)
	require.Equal(t, "still broken", fs.failed[0].failure)
}

func TestRunnerFailsImmediatelyOnValidationError(t *testing.T) {
	fs := &fakeStore{}
	registry := executor.Registry{store.JobTypeHTTP: &fakeExecutor{err: executor.NewValidationError("target must be a non-empty absolute http(s) URL")}}
	r := NewRunner(fs, registry, noopSink{}, zap.NewNop().Sugar(), 3, time.Minute)

	job := newJob(0)
	r.Run(context.Background(), job)

	require.Empty(t, fs.rescheduled, "a validation error should never be retried")
	require.Len(t, fs.failed, 1)
	require.Equal(t, job.ID, fs.failed[0].jobID)
}

func TestRunnerFailsWhenNoExecutorRegistered(t *testing.T) {
	fs := &fakeStore{}
	r := NewRunner(fs, executor.Registry{}, noopSink{}, zap.NewNop().Sugar(), 3, time.Minute)

	job := newJob(0)
	r.Run(context.Background(), job)

	require.Len(t, fs.failed, 1)
	require.Contains(t, fs.failed[0].failure, "no executor registered")
}

func TestRunnerLeavesRowProcessingWhenTerminalWriteFails(t *testing.T) {
	fs := &fakeStore{failErr: errors.New("connection reset")}
	registry := executor.Registry{}
	r := NewRunner(fs, registry, noopSink{}, zap.NewNop().Sugar(), 0, time.Minute)

	job := newJob(0)
	r.Run(context.Background(), job)

	require.Empty(t, fs.failed, "write failure should not be recorded as applied")
}
