// Package dispatcher paces the engine: claim, dispatch, drain, sleep.
package dispatcher

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tempus/internal/metrics"
	"tempus/internal/store"
	"tempus/internal/worker"
)

// Claimer is the subset of the Store Gateway the dispatcher needs to
// pull a batch of eligible jobs. An interface seam so tests can drive
// the tick loop against a fake claim source instead of Postgres.
type Claimer interface {
	ClaimBatch(ctx context.Context, limit int) ([]store.ClaimedJob, error)
}

// Dispatcher runs the claim/dispatch/drain/sleep loop described in the
// specification's dispatcher state machine.
type Dispatcher struct {
	gateway       Claimer
	pool          *worker.Pool
	runner        *worker.Runner
	sink          metrics.Sink
	log           *zap.SugaredLogger
	maxConcurrent int
	tickInterval  time.Duration
}

// Config bundles the dispatcher's tunables.
type Config struct {
	MaxConcurrentJobs int
	TickInterval      time.Duration
}

// New builds a Dispatcher.
func New(gateway Claimer, pool *worker.Pool, runner *worker.Runner, sink metrics.Sink, log *zap.SugaredLogger, cfg Config) *Dispatcher {
	return &Dispatcher{
		gateway:       gateway,
		pool:          pool,
		runner:        runner,
		sink:          sink,
		log:           log,
		maxConcurrent: cfg.MaxConcurrentJobs,
		tickInterval:  cfg.TickInterval,
	}
}

// Run loops until ctx is cancelled. On cancellation it stops issuing
// new claims and waits for all in-flight workers spawned by the
// current tick to reach a terminal state before returning.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.log.Info("dispatcher stopping, draining in-flight workers")
			return
		default:
		}

		d.tick(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(d.tickInterval):
		}
	}
}

// tick performs one claim -> dispatch -> drain cycle.
func (d *Dispatcher) tick(ctx context.Context) {
	jobs, err := d.gateway.ClaimBatch(ctx, d.maxConcurrent)
	if err != nil {
		if store.IsTransient(err) {
			d.log.Warnw("transient claim_batch error, will retry next tick", "error", err)
		} else {
			d.log.Errorw("claim_batch error, will retry next tick", "error", err)
		}
		return
	}

	if len(jobs) == 0 {
		return
	}

	d.log.Infow("claimed batch", "count", len(jobs))
	d.sink.SetCurrentProcessingJobs(len(jobs))

	// Jobs run against a context detached from shutdown cancellation:
	// the dispatcher stops issuing new claims on shutdown, but an
	// in-flight request and its terminal store write must still be
	// allowed to complete rather than be aborted mid-flight. Each
	// executor's own timeout bounds how long that can take.
	jobCtx := context.WithoutCancel(ctx)

	done := ctx.Done()
	wg := make(chan struct{}, len(jobs))
	for _, job := range jobs {
		job := job
		if !d.pool.Acquire(done) {
			// Shutdown requested before this job got a slot; it stays
			// Processing and is rediscovered by the visibility timeout.
			wg <- struct{}{}
			continue
		}
		go func() {
			defer d.pool.Release()
			defer func() { wg <- struct{}{} }()
			d.runner.Run(jobCtx, job)
		}()
	}

	for range jobs {
		<-wg
	}
	d.sink.SetCurrentProcessingJobs(0)
}
