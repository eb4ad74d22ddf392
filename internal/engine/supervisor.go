// Package engine owns the dispatch engine's process lifecycle:
// connecting to the store with retry, wiring the dispatcher and
// executors, installing signal handlers, and draining in-flight work
// on shutdown.
package engine

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"tempus/internal/config"
	"tempus/internal/dispatcher"
	"tempus/internal/executor"
	"tempus/internal/metrics"
	"tempus/internal/store"
	"tempus/internal/worker"
)

// Supervisor drives the engine process from startup to clean
// shutdown.
type Supervisor struct {
	cfg  *config.Config
	log  *zap.SugaredLogger
	sink metrics.Sink
}

// New builds a Supervisor.
func New(cfg *config.Config, log *zap.SugaredLogger, sink metrics.Sink) *Supervisor {
	return &Supervisor{cfg: cfg, log: log, sink: sink}
}

// ConnectWithRetry opens the store connection, making up to
// maxAttempts attempts in total with a fixed backoff between them. This is the Supervisor's
// "bounded-attempt retry" step; a permanent failure here is fatal.
func ConnectWithRetry(ctx context.Context, poolCfg store.PoolConfig, log *zap.SugaredLogger, maxAttempts int, backoff time.Duration) (*store.Gateway, error) {
	b := retry.WithMaxRetries(uint64(maxAttempts-1), retry.NewConstant(backoff))

	var gateway *store.Gateway
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		g, err := store.Connect(ctx, poolCfg, log)
		if err != nil {
			log.Warnw("store connect attempt failed, retrying", "error", err)
			return retry.RetryableError(err)
		}
		gateway = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return gateway, nil
}

// Run executes the full supervised lifecycle and returns an exit code:
// 1 when the store cannot be reached within the bounded connect
// retries, and 0 once the dispatcher loop returns after shutdown.
// Errors inside the dispatcher loop are logged and retried on the next
// tick; none of them ends the loop or produces a non-zero exit code.
func (s *Supervisor) Run(ctx context.Context) int {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poolCfg := store.PoolConfig{
		URL:               s.cfg.Database.URL,
		MaxConnections:    int32(s.cfg.Database.MaxConnections),
		MinConnections:    int32(s.cfg.Database.MinConnections),
		ConnectTimeout:    s.cfg.Database.ConnectTimeout(),
		AcquireTimeout:    s.cfg.Database.AcquireTimeout(),
		IdleTimeout:       s.cfg.Database.IdleTimeout(),
		MaxLifetime:       s.cfg.Database.MaxLifetime(),
		VisibilityTimeout: s.cfg.Engine.VisibilityTimeout(),
		MaxRetries:        s.cfg.Engine.RetryAttempts,
	}

	gateway, err := ConnectWithRetry(ctx, poolCfg, s.log, 10, 5*time.Second)
	if err != nil {
		s.log.Errorw("could not connect to store after bounded retries, exiting", "error", err)
		return 1
	}
	defer gateway.Close()

	httpExec := executor.NewHTTPExecutor(s.cfg.HTTP.PoolIdleTimeout(), s.cfg.HTTP.RequestTimeout(), s.sink, s.log)
	kafkaExec := executor.NewKafkaExecutor(
		s.cfg.Kafka.BootstrapServers, s.cfg.Kafka.DefaultTopic,
		s.cfg.Kafka.ProducerRetries, s.cfg.Kafka.BatchSize, s.cfg.Kafka.CompressionType,
		s.cfg.Kafka.ProducerTimeout(), s.sink, s.log,
	)
	defer kafkaExec.Close()

	registry := executor.Registry{
		store.JobTypeHTTP:  httpExec,
		store.JobTypeKafka: kafkaExec,
	}

	pool := worker.NewPool(s.cfg.Engine.MaxConcurrentJobs)
	runner := worker.NewRunner(gateway, registry, s.sink, s.log, s.cfg.Engine.RetryAttempts, s.cfg.Engine.BaseDelay())
	d := dispatcher.New(gateway, pool, runner, s.sink, s.log, dispatcher.Config{
		MaxConcurrentJobs: s.cfg.Engine.MaxConcurrentJobs,
		TickInterval:      s.cfg.Engine.TickInterval(),
	})

	s.log.Info("engine starting")
	d.Run(ctx)
	s.log.Info("engine stopped cleanly")
	return 0
}
