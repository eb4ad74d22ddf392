// Command engine runs the dispatch engine: the claim loop, worker
// pool, executors, and retry policy described in the specification.
package main

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"tempus/internal/config"
	"tempus/internal/engine"
	"tempus/internal/metrics"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	cfg, err := config.Load()
	if err != nil {
		log.Errorw("configuration error", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	sink := metrics.New(reg)

	go serveMetrics(cfg.MetricsPort, reg, log)

	sup := engine.New(cfg, log, sink)
	os.Exit(sup.Run(context.Background()))
}
