// Command api runs the admin HTTP API: job creation, cancellation,
// and rescheduling, backed directly by the Store Gateway.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tempus/internal/api"
	"tempus/internal/cache"
	"tempus/internal/config"
	"tempus/internal/ratelimit"
	"tempus/internal/store"
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

	ctx := context.Background()
	poolCfg := store.PoolConfig{
		URL:               cfg.Database.URL,
		MaxConnections:    int32(cfg.Database.MaxConnections),
		MinConnections:    int32(cfg.Database.MinConnections),
		ConnectTimeout:    cfg.Database.ConnectTimeout(),
		AcquireTimeout:    cfg.Database.AcquireTimeout(),
		IdleTimeout:       cfg.Database.IdleTimeout(),
		MaxLifetime:       cfg.Database.MaxLifetime(),
		VisibilityTimeout: cfg.Engine.VisibilityTimeout(),
	}

	gateway, err := store.Connect(ctx, poolCfg, log)
	if err != nil {
		log.Errorw("could not connect to store", "error", err)
		os.Exit(1)
	}
	defer gateway.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	limiter := ratelimit.New(redisClient, log, cfg.RateLimit.Enabled, cfg.RateLimit.MaxRequests, cfg.RateLimit.WindowSeconds)
	jobCache := cache.New(redisClient, log, cfg.Cache.JobTTL())

	router := api.NewRouter(gateway, jobCache, limiter, log)
	metricsRouter := api.NewMetricsRouter()

	go func() {
		addr := fmt.Sprintf(":%d", cfg.MetricsPort)
		log.Infow("admin metrics listening", "addr", addr)
		if err := metricsRouter.Run(addr); err != nil {
			log.Errorw("metrics server stopped", "error", err)
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	log.Infow("admin API listening", "addr", addr)
	if err := router.Run(addr); err != nil {
		log.Errorw("admin API stopped", "error", err)
		os.Exit(1)
	}
}
