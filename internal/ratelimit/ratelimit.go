// Package ratelimit provides per-client admission control for the
// admin API using a Redis-backed token bucket. It guards access to
// the API, not the dispatch engine itself.
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Limiter is a fixed-window token bucket keyed by client ID.
type Limiter struct {
	redisClient   *redis.Client
	log           *zap.SugaredLogger
	enabled       bool
	maxRequests   int
	windowSeconds int
}

// New builds a Limiter against an existing Redis client.
func New(redisClient *redis.Client, log *zap.SugaredLogger, enabled bool, maxRequests, windowSeconds int) *Limiter {
	return &Limiter{
		redisClient:   redisClient,
		log:           log,
		enabled:       enabled,
		maxRequests:   maxRequests,
		windowSeconds: windowSeconds,
	}
}

func (l *Limiter) key(clientID string) string { return "rate_limit:" + clientID }

// Allow reports whether clientID may make another request this
// window, incrementing its counter as a side effect when allowed.
// Fails open (allows the request) if Redis is unreachable.
func (l *Limiter) Allow(ctx context.Context, clientID string) bool {
	if !l.enabled {
		return true
	}

	key := l.key(clientID)
	now := time.Now().Unix()

	count, errCount := l.redisClient.HGet(ctx, key, "count").Int()
	resetTime, errReset := l.redisClient.HGet(ctx, key, "resetTime").Int64()

	if errCount != nil || errReset != nil || now >= resetTime {
		pipe := l.redisClient.Pipeline()
		pipe.HSet(ctx, key, "count", 1)
		pipe.HSet(ctx, key, "resetTime", now+int64(l.windowSeconds))
		pipe.Expire(ctx, key, time.Duration(l.windowSeconds+10)*time.Second)
		if _, err := pipe.Exec(ctx); err != nil {
			l.log.Warnw("rate limiter redis error, failing open", "client_id", clientID, "error", err)
			return true
		}
		return true
	}

	if count < l.maxRequests {
		if err := l.redisClient.HIncrBy(ctx, key, "count", 1).Err(); err != nil {
			l.log.Warnw("rate limiter redis error, failing open", "client_id", clientID, "error", err)
		}
		return true
	}

	return false
}

// Remaining returns the number of requests clientID may still make in
// the current window.
func (l *Limiter) Remaining(ctx context.Context, clientID string) int64 {
	if !l.enabled {
		return int64(l.maxRequests)
	}

	key := l.key(clientID)
	now := time.Now().Unix()

	count, errCount := l.redisClient.HGet(ctx, key, "count").Int()
	resetTime, errReset := l.redisClient.HGet(ctx, key, "resetTime").Int64()
	if errCount != nil || errReset != nil || now >= resetTime {
		return int64(l.maxRequests)
	}

	remaining := int64(l.maxRequests - count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}
