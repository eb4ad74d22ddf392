// Package cache implements a Redis cache-aside layer in front of the
// Store Gateway's job lookups, so repeated GET /jobs/{id} calls during
// a traffic spike don't all land on Postgres.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tempus/internal/store"
)

// JobCache caches store.ClaimedJob lookups under "job:{id}".
type JobCache struct {
	redis *redis.Client
	log   *zap.SugaredLogger
	ttl   time.Duration
}

func New(redisClient *redis.Client, log *zap.SugaredLogger, ttl time.Duration) *JobCache {
	return &JobCache{redis: redisClient, log: log, ttl: ttl}
}

func (c *JobCache) key(jobID uuid.UUID) string {
	return "job:" + jobID.String()
}

// Get returns the cached job, or nil on a miss. Cache errors are
// logged and treated as a miss rather than surfaced to the caller.
func (c *JobCache) Get(ctx context.Context, jobID uuid.UUID) *store.ClaimedJob {
	data, err := c.redis.Get(ctx, c.key(jobID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Debugw("job cache get error", "job_id", jobID, "error", err)
		}
		return nil
	}

	var job store.ClaimedJob
	if err := json.Unmarshal(data, &job); err != nil {
		c.log.Warnw("job cache deserialize error", "job_id", jobID, "error", err)
		return nil
	}
	return &job
}

// Set stores job under its ID with the configured TTL.
func (c *JobCache) Set(ctx context.Context, job *store.ClaimedJob) {
	if job == nil {
		return
	}
	data, err := json.Marshal(job)
	if err != nil {
		c.log.Warnw("job cache serialize error", "job_id", job.ID, "error", err)
		return
	}
	if err := c.redis.Set(ctx, c.key(job.ID), data, c.ttl).Err(); err != nil {
		c.log.Debugw("job cache set error", "job_id", job.ID, "error", err)
	}
}

// Invalidate drops a job from cache. Call after any write that
// changes a job's status or schedule.
func (c *JobCache) Invalidate(ctx context.Context, jobID uuid.UUID) {
	if err := c.redis.Del(ctx, c.key(jobID)).Err(); err != nil {
		c.log.Debugw("job cache invalidate error", "job_id", jobID, "error", err)
	}
}
