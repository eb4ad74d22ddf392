package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tempus/internal/store"
)

func newTestCache(t *testing.T) *JobCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, zap.NewNop().Sugar(), time.Minute)
}

func TestCacheMissReturnsNil(t *testing.T) {
	c := newTestCache(t)
	if got := c.Get(context.Background(), uuid.New()); got != nil {
		t.Fatalf("expected nil on cache miss, got %+v", got)
	}
}

func TestCacheSetThenGetRoundTrips(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	job := &store.ClaimedJob{
		Job: store.Job{
			ID:     uuid.New(),
			Target: "https://example.com/webhook",
			Type:   store.JobTypeHTTP,
		},
		Metadata: store.JobMetadata{Status: store.StatusProcessing},
	}

	c.Set(ctx, job)
	got := c.Get(ctx, job.ID)
	if got == nil {
		t.Fatal("expected a cache hit after Set")
	}
	if got.ID != job.ID || got.Target != job.Target {
		t.Fatalf("cached job does not match original: got %+v, want %+v", got, job)
	}
}

func TestCacheInvalidateClearsEntry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	job := &store.ClaimedJob{Job: store.Job{ID: uuid.New()}}
	c.Set(ctx, job)
	c.Invalidate(ctx, job.ID)

	if got := c.Get(ctx, job.ID); got != nil {
		t.Fatal("expected nil after invalidating a cached job")
	}
}
