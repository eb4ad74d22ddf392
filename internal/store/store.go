// Package store encapsulates the job and job_metadata relations and
// exposes the transactional operations the dispatch engine and the
// admin API need. All locking and atomicity guarantees described in
// the specification live here; callers never see raw SQL.
package store

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PoolConfig mirrors the database section of the engine configuration.
type PoolConfig struct {
	URL               string
	MaxConnections    int32
	MinConnections    int32
	ConnectTimeout    time.Duration
	AcquireTimeout    time.Duration
	IdleTimeout       time.Duration
	MaxLifetime       time.Duration
	MaxRetries        int
	VisibilityTimeout time.Duration
}

// Gateway is the Store Gateway: the only component that talks SQL.
type Gateway struct {
	pool *pgxpool.Pool
	log  *zap.SugaredLogger
	cfg  PoolConfig
}

// Connect opens a pooled connection, applying the configured pool
// knobs. Callers that need retry-with-backoff semantics should use
// ConnectWithRetry in the engine package instead of calling this
// directly against a database that may not yet be reachable.
func Connect(ctx context.Context, cfg PoolConfig, log *zap.SugaredLogger) (*Gateway, error) {
	pgCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, newError(KindQuery, "parse dsn", err)
	}

	pgCfg.MaxConns = cfg.MaxConnections
	pgCfg.MinConns = cfg.MinConnections
	pgCfg.MaxConnIdleTime = cfg.IdleTimeout
	pgCfg.MaxConnLifetime = cfg.MaxLifetime
	pgCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	connectCtx, cancel := context.WithTimeout(ctx, cfg.AcquireTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, pgCfg)
	if err != nil {
		return nil, newError(classify(err), "open pool", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, newError(classify(err), "ping", err)
	}

	return &Gateway{pool: pool, log: log, cfg: cfg}, nil
}

// Close releases the underlying connection pool.
func (g *Gateway) Close() { g.pool.Close() }

// classify turns a pgx/network error into a store Kind. Network errors,
// context deadline/cancellation, serialization failures, deadlocks and
// the connection_exception class are transient; any other Postgres
// error is a query-level failure; pgx.ErrNoRows is not-found; any
// other unrecognised error is treated as transient.
func classify(err error) Kind {
	if err == nil {
		return KindQuery
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransient
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 40001 = serialization_failure, 40P01 = deadlock_detected,
		// 08xxx = connection_exception class.
		switch {
		case pgErr.Code == "40001", pgErr.Code == "40P01":
			return KindTransient
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08":
			return KindTransient
		}
		return KindQuery
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return KindNotFound
	}
	return KindTransient
}

// claimBatchSQL selects up to $1 eligible rows, locks and flips them
// to processing, and returns the full joined row in one round trip.
// Rows already locked by a concurrent claim are skipped rather than
// waited on, which is what bounds contention between engine processes.
//
// The "touched" CTE stamps job.updated_at = now() for every row this
// statement claims. That stamp is what the visibility-timeout branch
// below reads, so a row just claimed by one worker starts its
// visibility window at claim time rather than at its last reschedule
// — without it, a future-dated job whose scheduled time trails its
// created_at/updated_at by more than the visibility timeout would be
// eligible for re-claim on the very next tick, while still in flight.
const claimBatchSQL = `
WITH claimed AS (
	UPDATE job_metadata
	SET status = 'processing'
	WHERE job_id IN (
		SELECT job.id
		FROM job
		JOIN job_metadata ON job.id = job_metadata.job_id
		WHERE job.retries < $2
		  AND (
			(job_metadata.status = 'scheduled' AND job.time <= now())
			OR (job_metadata.status = 'processing' AND job_metadata.processed_at IS NULL
			    AND job.updated_at < now() - $3::interval)
		  )
		ORDER BY job.time ASC
		FOR UPDATE OF job SKIP LOCKED
		LIMIT $1
	)
	RETURNING job_id, status, failure, processed_at
),
touched AS (
	UPDATE job
	SET updated_at = now()
	WHERE id IN (SELECT job_id FROM claimed)
	RETURNING id, time, retries, target, type, payload, created_at, updated_at
)
SELECT touched.id, touched.time, touched.retries, touched.target, touched.type, touched.payload,
       touched.created_at, touched.updated_at,
       claimed.job_id, claimed.status, claimed.failure, claimed.processed_at
FROM claimed
JOIN touched ON touched.id = claimed.job_id
ORDER BY touched.time ASC
`

// ClaimBatch atomically claims up to limit eligible jobs and flips
// them to Processing, returning the full row for each. Eligibility is
// bounded by the configured max retry count, so a job that has
// exhausted its retries is never reclaimed.
func (g *Gateway) ClaimBatch(ctx context.Context, limit int) ([]ClaimedJob, error) {
	rows, err := g.pool.Query(ctx, claimBatchSQL, limit, g.cfg.MaxRetries, g.cfg.VisibilityTimeout.String())
	if err != nil {
		return nil, newError(classify(err), "claim_batch", err)
	}
	defer rows.Close()

	var claimed []ClaimedJob
	for rows.Next() {
		var (
			cj          ClaimedJob
			payload     []byte
			failure     *string
			processedAt *time.Time
		)
		if err := rows.Scan(
			&cj.ID, &cj.Time, &cj.Retries, &cj.Target, &cj.Type, &payload,
			&cj.CreatedAt, &cj.UpdatedAt,
			&cj.Metadata.JobID, &cj.Metadata.Status, &failure, &processedAt,
		); err != nil {
			return nil, newError(classify(err), "claim_batch scan", err)
		}
		cj.Payload = payload
		cj.Metadata.Failure = failure
		cj.Metadata.ProcessedAt = processedAt
		claimed = append(claimed, cj)
	}
	if err := rows.Err(); err != nil {
		return nil, newError(classify(err), "claim_batch rows", err)
	}
	return claimed, nil
}

// MarkCompleted transitions a job's metadata to Completed. It is
// idempotent: applying it twice leaves the row in the same state.
func (g *Gateway) MarkCompleted(ctx context.Context, jobID uuid.UUID) error {
	_, err := g.pool.Exec(ctx,
		`UPDATE job_metadata SET status = 'completed', processed_at = now(), failure = NULL WHERE job_id = $1`,
		jobID,
	)
	if err != nil {
		return newError(classify(err), "mark_completed", err)
	}
	return nil
}

// RescheduleForRetry atomically bumps retries and anchors the next
// run time on the job row while resetting metadata back to Scheduled.
// Both updates commit together or neither does.
func (g *Gateway) RescheduleForRetry(ctx context.Context, jobID uuid.UUID, newTime time.Time, newRetries int) error {
	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return newError(classify(err), "reschedule_for_retry begin", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE job SET time = $1, retries = $2, updated_at = now() WHERE id = $3`,
		newTime, newRetries, jobID); err != nil {
		return newError(classify(err), "reschedule_for_retry job", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE job_metadata SET status = 'scheduled', failure = NULL, processed_at = NULL WHERE job_id = $1`,
		jobID); err != nil {
		return newError(classify(err), "reschedule_for_retry metadata", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return newError(classify(err), "reschedule_for_retry commit", err)
	}
	return nil
}

// MarkFailed transitions a job's metadata to the terminal Failed state.
func (g *Gateway) MarkFailed(ctx context.Context, jobID uuid.UUID, failureMsg string) error {
	_, err := g.pool.Exec(ctx,
		`UPDATE job_metadata SET status = 'failed', failure = $2, processed_at = now() WHERE job_id = $1`,
		jobID, failureMsg,
	)
	if err != nil {
		return newError(classify(err), "mark_failed", err)
	}
	return nil
}

// Insert persists a new Job + Scheduled JobMetadata row in one
// transaction.
func (g *Gateway) Insert(ctx context.Context, job *Job) error {
	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return newError(classify(err), "insert begin", err)
	}
	defer tx.Rollback(ctx)

	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	now := time.Now().UTC()
	job.CreatedAt, job.UpdatedAt = now, now

	if _, err := tx.Exec(ctx,
		`INSERT INTO job (id, time, retries, target, type, payload, created_at, updated_at)
		 VALUES ($1, $2, 0, $3, $4, $5, $6, $7)`,
		job.ID, job.Time, job.Target, job.Type, job.Payload, job.CreatedAt, job.UpdatedAt,
	); err != nil {
		return newError(classify(err), "insert job", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO job_metadata (job_id, status) VALUES ($1, 'scheduled')`,
		job.ID,
	); err != nil {
		return newError(classify(err), "insert metadata", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return newError(classify(err), "insert commit", err)
	}
	return nil
}

// GetJob fetches a single job with its metadata. Returns a
// store.Kind of KindNotFound if no such job exists.
func (g *Gateway) GetJob(ctx context.Context, jobID uuid.UUID) (*ClaimedJob, error) {
	row := g.pool.QueryRow(ctx,
		`SELECT job.id, job.time, job.retries, job.target, job.type, job.payload,
		        job.created_at, job.updated_at,
		        job_metadata.job_id, job_metadata.status, job_metadata.failure, job_metadata.processed_at
		 FROM job JOIN job_metadata ON job.id = job_metadata.job_id
		 WHERE job.id = $1`,
		jobID,
	)

	var (
		cj          ClaimedJob
		payload     []byte
		failure     *string
		processedAt *time.Time
	)
	if err := row.Scan(
		&cj.ID, &cj.Time, &cj.Retries, &cj.Target, &cj.Type, &payload,
		&cj.CreatedAt, &cj.UpdatedAt,
		&cj.Metadata.JobID, &cj.Metadata.Status, &failure, &processedAt,
	); err != nil {
		return nil, newError(classify(err), "get_job", err)
	}
	cj.Payload = payload
	cj.Metadata.Failure = failure
	cj.Metadata.ProcessedAt = processedAt
	return &cj, nil
}

// CancelUnprocessed deletes the job row if it is still Scheduled.
// The job_metadata row cascades away with it. Returns whether a row
// was affected.
func (g *Gateway) CancelUnprocessed(ctx context.Context, jobID uuid.UUID) (bool, error) {
	tag, err := g.pool.Exec(ctx,
		`DELETE FROM job USING job_metadata
		 WHERE job.id = job_metadata.job_id AND job.id = $1 AND job_metadata.status = 'scheduled'`,
		jobID,
	)
	if err != nil {
		return false, newError(classify(err), "cancel_unprocessed", err)
	}
	return tag.RowsAffected() > 0, nil
}

// RescheduleUnprocessed updates job.time if the job is still
// Scheduled. Returns whether a row was affected.
func (g *Gateway) RescheduleUnprocessed(ctx context.Context, jobID uuid.UUID, newTime time.Time) (bool, error) {
	tag, err := g.pool.Exec(ctx,
		`UPDATE job SET time = $1, updated_at = now()
		 FROM job_metadata
		 WHERE job.id = job_metadata.job_id AND job.id = $2 AND job_metadata.status = 'scheduled'`,
		newTime, jobID,
	)
	if err != nil {
		return false, newError(classify(err), "reschedule_unprocessed", err)
	}
	return tag.RowsAffected() > 0, nil
}
