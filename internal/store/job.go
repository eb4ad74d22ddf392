package store

import (
	"time"

	"github.com/google/uuid"
)

// JobType identifies which executor a job is dispatched to.
type JobType string

const (
	JobTypeHTTP  JobType = "http"
	JobTypeKafka JobType = "kafka"
)

// JobStatus is the lifecycle status of a job's metadata row.
type JobStatus string

const (
	StatusScheduled  JobStatus = "scheduled"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusDeleted    JobStatus = "deleted"
	StatusFailed     JobStatus = "failed"
)

// Job is the immutable-after-creation scheduling record. Time and
// Retries are the only fields the engine mutates after insert.
type Job struct {
	ID        uuid.UUID `json:"id"`
	Time      time.Time `json:"time"`
	Retries   int       `json:"retries"`
	Target    string    `json:"target"`
	Type      JobType   `json:"type"`
	Payload   []byte    `json:"payload"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// JobMetadata is the mutable lifecycle row, 1:1 with Job.
type JobMetadata struct {
	JobID       uuid.UUID  `json:"jobId"`
	Status      JobStatus  `json:"status"`
	Failure     *string    `json:"failure,omitempty"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
}

// ClaimedJob is the full row pair returned by ClaimBatch.
type ClaimedJob struct {
	Job
	Metadata JobMetadata
}
