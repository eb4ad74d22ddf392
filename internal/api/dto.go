package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"tempus/internal/store"
)

// CreateJobRequest is the body of POST /jobs.
type CreateJobRequest struct {
	Target  string          `json:"target" binding:"required"`
	Time    time.Time       `json:"time" binding:"required"`
	Type    store.JobType   `json:"type" binding:"required,oneof=http kafka"`
	Payload json.RawMessage `json:"payload" binding:"required"`
}

// CreateJobResponse is the 200 body of POST /jobs.
type CreateJobResponse struct {
	ID      uuid.UUID `json:"id"`
	Message string    `json:"message"`
}

// RescheduleRequest is the body of PATCH /jobs/:id/time.
type RescheduleRequest struct {
	Time time.Time `json:"time" binding:"required"`
}
