package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tempus/internal/cache"
	"tempus/internal/store"
)

// Handlers implements the admin API: parse and validate input, map to
// a store operation, translate errors. No business logic beyond
// input validation and status-code mapping lives here.
type Handlers struct {
	gateway *store.Gateway
	cache   *cache.JobCache
	log     *zap.SugaredLogger
}

func NewHandlers(gateway *store.Gateway, jobCache *cache.JobCache, log *zap.SugaredLogger) *Handlers {
	return &Handlers{gateway: gateway, cache: jobCache, log: log}
}

func (h *Handlers) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// CreateJob handles POST /jobs.
func (h *Handlers) CreateJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: TagValidationFailed, Message: err.Error()})
		return
	}

	job := &store.Job{
		Time:    req.Time,
		Target:  req.Target,
		Type:    req.Type,
		Payload: []byte(req.Payload),
	}

	if err := h.gateway.Insert(c.Request.Context(), job); err != nil {
		h.log.Errorw("failed to insert job", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: TagInternalError, Message: "failed to create job"})
		return
	}

	c.JSON(http.StatusOK, CreateJobResponse{ID: job.ID, Message: "job scheduled"})
}

// GetJob handles GET /jobs/:id, serving from the job cache when
// possible and falling back to the store on a miss.
func (h *Handlers) GetJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: TagBadRequest, Message: "invalid job id"})
		return
	}

	if cached := h.cache.Get(c.Request.Context(), id); cached != nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	job, err := h.gateway.GetJob(c.Request.Context(), id)
	if err != nil {
		if store.IsNotFound(err) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: TagNotFound, Message: "job not found"})
			return
		}
		h.log.Errorw("failed to get job", "job_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: TagInternalError, Message: "failed to fetch job"})
		return
	}

	h.cache.Set(c.Request.Context(), job)
	c.JSON(http.StatusOK, job)
}

// CancelJob handles DELETE /jobs/:id.
func (h *Handlers) CancelJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: TagBadRequest, Message: "invalid job id"})
		return
	}

	ok, err := h.gateway.CancelUnprocessed(c.Request.Context(), id)
	if err != nil {
		h.log.Errorw("failed to cancel job", "job_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: TagInternalError, Message: "failed to cancel job"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: TagNotFound, Message: "job not found or already processed"})
		return
	}

	h.cache.Invalidate(c.Request.Context(), id)
	c.Status(http.StatusNoContent)
}

// RescheduleJob handles PATCH /jobs/:id/time.
func (h *Handlers) RescheduleJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: TagBadRequest, Message: "invalid job id"})
		return
	}

	var req RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: TagValidationFailed, Message: err.Error()})
		return
	}

	ok, err := h.gateway.RescheduleUnprocessed(c.Request.Context(), id, req.Time)
	if err != nil {
		h.log.Errorw("failed to reschedule job", "job_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: TagInternalError, Message: "failed to reschedule job"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: TagNotFound, Message: "job not found or already processed"})
		return
	}

	h.cache.Invalidate(c.Request.Context(), id)
	c.Status(http.StatusNoContent)
}
