package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tempus/internal/cache"
	"tempus/internal/ratelimit"
	"tempus/internal/store"
)

// NewRouter builds the gin engine serving the admin API described in
// the specification's external interfaces section.
func NewRouter(gateway *store.Gateway, jobCache *cache.JobCache, limiter *ratelimit.Limiter, log *zap.SugaredLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(recoverMiddleware(log))
	r.Use(rateLimitMiddleware(limiter))

	h := NewHandlers(gateway, jobCache, log)

	r.GET("/health", h.Health)
	r.POST("/jobs", h.CreateJob)
	r.GET("/jobs/:id", h.GetJob)
	r.DELETE("/jobs/:id", h.CancelJob)
	r.PATCH("/jobs/:id/time", h.RescheduleJob)

	return r
}

// NewMetricsRouter builds the separate-port Prometheus exposition
// endpoint required by the specification.
func NewMetricsRouter() *gin.Engine {
	r := gin.New()
	handler := promhttp.Handler()
	r.GET("/metrics", gin.WrapH(handler))
	return r
}

func recoverMiddleware(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Errorw("recovered from panic in admin API", "error", err)
				c.JSON(http.StatusInternalServerError, ErrorResponse{Error: TagInternalError, Message: "an unexpected error occurred"})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// rateLimitMiddleware keys the bucket on X-Client-Id when present,
// falling back to the request's remote address so unidentified
// clients are still bounded.
func rateLimitMiddleware(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.GetHeader("X-Client-Id")
		if clientID == "" {
			clientID = c.ClientIP()
		}

		if !limiter.Allow(c.Request.Context(), clientID) {
			c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: TagBadRequest, Message: "rate limit exceeded"})
			c.Abort()
			return
		}

		remaining := limiter.Remaining(c.Request.Context(), clientID)
		c.Writer.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Next()
	}
}
