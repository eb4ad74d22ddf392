package executor

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"tempus/internal/metrics"
)

// HTTPExecutor POSTs the job payload to target using a process-wide
// reused client. Any completed round trip, regardless of status code,
// is treated as success for retry purposes; the status code is only
// recorded as a metric. This mirrors the source system's behavior —
// flagged, not silently fixed, in DESIGN.md.
type HTTPExecutor struct {
	client *http.Client
	sink   metrics.Sink
	log    *zap.SugaredLogger
}

// NewHTTPExecutor builds a shared client with the configured pool idle
// timeout and per-request timeout.
func NewHTTPExecutor(poolIdleTimeout, requestTimeout time.Duration, sink metrics.Sink, log *zap.SugaredLogger) *HTTPExecutor {
	transport := &http.Transport{
		IdleConnTimeout:     poolIdleTimeout,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
	}
	return &HTTPExecutor{
		client: &http.Client{
			Transport: transport,
			Timeout:   requestTimeout,
		},
		sink: sink,
		log:  log,
	}
}

func (e *HTTPExecutor) Execute(ctx context.Context, target string, payload []byte) error {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return NewValidationError("target must be a non-empty absolute http(s) URL")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		e.log.Warnw("http executor transport error", "target", target, "error", err)
		return err
	}
	defer resp.Body.Close()

	e.sink.IncHTTPRequests(resp.StatusCode)
	e.log.Debugw("http executor response", "target", target, "status", resp.StatusCode)
	return nil
}
