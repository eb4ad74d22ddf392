package executor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

type recordingSink struct {
	httpStatusCodes []int
	kafkaMessages   int
}

func (s *recordingSink) IncJobsProcessed(status string)     {}
func (s *recordingSink) ObserveJobDuration(seconds float64) {}
func (s *recordingSink) IncHTTPRequests(statusCode int) {
	s.httpStatusCodes = append(s.httpStatusCodes, statusCode)
}
func (s *recordingSink) IncKafkaMessages()              { s.kafkaMessages++ }
func (s *recordingSink) SetCurrentProcessingJobs(n int) {}

func TestHTTPExecutorTreatsNon2xxAsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := &recordingSink{}
	exec := NewHTTPExecutor(30*time.Second, 5*time.Second, sink, zap.NewNop().Sugar())

	if err := exec.Execute(context.Background(), srv.URL, []byte(`{}`)); err != nil {
		t.Fatalf("Execute should treat a completed 500 round trip as success, got error: %v", err)
	}
	if len(sink.httpStatusCodes) != 1 || sink.httpStatusCodes[0] != 500 {
		t.Fatalf("expected status 500 recorded, got %v", sink.httpStatusCodes)
	}
}

func TestHTTPExecutorRejectsInvalidTarget(t *testing.T) {
	sink := &recordingSink{}
	exec := NewHTTPExecutor(30*time.Second, 5*time.Second, sink, zap.NewNop().Sugar())

	err := exec.Execute(context.Background(), "not-a-url", []byte(`{}`))
	if err == nil {
		t.Fatal("expected a validation error for a relative target")
	}
	if !IsValidation(err) {
		t.Fatalf("expected IsValidation(err) true, got err: %v", err)
	}
}

func TestHTTPExecutorTransportError(t *testing.T) {
	sink := &recordingSink{}
	exec := NewHTTPExecutor(30*time.Second, 50*time.Millisecond, sink, zap.NewNop().Sugar())

	err := exec.Execute(context.Background(), "http://127.0.0.1:1", []byte(`{}`))
	if err == nil {
		t.Fatal("expected a transport error connecting to a closed port")
	}
	if len(sink.httpStatusCodes) != 0 {
		t.Fatalf("no status code should be recorded on transport failure, got %v", sink.httpStatusCodes)
	}
}
