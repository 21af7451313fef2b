package jobs

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
)

type stubScanEnqueuer struct {
	last ExpiryScanPayload
	err  error
}

func (s *stubScanEnqueuer) EnqueueExpiryScan(ctx context.Context, payload ExpiryScanPayload) (*asynq.TaskInfo, error) {
	s.last = payload
	if s.err != nil {
		return nil, s.err
	}
	return &asynq.TaskInfo{ID: "scan-1", Queue: QueueDefault}, nil
}

func newJobsRouter(scans scanEnqueuer) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	NewHandler(nil, scans, logger).MountRoutes(r)
	return r
}

func TestTriggerExpiryScan(t *testing.T) {
	scans := &stubScanEnqueuer{}
	router := newJobsRouter(scans)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/expiry-scan?company_id=42", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d: %s", rec.Code, rec.Body.String())
	}
	if scans.last.CompanyID != 42 {
		t.Fatalf("expected company 42 got %d", scans.last.CompanyID)
	}
	if !strings.Contains(rec.Body.String(), "scan-1") {
		t.Fatalf("expected task id in response, got %s", rec.Body.String())
	}
}

func TestTriggerExpiryScanRequiresCompany(t *testing.T) {
	router := newJobsRouter(&stubScanEnqueuer{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/expiry-scan", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestTriggerExpiryScanWithoutClient(t *testing.T) {
	router := newJobsRouter(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/expiry-scan?company_id=1", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
}
