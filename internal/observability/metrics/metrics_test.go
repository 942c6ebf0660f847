package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
)

func TestMiddlewareRecordsNormalizedPath(t *testing.T) {
	m := NewServiceMetrics("engai-api")
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/5f1c/describe", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	got := testutil.ToFloat64(m.requestTotal.WithLabelValues("engai-api", http.MethodPost, "/v1/sessions/{session_id}/describe", "409"))
	if got != 1 {
		t.Fatalf("expected one recorded request, got %v", got)
	}
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/v1/sessions":            "/v1/sessions",
		"/v1/sessions/":           "/v1/sessions/",
		"/v1/sessions/abc":        "/v1/sessions/{session_id}",
		"/v1/sessions/abc/report": "/v1/sessions/{session_id}/report",
		"/v1/analyses":            "/v1/analyses",
		"/ui/download":            "/ui/download",
	}
	for in, want := range cases {
		if got := normalizePath(in); got != want {
			t.Fatalf("normalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPipelineObservations(t *testing.T) {
	m := NewServiceMetrics("engai-api")

	m.ObserveStage(domain.StageVision, "huggingface", "failed", 2*time.Second)
	m.ObserveStage(domain.StageVision, "huggingface", "failed", time.Second)
	m.ObserveManualFallback("transport")
	m.ObserveBreakerTransition("vision.huggingface", "closed", "open")
	m.RecordEventPublish(domain.EventReported, errors.New("nats down"))

	if got := testutil.ToFloat64(m.stageTotal.WithLabelValues("engai-api", "vision", "huggingface", "failed")); got != 2 {
		t.Fatalf("expected 2 failed vision stages, got %v", got)
	}
	if got := testutil.ToFloat64(m.manualFallbacks.WithLabelValues("engai-api", "transport")); got != 1 {
		t.Fatalf("expected one manual fallback, got %v", got)
	}
	if got := testutil.ToFloat64(m.breakerTransitions.WithLabelValues("engai-api", "vision.huggingface", "closed", "open")); got != 1 {
		t.Fatalf("expected one breaker transition, got %v", got)
	}
	if got := testutil.ToFloat64(m.eventsPublished.WithLabelValues("engai-api", string(domain.EventReported), "error")); got != 1 {
		t.Fatalf("expected one failed publish, got %v", got)
	}
}

func TestHandlerExposesNamespace(t *testing.T) {
	m := NewServiceMetrics("engai-api")
	m.RecordRejected("rate_limited")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "eaa_http_rejected_requests_total") {
		t.Fatalf("metrics output missing rejected counter:\n%s", body)
	}
}
