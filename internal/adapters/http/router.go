package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/kirillkom/engineering-analysis-ai/internal/adapters/http/openapi"
	"github.com/kirillkom/engineering-analysis-ai/internal/config"
	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
	"github.com/kirillkom/engineering-analysis-ai/internal/core/ports"
	"github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/export"
	"github.com/kirillkom/engineering-analysis-ai/internal/observability/metrics"
)

const (
	serviceName = "engai-api"

	// multipartOverhead leaves room for form fields and boundaries on top of the image.
	multipartOverhead = 1 << 20
)

type Router struct {
	cfg       config.Config
	analysis  ports.AnalysisService
	sessions  ports.SessionStore
	exports   *export.Registry
	metrics   *metrics.ServiceMetrics
	validator *openapi.Validator
	page      *template.Template
}

// NewRouter wires the JSON API and the browser UI. serviceMetrics may be nil.
func NewRouter(
	cfg config.Config,
	analysis ports.AnalysisService,
	sessions ports.SessionStore,
	exports *export.Registry,
	serviceMetrics *metrics.ServiceMetrics,
) (*Router, error) {
	validator, err := openapi.NewValidator(context.Background())
	if err != nil {
		return nil, err
	}
	page, err := parsePageTemplate()
	if err != nil {
		return nil, fmt.Errorf("parse ui template: %w", err)
	}
	if exports == nil {
		exports = export.Default()
	}
	return &Router{
		cfg:       cfg,
		analysis:  analysis,
		sessions:  sessions,
		exports:   exports,
		metrics:   serviceMetrics,
		validator: validator,
		page:      page,
	}, nil
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /readyz", rt.readyz)
	mux.HandleFunc("GET /openapi.yaml", rt.openAPIDocument)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	mux.HandleFunc("GET /v1/domains", rt.listDomains)
	mux.HandleFunc("POST /v1/sessions", rt.createSession)
	mux.HandleFunc("GET /v1/sessions/{id}", rt.getSession)
	mux.HandleFunc("DELETE /v1/sessions/{id}", rt.deleteSession)
	mux.HandleFunc("POST /v1/sessions/{id}/image", rt.attachImage)
	mux.HandleFunc("POST /v1/sessions/{id}/describe", rt.describe)
	mux.HandleFunc("POST /v1/sessions/{id}/manual-description", rt.submitManualDescription)
	mux.HandleFunc("POST /v1/sessions/{id}/report", rt.generateReport)
	mux.HandleFunc("GET /v1/sessions/{id}/report", rt.downloadReport)
	mux.HandleFunc("POST /v1/analyses", rt.analyze)

	mux.HandleFunc("GET /{$}", rt.uiIndex)
	mux.HandleFunc("POST /ui/image", rt.uiImage)
	mux.HandleFunc("POST /ui/manual", rt.uiManual)
	mux.HandleFunc("POST /ui/report", rt.uiReport)
	mux.HandleFunc("GET /ui/download", rt.uiDownload)

	var onReject func(string)
	if rt.metrics != nil {
		onReject = rt.metrics.RecordRejected
	}

	var handler http.Handler = mux
	handler = openAPIValidationMiddleware(handler, rt.validator)
	handler = bodyLimitMiddleware(handler, rt.cfg.MaxUploadBytes+multipartOverhead)
	handler = backpressureMiddlewareWithHook(handler, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait, onReject)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, onReject)
	handler = tracingMiddleware(serviceName, handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

type statusResponse struct {
	Status             string   `json:"status"`
	MissingCredentials []string `json:"missing_credentials,omitempty"`
}

func (rt *Router) readyz(w http.ResponseWriter, _ *http.Request) {
	if err := rt.analysis.CheckCredentials(); err != nil {
		missing := rt.cfg.MissingCredentials()
		if len(missing) == 0 {
			missing = []string{err.Error()}
		}
		writeJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "not_ready", MissingCredentials: missing})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ready"})
}

func (rt *Router) openAPIDocument(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openapi.Document())
}

type domainView struct {
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

func (rt *Router) listDomains(w http.ResponseWriter, _ *http.Request) {
	domains := domain.Domains()
	out := make([]domainView, 0, len(domains))
	for _, d := range domains {
		out = append(out, domainView{Label: d.String(), Slug: d.Slug()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"domains": out})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// uploadError turns multipart parsing failures into typed validation errors.
func uploadError(op string, err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return domain.WrapError(domain.ErrValidation, op, fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit))
	}
	return domain.WrapError(domain.ErrValidation, op, err)
}
