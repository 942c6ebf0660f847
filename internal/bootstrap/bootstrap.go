package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/engineering-analysis-ai/internal/config"
	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
	"github.com/kirillkom/engineering-analysis-ai/internal/core/ports"
	"github.com/kirillkom/engineering-analysis-ai/internal/core/usecase"
	natsevents "github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/events/nats"
	"github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/export"
	"github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/imaging"
	"github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/prompt"
	"github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/resilience"
	"github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/session/memory"
	"github.com/kirillkom/engineering-analysis-ai/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Analysis ports.AnalysisService
	Sessions *memory.Store
	Exports  *export.Registry
	Metrics  *metrics.ServiceMetrics
	Executor *resilience.Executor
	Events   *natsevents.Publisher

	closeFn func()
}

// New wires the pipeline for one process. service names the process in
// metrics and event connections.
func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	serviceMetrics := metrics.NewServiceMetrics(service)
	executor := resilience.NewExecutor(
		ResilienceConfig(cfg.Resilience),
		resilience.WithStateObserver(serviceMetrics.ObserveBreakerTransition),
	)

	vision, err := NewVisionDescriber(cfg.Vision, executor)
	if err != nil {
		return nil, err
	}
	text, err := NewTextGenerator(cfg.Text, executor)
	if err != nil {
		return nil, err
	}

	prompts, err := prompt.NewBuilder(cfg.Checklists)
	if err != nil {
		return nil, fmt.Errorf("init prompt builder: %w", err)
	}

	opts := []usecase.AnalysisOption{
		usecase.WithPipelineObserver(serviceMetrics),
		usecase.WithVisionInstruction(cfg.Vision.Instruction),
	}

	var events *natsevents.Publisher
	if strings.TrimSpace(cfg.NATSURL) != "" {
		events, err = natsevents.New(cfg.NATSURL, cfg.NATSSubject, natsevents.Options{
			Name:               service,
			ResilienceExecutor: executor,
		})
		if err != nil {
			slog.Warn("analysis_events_disabled", "url", cfg.NATSURL, "error", err)
			events = nil
		} else {
			opts = append(opts, usecase.WithEventPublisher(&instrumentedPublisher{
				next:    events,
				metrics: serviceMetrics,
			}))
		}
	}

	analysis := usecase.NewAnalysisUseCase(imaging.NewEncoder(imaging.WithMaxPixels(cfg.MaxImagePixels)), vision, text, prompts, opts...)

	if missing := cfg.MissingCredentials(); len(missing) > 0 {
		slog.Warn("provider_credentials_missing", "keys", missing)
	}
	slog.Info("pipeline_configured",
		"vision_provider", vision.Name(),
		"vision_model", cfg.Vision.Model,
		"text_provider", text.Name(),
		"text_model", cfg.Text.Model,
		"events_enabled", events != nil,
	)

	return &App{
		Config: cfg,

		Analysis: analysis,
		Sessions: memory.NewStore(cfg.SessionTTL),
		Exports:  export.Default(),
		Metrics:  serviceMetrics,
		Executor: executor,
		Events:   events,

		closeFn: func() {
			if events != nil {
				events.Close()
			}
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func ResilienceConfig(c config.ResilienceConfig) resilience.Config {
	return resilience.Config{
		RetryMaxAttempts:        c.RetryMaxAttempts,
		RetryInitialBackoff:     c.RetryInitialBackoff,
		RetryMaxBackoff:         c.RetryMaxBackoff,
		RetryMultiplier:         2.0,
		BreakerEnabled:          c.BreakerEnabled,
		BreakerMinRequests:      uint32(max(c.BreakerMinRequests, 0)),
		BreakerFailureRatio:     c.BreakerFailureRatio,
		BreakerOpenTimeout:      c.BreakerOpenTimeout,
		BreakerHalfOpenMaxCalls: uint32(max(c.BreakerHalfOpenMaxCalls, 0)),
	}
}

type instrumentedPublisher struct {
	next    ports.EventPublisher
	metrics *metrics.ServiceMetrics
}

func (p *instrumentedPublisher) PublishAnalysisEvent(ctx context.Context, event domain.AnalysisEvent) error {
	err := p.next.PublishAnalysisEvent(ctx, event)
	p.metrics.RecordEventPublish(event.Type, err)
	return err
}
