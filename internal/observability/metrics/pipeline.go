package metrics

import (
	"time"

	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
)

// ObserveStage implements ports.PipelineObserver.
func (m *ServiceMetrics) ObserveStage(stage domain.Stage, provider, outcome string, duration time.Duration) {
	if provider == "" {
		provider = "unknown"
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.stageTotal.WithLabelValues(m.service, string(stage), provider, outcome).Inc()
	if duration > 0 {
		m.stageDuration.WithLabelValues(m.service, string(stage), provider).Observe(duration.Seconds())
	}
}

func (m *ServiceMetrics) ObserveManualFallback(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.manualFallbacks.WithLabelValues(m.service, reason).Inc()
}

// ObserveBreakerTransition matches resilience.StateObserver.
func (m *ServiceMetrics) ObserveBreakerTransition(operation, from, to string) {
	m.breakerTransitions.WithLabelValues(m.service, operation, from, to).Inc()
}

func (m *ServiceMetrics) RecordEventPublish(eventType domain.EventType, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.eventsPublished.WithLabelValues(m.service, string(eventType), status).Inc()
}
