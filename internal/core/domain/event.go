package domain

import "time"

type EventType string

const (
	EventDescribed         EventType = "analysis.described"
	EventDescriptionFailed EventType = "analysis.description_failed"
	EventReported          EventType = "analysis.reported"
	EventAnalysisFailed    EventType = "analysis.failed"
)

// AnalysisEvent is published after each remote stage completes.
type AnalysisEvent struct {
	Type        EventType         `json:"type"`
	SessionID   string            `json:"session_id"`
	Domain      EngineeringDomain `json:"domain,omitempty"`
	Stage       Stage             `json:"stage"`
	Provider    string            `json:"provider"`
	FailureCode string            `json:"failure_code,omitempty"`
	Source      DescriptionSource `json:"source,omitempty"`
	DurationMS  int64             `json:"duration_ms"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

// AnalyzeInput drives a full pipeline run in one call.
type AnalyzeInput struct {
	Domain            string
	Notes             string
	Image             *ImageAsset
	ManualDescription string
}
