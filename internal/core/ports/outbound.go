package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
)

// ImageEncoder turns an upload into the wire form a vision provider accepts.
type ImageEncoder interface {
	Encode(img domain.ImageAsset, wire domain.ImageWire) (domain.EncodedImage, error)
}

// VisionDescriber produces a natural-language description of an image.
// Describe never returns an error: failures come back as a failed result.
type VisionDescriber interface {
	Name() string
	ImageWire() domain.ImageWire
	CheckCredential() error
	Describe(ctx context.Context, img domain.EncodedImage, instruction string) domain.VisionResult
}

// TextGenerator turns a prompt into an analysis report.
type TextGenerator interface {
	Name() string
	CheckCredential() error
	Generate(ctx context.Context, prompt domain.Prompt) domain.AnalysisResult
}

// PromptBuilder renders the analysis prompt.
type PromptBuilder interface {
	Build(req domain.AnalysisRequest) (domain.Prompt, error)
}

// SessionStore keeps sessions in memory between requests.
type SessionStore interface {
	Create(ctx context.Context) (*domain.Session, error)
	Get(ctx context.Context, id string) (*domain.Session, error)
	Save(ctx context.Context, s *domain.Session) error
	// Update serializes fn with any other update of the same session and
	// commits the mutated copy when fn returns.
	Update(ctx context.Context, id string, fn func(*domain.Session) error) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
}

// EventPublisher emits pipeline events.
type EventPublisher interface {
	PublishAnalysisEvent(ctx context.Context, event domain.AnalysisEvent) error
}

// PipelineObserver records stage outcomes.
type PipelineObserver interface {
	ObserveStage(stage domain.Stage, provider, outcome string, duration time.Duration)
	ObserveManualFallback(reason string)
}

// ReportExporter renders a finished report as a downloadable file.
type ReportExporter interface {
	Format() string
	ContentType() string
	Export(doc domain.ReportDocument) ([]byte, error)
}

// ReportSink writes exported reports.
type ReportSink interface {
	Save(ctx context.Context, key string, data io.Reader) error
}
