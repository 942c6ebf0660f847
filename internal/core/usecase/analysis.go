package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
	"github.com/kirillkom/engineering-analysis-ai/internal/core/ports"
)

const tracerName = "github.com/kirillkom/engineering-analysis-ai/internal/core/usecase"

// DefaultVisionInstruction asks the vision model for an engineering-oriented description.
const DefaultVisionInstruction = `Describe the engineering object or system in this image in detail. Focus on:
- What type of system or object it is
- Visible components and parts
- Materials and construction
- Any notable features or characteristics`

type AnalysisUseCase struct {
	encoder  ports.ImageEncoder
	vision   ports.VisionDescriber
	text     ports.TextGenerator
	prompts  ports.PromptBuilder
	events   ports.EventPublisher
	observer ports.PipelineObserver

	instruction string
	now         func() time.Time
	tracer      trace.Tracer
}

type AnalysisOption func(*AnalysisUseCase)

func WithEventPublisher(events ports.EventPublisher) AnalysisOption {
	return func(uc *AnalysisUseCase) {
		uc.events = events
	}
}

func WithPipelineObserver(observer ports.PipelineObserver) AnalysisOption {
	return func(uc *AnalysisUseCase) {
		uc.observer = observer
	}
}

func WithVisionInstruction(instruction string) AnalysisOption {
	return func(uc *AnalysisUseCase) {
		if strings.TrimSpace(instruction) != "" {
			uc.instruction = instruction
		}
	}
}

func WithClock(now func() time.Time) AnalysisOption {
	return func(uc *AnalysisUseCase) {
		if now != nil {
			uc.now = now
		}
	}
}

func NewAnalysisUseCase(
	encoder ports.ImageEncoder,
	vision ports.VisionDescriber,
	text ports.TextGenerator,
	prompts ports.PromptBuilder,
	opts ...AnalysisOption,
) *AnalysisUseCase {
	uc := &AnalysisUseCase{
		encoder:     encoder,
		vision:      vision,
		text:        text,
		prompts:     prompts,
		instruction: DefaultVisionInstruction,
		now:         func() time.Time { return time.Now().UTC() },
		tracer:      otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// CheckCredentials reports a MissingCredential error when either provider
// cannot authenticate. It never touches the network.
func (uc *AnalysisUseCase) CheckCredentials() error {
	return errors.Join(uc.vision.CheckCredential(), uc.text.CheckCredential())
}

func (uc *AnalysisUseCase) SetInputs(s *domain.Session, engineeringDomain, notes string) error {
	if strings.TrimSpace(engineeringDomain) != "" {
		d, err := domain.ParseDomain(engineeringDomain)
		if err != nil {
			return err
		}
		s.Domain = d
	}
	s.Notes = strings.TrimSpace(notes)
	s.UpdatedAt = uc.now()
	return nil
}

func (uc *AnalysisUseCase) AttachImage(s *domain.Session, img domain.ImageAsset) error {
	if img.Format == "" {
		format, ok := domain.ImageFormatFromName(img.Filename)
		if !ok {
			return domain.WrapError(domain.ErrValidation, "attach image", fmt.Errorf("unsupported image type %q", img.Filename))
		}
		img.Format = format
	}
	return s.AttachImage(img, uc.now())
}

// Describe runs encoder and vision provider for the session image. The
// returned error covers rejected requests only; provider failures are in the
// result and leave the session awaiting a manual description.
func (uc *AnalysisUseCase) Describe(ctx context.Context, s *domain.Session) (domain.VisionResult, error) {
	if err := uc.CheckCredentials(); err != nil {
		return domain.VisionResult{}, err
	}
	if err := s.BeginDescribe(uc.now()); err != nil {
		return domain.VisionResult{}, err
	}

	ctx, span := uc.tracer.Start(ctx, "vision.describe", trace.WithAttributes(
		attribute.String("provider", uc.vision.Name()),
		attribute.String("session.id", s.ID),
	))
	defer span.End()

	start := time.Now()
	result := uc.describe(ctx, *s.Image)
	elapsed := time.Since(start)

	if err := s.FinishDescribe(result, uc.now()); err != nil {
		return domain.VisionResult{}, err
	}
	result = s.Vision

	event := domain.AnalysisEvent{
		SessionID:  s.ID,
		Domain:     s.Domain,
		Stage:      domain.StageVision,
		Provider:   uc.vision.Name(),
		DurationMS: elapsed.Milliseconds(),
	}
	if result.OK() {
		uc.observeStage(domain.StageVision, uc.vision.Name(), "described", elapsed)
		slog.Info("vision_described", "session_id", s.ID, "provider", uc.vision.Name(), "duration_ms", elapsed.Milliseconds())
		event.Type = domain.EventDescribed
		event.Source = domain.SourceVision
	} else {
		span.SetStatus(codes.Error, result.Failure.Error())
		span.SetAttributes(attribute.String("failure.code", result.Failure.Code()))
		uc.observeStage(result.Failure.Stage, uc.vision.Name(), result.Failure.Code(), elapsed)
		if uc.observer != nil {
			uc.observer.ObserveManualFallback(result.Failure.Code())
		}
		slog.Warn("vision_failed_manual_input_required",
			"session_id", s.ID,
			"provider", uc.vision.Name(),
			"failure", result.Failure.Code(),
			"reason", result.Failure.Reason,
		)
		event.Type = domain.EventDescriptionFailed
		event.FailureCode = result.Failure.Code()
	}
	uc.publish(ctx, event)
	return result, nil
}

func (uc *AnalysisUseCase) describe(ctx context.Context, img domain.ImageAsset) domain.VisionResult {
	encoded, err := uc.encoder.Encode(img, uc.vision.ImageWire())
	if err != nil {
		return domain.FailedVision(domain.NewFailure(domain.StageEncode, domain.ErrEncoding, err.Error(), err))
	}
	return uc.vision.Describe(ctx, encoded, uc.instruction)
}

func (uc *AnalysisUseCase) SubmitManualDescription(s *domain.Session, text string) error {
	return s.SubmitManualDescription(strings.TrimSpace(text), uc.now())
}

// GenerateReport builds the prompt from the current description and calls
// the text provider. The text provider is never called without a description.
func (uc *AnalysisUseCase) GenerateReport(ctx context.Context, s *domain.Session) (domain.AnalysisResult, error) {
	if err := uc.text.CheckCredential(); err != nil {
		return domain.AnalysisResult{}, err
	}
	req, err := s.BeginAnalysis(uc.now())
	if err != nil {
		return domain.AnalysisResult{}, err
	}

	ctx, span := uc.tracer.Start(ctx, "text.generate", trace.WithAttributes(
		attribute.String("provider", uc.text.Name()),
		attribute.String("session.id", s.ID),
		attribute.String("engineering.domain", string(req.Domain())),
		attribute.String("description.source", string(req.Source())),
	))
	defer span.End()

	start := time.Now()
	var result domain.AnalysisResult
	prompt, err := uc.prompts.Build(req)
	if err != nil {
		result = domain.FailedAnalysis(domain.NewFailure(domain.StageText, domain.ErrValidation, err.Error(), err))
	} else {
		result = uc.text.Generate(ctx, prompt)
	}
	elapsed := time.Since(start)

	if err := s.FinishAnalysis(result, uc.now()); err != nil {
		return domain.AnalysisResult{}, err
	}
	result = s.Analysis

	event := domain.AnalysisEvent{
		SessionID:  s.ID,
		Domain:     req.Domain(),
		Stage:      domain.StageText,
		Provider:   uc.text.Name(),
		Source:     req.Source(),
		DurationMS: elapsed.Milliseconds(),
	}
	if result.OK() {
		uc.observeStage(domain.StageText, uc.text.Name(), "reported", elapsed)
		slog.Info("analysis_reported",
			"session_id", s.ID,
			"provider", uc.text.Name(),
			"domain", req.Domain(),
			"source", req.Source(),
			"duration_ms", elapsed.Milliseconds(),
		)
		event.Type = domain.EventReported
	} else {
		span.SetStatus(codes.Error, result.Failure.Error())
		span.SetAttributes(attribute.String("failure.code", result.Failure.Code()))
		uc.observeStage(domain.StageText, uc.text.Name(), result.Failure.Code(), elapsed)
		slog.Warn("analysis_failed",
			"session_id", s.ID,
			"provider", uc.text.Name(),
			"failure", result.Failure.Code(),
			"reason", result.Failure.Reason,
		)
		event.Type = domain.EventAnalysisFailed
		event.FailureCode = result.Failure.Code()
	}
	uc.publish(ctx, event)
	return result, nil
}

// Analyze runs the whole pipeline on a fresh session. A manual description
// bypasses the vision provider. When vision fails and no manual description
// was given, the session is returned in AwaitingManualInput without calling
// the text provider.
func (uc *AnalysisUseCase) Analyze(ctx context.Context, in domain.AnalyzeInput) (*domain.Session, error) {
	manual := strings.TrimSpace(in.ManualDescription) != ""
	credErr := uc.text.CheckCredential()
	if !manual {
		credErr = uc.CheckCredentials()
	}
	if credErr != nil {
		return nil, credErr
	}
	s := domain.NewSession(uuid.NewString(), uc.now())
	if strings.TrimSpace(in.Domain) == "" {
		return nil, domain.WrapError(domain.ErrValidation, "analyze", fmt.Errorf("engineering domain is required"))
	}
	if err := uc.SetInputs(s, in.Domain, in.Notes); err != nil {
		return nil, err
	}
	if in.Image != nil {
		if err := uc.AttachImage(s, *in.Image); err != nil {
			return nil, err
		}
	}

	switch {
	case manual:
		if err := uc.SubmitManualDescription(s, in.ManualDescription); err != nil {
			return nil, err
		}
	case in.Image != nil:
		vision, err := uc.Describe(ctx, s)
		if err != nil {
			return nil, err
		}
		if !vision.OK() {
			return s, nil
		}
	default:
		return nil, domain.WrapError(domain.ErrValidation, "analyze", fmt.Errorf("an image or a description is required"))
	}

	if _, err := uc.GenerateReport(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (uc *AnalysisUseCase) observeStage(stage domain.Stage, provider, outcome string, elapsed time.Duration) {
	if uc.observer != nil {
		uc.observer.ObserveStage(stage, provider, outcome, elapsed)
	}
}

func (uc *AnalysisUseCase) publish(ctx context.Context, event domain.AnalysisEvent) {
	if uc.events == nil {
		return
	}
	event.OccurredAt = uc.now()
	if err := uc.events.PublishAnalysisEvent(ctx, event); err != nil {
		slog.Warn("analysis_event_publish_failed", "type", event.Type, "session_id", event.SessionID, "error", err)
	}
}
