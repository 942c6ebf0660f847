package ports

import (
	"context"

	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
)

// AnalysisService is the inbound contract for the describe -> analyze pipeline.
// Every operation works on an explicit session value owned by the caller.
type AnalysisService interface {
	CheckCredentials() error
	SetInputs(s *domain.Session, engineeringDomain, notes string) error
	AttachImage(s *domain.Session, img domain.ImageAsset) error
	Describe(ctx context.Context, s *domain.Session) (domain.VisionResult, error)
	SubmitManualDescription(s *domain.Session, text string) error
	GenerateReport(ctx context.Context, s *domain.Session) (domain.AnalysisResult, error)
	Analyze(ctx context.Context, in domain.AnalyzeInput) (*domain.Session, error)
}
