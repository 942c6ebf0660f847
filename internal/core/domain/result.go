package domain

import (
	"fmt"
	"strings"
)

// VisionResult is either a description or a typed failure, never both.
type VisionResult struct {
	Description string
	Failure     *Failure
}

func DescribedResult(text string) VisionResult {
	return VisionResult{Description: text}
}

func FailedVision(f *Failure) VisionResult {
	return VisionResult{Failure: f}
}

func (r VisionResult) OK() bool {
	return r.Failure == nil && strings.TrimSpace(r.Description) != ""
}

// AnalysisResult is either a report or a typed failure.
type AnalysisResult struct {
	Report  string
	Failure *Failure
}

func ReportResult(text string) AnalysisResult {
	return AnalysisResult{Report: text}
}

func FailedAnalysis(f *Failure) AnalysisResult {
	return AnalysisResult{Failure: f}
}

func (r AnalysisResult) OK() bool {
	return r.Failure == nil && strings.TrimSpace(r.Report) != ""
}

// Prompt is the fully rendered instruction text sent to a text provider.
type Prompt string

type DescriptionSource string

const (
	SourceNone   DescriptionSource = ""
	SourceVision DescriptionSource = "vision"
	SourceManual DescriptionSource = "manual"
)

// AnalysisRequest is immutable after construction and always carries a
// non-empty description.
type AnalysisRequest struct {
	domain      EngineeringDomain
	description string
	notes       string
	source      DescriptionSource
}

func NewAnalysisRequest(d EngineeringDomain, description, notes string, source DescriptionSource) (AnalysisRequest, error) {
	if !d.Valid() {
		return AnalysisRequest{}, WrapError(ErrValidation, "build analysis request", fmt.Errorf("unknown engineering domain %q", d))
	}
	if strings.TrimSpace(description) == "" {
		return AnalysisRequest{}, WrapError(ErrValidation, "build analysis request", fmt.Errorf("description is empty"))
	}
	return AnalysisRequest{
		domain:      d,
		description: description,
		notes:       notes,
		source:      source,
	}, nil
}

func (r AnalysisRequest) Domain() EngineeringDomain { return r.domain }
func (r AnalysisRequest) Description() string       { return r.description }
func (r AnalysisRequest) Notes() string             { return r.notes }
func (r AnalysisRequest) Source() DescriptionSource { return r.source }
