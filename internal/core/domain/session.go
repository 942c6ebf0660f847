package domain

import (
	"fmt"
	"strings"
	"time"
)

type SessionState string

const (
	StateIdle                SessionState = "idle"
	StateImageReady          SessionState = "image_ready"
	StateDescribing          SessionState = "describing"
	StateDescribed           SessionState = "described"
	StateDescriptionFailed   SessionState = "description_failed"
	StateAwaitingManualInput SessionState = "awaiting_manual_input"
	StateManualReady         SessionState = "manual_ready"
	StateAnalyzing           SessionState = "analyzing"
	StateReported            SessionState = "reported"
	StateAnalysisFailed      SessionState = "analysis_failed"
)

// Session holds everything one user interaction accumulates between requests.
// It is passed explicitly to every orchestrator operation.
type Session struct {
	ID    string
	State SessionState

	Domain EngineeringDomain
	Notes  string
	Image  *ImageAsset

	Vision            VisionResult
	ManualDescription string
	Source            DescriptionSource
	Analysis          AnalysisResult
	LastFailure       *Failure

	CreatedAt time.Time
	UpdatedAt time.Time

	resumeState SessionState
}

func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		State:     StateIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a copy that can be mutated without affecting s. Image bytes
// are shared since they are never modified after upload.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.Image != nil {
		img := *s.Image
		out.Image = &img
	}
	return &out
}

func (s *Session) Busy() bool {
	return s.State == StateDescribing || s.State == StateAnalyzing
}

// Description returns the text the next analysis would use.
func (s *Session) Description() (string, DescriptionSource, bool) {
	switch s.Source {
	case SourceManual:
		if strings.TrimSpace(s.ManualDescription) != "" {
			return s.ManualDescription, SourceManual, true
		}
	case SourceVision:
		if s.Vision.OK() {
			return s.Vision.Description, SourceVision, true
		}
	}
	return "", SourceNone, false
}

func (s *Session) AttachImage(img ImageAsset, now time.Time) error {
	if s.Busy() {
		return s.transitionError("attach image")
	}
	if len(img.Data) == 0 {
		return WrapError(ErrValidation, "attach image", fmt.Errorf("image is empty"))
	}
	s.Image = &img
	s.Vision = VisionResult{}
	s.ManualDescription = ""
	s.Source = SourceNone
	s.Analysis = AnalysisResult{}
	s.LastFailure = nil
	s.resumeState = ""
	s.State = StateImageReady
	s.UpdatedAt = now
	return nil
}

func (s *Session) BeginDescribe(now time.Time) error {
	if s.Image == nil {
		return WrapError(ErrValidation, "describe image", fmt.Errorf("no image uploaded"))
	}
	switch s.State {
	case StateImageReady, StateDescribed, StateAwaitingManualInput, StateManualReady, StateReported:
	default:
		return s.transitionError("describe image")
	}
	s.State = StateDescribing
	s.UpdatedAt = now
	return nil
}

// FinishDescribe records the vision outcome. DescriptionFailed is transient:
// a failure always lands in AwaitingManualInput.
func (s *Session) FinishDescribe(res VisionResult, now time.Time) error {
	if s.State != StateDescribing {
		return s.transitionError("finish describe")
	}
	s.Vision = res
	s.Analysis = AnalysisResult{}
	s.UpdatedAt = now
	if res.OK() {
		s.Source = SourceVision
		s.ManualDescription = ""
		s.LastFailure = nil
		s.State = StateDescribed
		return nil
	}
	if res.Failure == nil {
		s.Vision.Failure = NewFailure(StageVision, ErrUnexpectedFormat, "empty description", nil)
	}
	s.LastFailure = s.Vision.Failure
	s.Source = SourceNone
	s.State = StateAwaitingManualInput
	return nil
}

func (s *Session) SubmitManualDescription(text string, now time.Time) error {
	if s.Busy() {
		return s.transitionError("submit manual description")
	}
	if strings.TrimSpace(text) == "" {
		return WrapError(ErrValidation, "submit manual description", fmt.Errorf("description is empty"))
	}
	s.ManualDescription = text
	s.Source = SourceManual
	s.Analysis = AnalysisResult{}
	s.LastFailure = nil
	s.State = StateManualReady
	s.UpdatedAt = now
	return nil
}

// BeginAnalysis moves a description-ready session into Analyzing and returns
// the request the text provider will receive.
func (s *Session) BeginAnalysis(now time.Time) (AnalysisRequest, error) {
	switch s.State {
	case StateDescribed, StateManualReady, StateReported:
	case StateAwaitingManualInput:
		return AnalysisRequest{}, WrapError(ErrValidation, "generate report", fmt.Errorf("image description failed; a manual description is required"))
	case StateIdle, StateImageReady:
		return AnalysisRequest{}, WrapError(ErrValidation, "generate report", fmt.Errorf("no description available; describe the image or enter a description"))
	default:
		return AnalysisRequest{}, s.transitionError("generate report")
	}
	if s.Domain == "" {
		return AnalysisRequest{}, WrapError(ErrValidation, "generate report", fmt.Errorf("engineering domain is required"))
	}
	text, source, ok := s.Description()
	if !ok {
		return AnalysisRequest{}, WrapError(ErrValidation, "generate report", fmt.Errorf("description is empty"))
	}
	req, err := NewAnalysisRequest(s.Domain, text, s.Notes, source)
	if err != nil {
		return AnalysisRequest{}, err
	}

	s.resumeState = StateDescribed
	if source == SourceManual {
		s.resumeState = StateManualReady
	}
	s.State = StateAnalyzing
	s.UpdatedAt = now
	return req, nil
}

// FinishAnalysis records the text outcome. AnalysisFailed is transient: the
// session returns to the description-ready state it came from.
func (s *Session) FinishAnalysis(res AnalysisResult, now time.Time) error {
	if s.State != StateAnalyzing {
		return s.transitionError("finish analysis")
	}
	s.Analysis = res
	s.UpdatedAt = now
	if res.OK() {
		s.LastFailure = nil
		s.State = StateReported
		return nil
	}
	if res.Failure == nil {
		s.Analysis.Failure = NewFailure(StageText, ErrUnexpectedFormat, "empty report", nil)
	}
	s.LastFailure = s.Analysis.Failure
	s.State = s.resumeState
	if s.State == "" {
		s.State = StateDescribed
	}
	return nil
}

// RecordRejection keeps a rejected request visible to the user without
// changing the state.
func (s *Session) RecordRejection(err error, now time.Time) {
	s.LastFailure = AsFailure(err)
	s.UpdatedAt = now
}

func (s *Session) ReportReady() bool {
	return s.State == StateReported && s.Analysis.OK()
}

func (s *Session) transitionError(operation string) error {
	return WrapError(ErrInvalidTransition, operation, fmt.Errorf("session %s is %s", s.ID, s.State))
}
