package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEncoding          = errors.New("encoding error")
	ErrTransport         = errors.New("transport error")
	ErrUnexpectedFormat  = errors.New("unexpected response format")
	ErrMissingCredential = errors.New("missing credential")
	ErrValidation        = errors.New("validation error")

	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidTransition = errors.New("invalid state transition")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// Stage names the pipeline step a failure belongs to.
type Stage string

const (
	StageInput  Stage = "input"
	StageEncode Stage = "encode"
	StageVision Stage = "vision"
	StageText   Stage = "text"
)

// Failure is the typed value carried by failed vision and analysis results.
type Failure struct {
	Stage  Stage
	Kind   error
	Reason string
	Cause  error
}

func NewFailure(stage Stage, kind error, reason string, cause error) *Failure {
	if kind == nil {
		kind = ErrTransport
	}
	return &Failure{Stage: stage, Kind: kind, Reason: reason, Cause: cause}
}

func (f *Failure) Error() string {
	if f.Reason == "" {
		return fmt.Sprintf("%s stage: %v", f.Stage, f.Kind)
	}
	return fmt.Sprintf("%s stage: %v: %s", f.Stage, f.Kind, f.Reason)
}

func (f *Failure) Unwrap() []error {
	out := []error{f.Kind}
	if f.Cause != nil {
		out = append(out, f.Cause)
	}
	return out
}

// Code is the stable machine-readable name of the failure kind.
func (f *Failure) Code() string {
	return KindCode(f.Kind)
}

// Message is the sentence shown to the user.
func (f *Failure) Message() string {
	var prefix string
	switch f.Stage {
	case StageVision, StageEncode:
		prefix = "Image description failed"
	case StageText:
		prefix = "Engineering analysis failed"
	default:
		prefix = "Request rejected"
	}
	if f.Reason == "" {
		return fmt.Sprintf("%s (%v).", prefix, f.Kind)
	}
	return fmt.Sprintf("%s (%v): %s", prefix, f.Kind, f.Reason)
}

func KindCode(kind error) string {
	switch {
	case errors.Is(kind, ErrEncoding):
		return "encoding_error"
	case errors.Is(kind, ErrTransport):
		return "transport_error"
	case errors.Is(kind, ErrUnexpectedFormat):
		return "unexpected_format"
	case errors.Is(kind, ErrMissingCredential):
		return "missing_credential"
	case errors.Is(kind, ErrValidation):
		return "validation_error"
	case errors.Is(kind, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(kind, ErrInvalidTransition):
		return "invalid_transition"
	default:
		return "internal_error"
	}
}

// AsFailure extracts a *Failure from err, building a StageInput failure from
// plain typed errors so callers always have something to show.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	for _, kind := range []error{ErrValidation, ErrMissingCredential, ErrEncoding, ErrInvalidTransition, ErrSessionNotFound} {
		if errors.Is(err, kind) {
			return NewFailure(StageInput, kind, err.Error(), err)
		}
	}
	return NewFailure(StageInput, ErrTransport, err.Error(), err)
}
