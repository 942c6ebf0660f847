package httpcall

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
	"github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/llm/envelope"
	"github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/resilience"
)

const maxReasonBody = 300

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "provider status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("%s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("%s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

func classifyProviderError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) {
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return resilience.ErrorClassification{
			Retryable:     isRetryableHTTPStatus(statusErr.StatusCode),
			RecordFailure: statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusTooManyRequests,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}

	return resilience.ErrorClassification{
		Retryable:     false,
		RecordFailure: true,
	}
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// Failure converts any error from a provider call into the typed failure the
// pipeline records. It never returns nil for a non-nil error.
func (c *Client) Failure(err error) *domain.Failure {
	return ToFailure(c.stage, c.provider, c.timeout.String(), err)
}

func ToFailure(stage domain.Stage, provider, timeout string, err error) *domain.Failure {
	if err == nil {
		return nil
	}
	prefix := provider + ": "

	var statusErr *HTTPStatusError
	var netErr net.Error
	switch {
	case domain.IsKind(err, domain.ErrMissingCredential):
		return domain.NewFailure(stage, domain.ErrMissingCredential, prefix+err.Error(), err)
	case domain.IsKind(err, domain.ErrUnexpectedFormat):
		return domain.NewFailure(stage, domain.ErrUnexpectedFormat, prefix+err.Error(), err)
	case resilience.IsCircuitOpen(err):
		return domain.NewFailure(stage, domain.ErrTransport, prefix+"provider temporarily unavailable after repeated failures", err)
	case errors.As(err, &statusErr):
		reason := fmt.Sprintf("HTTP %d", statusErr.StatusCode)
		if body := statusErr.Body; body != "" {
			reason += ": " + envelope.Truncate(body, maxReasonBody)
		}
		return domain.NewFailure(stage, domain.ErrTransport, prefix+reason, err)
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return domain.NewFailure(stage, domain.ErrTransport, prefix+"request timed out after "+timeout, err)
	case errors.Is(err, context.Canceled):
		return domain.NewFailure(stage, domain.ErrTransport, prefix+"request canceled", err)
	default:
		return domain.NewFailure(stage, domain.ErrTransport, prefix+err.Error(), err)
	}
}
