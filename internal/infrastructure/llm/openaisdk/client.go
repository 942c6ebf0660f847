// Package openaisdk uses the official OpenAI Go SDK for both stages.
package openaisdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
	"github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/llm/httpcall"
	"github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/resilience"
)

const providerName = "openai"

type Config struct {
	BaseURL     string
	Model       string
	APIKey      string
	KeyName     string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

type client struct {
	sdk      *openai.Client
	stage    domain.Stage
	apiKey   string
	keyName  string
	timeout  time.Duration
	executor *resilience.Executor
}

func newClient(stage domain.Stage, cfg Config, exec *resilience.Executor) *client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = httpcall.DefaultTimeout
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		option.WithMaxRetries(0),
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	return &client{
		sdk:      openai.NewClient(opts...),
		stage:    stage,
		apiKey:   strings.TrimSpace(cfg.APIKey),
		keyName:  cfg.KeyName,
		timeout:  timeout,
		executor: exec,
	}
}

func (c *client) checkCredential() error {
	if c.apiKey != "" {
		return nil
	}
	name := c.keyName
	if name == "" {
		name = "API key"
	}
	return domain.WrapError(domain.ErrMissingCredential, fmt.Sprintf("%s %s", c.stage, providerName), fmt.Errorf("%s is not set", name))
}

func (c *client) complete(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	if err := c.checkCredential(); err != nil {
		return "", err
	}

	var text string
	call := func(callCtx context.Context) error {
		callCtx, cancel := context.WithTimeout(callCtx, c.timeout)
		defer cancel()

		completion, err := c.sdk.Chat.Completions.New(callCtx, params)
		if err != nil {
			return normalizeError(err)
		}
		if len(completion.Choices) == 0 {
			return domain.WrapError(domain.ErrUnexpectedFormat, "read completion", errors.New("response has no choices"))
		}
		text = strings.TrimSpace(completion.Choices[0].Message.Content)
		if text == "" {
			return domain.WrapError(domain.ErrUnexpectedFormat, "read completion", errors.New("completion content is empty"))
		}
		return nil
	}

	operation := string(c.stage) + "." + providerName
	if c.executor == nil {
		return text, call(ctx)
	}
	err := c.executor.Execute(ctx, operation, call, func(err error) resilience.ErrorClassification {
		if domain.IsKind(err, domain.ErrUnexpectedFormat) {
			return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
		}
		var statusErr *httpcall.HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode < 500 && statusErr.StatusCode != http.StatusTooManyRequests {
			return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
		}
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	})
	return text, err
}

func (c *client) failure(err error) *domain.Failure {
	return httpcall.ToFailure(c.stage, providerName, c.timeout.String(), err)
}

// normalizeError maps SDK API errors onto the shared status error so they are
// reported like every other provider.
func normalizeError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &httpcall.HTTPStatusError{
			Operation:  providerName,
			StatusCode: apiErr.StatusCode,
			Status:     http.StatusText(apiErr.StatusCode),
			Body:       apiErr.Message,
		}
	}
	return err
}

type Describer struct {
	c         *client
	model     string
	maxTokens int
}

func NewDescriber(cfg Config, exec *resilience.Executor) *Describer {
	return &Describer{c: newClient(domain.StageVision, cfg, exec), model: cfg.Model, maxTokens: cfg.MaxTokens}
}

func (d *Describer) Name() string                { return providerName }
func (d *Describer) ImageWire() domain.ImageWire { return domain.WireBase64 }
func (d *Describer) CheckCredential() error      { return d.c.checkCredential() }

func (d *Describer) Describe(ctx context.Context, img domain.EncodedImage, instruction string) domain.VisionResult {
	params := openai.ChatCompletionNewParams{
		Model: openai.F(openai.ChatModel(d.model)),
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.UserMessageParts(
				openai.TextPart(instruction),
				openai.ImagePart(img.DataURL()),
			),
		}),
	}
	if d.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(d.maxTokens))
	}
	text, err := d.c.complete(ctx, params)
	if err != nil {
		return domain.FailedVision(d.c.failure(err))
	}
	return domain.DescribedResult(text)
}

type Generator struct {
	c           *client
	model       string
	maxTokens   int
	temperature float64
}

func NewGenerator(cfg Config, exec *resilience.Executor) *Generator {
	return &Generator{
		c:           newClient(domain.StageText, cfg, exec),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

func (g *Generator) Name() string           { return providerName }
func (g *Generator) CheckCredential() error { return g.c.checkCredential() }

func (g *Generator) Generate(ctx context.Context, prompt domain.Prompt) domain.AnalysisResult {
	params := openai.ChatCompletionNewParams{
		Model: openai.F(openai.ChatModel(g.model)),
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(string(prompt)),
		}),
		Temperature: openai.Float(g.temperature),
	}
	if g.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(g.maxTokens))
	}
	text, err := g.c.complete(ctx, params)
	if err != nil {
		return domain.FailedAnalysis(g.c.failure(err))
	}
	return domain.ReportResult(text)
}
