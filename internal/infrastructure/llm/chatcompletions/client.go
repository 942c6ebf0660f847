// Package chatcompletions targets any OpenAI-compatible /chat/completions
// endpoint (Hugging Face router, vLLM, LM Studio, ...).
package chatcompletions

import (
	"context"
	"time"

	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
	"github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/llm/httpcall"
	"github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/resilience"
)

const providerName = "chat-completions"

type Config struct {
	BaseURL     string
	Model       string
	APIKey      string
	KeyName     string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

func newHTTPClient(stage domain.Stage, cfg Config, exec *resilience.Executor) *httpcall.Client {
	return httpcall.New(httpcall.Options{
		Stage:      stage,
		Provider:   providerName,
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		KeyName:    cfg.KeyName,
		RequireKey: true,
		Timeout:    cfg.Timeout,
		Executor:   exec,
	})
}

func complete(ctx context.Context, client *httpcall.Client, req completionRequest) (string, error) {
	resp, err := client.PostJSON(ctx, "/chat/completions", req)
	if err != nil {
		return "", err
	}
	return resp.Text()
}

type Describer struct {
	http      *httpcall.Client
	model     string
	maxTokens int
}

func NewDescriber(cfg Config, exec *resilience.Executor) *Describer {
	return &Describer{
		http:      newHTTPClient(domain.StageVision, cfg, exec),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

func (d *Describer) Name() string                { return providerName }
func (d *Describer) ImageWire() domain.ImageWire { return domain.WireBase64 }
func (d *Describer) CheckCredential() error      { return d.http.CheckCredential() }

func (d *Describer) Describe(ctx context.Context, img domain.EncodedImage, instruction string) domain.VisionResult {
	text, err := complete(ctx, d.http, completionRequest{
		Model: d.model,
		Messages: []message{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: instruction},
				{Type: "image_url", ImageURL: &imageURL{URL: img.DataURL()}},
			},
		}},
		MaxTokens: d.maxTokens,
	})
	if err != nil {
		return domain.FailedVision(d.http.Failure(err))
	}
	return domain.DescribedResult(text)
}

type Generator struct {
	http        *httpcall.Client
	model       string
	maxTokens   int
	temperature float64
}

func NewGenerator(cfg Config, exec *resilience.Executor) *Generator {
	return &Generator{
		http:        newHTTPClient(domain.StageText, cfg, exec),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

func (g *Generator) Name() string           { return providerName }
func (g *Generator) CheckCredential() error { return g.http.CheckCredential() }

func (g *Generator) Generate(ctx context.Context, prompt domain.Prompt) domain.AnalysisResult {
	temperature := g.temperature
	text, err := complete(ctx, g.http, completionRequest{
		Model:       g.model,
		Messages:    []message{{Role: "user", Content: string(prompt)}},
		MaxTokens:   g.maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return domain.FailedAnalysis(g.http.Failure(err))
	}
	return domain.ReportResult(text)
}
