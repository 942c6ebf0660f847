// Package ollama talks to a local Ollama server: llava-style models for image
// description and any chat model for report generation.
package ollama

import (
	"context"
	"time"

	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
	"github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/llm/httpcall"
	"github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/resilience"
)

const providerName = "ollama"

type Config struct {
	BaseURL     string
	Model       string
	APIKey      string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

func newHTTPClient(stage domain.Stage, cfg Config, exec *resilience.Executor) *httpcall.Client {
	return httpcall.New(httpcall.Options{
		Stage:    stage,
		Provider: providerName,
		BaseURL:  cfg.BaseURL,
		APIKey:   cfg.APIKey,
		Timeout:  cfg.Timeout,
		Executor: exec,
	})
}

type Describer struct {
	http  *httpcall.Client
	model string
}

func NewDescriber(cfg Config, exec *resilience.Executor) *Describer {
	return &Describer{http: newHTTPClient(domain.StageVision, cfg, exec), model: cfg.Model}
}

func (d *Describer) Name() string                { return providerName }
func (d *Describer) ImageWire() domain.ImageWire { return domain.WireBase64 }
func (d *Describer) CheckCredential() error      { return d.http.CheckCredential() }

func (d *Describer) Describe(ctx context.Context, img domain.EncodedImage, instruction string) domain.VisionResult {
	reqBody := map[string]any{
		"model":  d.model,
		"prompt": instruction,
		"images": []string{img.Base64},
		"stream": false,
	}
	text, err := generate(ctx, d.http, reqBody)
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
	reqBody := map[string]any{
		"model":  g.model,
		"prompt": string(prompt),
		"stream": false,
		"options": map[string]any{
			"num_predict": g.maxTokens,
			"temperature": g.temperature,
		},
	}
	text, err := generate(ctx, g.http, reqBody)
	if err != nil {
		return domain.FailedAnalysis(g.http.Failure(err))
	}
	return domain.ReportResult(text)
}

func generate(ctx context.Context, client *httpcall.Client, reqBody map[string]any) (string, error) {
	resp, err := client.PostJSON(ctx, "/api/generate", reqBody)
	if err != nil {
		return "", err
	}
	return resp.Text()
}
