// Package huggingface calls the Hugging Face Inference API: an image-to-text
// model (BLIP by default) for descriptions and a text-generation model for
// reports.
package huggingface

import (
	"context"
	"net/url"
	"time"

	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
	"github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/llm/httpcall"
	"github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/resilience"
)

const (
	providerName   = "huggingface"
	DefaultBaseURL = "https://api-inference.huggingface.co"
)

type Config struct {
	BaseURL     string
	Model       string
	APIKey      string
	KeyName     string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

func newHTTPClient(stage domain.Stage, cfg Config, exec *resilience.Executor) *httpcall.Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return httpcall.New(httpcall.Options{
		Stage:      stage,
		Provider:   providerName,
		BaseURL:    baseURL,
		APIKey:     cfg.APIKey,
		KeyName:    cfg.KeyName,
		RequireKey: true,
		Timeout:    cfg.Timeout,
		Executor:   exec,
	})
}

func modelPath(model string) string {
	return "/models/" + (&url.URL{Path: model}).EscapedPath()
}

// Describer posts raw image bytes; image-to-text models ignore the instruction.
type Describer struct {
	http  *httpcall.Client
	model string
}

func NewDescriber(cfg Config, exec *resilience.Executor) *Describer {
	return &Describer{http: newHTTPClient(domain.StageVision, cfg, exec), model: cfg.Model}
}

func (d *Describer) Name() string                { return providerName }
func (d *Describer) ImageWire() domain.ImageWire { return domain.WireBinary }
func (d *Describer) CheckCredential() error      { return d.http.CheckCredential() }

func (d *Describer) Describe(ctx context.Context, img domain.EncodedImage, _ string) domain.VisionResult {
	resp, err := d.http.PostBody(ctx, modelPath(d.model), img.MediaType, img.Bytes)
	if err != nil {
		return domain.FailedVision(d.http.Failure(err))
	}
	text, err := resp.Text()
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

type generationRequest struct {
	Inputs     string               `json:"inputs"`
	Parameters generationParameters `json:"parameters"`
}

type generationParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	ReturnFullText bool    `json:"return_full_text"`
}

func (g *Generator) Generate(ctx context.Context, prompt domain.Prompt) domain.AnalysisResult {
	resp, err := g.http.PostJSON(ctx, modelPath(g.model), generationRequest{
		Inputs: string(prompt),
		Parameters: generationParameters{
			MaxNewTokens: g.maxTokens,
			Temperature:  g.temperature,
		},
	})
	if err != nil {
		return domain.FailedAnalysis(g.http.Failure(err))
	}
	text, err := resp.Text()
	if err != nil {
		return domain.FailedAnalysis(g.http.Failure(err))
	}
	return domain.ReportResult(text)
}
