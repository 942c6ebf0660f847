// Package multipart uploads the image as a multipart form to a captioning
// endpoint. It only provides the vision stage.
package multipart

import (
	"context"
	"time"

	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
	"github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/llm/httpcall"
	"github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/resilience"
)

const (
	providerName = "multipart"
	imageField   = "image"
	promptField  = "prompt"
)

type Config struct {
	URL     string
	Model   string
	APIKey  string
	Timeout time.Duration
}

type Describer struct {
	http  *httpcall.Client
	model string
}

func NewDescriber(cfg Config, exec *resilience.Executor) *Describer {
	return &Describer{
		http: httpcall.New(httpcall.Options{
			Stage:    domain.StageVision,
			Provider: providerName,
			BaseURL:  cfg.URL,
			APIKey:   cfg.APIKey,
			Timeout:  cfg.Timeout,
			Executor: exec,
		}),
		model: cfg.Model,
	}
}

func (d *Describer) Name() string                { return providerName }
func (d *Describer) ImageWire() domain.ImageWire { return domain.WireBinary }
func (d *Describer) CheckCredential() error      { return d.http.CheckCredential() }

func (d *Describer) Describe(ctx context.Context, img domain.EncodedImage, instruction string) domain.VisionResult {
	fields := map[string]string{promptField: instruction}
	if d.model != "" {
		fields["model"] = d.model
	}
	resp, err := d.http.PostMultipart(ctx, "", fields, httpcall.FilePart{
		Field:       imageField,
		Filename:    "image.png",
		ContentType: img.MediaType,
		Data:        img.Bytes,
	})
	if err != nil {
		return domain.FailedVision(d.http.Failure(err))
	}
	text, err := resp.Text()
	if err != nil {
		return domain.FailedVision(d.http.Failure(err))
	}
	return domain.DescribedResult(text)
}
