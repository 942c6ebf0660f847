package bootstrap

import (
	"fmt"

	"github.com/kirillkom/engineering-analysis-ai/internal/config"
	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
	"github.com/kirillkom/engineering-analysis-ai/internal/core/ports"
	"github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/llm/chatcompletions"
	"github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/llm/huggingface"
	"github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/llm/multipart"
	"github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/llm/openaisdk"
	"github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/resilience"
)

func NewVisionDescriber(cfg config.VisionConfig, exec *resilience.Executor) (ports.VisionDescriber, error) {
	switch cfg.Provider {
	case config.ProviderHuggingFace:
		return huggingface.NewDescriber(huggingface.Config{
			BaseURL: cfg.URL,
			Model:   cfg.Model,
			APIKey:  cfg.APIKey,
			KeyName: cfg.KeyName,
			Timeout: cfg.Timeout,
		}, exec), nil
	case config.ProviderOllama:
		return ollama.NewDescriber(ollama.Config{
			BaseURL: cfg.URL,
			Model:   cfg.Model,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
		}, exec), nil
	case config.ProviderChatCompletions:
		return chatcompletions.NewDescriber(chatcompletions.Config{
			BaseURL: cfg.URL,
			Model:   cfg.Model,
			APIKey:  cfg.APIKey,
			KeyName: cfg.KeyName,
			Timeout: cfg.Timeout,
		}, exec), nil
	case config.ProviderMultipart:
		return multipart.NewDescriber(multipart.Config{
			URL:     cfg.URL,
			Model:   cfg.Model,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
		}, exec), nil
	case config.ProviderOpenAI:
		return openaisdk.NewDescriber(openaisdk.Config{
			BaseURL: cfg.URL,
			Model:   cfg.Model,
			APIKey:  cfg.APIKey,
			KeyName: cfg.KeyName,
			Timeout: cfg.Timeout,
		}, exec), nil
	default:
		return nil, domain.WrapError(domain.ErrValidation, "select vision provider", fmt.Errorf("unsupported provider %q", cfg.Provider))
	}
}

func NewTextGenerator(cfg config.TextConfig, exec *resilience.Executor) (ports.TextGenerator, error) {
	switch cfg.Provider {
	case config.ProviderHuggingFace:
		return huggingface.NewGenerator(huggingface.Config{
			BaseURL:     cfg.URL,
			Model:       cfg.Model,
			APIKey:      cfg.APIKey,
			KeyName:     cfg.KeyName,
			Timeout:     cfg.Timeout,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}, exec), nil
	case config.ProviderOllama:
		return ollama.NewGenerator(ollama.Config{
			BaseURL:     cfg.URL,
			Model:       cfg.Model,
			APIKey:      cfg.APIKey,
			Timeout:     cfg.Timeout,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}, exec), nil
	case config.ProviderChatCompletions:
		return chatcompletions.NewGenerator(chatcompletions.Config{
			BaseURL:     cfg.URL,
			Model:       cfg.Model,
			APIKey:      cfg.APIKey,
			KeyName:     cfg.KeyName,
			Timeout:     cfg.Timeout,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}, exec), nil
	case config.ProviderOpenAI:
		return openaisdk.NewGenerator(openaisdk.Config{
			BaseURL:     cfg.URL,
			Model:       cfg.Model,
			APIKey:      cfg.APIKey,
			KeyName:     cfg.KeyName,
			Timeout:     cfg.Timeout,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}, exec), nil
	default:
		return nil, domain.WrapError(domain.ErrValidation, "select text provider", fmt.Errorf("unsupported provider %q", cfg.Provider))
	}
}
