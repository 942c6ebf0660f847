package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProviderHuggingFace     = "huggingface"
	ProviderOllama          = "ollama"
	ProviderChatCompletions = "chat-completions"
	ProviderMultipart       = "multipart"
	ProviderOpenAI          = "openai"

	MinProviderTimeout = time.Second
	MaxProviderTimeout = 5 * time.Minute
)

type ProviderConfig struct {
	Provider string        `yaml:"provider"`
	URL      string        `yaml:"url"`
	Model    string        `yaml:"model"`
	APIKey   string        `yaml:"apiKey"`
	Timeout  time.Duration `yaml:"timeout"`

	// KeyName is the variable reported when the credential is missing.
	KeyName string `yaml:"-"`
}

// RequiresKey reports whether the provider refuses unauthenticated calls.
func (p ProviderConfig) RequiresKey() bool {
	switch p.Provider {
	case ProviderHuggingFace, ProviderChatCompletions, ProviderOpenAI:
		return true
	default:
		return false
	}
}

type VisionConfig struct {
	ProviderConfig `yaml:",inline"`

	Instruction string `yaml:"instruction"`
}

type TextConfig struct {
	ProviderConfig `yaml:",inline"`

	MaxTokens   int     `yaml:"maxTokens"`
	Temperature float64 `yaml:"temperature"`
}

type ResilienceConfig struct {
	RetryMaxAttempts        int           `yaml:"retryMaxAttempts"`
	RetryInitialBackoff     time.Duration `yaml:"retryInitialBackoff"`
	RetryMaxBackoff         time.Duration `yaml:"retryMaxBackoff"`
	BreakerEnabled          bool          `yaml:"breakerEnabled"`
	BreakerMinRequests      int           `yaml:"breakerMinRequests"`
	BreakerFailureRatio     float64       `yaml:"breakerFailureRatio"`
	BreakerOpenTimeout      time.Duration `yaml:"breakerOpenTimeout"`
	BreakerHalfOpenMaxCalls int           `yaml:"breakerHalfOpenMaxCalls"`
}

type Config struct {
	APIPort  string `yaml:"apiPort"`
	LogLevel string `yaml:"logLevel"`

	Vision VisionConfig `yaml:"vision"`
	Text   TextConfig   `yaml:"text"`

	MaxUploadBytes int64         `yaml:"maxUploadBytes"`
	MaxImagePixels int64         `yaml:"maxImagePixels"`
	MaxConnections int           `yaml:"maxConnections"`
	SessionTTL     time.Duration `yaml:"sessionTTL"`

	APIRateLimitRPS     float64       `yaml:"apiRateLimitRPS"`
	APIRateLimitBurst   int           `yaml:"apiRateLimitBurst"`
	APIMaxInFlight      int           `yaml:"apiMaxInFlight"`
	APIBackpressureWait time.Duration `yaml:"apiBackpressureWait"`

	Resilience ResilienceConfig `yaml:"resilience"`

	NATSURL     string `yaml:"natsURL"`
	NATSSubject string `yaml:"natsSubject"`

	TracingEnabled   bool    `yaml:"tracingEnabled"`
	OTLPEndpoint     string  `yaml:"otlpEndpoint"`
	OTLPInsecure     bool    `yaml:"otlpInsecure"`
	TraceSampleRatio float64 `yaml:"traceSampleRatio"`

	// Checklists overrides the per-domain review points, keyed by domain label or slug.
	Checklists map[string][]string `yaml:"checklists"`
}

func Defaults() Config {
	return Config{
		APIPort:  "8080",
		LogLevel: "info",

		Vision: VisionConfig{
			ProviderConfig: ProviderConfig{
				Provider: ProviderHuggingFace,
				Model:    "Salesforce/blip-image-captioning-base",
				Timeout:  60 * time.Second,
			},
		},
		Text: TextConfig{
			ProviderConfig: ProviderConfig{
				Provider: ProviderHuggingFace,
				Model:    "mistralai/Mistral-7B-Instruct-v0.2",
				Timeout:  60 * time.Second,
			},
			MaxTokens:   500,
			Temperature: 0.4,
		},

		MaxUploadBytes: 10 << 20,
		MaxImagePixels: 40_000_000,
		MaxConnections: 256,
		SessionTTL:     30 * time.Minute,

		APIRateLimitRPS:     5,
		APIRateLimitBurst:   10,
		APIMaxInFlight:      16,
		APIBackpressureWait: 250 * time.Millisecond,

		Resilience: ResilienceConfig{
			RetryMaxAttempts:        1,
			RetryInitialBackoff:     250 * time.Millisecond,
			RetryMaxBackoff:         2 * time.Second,
			BreakerEnabled:          true,
			BreakerMinRequests:      5,
			BreakerFailureRatio:     0.6,
			BreakerOpenTimeout:      30 * time.Second,
			BreakerHalfOpenMaxCalls: 1,
		},

		NATSSubject: "engineering.analysis.events",

		OTLPEndpoint:     "localhost:4317",
		TraceSampleRatio: 1,
	}
}

// Load applies defaults, then the YAML file named by CONFIG_PATH, then the
// environment.
func Load() (Config, error) {
	cfg := Defaults()

	if path := strings.TrimSpace(os.Getenv("CONFIG_PATH")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	cfg.resolveProviders()
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.APIPort = mustEnv("API_PORT", cfg.APIPort)
	cfg.LogLevel = mustEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.Vision.Provider = strings.ToLower(mustEnv("VISION_PROVIDER", cfg.Vision.Provider))
	cfg.Vision.URL = mustEnv("VISION_URL", cfg.Vision.URL)
	cfg.Vision.Model = mustEnv("VISION_MODEL", cfg.Vision.Model)
	cfg.Vision.APIKey = mustEnv("VISION_API_KEY", cfg.Vision.APIKey)
	cfg.Vision.Timeout = mustEnvDuration("VISION_TIMEOUT", cfg.Vision.Timeout)
	cfg.Vision.Instruction = mustEnv("VISION_INSTRUCTION", cfg.Vision.Instruction)

	cfg.Text.Provider = strings.ToLower(mustEnv("TEXT_PROVIDER", cfg.Text.Provider))
	cfg.Text.URL = mustEnv("TEXT_URL", cfg.Text.URL)
	cfg.Text.Model = mustEnv("TEXT_MODEL", cfg.Text.Model)
	cfg.Text.APIKey = mustEnv("TEXT_API_KEY", cfg.Text.APIKey)
	cfg.Text.Timeout = mustEnvDuration("TEXT_TIMEOUT", cfg.Text.Timeout)
	cfg.Text.MaxTokens = mustEnvInt("TEXT_MAX_TOKENS", cfg.Text.MaxTokens)
	cfg.Text.Temperature = mustEnvFloat("TEXT_TEMPERATURE", cfg.Text.Temperature)

	shared := mustEnv("LLM_API_KEY", mustEnv("HF_API_KEY", ""))
	if cfg.Vision.APIKey == "" {
		cfg.Vision.APIKey = shared
	}
	if cfg.Text.APIKey == "" {
		cfg.Text.APIKey = shared
	}

	cfg.MaxUploadBytes = int64(mustEnvInt("MAX_UPLOAD_BYTES", int(cfg.MaxUploadBytes)))
	cfg.MaxImagePixels = int64(mustEnvInt("MAX_IMAGE_PIXELS", int(cfg.MaxImagePixels)))
	cfg.MaxConnections = mustEnvInt("MAX_CONNECTIONS", cfg.MaxConnections)
	cfg.SessionTTL = mustEnvDuration("SESSION_TTL", cfg.SessionTTL)

	cfg.APIRateLimitRPS = mustEnvFloat("API_RATE_LIMIT_RPS", cfg.APIRateLimitRPS)
	cfg.APIRateLimitBurst = mustEnvInt("API_RATE_LIMIT_BURST", cfg.APIRateLimitBurst)
	cfg.APIMaxInFlight = mustEnvInt("API_MAX_IN_FLIGHT", cfg.APIMaxInFlight)
	cfg.APIBackpressureWait = time.Duration(mustEnvInt("API_BACKPRESSURE_WAIT_MS", int(cfg.APIBackpressureWait/time.Millisecond))) * time.Millisecond

	r := &cfg.Resilience
	r.RetryMaxAttempts = mustEnvInt("RESILIENCE_RETRY_MAX_ATTEMPTS", r.RetryMaxAttempts)
	r.RetryInitialBackoff = time.Duration(mustEnvInt("RESILIENCE_RETRY_INITIAL_BACKOFF_MS", int(r.RetryInitialBackoff/time.Millisecond))) * time.Millisecond
	r.RetryMaxBackoff = time.Duration(mustEnvInt("RESILIENCE_RETRY_MAX_BACKOFF_MS", int(r.RetryMaxBackoff/time.Millisecond))) * time.Millisecond
	r.BreakerEnabled = mustEnvBool("RESILIENCE_BREAKER_ENABLED", r.BreakerEnabled)
	r.BreakerMinRequests = mustEnvInt("RESILIENCE_BREAKER_MIN_REQUESTS", r.BreakerMinRequests)
	r.BreakerFailureRatio = mustEnvFloat("RESILIENCE_BREAKER_FAILURE_RATIO", r.BreakerFailureRatio)
	r.BreakerOpenTimeout = time.Duration(mustEnvInt("RESILIENCE_BREAKER_OPEN_TIMEOUT_MS", int(r.BreakerOpenTimeout/time.Millisecond))) * time.Millisecond
	r.BreakerHalfOpenMaxCalls = mustEnvInt("RESILIENCE_BREAKER_HALF_OPEN_MAX_REQUESTS", r.BreakerHalfOpenMaxCalls)

	cfg.NATSURL = mustEnv("NATS_URL", cfg.NATSURL)
	cfg.NATSSubject = mustEnv("NATS_SUBJECT", cfg.NATSSubject)

	cfg.TracingEnabled = mustEnvBool("TRACING_ENABLED", cfg.TracingEnabled)
	cfg.OTLPEndpoint = mustEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)
	cfg.OTLPInsecure = mustEnvBool("OTEL_EXPORTER_OTLP_INSECURE", cfg.OTLPInsecure)
	cfg.TraceSampleRatio = mustEnvFloat("TRACE_SAMPLE_RATIO", cfg.TraceSampleRatio)
}

// resolveProviders fills provider URLs that have a well-known default and
// names the key each provider reads.
func (c *Config) resolveProviders() {
	c.Vision.KeyName = "VISION_API_KEY"
	c.Text.KeyName = "TEXT_API_KEY"
	c.Vision.URL = defaultURL(c.Vision.Provider, c.Vision.URL)
	c.Text.URL = defaultURL(c.Text.Provider, c.Text.URL)
}

func defaultURL(provider, url string) string {
	if strings.TrimSpace(url) != "" {
		return url
	}
	switch provider {
	case ProviderHuggingFace:
		return "https://api-inference.huggingface.co"
	case ProviderOllama:
		return "http://localhost:11434"
	case ProviderChatCompletions:
		return "https://api.openai.com/v1"
	default:
		return ""
	}
}

func (c Config) Validate() error {
	var errs []error

	port, err := strconv.Atoi(c.APIPort)
	if err != nil || port <= 0 || port > 65535 {
		errs = append(errs, fmt.Errorf("API_PORT must be a TCP port, got %q", c.APIPort))
	}

	switch c.Vision.Provider {
	case ProviderHuggingFace, ProviderOllama, ProviderChatCompletions, ProviderMultipart, ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("VISION_PROVIDER %q is not supported", c.Vision.Provider))
	}
	switch c.Text.Provider {
	case ProviderHuggingFace, ProviderOllama, ProviderChatCompletions, ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("TEXT_PROVIDER %q is not supported", c.Text.Provider))
	}
	if c.Vision.Provider == ProviderMultipart && strings.TrimSpace(c.Vision.URL) == "" {
		errs = append(errs, errors.New("VISION_URL is required for the multipart provider"))
	}
	if strings.TrimSpace(c.Vision.Model) == "" && c.Vision.Provider != ProviderMultipart {
		errs = append(errs, errors.New("VISION_MODEL must not be empty"))
	}
	if strings.TrimSpace(c.Text.Model) == "" {
		errs = append(errs, errors.New("TEXT_MODEL must not be empty"))
	}

	if err := validateTimeout("VISION_TIMEOUT", c.Vision.Timeout); err != nil {
		errs = append(errs, err)
	}
	if err := validateTimeout("TEXT_TIMEOUT", c.Text.Timeout); err != nil {
		errs = append(errs, err)
	}
	if c.Text.Temperature < 0 || c.Text.Temperature > 2 {
		errs = append(errs, fmt.Errorf("TEXT_TEMPERATURE must be within [0, 2], got %v", c.Text.Temperature))
	}
	if c.Text.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("TEXT_MAX_TOKENS must be positive, got %d", c.Text.MaxTokens))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes))
	}
	if c.MaxImagePixels <= 0 {
		errs = append(errs, fmt.Errorf("MAX_IMAGE_PIXELS must be positive, got %d", c.MaxImagePixels))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL))
	}
	if c.APIRateLimitRPS < 0 || c.APIRateLimitBurst < 0 || c.APIMaxInFlight < 0 {
		errs = append(errs, errors.New("API traffic limits must not be negative"))
	}

	return errors.Join(errs...)
}

func validateTimeout(key string, d time.Duration) error {
	if d < MinProviderTimeout || d > MaxProviderTimeout {
		return fmt.Errorf("%s must be within [%s, %s], got %s", key, MinProviderTimeout, MaxProviderTimeout, d)
	}
	return nil
}

// MissingCredentials lists the key variables that are required by the
// configured providers but empty.
func (c Config) MissingCredentials() []string {
	var missing []string
	if c.Vision.RequiresKey() && strings.TrimSpace(c.Vision.APIKey) == "" {
		missing = append(missing, c.Vision.KeyName)
	}
	if c.Text.RequiresKey() && strings.TrimSpace(c.Text.APIKey) == "" {
		missing = append(missing, c.Text.KeyName)
	}
	return missing
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// mustEnvDuration accepts Go durations ("90s") and bare integers as seconds.
func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
