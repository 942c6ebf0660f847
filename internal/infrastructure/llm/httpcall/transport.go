// Package httpcall is the HTTP transport shared by the inference provider
// adapters: auth header, bounded timeout, status handling and the breaker.
package httpcall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
	"github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/llm/envelope"
	"github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/resilience"
)

const (
	DefaultTimeout   = 60 * time.Second
	maxResponseBytes = 4 << 20
	maxErrorBody     = 2048
)

type Options struct {
	Stage    domain.Stage
	Provider string
	BaseURL  string
	APIKey   string

	// KeyName is the configuration key reported when the credential is absent.
	KeyName    string
	RequireKey bool

	Timeout    time.Duration
	Executor   *resilience.Executor
	HTTPClient *http.Client
}

type Client struct {
	stage      domain.Stage
	provider   string
	baseURL    string
	apiKey     string
	keyName    string
	requireKey bool
	timeout    time.Duration
	executor   *resilience.Executor
	httpClient *http.Client
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		stage:      opts.Stage,
		provider:   opts.Provider,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     strings.TrimSpace(opts.APIKey),
		keyName:    opts.KeyName,
		requireKey: opts.RequireKey,
		timeout:    timeout,
		executor:   opts.Executor,
		httpClient: httpClient,
	}
}

// CheckCredential never performs I/O.
func (c *Client) CheckCredential() error {
	if !c.requireKey || c.apiKey != "" {
		return nil
	}
	name := c.keyName
	if name == "" {
		name = "API key"
	}
	return domain.WrapError(domain.ErrMissingCredential, fmt.Sprintf("%s %s", c.stage, c.provider), fmt.Errorf("%s is not set", name))
}

type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Text extracts generated text from any supported envelope.
func (r Response) Text() (string, error) {
	return envelope.Extract(r.ContentType, r.Body)
}

// JSON decodes the body into out, reporting malformed bodies as transport errors.
func (r Response) JSON(out any) error {
	if err := json.Unmarshal(r.Body, out); err != nil {
		return domain.WrapError(domain.ErrTransport, "decode response", err)
	}
	return nil
}

func (c *Client) PostJSON(ctx context.Context, path string, payload any) (Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("marshal %s request: %w", c.operation(), err)
	}
	return c.post(ctx, path, "application/json", body)
}

func (c *Client) PostBody(ctx context.Context, path, contentType string, body []byte) (Response, error) {
	return c.post(ctx, path, contentType, body)
}

// FilePart is the file field of a multipart upload.
type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

func (c *Client) PostMultipart(ctx context.Context, path string, fields map[string]string, file FilePart) (Response, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return Response{}, fmt.Errorf("write %s form field %s: %w", c.operation(), name, err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.Field, file.Filename))
	header.Set("Content-Type", file.ContentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return Response{}, fmt.Errorf("create %s file part: %w", c.operation(), err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return Response{}, fmt.Errorf("write %s file part: %w", c.operation(), err)
	}
	if err := w.Close(); err != nil {
		return Response{}, fmt.Errorf("close %s form: %w", c.operation(), err)
	}
	return c.post(ctx, path, w.FormDataContentType(), buf.Bytes())
}

func (c *Client) post(ctx context.Context, path, contentType string, body []byte) (Response, error) {
	if err := c.CheckCredential(); err != nil {
		return Response{}, err
	}

	var out Response
	call := func(callCtx context.Context) error {
		callCtx, cancel := context.WithTimeout(callCtx, c.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create %s request: %w", c.operation(), err)
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%s request: %w", c.operation(), err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return formatHTTPStatusError(c.operation(), resp)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return fmt.Errorf("read %s response: %w", c.operation(), err)
		}
		out = Response{
			StatusCode:  resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
			Body:        data,
		}
		return nil
	}

	if c.executor == nil {
		return out, call(ctx)
	}
	err := c.executor.Execute(ctx, c.operation(), call, classifyProviderError)
	return out, err
}

func (c *Client) operation() string {
	return string(c.stage) + "." + c.provider
}

func formatHTTPStatusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &HTTPStatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(strings.ToValidUTF8(string(body), "")),
	}
}
