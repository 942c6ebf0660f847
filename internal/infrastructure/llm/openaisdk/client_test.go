package openaisdk

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
)

const completionJSON = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "finish_reason": "stop",
    "logprobs": null,
    "message": {"role": "assistant", "content": %s, "refusal": null}
  }],
  "usage": {"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2}
}`

func completion(content string) string {
	quoted, _ := json.Marshal(content)
	return strings.Replace(completionJSON, "%s", string(quoted), 1)
}

func TestGeneratorUsesChatCompletions(t *testing.T) {
	var body string
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion("## System Identification\nA drone frame")))
	}))
	defer server.Close()

	g := NewGenerator(Config{BaseURL: server.URL + "/v1", Model: "gpt-4o-mini", APIKey: "sk-test", MaxTokens: 500, Temperature: 0.4}, nil)
	res := g.Generate(context.Background(), "Analyze the drone")
	if !res.OK() || res.Report != "## System Identification\nA drone frame" {
		t.Fatalf("unexpected result %+v", res)
	}
	if auth != "Bearer sk-test" {
		t.Fatalf("authorization = %q", auth)
	}
	for _, want := range []string{`"model":"gpt-4o-mini"`, `Analyze the drone`, `"max_tokens":500`, `"temperature":0.4`} {
		if !strings.Contains(body, want) {
			t.Fatalf("request missing %s: %s", want, body)
		}
	}
}

func TestDescriberSendsImagePart(t *testing.T) {
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion("A welded steel truss")))
	}))
	defer server.Close()

	d := NewDescriber(Config{BaseURL: server.URL, Model: "gpt-4o", APIKey: "sk-test"}, nil)
	res := d.Describe(context.Background(), domain.EncodedImage{Wire: domain.WireBase64, MediaType: "image/png", Base64: "QUJD"}, "Describe")
	if !res.OK() || res.Description != "A welded steel truss" {
		t.Fatalf("unexpected result %+v", res)
	}
	if !strings.Contains(body, "data:image/png;base64,QUJD") || !strings.Contains(body, `"image_url"`) {
		t.Fatalf("request missing image part: %s", body)
	}
}

func TestAPIErrorBecomesTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer server.Close()

	res := NewGenerator(Config{BaseURL: server.URL, Model: "m", APIKey: "k"}, nil).Generate(context.Background(), "p")
	if res.OK() || !errors.Is(res.Failure, domain.ErrTransport) {
		t.Fatalf("expected transport failure, got %+v", res)
	}
	if !strings.Contains(res.Failure.Reason, "HTTP 503") {
		t.Fatalf("reason = %q", res.Failure.Reason)
	}
}

func TestMissingKeyIsReportedWithoutRequest(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer server.Close()

	d := NewDescriber(Config{BaseURL: server.URL, Model: "gpt-4o", KeyName: "VISION_API_KEY"}, nil)
	if err := d.CheckCredential(); !domain.IsKind(err, domain.ErrMissingCredential) {
		t.Fatalf("expected missing credential, got %v", err)
	}
	res := d.Describe(context.Background(), domain.EncodedImage{MediaType: "image/png", Base64: "QUJD"}, "")
	if !errors.Is(res.Failure, domain.ErrMissingCredential) || called {
		t.Fatalf("expected missing credential without a request, got %+v called=%v", res, called)
	}
}
