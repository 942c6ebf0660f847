package chatcompletions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
)

func chatResponse(content string) string {
	quoted, _ := json.Marshal(content)
	return `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":` + string(quoted) + `},"finish_reason":"stop"}]}`
}

func TestDescriberSendsImageDataURL(t *testing.T) {
	var raw map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_, _ = w.Write([]byte(chatResponse("A CNC milling fixture")))
	}))
	defer server.Close()

	d := NewDescriber(Config{BaseURL: server.URL + "/v1", Model: "Qwen/Qwen2.5-VL-7B-Instruct", APIKey: "k", MaxTokens: 300}, nil)
	res := d.Describe(context.Background(), domain.EncodedImage{Wire: domain.WireBase64, MediaType: "image/png", Base64: "QUJD"}, "Describe the object")
	if !res.OK() || res.Description != "A CNC milling fixture" {
		t.Fatalf("unexpected result %+v", res)
	}

	encoded, _ := json.Marshal(raw)
	for _, want := range []string{`"type":"image_url"`, `"url":"data:image/png;base64,QUJD"`, `"text":"Describe the object"`, `"max_tokens":300`} {
		if !strings.Contains(string(encoded), want) {
			t.Fatalf("request missing %s: %s", want, encoded)
		}
	}
}

func TestGeneratorSendsPromptAndTemperature(t *testing.T) {
	var req completionRequest
	var rawBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&rawBody)
		encoded, _ := json.Marshal(rawBody)
		_ = json.Unmarshal(encoded, &req)
		_, _ = w.Write([]byte(chatResponse("## Key Components\n- spindle")))
	}))
	defer server.Close()

	g := NewGenerator(Config{BaseURL: server.URL, Model: "m", APIKey: "k", MaxTokens: 500, Temperature: 0}, nil)
	res := g.Generate(context.Background(), "the prompt")
	if !res.OK() || res.Report != "## Key Components\n- spindle" {
		t.Fatalf("unexpected result %+v", res)
	}
	if rawBody["temperature"] != float64(0) {
		t.Fatalf("zero temperature must still be sent, got %v", rawBody["temperature"])
	}
	if len(req.Messages) != 1 || req.Messages[0].Content != "the prompt" {
		t.Fatalf("unexpected messages %+v", req.Messages)
	}
}

func TestEmptyChoicesIsUnexpectedFormat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"c1","choices":[]}`))
	}))
	defer server.Close()

	res := NewGenerator(Config{BaseURL: server.URL, Model: "m", APIKey: "k"}, nil).Generate(context.Background(), "p")
	if res.OK() || !errors.Is(res.Failure, domain.ErrUnexpectedFormat) {
		t.Fatalf("expected unexpected format, got %+v", res)
	}
}
