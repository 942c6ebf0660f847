// Package envelope extracts generated text from the response bodies of the
// inference providers the service talks to.
package envelope

import (
	"errors"
	"fmt"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
)

const maxSnippet = 200

// paths are tried in order against JSON object and array bodies.
var paths = []string{
	"0.generated_text",          // Hugging Face inference: [{"generated_text": ...}]
	"generated_text",            // single-object variant
	"choices.0.message.content", // OpenAI-compatible chat completions
	"choices.0.text",            // OpenAI-compatible completions
	"response",                  // Ollama /api/generate
	"content.0.text",            // messages API
	"0.summary_text",
}

// Extract returns the generated text from body. Invalid JSON is a transport
// error; valid JSON in an unknown shape is an unexpected-format error.
func Extract(contentType string, body []byte) (string, error) {
	if isPlainText(contentType) {
		text := strings.TrimSpace(string(body))
		if text == "" {
			return "", domain.WrapError(domain.ErrUnexpectedFormat, "extract text", errors.New("empty response body"))
		}
		return text, nil
	}

	if !gjson.ValidBytes(body) {
		return "", domain.WrapError(domain.ErrTransport, "decode response", fmt.Errorf("malformed JSON body: %s", snippet(body)))
	}

	root := gjson.ParseBytes(body)
	if root.Type == gjson.String {
		return nonEmpty(root.String(), body)
	}

	for _, path := range paths {
		value := root.Get(path)
		if !value.Exists() {
			continue
		}
		if value.Type == gjson.String {
			return nonEmpty(value.String(), body)
		}
		if value.IsArray() {
			if text := joinTextParts(value); text != "" {
				return text, nil
			}
		}
	}

	if msg := root.Get("error"); msg.Exists() {
		reason := msg.String()
		if msg.IsObject() {
			reason = msg.Get("message").String()
		}
		return "", domain.WrapError(domain.ErrUnexpectedFormat, "extract text", fmt.Errorf("provider error: %s", reason))
	}
	return "", domain.WrapError(domain.ErrUnexpectedFormat, "extract text", fmt.Errorf("unrecognized response envelope: %s", snippet(body)))
}

// joinTextParts handles content given as [{"type":"text","text":...}, ...].
func joinTextParts(parts gjson.Result) string {
	var texts []string
	parts.ForEach(func(_, part gjson.Result) bool {
		if part.Type == gjson.String {
			texts = append(texts, part.String())
			return true
		}
		if text := part.Get("text"); text.Type == gjson.String {
			texts = append(texts, text.String())
		}
		return true
	})
	return strings.TrimSpace(strings.Join(texts, "\n"))
}

func nonEmpty(text string, body []byte) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.WrapError(domain.ErrUnexpectedFormat, "extract text", fmt.Errorf("generated text is empty: %s", snippet(body)))
	}
	return text, nil
}

func isPlainText(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "text/plain"
}

func snippet(body []byte) string {
	return Truncate(strings.TrimSpace(string(body)), maxSnippet)
}

// Truncate shortens text to at most limit bytes, backing off to a rune
// boundary, and marks the cut with "...".
func Truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
