package tracing

import (
	"context"
	"testing"
)

func TestSanitizeEndpoint(t *testing.T) {
	cases := map[string]string{
		"":                             defaultEndpoint,
		"collector:4317":               "collector:4317",
		"http://collector:4317/":       "collector:4317",
		"https://otel.example.com:443": "otel.example.com:443",
		"collector:4317/":              "collector:4317",
	}
	for in, want := range cases {
		if got := SanitizeEndpoint(in); got != want {
			t.Fatalf("SanitizeEndpoint(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeRatio(t *testing.T) {
	if NormalizeRatio(0) != 1 || NormalizeRatio(2) != 1 || NormalizeRatio(-1) != 1 {
		t.Fatalf("out of range ratios must fall back to 1")
	}
	if NormalizeRatio(0.25) != 0.25 {
		t.Fatalf("valid ratio must be kept")
	}
}

func TestSetupDisabledReturnsNoopShutdown(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown error = %v", err)
	}
}
