package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
	"github.com/kirillkom/engineering-analysis-ai/internal/core/usecase"
	"github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/export"
	"github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/imaging"
	"github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/prompt"
)

type visionStub struct {
	result domain.VisionResult
	calls  int
}

func (v *visionStub) Name() string                { return "stub-vision" }
func (v *visionStub) ImageWire() domain.ImageWire { return domain.WireBinary }
func (v *visionStub) CheckCredential() error      { return nil }

func (v *visionStub) Describe(context.Context, domain.EncodedImage, string) domain.VisionResult {
	v.calls++
	return v.result
}

type textStub struct {
	result  domain.AnalysisResult
	prompts []domain.Prompt
}

func (g *textStub) Name() string           { return "stub-text" }
func (g *textStub) CheckCredential() error { return nil }

func (g *textStub) Generate(_ context.Context, p domain.Prompt) domain.AnalysisResult {
	g.prompts = append(g.prompts, p)
	return g.result
}

func newTestAnalyzer(t *testing.T, vision *visionStub, text *textStub, stdin string, interactive bool) (*analyzer, *bytes.Buffer) {
	t.Helper()
	prompts, err := prompt.NewBuilder(nil)
	if err != nil {
		t.Fatalf("prompt builder: %v", err)
	}
	out := &bytes.Buffer{}
	return &analyzer{
		analysis:    usecase.NewAnalysisUseCase(imaging.NewEncoder(), vision, text, prompts),
		exports:     export.Default(),
		ui:          newUI(),
		out:         out,
		in:          bufio.NewReader(strings.NewReader(stdin)),
		interactive: interactive,
		busy:        func(string) func() { return func() {} },
	}, out
}

func writePNG(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(2, 2, color.RGBA{G: 180, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	path := filepath.Join(dir, "bracket.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write png: %v", err)
	}
	return path
}

func TestAnalyzerRunDescribesAndSavesReport(t *testing.T) {
	dir := t.TempDir()
	vision := &visionStub{result: domain.DescribedResult("An aluminium L-bracket with two countersunk holes.")}
	text := &textStub{result: domain.ReportResult("## System Identification\nA mounting bracket.")}
	a, out := newTestAnalyzer(t, vision, text, "", false)

	path, err := a.run(context.Background(), analyzeOptions{
		imagePath: writePNG(t, dir),
		domain:    "Product Design",
		notes:     "CNC milled",
		format:    "txt",
		outDir:    filepath.Join(dir, "reports"),
	})
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if want := filepath.Join(dir, "reports", "engineering_analysis_Product_Design.txt"); path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(data), "A mounting bracket.") {
		t.Fatalf("report file missing text: %s", data)
	}
	if vision.calls != 1 || len(text.prompts) != 1 {
		t.Fatalf("vision calls = %d, text calls = %d", vision.calls, len(text.prompts))
	}
	if !strings.Contains(string(text.prompts[0]), "L-bracket") {
		t.Fatalf("prompt does not carry the description: %s", text.prompts[0])
	}
	if !strings.Contains(out.String(), "image described") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestAnalyzerRunManualDescriptionSkipsVision(t *testing.T) {
	dir := t.TempDir()
	vision := &visionStub{}
	text := &textStub{result: domain.ReportResult("## Key Components\nGears.")}
	a, _ := newTestAnalyzer(t, vision, text, "", false)

	path, err := a.run(context.Background(), analyzeOptions{
		domain:      "mechanical-mechanism",
		description: "A two-stage spur gearbox.",
		format:      "xlsx",
		outDir:      dir,
	})
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if filepath.Ext(path) != ".xlsx" {
		t.Fatalf("path = %q, want xlsx", path)
	}
	if vision.calls != 0 {
		t.Fatalf("vision called %d times", vision.calls)
	}
	if !strings.Contains(string(text.prompts[0]), "two-stage spur gearbox") {
		t.Fatalf("prompt = %s", text.prompts[0])
	}
}

func TestAnalyzerRunPromptsForDescriptionOnVisionFailure(t *testing.T) {
	dir := t.TempDir()
	failure := domain.NewFailure(domain.StageVision, domain.ErrTransport, "connection refused", nil)
	vision := &visionStub{result: domain.FailedVision(failure)}
	text := &textStub{result: domain.ReportResult("## Recommendations\nAdd a fillet.")}
	a, out := newTestAnalyzer(t, vision, text, "\nA welded steel frame\nwith gusset plates\n\n", true)

	if _, err := a.run(context.Background(), analyzeOptions{
		imagePath: writePNG(t, dir),
		domain:    "Civil Engineering / Structures",
		format:    "txt",
		outDir:    dir,
	}); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(out.String(), "Enter a description") {
		t.Fatalf("output = %q", out.String())
	}
	got := string(text.prompts[0])
	if !strings.Contains(got, "A welded steel frame\nwith gusset plates") {
		t.Fatalf("prompt = %s", got)
	}
}

func TestAnalyzerRunVisionFailureWithoutTerminal(t *testing.T) {
	dir := t.TempDir()
	failure := domain.NewFailure(domain.StageVision, domain.ErrTransport, "connection refused", nil)
	text := &textStub{}
	a, _ := newTestAnalyzer(t, &visionStub{result: domain.FailedVision(failure)}, text, "", false)

	_, err := a.run(context.Background(), analyzeOptions{
		imagePath: writePNG(t, dir),
		domain:    "Civil Engineering / Structures",
		format:    "txt",
		outDir:    dir,
	})
	if err == nil || !strings.Contains(err.Error(), "--description") {
		t.Fatalf("run() error = %v, want hint to pass --description", err)
	}
	if len(text.prompts) != 0 {
		t.Fatal("text provider must not be called without a description")
	}
}

func TestAnalyzerRunRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name string
		opts analyzeOptions
	}{
		{name: "unknown format", opts: analyzeOptions{domain: "Product Design", description: "x", format: "pdf"}},
		{name: "no image or description", opts: analyzeOptions{domain: "Product Design", format: "txt"}},
		{name: "unknown domain", opts: analyzeOptions{domain: "Alchemy", description: "x", format: "txt"}},
		{name: "unsupported image", opts: analyzeOptions{domain: "Product Design", imagePath: filepath.Join(dir, "scan.bmp"), format: "txt"}},
		{name: "missing image", opts: analyzeOptions{domain: "Product Design", imagePath: filepath.Join(dir, "missing.png"), format: "txt"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			text := &textStub{result: domain.ReportResult("report")}
			a, _ := newTestAnalyzer(t, &visionStub{}, text, "", false)
			tc.opts.outDir = dir
			if _, err := a.run(context.Background(), tc.opts); err == nil {
				t.Fatal("expected error")
			}
			if len(text.prompts) != 0 {
				t.Fatal("text provider called for rejected input")
			}
		})
	}
}

func TestPrintEvent(t *testing.T) {
	event := domain.AnalysisEvent{
		Type:        domain.EventDescriptionFailed,
		SessionID:   "s-1",
		Domain:      "Product Design",
		Provider:    "huggingface",
		FailureCode: "transport_error",
		DurationMS:  42,
		OccurredAt:  time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	var plain bytes.Buffer
	if err := printEvent(&plain, newUI(), event, false); err != nil {
		t.Fatalf("printEvent() error = %v", err)
	}
	for _, want := range []string{"analysis.description_failed", "session=s-1", "failure=transport_error", "duration=42ms"} {
		if !strings.Contains(plain.String(), want) {
			t.Fatalf("output %q missing %q", plain.String(), want)
		}
	}

	var raw bytes.Buffer
	if err := printEvent(&raw, newUI(), event, true); err != nil {
		t.Fatalf("printEvent() error = %v", err)
	}
	if !strings.Contains(raw.String(), `"failure_code":"transport_error"`) {
		t.Fatalf("json output = %s", raw.String())
	}
}

func TestReadImageFileDetectsFormatFromContent(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4)), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	path := filepath.Join(dir, "photo.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write jpeg: %v", err)
	}

	img, err := readImageFile(path)
	if err != nil {
		t.Fatalf("readImageFile: %v", err)
	}
	if img.Format != domain.ImageFormatJPEG {
		t.Fatalf("format = %q, want jpeg", img.Format)
	}

	notes := filepath.Join(dir, "scan.bmp")
	if err := os.WriteFile(notes, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write text: %v", err)
	}
	if _, err := readImageFile(notes); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
