package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
	"github.com/kirillkom/engineering-analysis-ai/internal/core/ports"
	"github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/export"
	"github.com/kirillkom/engineering-analysis-ai/internal/infrastructure/storage/localfs"
)

const maxImageFileBytes = 20 << 20

type analyzeOptions struct {
	imagePath   string
	domain      string
	notes       string
	description string
	format      string
	outDir      string
}

// analyzer drives one session through the pipeline from the terminal.
type analyzer struct {
	analysis ports.AnalysisService
	exports  *export.Registry
	ui       *ui

	out         io.Writer
	in          *bufio.Reader
	interactive bool
	busy        func(label string) (stop func())
}

func analyzeCmd(ui *ui) *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:     "analyze",
		Short:   "Analyze an engineering image",
		Example: "engai analyze --image bracket.png --domain \"Product Design\" --notes \"injection molded\" --format xlsx",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			a := &analyzer{
				analysis:    app.Analysis,
				exports:     app.Exports,
				ui:          ui,
				out:         cmd.OutOrStdout(),
				in:          bufio.NewReader(os.Stdin),
				interactive: term.IsTerminal(int(os.Stdin.Fd())),
				busy:        startSpinner,
			}
			path, err := a.run(ctx, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s Report saved: %s\n", ui.ok("[OK]"), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.imagePath, "image", "", "Image file (png, jpeg, gif)")
	cmd.Flags().StringVar(&opts.domain, "domain", "", "Engineering domain (see `engai domains`)")
	cmd.Flags().StringVar(&opts.notes, "notes", "", "Additional notes for the analysis")
	cmd.Flags().StringVar(&opts.description, "description", "", "Manual description; skips image description")
	cmd.Flags().StringVar(&opts.format, "format", "txt", "Report format (txt, xlsx)")
	cmd.Flags().StringVar(&opts.outDir, "out-dir", ".", "Directory for the report file")
	_ = cmd.MarkFlagRequired("domain")
	return cmd
}

func (a *analyzer) run(ctx context.Context, opts analyzeOptions) (string, error) {
	if _, err := a.exports.Lookup(opts.format); err != nil {
		return "", err
	}
	if strings.TrimSpace(opts.imagePath) == "" && strings.TrimSpace(opts.description) == "" {
		return "", errors.New("an --image or a --description is required")
	}

	s := domain.NewSession(uuid.NewString(), time.Now().UTC())
	if err := a.analysis.SetInputs(s, opts.domain, opts.notes); err != nil {
		return "", err
	}
	if s.Domain == "" {
		return "", errors.New("--domain is required")
	}
	fmt.Fprintf(a.out, "%s %s\n", a.ui.title("Domain:"), s.Domain)

	if strings.TrimSpace(opts.description) != "" {
		if err := a.analysis.SubmitManualDescription(s, opts.description); err != nil {
			return "", err
		}
		fmt.Fprintf(a.out, "%s using the provided description\n", a.ui.info("[describe]"))
	} else if err := a.describe(ctx, s, opts.imagePath); err != nil {
		return "", err
	}

	stop := a.busy(" Generating analysis...")
	result, err := a.analysis.GenerateReport(ctx, s)
	stop()
	if err != nil {
		return "", err
	}
	if !result.OK() {
		return "", errors.New(result.Failure.Message())
	}
	fmt.Fprintf(a.out, "%s report generated\n\n%s\n\n", a.ui.ok("[analyze]"), result.Report)

	return a.save(ctx, s, opts)
}

func (a *analyzer) describe(ctx context.Context, s *domain.Session, path string) error {
	img, err := readImageFile(path)
	if err != nil {
		return err
	}
	if err := a.analysis.AttachImage(s, img); err != nil {
		return err
	}

	stop := a.busy(" Describing image...")
	vision, err := a.analysis.Describe(ctx, s)
	stop()
	if err != nil {
		return err
	}
	if vision.OK() {
		fmt.Fprintf(a.out, "%s\n%s\n\n", a.ui.ok("[describe] image described"), vision.Description)
		return nil
	}

	fmt.Fprintf(a.out, "%s %s\n", a.ui.warn("[describe]"), vision.Failure.Message())
	if !a.interactive {
		return fmt.Errorf("image description failed (%s); rerun with --description", vision.Failure.Code())
	}
	text, err := a.promptDescription()
	if err != nil {
		return err
	}
	return a.analysis.SubmitManualDescription(s, text)
}

// promptDescription reads lines until an empty line or EOF.
func (a *analyzer) promptDescription() (string, error) {
	fmt.Fprintln(a.out, a.ui.title("Enter a description of the image (finish with an empty line):"))
	var lines []string
	for {
		line, err := a.in.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) == "" && (len(lines) > 0 || err != nil) {
			break
		}
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", fmt.Errorf("read description: %w", err)
		}
	}
	text := strings.TrimSpace(strings.Join(lines, "\n"))
	if text == "" {
		return "", errors.New("no description entered")
	}
	return text, nil
}

func (a *analyzer) save(ctx context.Context, s *domain.Session, opts analyzeOptions) (string, error) {
	doc, ok := domain.ReportDocumentFrom(s)
	if !ok {
		return "", errors.New("no report to save")
	}
	name, _, data, err := a.exports.File(doc, opts.format)
	if err != nil {
		return "", err
	}
	storage, err := localfs.New(opts.outDir)
	if err != nil {
		return "", err
	}
	if err := storage.Save(ctx, name, bytes.NewReader(data)); err != nil {
		return "", err
	}
	return storage.Path(name), nil
}

func readImageFile(path string) (domain.ImageAsset, error) {
	path = strings.TrimSpace(path)
	info, err := os.Stat(path)
	if err != nil {
		return domain.ImageAsset{}, domain.WrapError(domain.ErrValidation, "read image", err)
	}
	if info.Size() > maxImageFileBytes {
		return domain.ImageAsset{}, domain.WrapError(domain.ErrValidation, "read image", fmt.Errorf("image exceeds %d bytes", maxImageFileBytes))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ImageAsset{}, domain.WrapError(domain.ErrValidation, "read image", err)
	}
	format, ok := domain.ImageFormatFromName(http.DetectContentType(data))
	if !ok {
		format, ok = domain.ImageFormatFromName(path)
	}
	if !ok {
		return domain.ImageAsset{}, domain.WrapError(domain.ErrValidation, "read image", fmt.Errorf("unsupported image type %q", filepath.Ext(path)))
	}
	return domain.ImageAsset{Filename: filepath.Base(path), Format: format, Data: data}, nil
}

func startSpinner(label string) func() {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return func() {}
	}
	spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond, spinner.WithWriter(os.Stderr))
	spin.Suffix = label
	spin.Start()
	return spin.Stop
}
