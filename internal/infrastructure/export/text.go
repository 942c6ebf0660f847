// Package export renders finished reports as downloadable files.
package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
	"github.com/kirillkom/engineering-analysis-ai/internal/core/ports"
)

// TextExporter writes the report text exactly as generated.
type TextExporter struct{}

func (TextExporter) Format() string      { return "txt" }
func (TextExporter) ContentType() string { return "text/plain; charset=utf-8" }

func (TextExporter) Export(doc domain.ReportDocument) ([]byte, error) {
	if strings.TrimSpace(doc.Report) == "" {
		return nil, domain.WrapError(domain.ErrValidation, "export txt", fmt.Errorf("report is empty"))
	}
	return []byte(doc.Report), nil
}

// Registry looks exporters up by format name.
type Registry struct {
	exporters map[string]ports.ReportExporter
}

func NewRegistry(exporters ...ports.ReportExporter) *Registry {
	r := &Registry{exporters: make(map[string]ports.ReportExporter, len(exporters))}
	for _, e := range exporters {
		r.exporters[e.Format()] = e
	}
	return r
}

// Default registers the txt and xlsx exporters.
func Default() *Registry {
	return NewRegistry(TextExporter{}, XLSXExporter{})
}

func (r *Registry) Lookup(format string) (ports.ReportExporter, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "txt"
	}
	e, ok := r.exporters[format]
	if !ok {
		return nil, domain.WrapError(domain.ErrValidation, "export report", fmt.Errorf("unsupported format %q (supported: %s)", format, strings.Join(r.Formats(), ", ")))
	}
	return e, nil
}

func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.exporters))
	for format := range r.exporters {
		out = append(out, format)
	}
	sort.Strings(out)
	return out
}

// File renders doc in the given format and returns its download name.
func (r *Registry) File(doc domain.ReportDocument, format string) (name, contentType string, data []byte, err error) {
	e, err := r.Lookup(format)
	if err != nil {
		return "", "", nil, err
	}
	data, err = e.Export(doc)
	if err != nil {
		return "", "", nil, err
	}
	return domain.ReportFilename(doc.Domain, e.Format()), e.ContentType(), data, nil
}
