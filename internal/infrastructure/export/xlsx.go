package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
)

const reportSheet = "Report"

// XLSXExporter writes a workbook with a metadata block followed by one row
// per "## " section of the report.
type XLSXExporter struct{}

func (XLSXExporter) Format() string { return "xlsx" }
func (XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (XLSXExporter) Export(doc domain.ReportDocument) ([]byte, error) {
	if strings.TrimSpace(doc.Report) == "" {
		return nil, domain.WrapError(domain.ErrValidation, "export xlsx", fmt.Errorf("report is empty"))
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	rows := [][]any{
		{"Engineering Domain", string(doc.Domain)},
		{"Description Source", string(doc.Source)},
		{"Description", doc.Description},
		{"User Notes", doc.Notes},
		{"Generated At", doc.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC")},
		{},
		{"Section", "Content"},
	}
	for _, s := range SplitSections(doc.Report) {
		rows = append(rows, []any{s.Title, s.Body})
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(reportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetCellStyle(reportSheet, "A1", fmt.Sprintf("A%d", len(rows)), bold)
	}
	wrap, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err == nil {
		_ = f.SetCellStyle(reportSheet, "B1", fmt.Sprintf("B%d", len(rows)), wrap)
	}
	_ = f.SetColWidth(reportSheet, "A", "A", 32)
	_ = f.SetColWidth(reportSheet, "B", "B", 100)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

type Section struct {
	Title string
	Body  string
}

// SplitSections cuts a markdown report at "## " headings. Text before the
// first heading is returned under "Overview".
func SplitSections(report string) []Section {
	var sections []Section
	current := Section{Title: "Overview"}
	var body []string

	flush := func() {
		current.Body = strings.TrimSpace(strings.Join(body, "\n"))
		if current.Body != "" || current.Title != "Overview" {
			sections = append(sections, current)
		}
		body = nil
	}

	for _, line := range strings.Split(strings.ReplaceAll(report, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "## ") {
			flush()
			current = Section{Title: strings.TrimSpace(strings.TrimPrefix(trimmed, "## "))}
			continue
		}
		body = append(body, line)
	}
	flush()
	return sections
}
