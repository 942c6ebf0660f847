package domain

import (
	"strings"
	"time"
)

const reportFilePrefix = "engineering_analysis_"

// ReportDocument is what exporters render.
type ReportDocument struct {
	Domain      EngineeringDomain
	Description string
	Source      DescriptionSource
	Notes       string
	Report      string
	GeneratedAt time.Time
}

// ReportFilename builds engineering_analysis_<domain>.<ext>, with spaces
// and path-unsafe characters replaced by underscores.
func ReportFilename(d EngineeringDomain, ext string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.TrimSpace(string(d)) {
		safe := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-'
		if safe {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	name := strings.Trim(b.String(), "_.")
	if name == "" {
		name = "report"
	}
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		ext = "txt"
	}
	return reportFilePrefix + name + "." + ext
}

// ReportDocumentFrom snapshots a reported session for export.
func ReportDocumentFrom(s *Session) (ReportDocument, bool) {
	if s == nil || !s.ReportReady() {
		return ReportDocument{}, false
	}
	description, source, _ := s.Description()
	return ReportDocument{
		Domain:      s.Domain,
		Description: description,
		Source:      source,
		Notes:       s.Notes,
		Report:      s.Analysis.Report,
		GeneratedAt: s.UpdatedAt,
	}, true
}
