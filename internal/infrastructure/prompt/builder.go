package prompt

import (
	"fmt"
	"strings"
	"text/template"
	"unicode"

	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
)

const (
	maxDescriptionRunes = 8000
	maxNotesRunes       = 4000
	noNotesPlaceholder  = "No additional description provided."
)

// Sections is the fixed report structure every prompt asks for.
var Sections = []string{
	"System Identification",
	"Key Components",
	"Functionality & Operation",
	"Design Strengths",
	"Potential Limitations or Risks",
	"Suggested Improvements",
}

const analysisTemplate = `You are an expert engineering analyst specializing in {{.Domain}}.

Based on the following description of an engineering system or object:

{{.Description}}

Additional notes from the user:
{{.Notes}}

Pay particular attention to:
{{- range .Checklist}}
- {{.}}
{{- end}}

Provide a comprehensive engineering analysis with the following structure:
{{range .Sections}}
## {{.}}
{{end}}
Be specific, technical, and professional in your analysis.
`

type templateData struct {
	Domain      string
	Description string
	Notes       string
	Checklist   []string
	Sections    []string
}

// Builder renders analysis prompts. Inputs are passed as template data and
// are never parsed as template text.
type Builder struct {
	tmpl       *template.Template
	checklists map[domain.EngineeringDomain][]string
}

// NewBuilder accepts checklist overrides keyed by domain label or slug.
func NewBuilder(overrides map[string][]string) (*Builder, error) {
	tmpl, err := template.New("analysis").Parse(analysisTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse analysis template: %w", err)
	}

	checklists := make(map[domain.EngineeringDomain][]string, len(defaultChecklists))
	for d, items := range defaultChecklists {
		checklists[d] = items
	}
	for key, items := range overrides {
		d, err := domain.ParseDomain(key)
		if err != nil {
			return nil, fmt.Errorf("checklist override: %w", err)
		}
		cleaned := make([]string, 0, len(items))
		for _, item := range items {
			if item = sanitize(item, 200); item != "" {
				cleaned = append(cleaned, item)
			}
		}
		if len(cleaned) > 0 {
			checklists[d] = cleaned
		}
	}

	return &Builder{tmpl: tmpl, checklists: checklists}, nil
}

func (b *Builder) Build(req domain.AnalysisRequest) (domain.Prompt, error) {
	description := sanitize(req.Description(), maxDescriptionRunes)
	if description == "" {
		return "", domain.WrapError(domain.ErrValidation, "build prompt", fmt.Errorf("description is empty"))
	}
	notes := sanitize(req.Notes(), maxNotesRunes)
	if notes == "" {
		notes = noNotesPlaceholder
	}

	var sb strings.Builder
	err := b.tmpl.Execute(&sb, templateData{
		Domain:      string(req.Domain()),
		Description: description,
		Notes:       notes,
		Checklist:   b.checklists[req.Domain()],
		Sections:    Sections,
	})
	if err != nil {
		return "", fmt.Errorf("render analysis prompt: %w", err)
	}
	return domain.Prompt(sb.String()), nil
}

// sanitize normalizes line endings, drops control characters other than
// newline and tab, trims, and caps the rune count.
func sanitize(value string, maxRunes int) string {
	value = strings.ReplaceAll(value, "\r\n", "\n")
	value = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r == '\r' {
			return '\n'
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
	value = strings.TrimSpace(value)

	runes := []rune(value)
	if len(runes) > maxRunes {
		value = strings.TrimSpace(string(runes[:maxRunes]))
	}
	return value
}
