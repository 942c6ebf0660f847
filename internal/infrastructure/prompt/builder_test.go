package prompt

import (
	"strings"
	"testing"

	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
)

func mustRequest(t *testing.T, d domain.EngineeringDomain, description, notes string) domain.AnalysisRequest {
	t.Helper()
	req, err := domain.NewAnalysisRequest(d, description, notes, domain.SourceVision)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	return req
}

func TestBuildIncludesPersonaDescriptionAndSections(t *testing.T) {
	b, err := NewBuilder(nil)
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}

	p, err := b.Build(mustRequest(t, domain.DomainElectronics, "A green PCB with a buck converter", "rev B board"))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	text := string(p)

	for _, want := range []string{
		"You are an expert engineering analyst specializing in Electronics / PCB Design.",
		"A green PCB with a buck converter",
		"rev B board",
		"- Signal integrity and EMI/EMC considerations",
		"Be specific, technical, and professional in your analysis.",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("prompt missing %q:\n%s", want, text)
		}
	}
	for _, section := range Sections {
		if !strings.Contains(text, "## "+section+"\n") {
			t.Fatalf("prompt missing section %q", section)
		}
	}
}

func TestBuildUsesPlaceholderWithoutNotes(t *testing.T) {
	b, _ := NewBuilder(nil)
	p, err := b.Build(mustRequest(t, domain.DomainProductDesign, "A kettle", "   "))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(string(p), "No additional description provided.") {
		t.Fatalf("expected placeholder notes:\n%s", p)
	}
}

func TestBuildTreatsInputsAsOpaqueText(t *testing.T) {
	b, _ := NewBuilder(nil)
	description := "Bracket {{.Domain}} with {{range .Sections}}x{{end}} markings\r\nline two\x00\x07"

	p, err := b.Build(mustRequest(t, domain.DomainMechanism, description, "{{template \"analysis\"}}"))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	text := string(p)
	if !strings.Contains(text, "Bracket {{.Domain}} with {{range .Sections}}x{{end}} markings\nline two") {
		t.Fatalf("template syntax in description must stay literal:\n%s", text)
	}
	if !strings.Contains(text, `{{template "analysis"}}`) {
		t.Fatalf("template syntax in notes must stay literal")
	}
	if strings.ContainsAny(text, "\x00\x07\r") {
		t.Fatalf("control characters must be stripped")
	}
}

func TestBuildCapsDescriptionLength(t *testing.T) {
	b, _ := NewBuilder(nil)
	long := strings.Repeat("gear ", 5000)
	p, err := b.Build(mustRequest(t, domain.DomainMechanism, long, ""))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if strings.Count(string(p), "gear") > maxDescriptionRunes/5+1 {
		t.Fatalf("description was not capped")
	}
}

func TestBuildRejectsDescriptionThatSanitizesToEmpty(t *testing.T) {
	b, _ := NewBuilder(nil)
	_, err := b.Build(mustRequest(t, domain.DomainCivil, "\x00\x01", ""))
	if !domain.IsKind(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestChecklistOverrides(t *testing.T) {
	b, err := NewBuilder(map[string][]string{
		"aerospace-engineering": {"Fatigue of riveted joints", "  "},
	})
	if err != nil {
		t.Fatalf("new builder: %v", err)
	}
	p, _ := b.Build(mustRequest(t, domain.DomainAerospace, "Wing rib", ""))
	if !strings.Contains(string(p), "- Fatigue of riveted joints") {
		t.Fatalf("override not applied:\n%s", p)
	}
	if strings.Contains(string(p), "Redundancy and certification") {
		t.Fatalf("default checklist should be replaced")
	}

	if _, err := NewBuilder(map[string][]string{"Pottery": {"x"}}); err == nil {
		t.Fatalf("expected error for unknown override domain")
	}
}

func TestEveryDomainHasChecklist(t *testing.T) {
	for _, d := range domain.Domains() {
		if len(defaultChecklists[d]) == 0 {
			t.Fatalf("domain %q has no checklist", d)
		}
	}
}
