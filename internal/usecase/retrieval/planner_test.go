package retrieval

import (
	"errors"
	"testing"

	"github.com/clausebank/precedentd/internal/domain"
)

func TestNewPlan_NoCriteria(t *testing.T) {
	for _, args := range [][3]string{
		{"", "", ""},
		{"  ", "\t", "   "},
	} {
		_, err := NewPlan(args[0], args[1], args[2])
		if !errors.Is(err, domain.ErrNoCriteria) {
			t.Errorf("NewPlan(%q, %q, %q): expected ErrNoCriteria, got %v",
				args[0], args[1], args[2], err)
		}
	}
}

func TestNewPlan_TrimsInputs(t *testing.T) {
	p, err := NewPlan(" Netting ", " ISDA ", " payment netting ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Term != "Netting" || p.Attribute != "ISDA" || p.FreeText != "payment netting" {
		t.Errorf("inputs not trimmed: %+v", p)
	}
}

func TestPlan_FreeTextOnly(t *testing.T) {
	p, err := NewPlan("", "", "governing law of england")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.UseVector() {
		t.Error("expected vector use for free text")
	}
	if p.Structured() {
		t.Error("free-text-only plan should not be structured")
	}
	if p.Mode() != GateScore {
		t.Error("free-text plan should be score-gated")
	}
}

func TestPlan_StructuredOnly(t *testing.T) {
	p, err := NewPlan("Netting", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.UseVector() {
		t.Error("structured-only plan should not compute a vector")
	}
	if !p.Structured() {
		t.Error("expected structured plan")
	}
	if p.Mode() != GatePresence {
		t.Error("structured-only plan should be presence-gated")
	}
}

func TestPlan_StructuredWithLanguageIsScoreGated(t *testing.T) {
	p, err := NewPlan("Governing Law", "", "exclusive jurisdiction")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.UseVector() || !p.Structured() {
		t.Fatalf("expected hybrid plan, got %+v", p)
	}
	if p.Mode() != GateScore {
		t.Error("any similarity signal should force score gating")
	}
}

func TestPlan_Criteria(t *testing.T) {
	p, _ := NewPlan("Netting", "Scope", "bilateral only")
	want := "Term: Netting, Attribute: Scope, Language: bilateral only"
	if got := p.Criteria(); got != want {
		t.Errorf("criteria:\ngot:  %s\nwant: %s", got, want)
	}

	p, _ = NewPlan("", "Threshold", "")
	if got := p.Criteria(); got != "Attribute: Threshold" {
		t.Errorf("expected single-part criteria, got %s", got)
	}
}
