package prompt

import (
	"strings"
	"testing"
)

func TestNewRegistry_BuiltinValid(t *testing.T) {
	if _, err := NewRegistry(); err != nil {
		t.Fatalf("builtin registry failed validation: %v", err)
	}
}

func TestFor_KnownTermCaseInsensitive(t *testing.T) {
	r := MustNewRegistry()

	for _, term := range []string{"Governing Law", "governing law", "GOVERNING LAW", " governing law "} {
		tmpl := r.For(term)
		if tmpl.Term != "Governing Law" {
			t.Errorf("term %q: expected the governing law template, got %q", term, tmpl.Term)
		}
	}
}

func TestFor_UnknownTermFallsBack(t *testing.T) {
	r := MustNewRegistry()

	tmpl := r.For("Force Majeure")
	if tmpl.Term != defaultKey {
		t.Errorf("expected default template, got %q", tmpl.Term)
	}
}

func TestFor_EmptyTermFallsBack(t *testing.T) {
	r := MustNewRegistry()

	tmpl := r.For("")
	if tmpl.Term != defaultKey {
		t.Errorf("expected default template, got %q", tmpl.Term)
	}
}

func TestFillUser(t *testing.T) {
	tmpl := Template{User: "Searched: {criteria}\nEvidence:\n{context}"}

	got := tmpl.FillUser("Term: Netting", "cluster data")
	if !strings.Contains(got, "Searched: Term: Netting") {
		t.Errorf("criteria slot not filled: %s", got)
	}
	if !strings.Contains(got, "Evidence:\ncluster data") {
		t.Errorf("context slot not filled: %s", got)
	}
	if strings.Contains(got, "{criteria}") || strings.Contains(got, "{context}") {
		t.Errorf("unfilled slot remains: %s", got)
	}
}

func TestBuiltinTemplatesCarryVersion(t *testing.T) {
	r := MustNewRegistry()

	for _, term := range []string{"", "Governing Law", "Netting", "Credit Support", "Close-Out"} {
		if v := r.For(term).Version; v != Version {
			t.Errorf("term %q: expected version %q, got %q", term, Version, v)
		}
	}
}
