package retrieval

import (
	"strings"

	"github.com/clausebank/precedentd/internal/domain"
)

// GateMode selects how the evidence gate treats a result set.
type GateMode int

const (
	// GateScore filters results below the similarity threshold. Used
	// whenever a free-text component produced real scores.
	GateScore GateMode = iota
	// GatePresence keeps every structured match: a syntactic match is
	// itself the evidence when no similarity signal exists.
	GatePresence
)

// Plan is the resolved retrieval strategy for one request: which predicates
// reach the store, whether a query vector is computed, and how the gate
// filters.
type Plan struct {
	Term      string
	Attribute string
	FreeText  string
}

// NewPlan validates the criteria and builds a plan. At least one of term,
// attribute, or free text must be present; the planner is the guard against
// an unconstrained full-tenant scan.
func NewPlan(term, attribute, freeText string) (Plan, error) {
	p := Plan{
		Term:      strings.TrimSpace(term),
		Attribute: strings.TrimSpace(attribute),
		FreeText:  strings.TrimSpace(freeText),
	}
	if p.Term == "" && p.Attribute == "" && p.FreeText == "" {
		return Plan{}, domain.ErrNoCriteria
	}
	return p, nil
}

// UseVector reports whether a query vector is computed from free text.
func (p Plan) UseVector() bool { return p.FreeText != "" }

// Structured reports whether any structured predicate reaches the store.
func (p Plan) Structured() bool { return p.Term != "" || p.Attribute != "" }

// Mode returns the gate mode: score-gated when a similarity signal exists,
// presence-gated otherwise.
func (p Plan) Mode() GateMode {
	if p.UseVector() {
		return GateScore
	}
	return GatePresence
}

// Criteria renders the plan as a human-readable search description, used in
// prompts and audit records.
func (p Plan) Criteria() string {
	parts := make([]string, 0, 3)
	if p.Term != "" {
		parts = append(parts, "Term: "+p.Term)
	}
	if p.Attribute != "" {
		parts = append(parts, "Attribute: "+p.Attribute)
	}
	if p.FreeText != "" {
		parts = append(parts, "Language: "+p.FreeText)
	}
	if len(parts) == 0 {
		return "General search"
	}
	return strings.Join(parts, ", ")
}
