// Package prompt holds the closed registry of term-specific prompt
// templates used when the language model summarizes evidence.
package prompt

import (
	"fmt"
	"strings"
)

// Version identifies the prompt generation for audit trails.
const Version = "prompt-v1"

// Template slots. Every user template must contain both.
const (
	criteriaSlot = "{criteria}"
	contextSlot  = "{context}"
)

// defaultKey is the mandatory registry fallback entry.
const defaultKey = "__default__"

// Template is one term-specific prompt pair.
type Template struct {
	Term    string
	Version string
	System  string
	User    string
}

// FillUser substitutes the two named slots of the user template.
func (t Template) FillUser(criteria, context string) string {
	s := strings.ReplaceAll(t.User, criteriaSlot, criteria)
	return strings.ReplaceAll(s, contextSlot, context)
}

// Registry is a closed lookup table keyed by normalized term name with a
// guaranteed default entry.
type Registry struct {
	entries map[string]Template
}

// NewRegistry builds the built-in registry, validating at load time that
// every entry carries both template slots and that the default exists.
func NewRegistry() (*Registry, error) {
	entries := make(map[string]Template, len(builtin))
	for _, t := range builtin {
		if !strings.Contains(t.User, criteriaSlot) || !strings.Contains(t.User, contextSlot) {
			return nil, fmt.Errorf("prompt template %q: user template must contain %s and %s",
				t.Term, criteriaSlot, contextSlot)
		}
		entries[normalize(t.Term)] = t
	}
	if _, ok := entries[defaultKey]; !ok {
		return nil, fmt.Errorf("prompt registry has no default entry")
	}
	return &Registry{entries: entries}, nil
}

// MustNewRegistry builds the registry or panics. The built-in table is
// static, so a failure here is a programming error caught at startup.
func MustNewRegistry() *Registry {
	r, err := NewRegistry()
	if err != nil {
		panic(err)
	}
	return r
}

// For returns the template for a term, falling back to the default entry
// when the term is absent or unrecognized.
func (r *Registry) For(term string) Template {
	if term != "" {
		if t, ok := r.entries[normalize(term)]; ok {
			return t
		}
	}
	return r.entries[defaultKey]
}

func normalize(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

const sharedRules = `Rules:
1. ONLY use information from the provided clusters. Never make things up.
2. Refer to clusters by their short ID in square brackets, e.g. [7a4638ab].
3. Do NOT give legal advice. Just describe what the data shows.
4. Use plain English. Avoid jargon unless it comes directly from the data.
5. For each cluster, explain what the clause says, what was codified, any
   query history discussion, and which tenant it belongs to.
6. After covering individual clusters, briefly note any patterns across
   tenants.
7. Keep it concise. A few sentences per cluster is enough.
8. If no relevant evidence is provided, say so clearly.`

const defaultUserTemplate = `The user searched for: {criteria}

Here are the clusters that matched:

{context}

Walk through each cluster and explain what it contains in plain language,
then briefly note any patterns or differences across the clusters.`

var builtin = []Template{
	{
		Term:    defaultKey,
		Version: Version,
		System: "You are a helpful contract precedent assistant. " +
			"You explain what was found in a simple, conversational way, " +
			"like a senior colleague briefing an analyst.\n\n" + sharedRules,
		User: defaultUserTemplate,
	},
	{
		Term:    "Governing Law",
		Version: Version,
		System: "You are a governing law precedent analyst. Focus on:\n" +
			"- Jurisdiction (English Law, New York Law, French Law, etc.)\n" +
			"- Whether jurisdiction is exclusive or non-exclusive\n" +
			"- Exact wording variations (e.g. 'England' vs 'England and Wales')\n" +
			"- Non-contractual obligations coverage\n" +
			"- Court specifications and process agents\n\n" + sharedRules,
		User: defaultUserTemplate,
	},
	{
		Term:    "Netting",
		Version: Version,
		System: "You are a netting clause precedent analyst. Focus on:\n" +
			"- Close-out netting enforceability\n" +
			"- Netting agreement scope (bilateral vs multilateral)\n" +
			"- Jurisdictional netting opinions referenced\n" +
			"- Payment netting mechanics\n\n" + sharedRules,
		User: defaultUserTemplate,
	},
	{
		Term:    "Credit Support",
		Version: Version,
		System: "You are a credit support precedent analyst. Focus on:\n" +
			"- Collateral types (cash, securities, letters of credit)\n" +
			"- Threshold and minimum transfer amounts\n" +
			"- Eligible credit support and haircuts\n" +
			"- Valuation and dispute mechanics\n\n" + sharedRules,
		User: defaultUserTemplate,
	},
	{
		Term:    "Close-Out",
		Version: Version,
		System: "You are a close-out precedent analyst. Focus on:\n" +
			"- Events of default triggering close-out\n" +
			"- Close-out amount calculation methodology\n" +
			"- Automatic vs optional early termination\n" +
			"- Set-off rights and mechanics\n\n" + sharedRules,
		User: defaultUserTemplate,
	},
}
