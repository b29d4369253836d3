package answer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/clausebank/precedentd/internal/domain"
)

// Negative answers for the two gate modes. Fixed strings, part of the
// response contract.
const (
	noEvidenceAnswer = "I cannot answer from precedent because no sufficiently similar, " +
		"in-scope clusters were found."
	noMatchAnswer = "No matching precedents found for the given criteria."
)

// maxCitations bounds the citation list on every answer path.
const maxCitations = 3

// TemplateAnswer builds the deterministic fallback answer purely from the
// evidence: cites up to three cluster identifiers, quotes the top result's
// codified data, and notes that clarifying context exists in its query
// history.
func TemplateAnswer(ev domain.EvidenceSet) (string, []string) {
	citations := ev.CitationIDs(maxCitations)

	marks := make([]string, len(citations))
	for i := range citations {
		marks[i] = fmt.Sprintf("[%d]", i+1)
	}

	top := ev.Results[0].Cluster
	codified, err := json.Marshal(top.CodifiedData)
	if err != nil {
		codified = []byte("{}")
	}

	answer := fmt.Sprintf(
		"Based on historical cluster decisions, this language has prior captures. "+
			"Top precedent codification: %s. "+
			"Client clarification context appears in the cited query history. "+
			"Evidence: %s",
		codified, strings.Join(marks, " "),
	)
	return answer, citations
}

// formatContext renders the evidence for the language model prompt.
func formatContext(ev domain.EvidenceSet) string {
	if len(ev.Results) == 0 {
		return "No evidence clusters were retrieved."
	}

	var b strings.Builder
	for _, r := range ev.Results {
		c := r.Cluster
		codified, err := json.MarshalIndent(c.CodifiedData, "", "  ")
		if err != nil {
			codified = []byte("{}")
		}
		text := c.TextContent
		if len(text) > 500 {
			text = text[:500]
		}
		fmt.Fprintf(&b, "--- Cluster %s (tenant=%s, relevance=%.3f) ---\n",
			shortID(c.ID), c.TenantID, r.Score)
		fmt.Fprintf(&b, "Codified data:\n%s\n", codified)
		fmt.Fprintf(&b, "Clause text:\n%s\n\n", text)
	}
	return strings.TrimRight(b.String(), "\n")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
