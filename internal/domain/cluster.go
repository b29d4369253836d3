// Package domain holds the core entities of the precedent retrieval engine.
package domain

import (
	"strings"
	"time"
)

// CodifiedData is the structured extraction of clause meaning:
// term -> attribute -> value. Keys are case-preserving for display but
// case-insensitive for matching.
type CodifiedData map[string]map[string]string

// Term returns the attribute map for a term, matching case-insensitively.
func (c CodifiedData) Term(term string) (map[string]string, bool) {
	for k, v := range c {
		if strings.EqualFold(k, term) {
			return v, true
		}
	}
	return nil, false
}

// HasAttribute reports whether any term carries the given attribute key,
// matching case-insensitively. An empty term matches every term.
func (c CodifiedData) HasAttribute(term, attribute string) bool {
	for k, attrs := range c {
		if term != "" && !strings.EqualFold(k, term) {
			continue
		}
		for a := range attrs {
			if strings.EqualFold(a, attribute) {
				return true
			}
		}
	}
	return false
}

// DialogueEntry is one analyst/client exchange recorded against a cluster.
// Entries are stored in chronological order and are read-only here.
type DialogueEntry struct {
	Role    string `json:"role"`
	Message string `json:"message"`
	Date    string `json:"date"`
}

// ClauseCluster is a group of related contract clauses with one
// representative text, a fixed-dimension embedding, and structured
// codification. Clusters belong to exactly one tenant and are created and
// updated only by the ingestion path.
type ClauseCluster struct {
	ID           string
	TenantID     string
	TextContent  string
	CodifiedData CodifiedData
	QueryHistory []DialogueEntry
	DocCount     int
	Embedding    Vector
	LastUpdated  *time.Time
}
