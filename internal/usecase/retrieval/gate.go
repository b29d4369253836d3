package retrieval

import "github.com/clausebank/precedentd/internal/domain"

// Gate applies the evidence threshold policy. In GateScore mode it keeps
// results with score >= threshold; in GatePresence mode every match counts.
// Sufficiency is non-emptiness of the kept set — insufficiency is a
// first-class outcome, not an error.
func Gate(
	results []domain.RetrievalResult, threshold float64, mode GateMode,
) (filtered []domain.RetrievalResult, sufficient bool) {
	if mode == GatePresence {
		return results, len(results) > 0
	}

	filtered = make([]domain.RetrievalResult, 0, len(results))
	for _, r := range results {
		if r.Score >= threshold {
			filtered = append(filtered, r)
		}
	}
	return filtered, len(filtered) > 0
}
