package retrieval

import (
	"sort"

	"github.com/clausebank/precedentd/internal/domain"
)

// Merge combines per-tenant result lists into one globally ordered, size-
// bounded list. Each list is already locally ranked, so this is a plain
// top-k: concatenate, stable-sort by descending score (ties keep per-tenant
// distance order), truncate. Only the bounded local top-k of any tenant is
// ever visible here.
func Merge(lists [][]domain.RetrievalResult, k int) []domain.RetrievalResult {
	var total int
	for _, l := range lists {
		total += len(l)
	}
	merged := make([]domain.RetrievalResult, 0, total)
	for _, l := range lists {
		merged = append(merged, l...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})

	if k >= 0 && len(merged) > k {
		merged = merged[:k]
	}
	return merged
}
