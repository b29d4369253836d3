package retrieval

import (
	"context"

	"github.com/clausebank/precedentd/internal/domain"
)

// Repository is the tenant-scoped storage contract. Every call carries the
// tenant explicitly; there is no ambient scope.
type Repository interface {
	SearchSimilar(
		ctx context.Context, tenant string, vec domain.Vector, k int,
	) ([]domain.RetrievalResult, error)

	SearchStructured(
		ctx context.Context, tenant, term, attribute string, vec domain.Vector, k int,
	) ([]domain.RetrievalResult, error)
}

// Embedder projects query text into the index vector space. Implementations
// must be deterministic so identical queries rank identically.
type Embedder interface {
	Embed(text string) domain.Vector
}
