// Package cluster is the tenant-scoped store accessor for clause clusters.
package cluster

import (
	"context"
	"fmt"

	"github.com/clausebank/precedentd/internal/db/postgres"
	"github.com/clausebank/precedentd/internal/domain"
)

// store is the consumer interface for tenant-scoped queries (ISP).
type store interface {
	WithTenant(ctx context.Context, tenant string, fn func(ctx context.Context, q postgres.Querier) error) error
}

// Repo implements usecase/retrieval.Repository against Postgres/pgvector.
type Repo struct {
	store store
}

// New creates a cluster repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// SearchSimilar returns the tenant's top-k clusters by cosine similarity to
// the query vector, scored as 1 - distance.
func (r *Repo) SearchSimilar(
	ctx context.Context, tenant string, vec domain.Vector, k int,
) ([]domain.RetrievalResult, error) {
	q, args := buildSimilarQuery(vec, tenant, k)

	var results []domain.RetrievalResult
	err := r.store.WithTenant(ctx, tenant, func(ctx context.Context, tx postgres.Querier) error {
		rows, err := tx.Query(ctx, q, args...)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		results, err = scanResults(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("search similar %s: %w", tenant, err)
	}
	return results, nil
}

// SearchStructured returns the tenant's clusters matching the conjunctive
// term/attribute predicates. With a query vector the rows are
// similarity-ranked; without one they are ordered by recency and carry the
// sentinel score.
func (r *Repo) SearchStructured(
	ctx context.Context, tenant, term, attribute string, vec domain.Vector, k int,
) ([]domain.RetrievalResult, error) {
	q, args := buildStructuredQuery(tenant, term, attribute, vec, k)

	var results []domain.RetrievalResult
	err := r.store.WithTenant(ctx, tenant, func(ctx context.Context, tx postgres.Querier) error {
		rows, err := tx.Query(ctx, q, args...)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		results, err = scanResults(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("search structured %s: %w", tenant, err)
	}
	return results, nil
}
