package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/clausebank/precedentd/internal/domain"
	"github.com/clausebank/precedentd/internal/metrics"
)

// Config holds the service tunables, passed in at construction.
type Config struct {
	SimilarityThreshold float64
	DefaultTopK         int
	MaxTopK             int
	Tenants             []string
}

// Service runs the plan -> fan-out -> merge -> gate pipeline.
type Service struct {
	repo   Repository
	embed  Embedder
	cfg    Config
	logger *zap.Logger
}

// New creates a retrieval service.
func New(repo Repository, embed Embedder, cfg Config, logger *zap.Logger) *Service {
	return &Service{repo: repo, embed: embed, cfg: cfg, logger: logger}
}

// Threshold returns the configured similarity threshold.
func (s *Service) Threshold() float64 { return s.cfg.SimilarityThreshold }

// Tenants returns the caller's allowed tenant set.
func (s *Service) Tenants() []string { return s.cfg.Tenants }

// ClampTopK bounds a caller-supplied k to [1, MaxTopK], defaulting when
// unset.
func (s *Service) ClampTopK(k int) int {
	if k <= 0 {
		return s.cfg.DefaultTopK
	}
	if s.cfg.MaxTopK > 0 && k > s.cfg.MaxTopK {
		return s.cfg.MaxTopK
	}
	return k
}

// Retrieve executes the plan across every allowed tenant and returns the
// gated evidence set. One tenant's transport failure degrades that tenant
// to zero results; only the failure of every tenant is a request error.
func (s *Service) Retrieve(ctx context.Context, plan Plan, k int) (domain.EvidenceSet, error) {
	k = s.ClampTopK(k)
	tenants := s.cfg.Tenants

	var vec domain.Vector
	if plan.UseVector() {
		vec = s.embed.Embed(plan.FreeText)
	}

	lists := make([][]domain.RetrievalResult, len(tenants))
	errs := make([]error, len(tenants))

	g, gctx := errgroup.WithContext(ctx)
	for i, tenant := range tenants {
		i, tenant := i, tenant
		g.Go(func() error {
			results, err := s.searchTenant(gctx, plan, tenant, vec, k)
			if err != nil {
				// Recorded, not returned: a failing tenant must not
				// cancel its siblings.
				errs[i] = err
				metrics.TenantQueryFailures.WithLabelValues(tenant).Inc()
				s.logger.Warn("tenant query failed",
					zap.String("tenant", tenant), zap.Error(err))
				return nil
			}
			lists[i] = results
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return domain.EvidenceSet{}, err
	}

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if len(tenants) > 0 && failed == len(tenants) {
		return domain.EvidenceSet{}, fmt.Errorf("%w: all %d tenant queries failed, last: %v",
			domain.ErrStoreUnavailable, failed, errs[len(errs)-1])
	}

	merged := Merge(lists, k)
	filtered, sufficient := Gate(merged, s.cfg.SimilarityThreshold, plan.Mode())

	outcome := "evidence"
	if !sufficient {
		outcome = "insufficient"
	}
	metrics.RetrievalSearchesTotal.WithLabelValues(outcome).Inc()

	return domain.EvidenceSet{
		Results:    filtered,
		Threshold:  s.cfg.SimilarityThreshold,
		Tenants:    tenants,
		Sufficient: sufficient,
	}, nil
}

// searchTenant issues the single store call for one tenant under the plan.
func (s *Service) searchTenant(
	ctx context.Context, plan Plan, tenant string, vec domain.Vector, k int,
) ([]domain.RetrievalResult, error) {
	if plan.Structured() {
		return s.repo.SearchStructured(ctx, tenant, plan.Term, plan.Attribute, vec, k)
	}
	return s.repo.SearchSimilar(ctx, tenant, vec, k)
}
