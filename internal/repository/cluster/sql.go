package cluster

import (
	"fmt"
	"strings"

	"github.com/clausebank/precedentd/internal/domain"
)

const selectColumns = `id, tenant_id, text_content, codified_data, query_history, doc_count, last_updated`

// buildSimilarQuery builds the cosine-similarity query for one tenant.
// The tenant predicate is explicit even though row-level security already
// enforces the scope set by the store.
func buildSimilarQuery(vec domain.Vector, tenant string, k int) (string, []any) {
	q := fmt.Sprintf(`
		SELECT %s,
		       1 - (embedding <=> $1::vector) AS relevance_score
		FROM clusters
		WHERE tenant_id = $2
		ORDER BY embedding <=> $1::vector
		LIMIT $3`, selectColumns)
	return q, []any{vec.Literal(), tenant, k}
}

// buildStructuredQuery builds the structured-filter query. Term and
// attribute predicates combine conjunctively and match jsonb keys
// case-insensitively. Ranking: similarity when a vector is present,
// last_updated descending (nulls last) with the sentinel score otherwise.
func buildStructuredQuery(tenant, term, attribute string, vec domain.Vector, k int) (string, []any) {
	args := []any{tenant}
	where := []string{"tenant_id = $1"}

	next := func() int { return len(args) + 1 }

	switch {
	case term != "" && attribute != "":
		where = append(where, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM jsonb_each(codified_data) AS t(term, attrs)
			WHERE lower(t.term) = lower($%d)
			  AND EXISTS (
				SELECT 1 FROM jsonb_object_keys(t.attrs) AS a(attr)
				WHERE lower(a.attr) = lower($%d)
			  )
		)`, next(), next()+1))
		args = append(args, term, attribute)
	case term != "":
		where = append(where, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM jsonb_each(codified_data) AS t(term, attrs)
			WHERE lower(t.term) = lower($%d)
		)`, next()))
		args = append(args, term)
	case attribute != "":
		where = append(where, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM jsonb_each(codified_data) AS t(term, attrs)
			WHERE EXISTS (
				SELECT 1 FROM jsonb_object_keys(t.attrs) AS a(attr)
				WHERE lower(a.attr) = lower($%d)
			)
		)`, next()))
		args = append(args, attribute)
	}

	var score, order string
	if vec != nil {
		vecPos := next()
		args = append(args, vec.Literal())
		score = fmt.Sprintf("1 - (embedding <=> $%d::vector) AS relevance_score", vecPos)
		order = fmt.Sprintf("embedding <=> $%d::vector", vecPos)
	} else {
		score = fmt.Sprintf("%f AS relevance_score", domain.SentinelScore)
		order = "last_updated DESC NULLS LAST"
	}

	limitPos := next()
	args = append(args, k)

	q := fmt.Sprintf(`
		SELECT %s,
		       %s
		FROM clusters
		WHERE %s
		ORDER BY %s
		LIMIT $%d`,
		selectColumns, score, strings.Join(where, "\n\t\t  AND "), order, limitPos)
	return q, args
}
