package domain

// SentinelScore is the relevance score assigned to structured-only matches,
// which are ranked by recency rather than similarity.
const SentinelScore = 1.0

// RetrievalResult is a cluster plus its relevance score for one request.
// Scores from similarity search fall in [-1, 1]; structured-only search
// uses SentinelScore.
type RetrievalResult struct {
	Cluster ClauseCluster
	Score   float64
}

// EvidenceSet is an ordered, size-bounded set of results that passed the
// evidence gate, together with the gate parameters for auditability.
type EvidenceSet struct {
	Results    []RetrievalResult
	Threshold  float64
	Tenants    []string
	Sufficient bool
}

// TopScore returns the highest score in the set, or nil when empty.
func (e EvidenceSet) TopScore() *float64 {
	if len(e.Results) == 0 {
		return nil
	}
	s := e.Results[0].Score
	return &s
}

// CitationIDs returns the identifiers of up to max top results.
func (e EvidenceSet) CitationIDs(max int) []string {
	ids := make([]string, 0, max)
	for i, r := range e.Results {
		if i >= max {
			break
		}
		ids = append(ids, r.Cluster.ID)
	}
	return ids
}
