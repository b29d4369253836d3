package domain

import "testing"

func evidenceWith(scores ...float64) EvidenceSet {
	results := make([]RetrievalResult, len(scores))
	for i, s := range scores {
		results[i] = RetrievalResult{
			Cluster: ClauseCluster{ID: string(rune('a' + i))},
			Score:   s,
		}
	}
	return EvidenceSet{Results: results}
}

func TestTopScore(t *testing.T) {
	ev := evidenceWith(0.91, 0.73, 0.65)
	got := ev.TopScore()
	if got == nil || *got != 0.91 {
		t.Errorf("expected 0.91, got %v", got)
	}
}

func TestTopScore_Empty(t *testing.T) {
	if got := (EvidenceSet{}).TopScore(); got != nil {
		t.Errorf("expected nil for empty set, got %v", *got)
	}
}

func TestCitationIDs_Bounded(t *testing.T) {
	ev := evidenceWith(0.9, 0.8, 0.7, 0.6, 0.5)
	ids := ev.CitationIDs(3)
	if len(ids) != 3 {
		t.Fatalf("expected 3 citations, got %d", len(ids))
	}
	if ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Errorf("unexpected citation order: %v", ids)
	}
}

func TestCitationIDs_FewerResultsThanMax(t *testing.T) {
	ev := evidenceWith(0.9)
	if ids := ev.CitationIDs(3); len(ids) != 1 {
		t.Errorf("expected 1 citation, got %d", len(ids))
	}
}
