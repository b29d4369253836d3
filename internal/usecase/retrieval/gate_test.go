package retrieval

import (
	"testing"

	"github.com/clausebank/precedentd/internal/domain"
)

func TestGate_ScoreMode_FiltersBelowThreshold(t *testing.T) {
	results := []domain.RetrievalResult{
		result("a", "Bank_A", 0.81),
		result("b", "Bank_B", 0.62),
		result("c", "Bank_C", 0.45),
	}

	filtered, sufficient := Gate(results, 0.62, GateScore)
	if !sufficient {
		t.Fatal("expected sufficient evidence")
	}
	if len(filtered) != 2 {
		t.Fatalf("expected 2 kept results, got %d", len(filtered))
	}
	if filtered[0].Cluster.ID != "a" || filtered[1].Cluster.ID != "b" {
		t.Errorf("unexpected kept set: %v", filtered)
	}
}

func TestGate_ScoreMode_ThresholdIsInclusive(t *testing.T) {
	filtered, sufficient := Gate(
		[]domain.RetrievalResult{result("a", "Bank_A", 0.62)}, 0.62, GateScore)
	if !sufficient || len(filtered) != 1 {
		t.Errorf("score equal to threshold must pass, got %d results", len(filtered))
	}
}

func TestGate_ScoreMode_AllBelowThresholdInsufficient(t *testing.T) {
	results := []domain.RetrievalResult{
		result("a", "Bank_A", 0.50),
		result("b", "Bank_B", 0.30),
	}

	filtered, sufficient := Gate(results, 0.62, GateScore)
	if sufficient {
		t.Error("expected insufficient evidence")
	}
	if len(filtered) != 0 {
		t.Errorf("expected empty kept set, got %d", len(filtered))
	}
}

func TestGate_PresenceMode_KeepsEverything(t *testing.T) {
	results := []domain.RetrievalResult{
		result("a", "Bank_A", domain.SentinelScore),
		result("b", "Bank_B", domain.SentinelScore),
	}

	filtered, sufficient := Gate(results, 0.62, GatePresence)
	if !sufficient {
		t.Fatal("presence of matches is evidence")
	}
	if len(filtered) != 2 {
		t.Errorf("expected all results kept, got %d", len(filtered))
	}
}

func TestGate_PresenceMode_EmptyInsufficient(t *testing.T) {
	_, sufficient := Gate(nil, 0.62, GatePresence)
	if sufficient {
		t.Error("no matches cannot be sufficient")
	}
}
