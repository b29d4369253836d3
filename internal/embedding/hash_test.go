package embedding

import (
	"math"
	"testing"
)

func TestEmbed_Deterministic(t *testing.T) {
	p := NewHashProjector(DefaultDimensions)

	a := p.Embed("governing law of england and wales")
	b := p.Embed("governing law of england and wales")

	if len(a) != len(b) {
		t.Fatalf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vectors differ at dimension %d: %f vs %f", i, a[i], b[i])
		}
	}
}

func TestEmbed_CaseInsensitive(t *testing.T) {
	p := NewHashProjector(DefaultDimensions)

	a := p.Embed("Netting Agreement")
	b := p.Embed("netting agreement")

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("case should not change the embedding, differs at %d", i)
		}
	}
}

func TestEmbed_EmptyTextYieldsZeroVector(t *testing.T) {
	p := NewHashProjector(DefaultDimensions)

	for _, text := range []string{"", "   ", "!!! ...,,,"} {
		vec := p.Embed(text)
		if len(vec) != DefaultDimensions {
			t.Fatalf("text %q: expected %d dimensions, got %d", text, DefaultDimensions, len(vec))
		}
		if vec.Norm() != 0 {
			t.Errorf("text %q: expected zero vector, norm=%f", text, vec.Norm())
		}
	}
}

func TestEmbed_Normalized(t *testing.T) {
	p := NewHashProjector(DefaultDimensions)

	vec := p.Embed("close-out amount calculation upon early termination")
	if math.Abs(vec.Norm()-1) > 1e-5 {
		t.Errorf("expected unit norm, got %f", vec.Norm())
	}
}

func TestEmbed_DifferentTextsDiffer(t *testing.T) {
	p := NewHashProjector(DefaultDimensions)

	a := p.Embed("credit support annex thresholds")
	b := p.Embed("automatic early termination applies")

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("distinct texts produced identical embeddings")
	}
}

func TestNewHashProjector_DimensionFallback(t *testing.T) {
	for _, dim := range []int{0, -5} {
		p := NewHashProjector(dim)
		if p.Dimensions() != DefaultDimensions {
			t.Errorf("dim %d: expected fallback to %d, got %d", dim, DefaultDimensions, p.Dimensions())
		}
	}

	p := NewHashProjector(128)
	if p.Dimensions() != 128 {
		t.Errorf("expected 128, got %d", p.Dimensions())
	}
	if got := len(p.Embed("some text")); got != 128 {
		t.Errorf("expected 128-dim vector, got %d", got)
	}
}

func TestEmbed_TokenizerSplitsOnPunctuation(t *testing.T) {
	p := NewHashProjector(DefaultDimensions)

	a := p.Embed("close-out netting")
	b := p.Embed("close out netting")

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("hyphen should act as a separator, differs at %d", i)
		}
	}
}
