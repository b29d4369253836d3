// Package embedding provides the deterministic hash projector used for both
// indexed clusters and live queries.
//
// The projector is a reproducible bag-of-tokens mapping, not a semantic
// embedding: identical texts always embed identically, but synonyms and
// paraphrases land in unrelated dimensions. Swapping in a semantic model
// means implementing the same one-method contract with matching
// dimensionality; changing the dimensionality invalidates every stored
// vector.
package embedding

import (
	"crypto/sha256"
	"encoding/binary"
	"regexp"
	"strings"

	"github.com/clausebank/precedentd/internal/domain"
)

// DefaultDimensions is the index dimensionality the corpus was built with.
const DefaultDimensions = 384

// ModelVersion is stamped on every stored vector so a future model swap can
// find rows that need re-embedding.
const ModelVersion = "hash-v1"

var tokenPattern = regexp.MustCompile(`[a-z0-9_]+`)

// HashProjector maps text to a fixed-dimension L2-normalized vector.
type HashProjector struct {
	dim int
}

// NewHashProjector creates a projector with the given output dimensionality.
// Non-positive values fall back to DefaultDimensions.
func NewHashProjector(dim int) *HashProjector {
	if dim <= 0 {
		dim = DefaultDimensions
	}
	return &HashProjector{dim: dim}
}

// Dimensions returns the output dimensionality.
func (p *HashProjector) Dimensions() int { return p.dim }

// Embed projects text into a vector. It never fails: token-free text yields
// the zero vector. Tokenization is case-insensitive over alphanumeric and
// underscore runs; each token hashes to one dimension and a sign, and the
// accumulated vector is L2-normalized.
func (p *HashProjector) Embed(text string) domain.Vector {
	vec := make(domain.Vector, p.dim)

	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	if len(tokens) == 0 {
		return vec
	}

	for _, tok := range tokens {
		idx, sign := p.hashToken(tok)
		vec[idx] += sign
	}

	return vec.Normalize()
}

// hashToken derives (dimension, sign) from the token's sha256 digest:
// the first four bytes select the dimension, the fifth byte's parity the
// sign.
func (p *HashProjector) hashToken(token string) (int, float32) {
	digest := sha256.Sum256([]byte(token))
	idx := int(binary.BigEndian.Uint32(digest[:4]) % uint32(p.dim))
	sign := float32(1)
	if digest[4]%2 != 0 {
		sign = -1
	}
	return idx, sign
}
