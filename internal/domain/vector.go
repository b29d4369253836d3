package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Vector is a fixed-dimension embedding. Stored vectors are L2-normalized;
// the zero vector is the embedding of token-free text.
type Vector []float32

// Normalize returns the L2-normalized vector. The all-zero vector is
// returned unchanged rather than divided by zero.
func (v Vector) Normalize() Vector {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	out := make(Vector, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Norm returns the L2 norm.
func (v Vector) Norm() float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Literal renders the vector in the store wire format: a bracketed list of
// fixed-precision decimals, 6 digits, one per dimension. This exact form is
// the contract with the vector-similarity store.
func (v Vector) Literal() string {
	var b strings.Builder
	b.Grow(len(v)*10 + 2)
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'f', 6, 64))
	}
	b.WriteByte(']')
	return b.String()
}

// ParseVectorLiteral parses the bracketed wire format back into a vector.
func ParseVectorLiteral(s string) (Vector, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("vector literal %q: missing brackets", truncateForError(s))
	}
	body := s[1 : len(s)-1]
	if body == "" {
		return Vector{}, nil
	}
	parts := strings.Split(body, ",")
	out := make(Vector, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("vector literal element %d: %w", i, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}

func truncateForError(s string) string {
	if len(s) > 32 {
		return s[:32] + "..."
	}
	return s
}
