package domain

import "errors"

var (
	// ErrNoCriteria signals a structured query with no term, attribute, or
	// free text. Such a plan must never reach the store.
	ErrNoCriteria = errors.New("no search criteria")
	// ErrInvalidQuery signals a malformed or too-short free-text query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrStoreUnavailable signals that no tenant partition could be queried.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrVectorDimMismatch signals a vector dimension mismatch against the
	// deployed index.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrLLMUnavailable signals a language model transport failure. It is
	// recovered locally by the templated fallback, never surfaced as a
	// request failure.
	ErrLLMUnavailable = errors.New("language model unavailable")
)
