package answer

// Type identifies a stream event.
type Type string

// Event types, in emission order: one meta, any number of tokens,
// informational errors, exactly one done.
const (
	TypeMeta  Type = "meta"
	TypeToken Type = "token"
	TypeError Type = "error"
	TypeDone  Type = "done"
)

// Meta is emitted before any answer content so callers can immediately
// render the search scope.
type Meta struct {
	EvidenceFound   bool     `json:"evidence_found"`
	Scope           string   `json:"scope"`
	SearchedTenants []string `json:"searched_tenants"`
	Model           string   `json:"llm_model,omitempty"`
}

// Done is the terminal event, emitted exactly once per request.
type Done struct {
	Citations     []string `json:"citations"`
	EvidenceFound bool     `json:"evidence_found"`
	TokenCount    int      `json:"token_count"`
}

// Event is one element of the answer stream.
type Event struct {
	Type    Type
	Meta    *Meta
	Token   string
	Message string // error description for TypeError
	Done    *Done
}
