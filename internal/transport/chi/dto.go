package chi

import (
	"time"

	"github.com/clausebank/precedentd/internal/domain"
)

// SearchRequest is the free-text search payload.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// StructuredSearchRequest is the structured search payload. Language is the
// optional free-text clause wording.
type StructuredSearchRequest struct {
	Term      string `json:"term"`
	Attribute string `json:"attribute"`
	Language  string `json:"language"`
	TopK      int    `json:"top_k"`
}

// ChatRequest is the free-text chat payload.
type ChatRequest struct {
	Query string `json:"query"`
}

// StructuredChatRequest is the structured chat payload.
type StructuredChatRequest struct {
	Term      string `json:"term"`
	Attribute string `json:"attribute"`
	Language  string `json:"language"`
}

// ClusterResult is one retrieved cluster in a JSON response.
type ClusterResult struct {
	ID             string                 `json:"id"`
	TenantID       string                 `json:"tenant_id"`
	TextContent    string                 `json:"text_content"`
	CodifiedData   domain.CodifiedData    `json:"codified_data,omitempty"`
	QueryHistory   []domain.DialogueEntry `json:"query_history,omitempty"`
	DocCount       int                    `json:"doc_count"`
	LastUpdated    *time.Time             `json:"last_updated,omitempty"`
	RelevanceScore float64                `json:"relevance_score"`
}

// SearchResponse is the synchronous search result envelope.
type SearchResponse struct {
	Query           string          `json:"query"`
	Scope           string          `json:"scope"`
	Threshold       float64         `json:"threshold"`
	EvidenceFound   bool            `json:"evidence_found"`
	Note            string          `json:"note"`
	Results         []ClusterResult `json:"results"`
	SearchedTenants []string        `json:"searched_tenants"`
}

// ChatResponse is the synchronous answer envelope.
type ChatResponse struct {
	Answer        string   `json:"answer"`
	Citations     []string `json:"citations"`
	EvidenceFound bool     `json:"evidence_found"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HealthResponse is the aggregated health report.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	LLM    *LLMHealth        `json:"llm,omitempty"`
}

// LLMHealth is the language model diagnostic detail.
type LLMHealth struct {
	Reachable   bool   `json:"reachable"`
	ModelLoaded bool   `json:"model_loaded"`
	Model       string `json:"model"`
	Error       string `json:"error,omitempty"`
}

func toClusterResults(results []domain.RetrievalResult) []ClusterResult {
	out := make([]ClusterResult, 0, len(results))
	for _, r := range results {
		out = append(out, ClusterResult{
			ID:             r.Cluster.ID,
			TenantID:       r.Cluster.TenantID,
			TextContent:    r.Cluster.TextContent,
			CodifiedData:   r.Cluster.CodifiedData,
			QueryHistory:   r.Cluster.QueryHistory,
			DocCount:       r.Cluster.DocCount,
			LastUpdated:    r.Cluster.LastUpdated,
			RelevanceScore: r.Score,
		})
	}
	return out
}
