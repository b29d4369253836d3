// Package chi is the HTTP surface of the precedent retrieval service:
// JSON search/chat endpoints plus the SSE streaming answer endpoints.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/clausebank/precedentd/internal/domain"
	"github.com/clausebank/precedentd/internal/repository/audit"
	"github.com/clausebank/precedentd/internal/usecase/answer"
	healthuc "github.com/clausebank/precedentd/internal/usecase/health"
	"github.com/clausebank/precedentd/internal/usecase/retrieval"
)

// Error codes returned in the JSON envelope.
const (
	codeBadRequest   = "bad_request"
	codeUnauthorized = "unauthorized"
	codeUnavailable  = "store_unavailable"
	codeInternal     = "internal_error"
)

// userIDHeader identifies the analyst for audit records.
const userIDHeader = "x-user-id"

const defaultUserID = "demo-analyst"

// Auditor records interaction events best-effort.
type Auditor interface {
	Record(ctx context.Context, ev audit.Event) error
}

// Server wires the retrieval and answer usecases to HTTP.
type Server struct {
	retrieval *retrieval.Service
	assembler *answer.Assembler
	health    *healthuc.Service
	auditor   Auditor
	logger    *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(
	ret *retrieval.Service,
	asm *answer.Assembler,
	health *healthuc.Service,
	auditor Auditor,
	logger *zap.Logger,
) *Server {
	return &Server{
		retrieval: ret,
		assembler: asm,
		health:    health,
		auditor:   auditor,
		logger:    logger,
	}
}

// RegisterRoutes mounts all endpoints on the router.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/health", s.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/api/search", s.Search)
	r.Post("/api/search/structured", s.SearchStructured)
	r.Post("/api/chat", s.Chat)
	r.Post("/api/chat/stream", s.ChatStream)
	r.Post("/api/chat/structured/stream", s.ChatStructuredStream)
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	resp := HealthResponse{
		Status: string(report.Status),
		Checks: make(map[string]string, len(report.Checks)),
	}
	for k, v := range report.Checks {
		resp.Checks[k] = string(v)
	}
	if report.LLM != nil {
		resp.LLM = &LLMHealth{
			Reachable:   report.LLM.Reachable,
			ModelLoaded: report.LLM.ModelLoaded,
			Model:       report.LLM.Model,
			Error:       report.LLM.Error,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Search handles POST /api/search: free-text similarity search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if utf8.RuneCountInString(req.Query) < 2 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "query must be at least 2 characters")
		return
	}

	plan, err := retrieval.NewPlan("", "", req.Query)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	ev, err := s.retrieval.Retrieve(r.Context(), plan, req.TopK)
	if err != nil {
		s.writeDomainError(w, err)
		s.recordAudit(r, "/api/search", req.Query, domain.EvidenceSet{}, http.StatusServiceUnavailable, started, err.Error())
		return
	}

	s.recordAudit(r, "/api/search", req.Query, ev, http.StatusOK, started, "")
	writeJSON(w, http.StatusOK, s.searchResponse(req.Query, ev))
}

// SearchStructured handles POST /api/search/structured.
func (s *Server) SearchStructured(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req StructuredSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	plan, err := retrieval.NewPlan(req.Term, req.Attribute, req.Language)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	ev, err := s.retrieval.Retrieve(r.Context(), plan, req.TopK)
	if err != nil {
		s.writeDomainError(w, err)
		s.recordAudit(r, "/api/search/structured", plan.Criteria(), domain.EvidenceSet{}, http.StatusServiceUnavailable, started, err.Error())
		return
	}

	s.recordAudit(r, "/api/search/structured", plan.Criteria(), ev, http.StatusOK, started, "")
	writeJSON(w, http.StatusOK, s.searchResponse(plan.Criteria(), ev))
}

// Chat handles POST /api/chat: synchronous templated answer.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if utf8.RuneCountInString(req.Query) < 2 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "query must be at least 2 characters")
		return
	}

	plan, err := retrieval.NewPlan("", "", req.Query)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	ev, err := s.retrieval.Retrieve(r.Context(), plan, 0)
	if err != nil {
		s.writeDomainError(w, err)
		s.recordAudit(r, "/api/chat", req.Query, domain.EvidenceSet{}, http.StatusServiceUnavailable, started, err.Error())
		return
	}

	resp := ChatResponse{Citations: []string{}}
	errMsg := ""
	if ev.Sufficient {
		resp.Answer, resp.Citations = answer.TemplateAnswer(ev)
		resp.EvidenceFound = true
	} else {
		resp.Answer = "I cannot answer from precedent because no sufficiently similar, " +
			"in-scope clusters were found."
		errMsg = "insufficient_evidence"
	}

	s.recordAudit(r, "/api/chat", req.Query, ev, http.StatusOK, started, errMsg)
	writeJSON(w, http.StatusOK, resp)
}

// ChatStream handles POST /api/chat/stream: SSE answer stream for a
// free-text query.
func (s *Server) ChatStream(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if utf8.RuneCountInString(req.Query) < 2 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "query must be at least 2 characters")
		return
	}

	plan, err := retrieval.NewPlan("", "", req.Query)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.stream(w, r, "/api/chat/stream", plan)
}

// ChatStructuredStream handles POST /api/chat/structured/stream: SSE answer
// stream for structured criteria, using the language model when enabled.
func (s *Server) ChatStructuredStream(w http.ResponseWriter, r *http.Request) {
	var req StructuredChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	plan, err := retrieval.NewPlan(req.Term, req.Attribute, req.Language)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.stream(w, r, "/api/chat/structured/stream", plan)
}

// stream retrieves evidence and drives the assembler into an SSE sink.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, endpoint string, plan retrieval.Plan) {
	started := time.Now()

	ev, err := s.retrieval.Retrieve(r.Context(), plan, 0)
	if err != nil {
		s.writeDomainError(w, err)
		s.recordAudit(r, endpoint, plan.Criteria(), domain.EvidenceSet{}, http.StatusServiceUnavailable, started, err.Error())
		return
	}

	errMsg := ""
	if !ev.Sufficient {
		errMsg = "insufficient_evidence"
	}
	s.recordAudit(r, endpoint, plan.Criteria(), ev, http.StatusOK, started, errMsg)

	sink, err := newSSESink(r.Context(), w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, err.Error())
		return
	}

	runErr := s.assembler.Run(r.Context(), answer.Request{
		Evidence:   ev,
		Term:       plan.Term,
		Criteria:   plan.Criteria(),
		Structured: plan.Structured(),
	}, sink)
	if runErr != nil {
		// Consumer gone; nothing more can be written.
		s.logger.Debug("answer stream aborted", zap.String("endpoint", endpoint), zap.Error(runErr))
	}
}

// searchResponse assembles the JSON search envelope.
func (s *Server) searchResponse(query string, ev domain.EvidenceSet) SearchResponse {
	note := "Insufficient evidence for a trustworthy precedent answer."
	if ev.Sufficient {
		note = fmt.Sprintf("Evidence-backed precedents found across %d tenant streams.", len(ev.Tenants))
	}
	return SearchResponse{
		Query:           query,
		Scope:           audit.GlobalScope,
		Threshold:       ev.Threshold,
		EvidenceFound:   ev.Sufficient,
		Note:            note,
		Results:         toClusterResults(ev.Results),
		SearchedTenants: ev.Tenants,
	}
}

// recordAudit fires the audit write in the background. Audit failures are
// logged and swallowed; they never alter the response.
func (s *Server) recordAudit(
	r *http.Request, endpoint, queryText string,
	ev domain.EvidenceSet, status int, started time.Time, errMsg string,
) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		userID = defaultUserID
	}
	event := audit.Event{
		TenantScope:   audit.GlobalScope,
		UserID:        userID,
		Endpoint:      endpoint,
		QueryText:     queryText,
		ResultCount:   len(ev.Results),
		EvidenceFound: ev.Sufficient,
		TopScore:      ev.TopScore(),
		StatusCode:    status,
		LatencyMS:     int(time.Since(started).Milliseconds()),
		ErrorMessage:  errMsg,
	}

	ctx := context.WithoutCancel(r.Context())
	go func() {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.auditor.Record(ctx, event); err != nil {
			s.logger.Warn("audit record failed", zap.String("endpoint", endpoint), zap.Error(err))
		}
	}()
}

// writeDomainError maps domain sentinels to HTTP errors.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNoCriteria):
		writeError(w, http.StatusBadRequest, codeBadRequest,
			"at least one of term, attribute, or language is required")
	case errors.Is(err, domain.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, codeUnavailable,
			"no tenant partition is reachable")
	default:
		s.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
