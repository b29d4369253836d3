// Package audit persists best-effort audit records. Failures here are
// logged by callers and never surfaced as request failures.
package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// GlobalScope marks events that span every tenant in the caller's allowed
// set rather than a single partition.
const GlobalScope = "ALL_TENANTS"

// Event is one retrieval/answer interaction.
type Event struct {
	TenantScope   string
	UserID        string
	Endpoint      string
	QueryText     string
	ResultCount   int
	EvidenceFound bool
	TopScore      *float64
	StatusCode    int
	LatencyMS     int
	ErrorMessage  string
}

// store is the consumer interface for audit writes.
type store interface {
	Exec(ctx context.Context, sql string, args ...any) error
}

// Repo writes audit events to the audit_logs table.
type Repo struct {
	store store
}

// New creates an audit repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

const insertEvent = `
	INSERT INTO audit_logs (
		event_id, tenant_scope, user_id, endpoint, query_text,
		result_count, evidence_found, top_score, status_code,
		response_time_ms, error_message
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// Record inserts one audit event.
func (r *Repo) Record(ctx context.Context, ev Event) error {
	var errMsg *string
	if ev.ErrorMessage != "" {
		errMsg = &ev.ErrorMessage
	}
	err := r.store.Exec(ctx, insertEvent,
		uuid.NewString(), ev.TenantScope, ev.UserID, ev.Endpoint, ev.QueryText,
		ev.ResultCount, ev.EvidenceFound, ev.TopScore, ev.StatusCode,
		ev.LatencyMS, errMsg,
	)
	if err != nil {
		return fmt.Errorf("record audit event: %w", err)
	}
	return nil
}
