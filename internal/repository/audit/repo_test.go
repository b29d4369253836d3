package audit

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// --- Mocks ---

type mockStore struct {
	sql  string
	args []any
	err  error
}

func (m *mockStore) Exec(_ context.Context, sql string, args ...any) error {
	m.sql = sql
	m.args = args
	return m.err
}

// --- Tests ---

func TestRecord(t *testing.T) {
	store := &mockStore{}
	repo := New(store)

	top := 0.81
	err := repo.Record(context.Background(), Event{
		TenantScope:   GlobalScope,
		UserID:        "analyst-1",
		Endpoint:      "/api/search",
		QueryText:     "netting",
		ResultCount:   2,
		EvidenceFound: true,
		TopScore:      &top,
		StatusCode:    200,
		LatencyMS:     42,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(store.sql, "INSERT INTO audit_logs") {
		t.Errorf("unexpected sql: %s", store.sql)
	}
	if len(store.args) != 11 {
		t.Fatalf("expected 11 args, got %d", len(store.args))
	}
	if store.args[1] != GlobalScope || store.args[2] != "analyst-1" {
		t.Errorf("unexpected args: %v", store.args)
	}
	// Empty error message becomes NULL.
	if store.args[10] != (*string)(nil) {
		t.Errorf("expected nil error message, got %v", store.args[10])
	}
}

func TestRecord_ErrorMessagePersisted(t *testing.T) {
	store := &mockStore{}
	repo := New(store)

	err := repo.Record(context.Background(), Event{
		TenantScope:  GlobalScope,
		UserID:       "analyst-1",
		Endpoint:     "/api/search",
		StatusCode:   503,
		ErrorMessage: "all tenant queries failed",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg, ok := store.args[10].(*string)
	if !ok || msg == nil || *msg != "all tenant queries failed" {
		t.Errorf("expected error message pointer, got %v", store.args[10])
	}
}

func TestRecord_StoreFailureWrapped(t *testing.T) {
	store := &mockStore{err: errors.New("write failed")}
	repo := New(store)

	err := repo.Record(context.Background(), Event{})
	if err == nil || !strings.Contains(err.Error(), "record audit event") {
		t.Errorf("expected wrapped error, got %v", err)
	}
}
