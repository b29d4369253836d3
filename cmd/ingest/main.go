// Command ingest loads clause cluster CSV exports into Postgres and can
// bootstrap the schema. Ingestion runs with the owner role, outside the
// row-level-security scoping the API uses.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/clausebank/precedentd/internal/config"
	"github.com/clausebank/precedentd/internal/db/postgres"
	"github.com/clausebank/precedentd/internal/embedding"
	logpkg "github.com/clausebank/precedentd/internal/logger"
	"github.com/clausebank/precedentd/internal/prompt"
)

const schemaSQL = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE EXTENSION IF NOT EXISTS pgcrypto;

CREATE TABLE IF NOT EXISTS clusters (
    id UUID PRIMARY KEY,
    tenant_id VARCHAR(50) NOT NULL,
    text_content TEXT NOT NULL,
    codified_data JSONB,
    query_history JSONB,
    doc_count INTEGER,
    embedding VECTOR(384),
    embedding_model TEXT NOT NULL DEFAULT 'hash-v1',
    embedding_dim INTEGER NOT NULL DEFAULT 384,
    prompt_version TEXT NOT NULL DEFAULT 'prompt-v1',
    last_updated TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS audit_logs (
    audit_id BIGSERIAL PRIMARY KEY,
    event_id UUID NOT NULL DEFAULT gen_random_uuid(),
    tenant_scope VARCHAR(50) NOT NULL,
    user_id VARCHAR(120) NOT NULL,
    endpoint VARCHAR(64) NOT NULL,
    query_text TEXT,
    result_count INTEGER NOT NULL DEFAULT 0,
    evidence_found BOOLEAN NOT NULL DEFAULT FALSE,
    top_score REAL,
    status_code INTEGER NOT NULL,
    response_time_ms INTEGER NOT NULL,
    error_message TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_clusters_tenant_id ON clusters (tenant_id);
CREATE INDEX IF NOT EXISTS idx_clusters_last_updated ON clusters (last_updated DESC);
CREATE INDEX IF NOT EXISTS idx_clusters_embedding_hnsw
    ON clusters USING hnsw (embedding vector_cosine_ops);
CREATE INDEX IF NOT EXISTS idx_clusters_codified_data_gin
    ON clusters USING gin (codified_data jsonb_path_ops);
CREATE INDEX IF NOT EXISTS idx_audit_logs_scope_created ON audit_logs (tenant_scope, created_at DESC);

ALTER TABLE clusters ENABLE ROW LEVEL SECURITY;
ALTER TABLE clusters FORCE ROW LEVEL SECURITY;
DROP POLICY IF EXISTS clusters_tenant_isolation ON clusters;
CREATE POLICY clusters_tenant_isolation ON clusters
    USING (tenant_id = current_setting('app.current_tenant', true));
`

const upsertCluster = `
	INSERT INTO clusters (
		id, tenant_id, text_content, codified_data, query_history,
		doc_count, embedding, embedding_model, embedding_dim,
		prompt_version, last_updated
	) VALUES (
		$1, $2, $3, $4::jsonb, $5::jsonb, $6, $7::vector, $8, $9, $10, $11
	)
	ON CONFLICT (id) DO UPDATE SET
		tenant_id = EXCLUDED.tenant_id,
		text_content = EXCLUDED.text_content,
		codified_data = EXCLUDED.codified_data,
		query_history = EXCLUDED.query_history,
		doc_count = EXCLUDED.doc_count,
		embedding = EXCLUDED.embedding,
		embedding_model = EXCLUDED.embedding_model,
		embedding_dim = EXCLUDED.embedding_dim,
		prompt_version = EXCLUDED.prompt_version,
		last_updated = EXCLUDED.last_updated`

// clusterIDNamespace makes re-ingesting the same export idempotent: the row
// id derives from tenant and source key, not from a fresh random UUID.
var clusterIDNamespace = uuid.MustParse("9f2d7c1e-5b88-4a53-a0f4-3f6f3be0e7b2")

func main() {
	var (
		csvPath   = flag.String("csv", "", "path to the cluster CSV export")
		bootstrap = flag.Bool("bootstrap", false, "create schema, indexes, and RLS policy first")
		batchSize = flag.Int("batch-size", 1000, "rows pipelined per database round trip")
		env       = flag.String("env", config.GetEnv(), "config environment name")
	)
	flag.Parse()

	cfg, err := config.Load(*env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	logger, err := logpkg.NewLogger(*env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	if *csvPath == "" && !*bootstrap {
		flag.Usage()
		os.Exit(2)
	}

	ctx := context.Background()
	store, err := postgres.NewStore(ctx, postgres.Config{
		DSN:      cfg.Database.DSN,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}

	if *bootstrap {
		if err := store.Exec(ctx, schemaSQL); err != nil {
			logger.Fatal("Schema bootstrap failed", zap.Error(err))
		}
		logger.Info("Schema bootstrapped")
	}

	if *csvPath == "" {
		return
	}

	embedder := embedding.NewHashProjector(cfg.Retrieval.Dimensions)
	count, err := ingestCSV(ctx, store, embedder, *csvPath, *batchSize)
	if err != nil {
		logger.Fatal("Ingest failed", zap.Error(err))
	}
	logger.Info("Ingest complete", zap.Int("rows", count), zap.String("csv", *csvPath))
}

// ingestCSV upserts every row of the export, pipelined in batches. Expected
// header columns: id (optional), tenant_id, text_content, codified_data,
// query_history, doc_count, last_updated. Rows without an id get a
// deterministic one from tenant_id and text_content.
func ingestCSV(
	ctx context.Context, store *postgres.Store,
	embedder *embedding.HashProjector, path string, batchSize int,
) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	if batchSize <= 0 {
		batchSize = 1000
	}

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("read csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"tenant_id", "text_content"} {
		if _, ok := col[required]; !ok {
			return 0, fmt.Errorf("csv is missing required column %q", required)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	count := 0
	batch := &pgx.Batch{}
	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}
		if err := store.ExecBatch(ctx, batch); err != nil {
			return fmt.Errorf("upsert batch ending at row %d: %w", count, err)
		}
		batch = &pgx.Batch{}
		return nil
	}

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("read csv row %d: %w", count+1, err)
		}

		tenant := field(rec, "tenant_id")
		text := field(rec, "text_content")

		id := field(rec, "id")
		if id == "" {
			id = uuid.NewSHA1(clusterIDNamespace, []byte(tenant+"/"+text)).String()
		}

		codified := jsonOrNull(field(rec, "codified_data"))
		history := jsonOrNull(field(rec, "query_history"))

		var docCount *int
		if s := field(rec, "doc_count"); s != "" {
			var n int
			if _, err := fmt.Sscanf(s, "%d", &n); err == nil {
				docCount = &n
			}
		}

		var lastUpdated *time.Time
		if s := field(rec, "last_updated"); s != "" {
			if t, err := parseTimestamp(s); err == nil {
				lastUpdated = &t
			}
		}

		vec := embedder.Embed(text)
		batch.Queue(upsertCluster,
			id, tenant, text, codified, history, docCount,
			vec.Literal(), embedding.ModelVersion, embedder.Dimensions(),
			prompt.Version, lastUpdated,
		)
		count++

		if batch.Len() >= batchSize {
			if err := flush(); err != nil {
				return count, err
			}
		}
	}
	if err := flush(); err != nil {
		return count, err
	}
	return count, nil
}

// jsonOrNull validates a raw JSON field, mapping empty or malformed input to
// SQL NULL rather than failing the whole export.
func jsonOrNull(raw string) *string {
	if raw == "" {
		return nil
	}
	if !json.Valid([]byte(raw)) {
		return nil
	}
	return &raw
}

// parseTimestamp accepts both RFC 3339 timestamps and bare dates.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
