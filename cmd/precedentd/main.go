package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/clausebank/precedentd/internal/config"
	"github.com/clausebank/precedentd/internal/db/postgres"
	"github.com/clausebank/precedentd/internal/embedding"
	logpkg "github.com/clausebank/precedentd/internal/logger"
	"github.com/clausebank/precedentd/internal/metrics"
	"github.com/clausebank/precedentd/internal/prompt"
	auditrepo "github.com/clausebank/precedentd/internal/repository/audit"
	clusterrepo "github.com/clausebank/precedentd/internal/repository/cluster"
	chiTransport "github.com/clausebank/precedentd/internal/transport/chi"
	"github.com/clausebank/precedentd/internal/transport/ollama"
	answeruc "github.com/clausebank/precedentd/internal/usecase/answer"
	healthuc "github.com/clausebank/precedentd/internal/usecase/health"
	retrievaluc "github.com/clausebank/precedentd/internal/usecase/retrieval"
	"github.com/clausebank/precedentd/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting precedentd API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("tenants", cfg.Retrieval.Tenants),
		zap.Bool("llm_enabled", cfg.LLM.Enabled),
	)

	// Connect to Postgres
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
	logger.Info("Connected to database")

	// Register retrieval metrics explicitly (no init())
	metrics.RegisterRetrievalMetrics()

	// Deterministic local embedder, same projection the ingest tool uses
	embedder := embedding.NewHashProjector(cfg.Retrieval.Dimensions)

	// Repositories
	clusters := clusterrepo.New(store)
	audits := auditrepo.New(store)

	// Retrieval use case
	retrievalSvc := retrievaluc.New(clusters, embedder, retrievaluc.Config{
		SimilarityThreshold: cfg.Retrieval.SimilarityThreshold,
		DefaultTopK:         cfg.Retrieval.DefaultTopK,
		MaxTopK:             cfg.Retrieval.MaxTopK,
		Tenants:             cfg.Retrieval.Tenants,
	}, logger)

	// Language model client — optional, the assembler falls back to the
	// deterministic template when absent or failing.
	var (
		generator  answeruc.Generator
		llmChecker healthuc.LLMChecker
	)
	if cfg.LLM.Enabled {
		llm := ollama.NewClient(&ollama.Config{
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			Temperature:    cfg.LLM.Temperature,
			MaxTokens:      cfg.LLM.MaxTokens,
			ConnectTimeout: time.Duration(cfg.LLM.ConnectTimeoutSec) * time.Second,
			ReadTimeout:    time.Duration(cfg.LLM.ReadTimeoutSec) * time.Second,
		}, logger)
		generator = &llmGenerator{client: llm}
		llmChecker = &llmHealthChecker{client: llm}
		logger.Info("Language model client created",
			zap.String("base_url", cfg.LLM.BaseURL),
			zap.String("model", cfg.LLM.Model),
		)
	}

	// Answer assembler
	assembler := answeruc.New(generator, prompt.MustNewRegistry(), answeruc.Config{
		LLMEnabled: cfg.LLM.Enabled,
		Model:      cfg.LLM.Model,
	}, logger)

	// Health service
	healthSvc := healthuc.New(store, llmChecker)

	// Create chi server
	server := chiTransport.NewServer(retrievalSvc, assembler, healthSvc, audits, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.RegisterRoutes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// llmGenerator adapts ollama.Client to answer.Generator: the concrete
// *ollama.Stream return type does not satisfy the interface directly.
type llmGenerator struct {
	client *ollama.Client
}

func (g *llmGenerator) StreamChat(ctx context.Context, systemPrompt, userPrompt string) (answeruc.TokenStream, error) {
	stream, err := g.client.StreamChat(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// llmHealthChecker adapts ollama.Client to health.LLMChecker.
type llmHealthChecker struct {
	client *ollama.Client
}

func (h *llmHealthChecker) HealthCheck(ctx context.Context) healthuc.LLMStatus {
	st := h.client.HealthCheck(ctx)
	return healthuc.LLMStatus{
		Reachable:   st.Reachable,
		ModelLoaded: st.ModelLoaded,
		Model:       st.Model,
		Error:       st.Error,
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
