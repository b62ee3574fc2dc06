// Package main implements the ClimateIQ API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ClimateIQ/climateiq-mvp/engine/domain"
	"github.com/ClimateIQ/climateiq-mvp/engine/impact"
	"github.com/ClimateIQ/climateiq-mvp/engine/knowledge"
	"github.com/ClimateIQ/climateiq-mvp/engine/rag"
	"github.com/ClimateIQ/climateiq-mvp/engine/semantic"
	"github.com/ClimateIQ/climateiq-mvp/pkg/climate"
	"github.com/ClimateIQ/climateiq-mvp/pkg/metrics"
	"github.com/ClimateIQ/climateiq-mvp/pkg/mid"
	"github.com/ClimateIQ/climateiq-mvp/pkg/natsutil"
	"github.com/ClimateIQ/climateiq-mvp/pkg/ollama"
)

// Config holds all environment-based configuration.
type Config struct {
	Port         string
	DataDir      string
	Backend      string // "local" or "qdrant"
	QdrantURL    string
	Collection   string
	Embedder     string // "hash" or "ollama"
	OllamaURL    string
	EmbedModel   string
	EmbedDim     int
	GenModel     string // empty disables model generation
	NATSURL      string // empty disables events
	CORSOrigin   string
	ForceRebuild bool
}

func loadConfig() Config {
	dim, _ := strconv.Atoi(envOr("EMBED_DIM", "384"))
	return Config{
		Port:         envOr("PORT", "8080"),
		DataDir:      envOr("DATA_DIR", "./data"),
		Backend:      envOr("VECTOR_BACKEND", "local"),
		QdrantURL:    envOr("QDRANT_URL", "localhost:6334"),
		Collection:   envOr("QDRANT_COLLECTION", "climateiq"),
		Embedder:     envOr("EMBEDDER", "hash"),
		OllamaURL:    envOr("OLLAMA_URL", "http://localhost:11434"),
		EmbedModel:   envOr("EMBED_MODEL", "nomic-embed-text"),
		EmbedDim:     dim,
		GenModel:     envOr("GEN_MODEL", ""),
		NATSURL:      envOr("NATS_URL", ""),
		CORSOrigin:   envOr("CORS_ORIGIN", "*"),
		ForceRebuild: envOr("FORCE_REBUILD", "") == "true",
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Embedder ---
	var embedder semantic.Embedder
	switch cfg.Embedder {
	case "ollama":
		embedder = ollama.NewEmbedClient(cfg.OllamaURL, cfg.EmbedModel, cfg.EmbedDim)
	default:
		embedder = semantic.NewHashEmbedder(cfg.EmbedDim)
	}

	// --- Vector backend ---
	var backend knowledge.Backend
	switch cfg.Backend {
	case "qdrant":
		vs, err := semantic.NewVectorStore(cfg.QdrantURL, cfg.Collection)
		if err != nil {
			return fmt.Errorf("qdrant connect: %w", err)
		}
		defer vs.Close()
		if err := vs.EnsureCollection(ctx, embedder.Dimension()); err != nil {
			return fmt.Errorf("qdrant collection: %w", err)
		}
		backend = vs
	default:
		idx, err := semantic.OpenLocalIndex(filepath.Join(cfg.DataDir, "index.json"))
		if err != nil {
			return fmt.Errorf("open local index: %w", err)
		}
		backend = idx
	}

	// --- Knowledge index ---
	index := knowledge.NewIndex(backend, embedder, nil, logger)
	if err := index.Initialize(ctx, cfg.ForceRebuild); err != nil {
		return fmt.Errorf("initialize index: %w", err)
	}

	// --- Advice service ---
	var generator rag.Generator
	if cfg.GenModel != "" {
		generator = ollama.NewGenerateClient(cfg.OllamaURL, cfg.GenModel)
	}
	advisor := rag.New(index, generator, rag.DefaultOptions(), logger)

	// --- Impact ledger ---
	store, err := impact.OpenSQLiteStore(filepath.Join(cfg.DataDir, "ledger.db"))
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer store.Close()

	var events impact.EventPublisher
	if cfg.NATSURL != "" {
		nc, err := natsutil.Connect(cfg.NATSURL, "climateiq-api")
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Close()
		events = &natsEvents{nc: nc}
	}
	ledger := impact.NewLedger(store, impact.NewSQLiteGoals(store), events, logger)

	weather := climate.NewClient()

	// --- Metrics ---
	reg := metrics.New()
	go reg.CollectRuntime(15*time.Second, ctx.Done())

	// --- HTTP server ---
	srv := newServer(index, advisor, ledger, weather, logger)
	handler := mid.Chain(srv.routes(reg),
		mid.Recover(logger),
		mid.RequestID(),
		mid.OTel("climateiq-api"),
		mid.Logger(logger),
		mid.Metrics(reg),
		mid.CORS(cfg.CORSOrigin),
	)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutCtx)
}

// natsEvents publishes tracked actions onto the message bus.
type natsEvents struct {
	nc *nats.Conn
}

func (e *natsEvents) ActionTracked(ctx context.Context, rec domain.ActionRecord) error {
	return natsutil.Publish(ctx, e.nc, impact.TrackedSubject, rec)
}
