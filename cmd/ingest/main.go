// Command ingest watches a directory for climate documents and runs them
// through the chunk/embed/store pipeline into the vector backend. It also
// consumes documents submitted over NATS when a broker URL is given.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/ClimateIQ/climateiq-mvp/engine/domain"
	"github.com/ClimateIQ/climateiq-mvp/engine/ingest"
	"github.com/ClimateIQ/climateiq-mvp/engine/semantic"
	"github.com/ClimateIQ/climateiq-mvp/pkg/fn"
	"github.com/ClimateIQ/climateiq-mvp/pkg/metrics"
	"github.com/ClimateIQ/climateiq-mvp/pkg/natsutil"
	"github.com/ClimateIQ/climateiq-mvp/pkg/ollama"
)

var met = metrics.New()

// Ingest metrics.
var (
	mDocsTotal = func(category string) *metrics.Counter {
		return met.Counter(metrics.WithLabels("climateiq_ingest_docs_total", "category", category), "Total documents ingested")
	}
	mErrorsTotal = func(stage string) *metrics.Counter {
		return met.Counter(metrics.WithLabels("climateiq_ingest_errors_total", "stage", stage), "Total ingestion errors")
	}
	mFilesProcessed = met.Counter("climateiq_ingest_files_processed_total", "Files processed")
	mBytesProcessed = met.Counter("climateiq_ingest_bytes_processed_total", "Bytes of source files processed")
	mLastScan       = met.Gauge("climateiq_ingest_last_scan_timestamp", "Epoch of last directory scan")
	mQueueDepth     = met.Gauge("climateiq_ingest_queue_depth", "Files waiting to process")
	mPipelineDur    = met.Histogram("climateiq_ingest_pipeline_duration_seconds", "Per-doc pipeline time", nil)
)

func main() {
	var (
		dataDir     = flag.String("dir", "./data/docs", "directory to watch for documents")
		indexPath   = flag.String("index", "./data/index.json", "local vector index path")
		backendKind = flag.String("backend", "local", "vector backend: local or qdrant")
		qdrantAddr  = flag.String("qdrant", "localhost:6334", "Qdrant gRPC address")
		collection  = flag.String("collection", "climateiq", "Qdrant collection name")
		embedKind   = flag.String("embedder", "hash", "embedder: hash or ollama")
		ollamaURL   = flag.String("ollama", "http://localhost:11434", "Ollama base URL")
		embedModel  = flag.String("model", "nomic-embed-text", "Ollama embedding model")
		embedDim    = flag.Int("dim", semantic.DefaultDimension, "embedding dimension")
		natsURL     = flag.String("nats", "", "NATS URL for document submissions (empty disables)")
		interval    = flag.Duration("interval", 30*time.Second, "scan interval")
		stateFile   = flag.String("state", "./data/.ingest-state.json", "processed files state")
		metricsPort = flag.Int("metrics-port", 9091, "metrics HTTP port")
	)
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go met.CollectRuntime(15*time.Second, ctx.Done())
	met.ServeAsync(*metricsPort)

	var embedder semantic.Embedder
	switch *embedKind {
	case "ollama":
		embedder = ollama.NewEmbedClient(*ollamaURL, *embedModel, *embedDim)
		log.Info("using Ollama embeddings", "model", *embedModel)
	default:
		embedder = semantic.NewHashEmbedder(*embedDim)
		log.Info("using hash embeddings", "dim", *embedDim)
	}

	var sink ingest.VectorSink
	switch *backendKind {
	case "qdrant":
		vs, err := semantic.NewVectorStore(*qdrantAddr, *collection)
		if err != nil {
			log.Error("qdrant connect failed", "error", err)
			os.Exit(1)
		}
		defer vs.Close()
		if err := vs.EnsureCollection(ctx, embedder.Dimension()); err != nil {
			log.Error("qdrant ensure collection failed", "error", err)
			os.Exit(1)
		}
		log.Info("connected to Qdrant", "collection", *collection)
		sink = vs
	default:
		idx, err := semantic.OpenLocalIndex(*indexPath)
		if err != nil {
			log.Error("open local index failed", "error", err)
			os.Exit(1)
		}
		log.Info("using local index", "path", *indexPath)
		sink = idx
	}

	deps := ingest.Deps{
		Embedder: embedder,
		Sink:     sink,
		Logger:   log,
	}
	pipeline := ingest.NewPipeline(deps)

	if *natsURL != "" {
		nc, err := natsutil.Connect(*natsURL, "climateiq-ingest")
		if err != nil {
			log.Error("nats connect failed", "error", err)
			os.Exit(1)
		}
		defer nc.Close()
		sub, err := ingest.StartConsumer(nc, deps)
		if err != nil {
			log.Error("nats subscribe failed", "error", err)
			os.Exit(1)
		}
		defer sub.Unsubscribe()
		log.Info("consuming document submissions", "subject", ingest.SubmitSubject)
	}

	processed := loadState(*stateFile)
	os.MkdirAll(*dataDir, 0o755)
	log.Info("watching for documents", "dir", *dataDir, "interval", *interval)

	scan := func() {
		mLastScan.Set(time.Now().Unix())
		entries, err := os.ReadDir(*dataDir)
		if err != nil {
			mErrorsTotal("scan").Inc()
			log.Error("readdir failed", "error", err)
			return
		}

		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || name[0] == '.' || !hasDocExt(name) {
				continue
			}
			info, _ := e.Info()
			key := name
			if info != nil {
				key = fmt.Sprintf("%s:%d", name, info.Size())
			}
			if processed[key] {
				continue
			}

			mQueueDepth.Inc()
			log.Info("processing file", "file", name)
			if info != nil {
				mBytesProcessed.Add(info.Size())
			}
			count, errs := processFile(ctx, filepath.Join(*dataDir, name), pipeline)
			mQueueDepth.Dec()
			mFilesProcessed.Inc()
			log.Info("file done", "file", name, "ingested", count, "errors", errs)

			// Only mark fully processed files so failures retry next scan.
			if errs == 0 {
				processed[key] = true
				saveState(*stateFile, processed)
			} else {
				log.Warn("file had errors, will retry on next scan", "file", name, "errors", errs)
			}
		}
	}

	scan()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return
		case <-ticker.C:
			scan()
		}
	}
}

func hasDocExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".txt", ".md":
		return true
	}
	return false
}

// parseFile turns a file into documents. JSON files hold one document or an
// array of them; text and markdown files become a single document named
// after the file.
func parseFile(path string, data []byte) []domain.Document {
	base := filepath.Base(path)
	if strings.ToLower(filepath.Ext(base)) != ".json" {
		return []domain.Document{{
			Content: string(data),
			Metadata: map[string]string{
				"source": strings.TrimSuffix(base, filepath.Ext(base)),
			},
		}}
	}

	var docs []domain.Document
	if err := json.Unmarshal(data, &docs); err == nil {
		return docs
	}
	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err == nil && doc.Content != "" {
		return []domain.Document{doc}
	}
	return nil
}

func processFile(ctx context.Context, path string, pipeline fn.Stage[domain.Document, string]) (int, int) {
	data, err := os.ReadFile(path)
	if err != nil {
		mErrorsTotal("read").Inc()
		return 0, 1
	}

	docs := parseFile(path, data)
	if len(docs) == 0 {
		mErrorsTotal("parse").Inc()
		return 0, 1
	}

	log := slog.Default()
	count, errs := 0, 0
	for _, doc := range docs {
		if ctx.Err() != nil {
			break
		}
		start := time.Now()
		result := pipeline(ctx, doc)
		mPipelineDur.Since(start)
		if result.IsErr() {
			_, err := result.Unwrap()
			log.Error("pipeline error", "source", doc.Source(), "error", err)
			mErrorsTotal("pipeline").Inc()
			errs++
		} else {
			mDocsTotal(doc.Category()).Inc()
			count++
		}
	}
	return count, errs
}

func loadState(path string) map[string]bool {
	m := make(map[string]bool)
	data, err := os.ReadFile(path)
	if err != nil {
		return m
	}
	json.Unmarshal(data, &m)
	return m
}

func saveState(path string, m map[string]bool) {
	data, _ := json.Marshal(m)
	os.WriteFile(path, data, 0o644)
}
