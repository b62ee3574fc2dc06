// Package ingest provides the document ingestion pipeline that processes
// submitted climate documents through validation, chunking, embedding, and
// vector storage stages.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClimateIQ/climateiq-mvp/engine/domain"
	"github.com/ClimateIQ/climateiq-mvp/engine/semantic"
	"github.com/ClimateIQ/climateiq-mvp/pkg/fn"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	// SubmitSubject is the NATS subject for incoming documents.
	SubmitSubject = "climate.docs.submit"
	// DLQSubject is the dead letter queue subject for failed messages.
	DLQSubject = "climate.docs.dlq"
	// MaxRetries before sending to DLQ.
	MaxRetries = 3
	// EmbedBatchSize is the max chunks per embedding request.
	EmbedBatchSize = 100
	// EmbedWorkers bounds concurrent embedding batches.
	EmbedWorkers = 4
)

// VectorSink receives embedded chunks. Satisfied by semantic.LocalIndex and
// semantic.VectorStore.
type VectorSink interface {
	Upsert(ctx context.Context, records []semantic.VectorRecord) error
}

// Deps holds the external dependencies for the ingestion pipeline.
type Deps struct {
	Embedder semantic.Embedder
	Sink     VectorSink
	Splitter *Splitter
	Logger   *slog.Logger
}

// --- Pipeline stages ---

// Validate rejects documents with empty content.
var Validate fn.Stage[domain.Document, domain.Document] = func(_ context.Context, doc domain.Document) fn.Result[domain.Document] {
	if err := domain.ValidateDocument(doc); err != nil {
		return fn.Err[domain.Document](err)
	}
	return fn.Ok(doc)
}

// NewChunk creates a stage that splits a document into bounded chunks.
func NewChunk(sp *Splitter) fn.Stage[domain.Document, ChunkedDoc] {
	return func(_ context.Context, doc domain.Document) fn.Result[ChunkedDoc] {
		chunks, err := sp.SplitDocument(doc)
		if err != nil {
			return fn.Err[ChunkedDoc](fmt.Errorf("chunk: %w", err))
		}
		return fn.Ok(ChunkedDoc{Doc: doc, Chunks: chunks})
	}
}

// NewEmbed creates a stage that embeds chunk texts in batches. Batches run
// concurrently with bounded workers; output order matches chunk order.
func NewEmbed(emb semantic.Embedder) fn.Stage[ChunkedDoc, EmbeddedDoc] {
	return func(ctx context.Context, doc ChunkedDoc) fn.Result[EmbeddedDoc] {
		var batches [][]string
		for i := 0; i < len(doc.Chunks); i += EmbedBatchSize {
			end := i + EmbedBatchSize
			if end > len(doc.Chunks) {
				end = len(doc.Chunks)
			}
			texts := make([]string, end-i)
			for j, c := range doc.Chunks[i:end] {
				texts[j] = c.Text
			}
			batches = append(batches, texts)
		}

		results := fn.ParMapResult(batches, EmbedWorkers, func(texts []string) fn.Result[[][]float32] {
			return fn.FromPair(emb.EmbedBatch(ctx, texts))
		})
		collected, err := fn.Collect(results).Unwrap()
		if err != nil {
			return fn.Err[EmbeddedDoc](fmt.Errorf("embed batch: %w", err))
		}

		embeddings := make([][]float32, 0, len(doc.Chunks))
		for _, vecs := range collected {
			embeddings = append(embeddings, vecs...)
		}
		return fn.Ok(EmbeddedDoc{ChunkedDoc: doc, Embeddings: embeddings})
	}
}

// NewStore creates a stage that writes embedded chunks to the vector sink.
// Point IDs are derived from source and chunk index so re-ingesting the same
// document replaces its chunks instead of duplicating them.
func NewStore(sink VectorSink) fn.Stage[EmbeddedDoc, string] {
	return func(ctx context.Context, doc EmbeddedDoc) fn.Result[string] {
		source := doc.Doc.Source()

		records := make([]semantic.VectorRecord, len(doc.Chunks))
		for i, chunk := range doc.Chunks {
			pointID := uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s-%d", source, chunk.Index))).String()
			payload := map[string]any{
				"content":      chunk.Text,
				"source":       source,
				"category":     doc.Doc.Category(),
				"chunk_index":  chunk.Index,
				"total_chunks": chunk.Total,
			}
			for k, v := range chunk.Metadata {
				if _, taken := payload[k]; !taken {
					payload[k] = v
				}
			}
			records[i] = semantic.VectorRecord{
				ID:        pointID,
				Embedding: doc.Embeddings[i],
				Payload:   payload,
			}
		}
		if err := sink.Upsert(ctx, records); err != nil {
			return fn.Err[string](fmt.Errorf("vector upsert: %w", err))
		}

		return fn.Ok(source)
	}
}

// LoggedTap returns a stage that logs entry/exit with duration.
func LoggedTap[T any](name string, log *slog.Logger) fn.Stage[T, T] {
	return func(ctx context.Context, t T) fn.Result[T] {
		log.Debug("stage.enter", "stage", name)
		start := time.Now()
		defer func() {
			log.Debug("stage.exit", "stage", name, "duration", time.Since(start))
		}()
		return fn.Ok(t)
	}
}

// NewPipeline constructs the full ingestion pipeline with all stages wired:
// Validate → Chunk → Embed → Store.
func NewPipeline(deps Deps) fn.Stage[domain.Document, string] {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	sp := deps.Splitter
	if sp == nil {
		sp = NewSplitter(DefaultChunkSize, DefaultOverlap)
	}

	validated := fn.Then(LoggedTap[domain.Document]("validate", log), fn.TracedStage("ingest.validate", Validate))
	chunked := fn.Then(validated, fn.Then(LoggedTap[domain.Document]("chunk", log), fn.TracedStage("ingest.chunk", NewChunk(sp))))
	embedded := fn.Then(chunked, fn.Then(LoggedTap[ChunkedDoc]("embed", log), fn.TracedStage("ingest.embed", NewEmbed(deps.Embedder))))
	stored := fn.Then(embedded, fn.Then(LoggedTap[EmbeddedDoc]("store", log), fn.TracedStage("ingest.store", NewStore(deps.Sink))))

	return stored
}

// dlqMessage is published to the DLQ on repeated failure.
type dlqMessage struct {
	Doc     domain.Document `json:"doc"`
	Error   string          `json:"error"`
	Retries int             `json:"retries"`
}

// StartConsumer starts a NATS consumer that runs submitted documents through
// the ingestion pipeline with retry and DLQ support.
func StartConsumer(nc *nats.Conn, deps Deps) (*nats.Subscription, error) {
	pipeline := NewPipeline(deps)
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	return nc.Subscribe(SubmitSubject, func(msg *nats.Msg) {
		var doc domain.Document
		if err := json.Unmarshal(msg.Data, &doc); err != nil {
			log.Error("ingest: unmarshal failed", "error", err)
			return
		}

		ctx := context.Background()

		retries := 0
		if msg.Header != nil {
			if v := msg.Header.Get("X-Retry-Count"); v != "" {
				fmt.Sscanf(v, "%d", &retries)
			}
		}

		result := pipeline(ctx, doc)
		if result.IsErr() {
			_, pipeErr := result.Unwrap()
			retries++
			log.Error("ingest: pipeline failed",
				"error", pipeErr,
				"source", doc.Source(),
				"retry", retries,
			)

			if retries >= MaxRetries {
				dlq := dlqMessage{
					Doc:     doc,
					Error:   pipeErr.Error(),
					Retries: retries,
				}
				data, _ := json.Marshal(dlq)
				if err := nc.Publish(DLQSubject, data); err != nil {
					log.Error("ingest: DLQ publish failed", "error", err)
				}
			} else {
				retryMsg := nats.NewMsg(SubmitSubject)
				retryMsg.Data = msg.Data
				retryMsg.Header = nats.Header{}
				retryMsg.Header.Set("X-Retry-Count", fmt.Sprintf("%d", retries))
				if err := nc.PublishMsg(retryMsg); err != nil {
					log.Error("ingest: retry publish failed", "error", err)
				}
			}
		} else {
			source, _ := result.Unwrap()
			log.Info("ingest: success", "source", source)
		}

		if msg.Reply != "" {
			_ = msg.Ack()
		}
	})
}
