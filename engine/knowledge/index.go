// Package knowledge manages the searchable climate knowledge index: seeding,
// document addition, and diversity-aware retrieval on top of a vector
// backend.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ClimateIQ/climateiq-mvp/engine/domain"
	"github.com/ClimateIQ/climateiq-mvp/engine/ingest"
	"github.com/ClimateIQ/climateiq-mvp/engine/semantic"
)

const (
	// DefaultTopK is the number of results returned by Search.
	DefaultTopK = 5
	// DefaultFetchK is the candidate pool fetched before diversity re-ranking.
	DefaultFetchK = 10
	// DefaultLambda balances relevance against diversity in re-ranking.
	DefaultLambda = 0.5
)

// Backend is the vector storage the index runs on. Satisfied by
// semantic.LocalIndex and semantic.VectorStore.
type Backend interface {
	Upsert(ctx context.Context, records []semantic.VectorRecord) error
	Search(ctx context.Context, embedding []float32, k int) ([]semantic.Candidate, error)
	Count(ctx context.Context) (int, error)
}

// Stats describes the current index state.
type Stats struct {
	Chunks      int    `json:"chunks"`
	Model       string `json:"model"`
	Dimension   int    `json:"dimension"`
	Initialized bool   `json:"initialized"`
}

// Index is the knowledge retrieval facade. It must be initialized before
// documents can be added or queries served.
type Index struct {
	mu       sync.Mutex
	backend  Backend
	embedder semantic.Embedder
	pipeline func(ctx context.Context, doc domain.Document) (string, error)
	log      *slog.Logger

	TopK   int
	FetchK int
	Lambda float32

	initialized bool
}

// NewIndex wires an Index over a backend and embedder. The splitter may be
// nil to use defaults.
func NewIndex(backend Backend, embedder semantic.Embedder, sp *ingest.Splitter, log *slog.Logger) *Index {
	if log == nil {
		log = slog.Default()
	}
	pipe := ingest.NewPipeline(ingest.Deps{
		Embedder: embedder,
		Sink:     backend,
		Splitter: sp,
		Logger:   log,
	})
	return &Index{
		backend:  backend,
		embedder: embedder,
		pipeline: func(ctx context.Context, doc domain.Document) (string, error) {
			return pipe(ctx, doc).Unwrap()
		},
		log:    log,
		TopK:   DefaultTopK,
		FetchK: DefaultFetchK,
		Lambda: DefaultLambda,
	}
}

// Initialize prepares the index for queries. An already-populated backend is
// adopted as-is unless force is set, in which case the seed corpus is
// re-ingested on top. An empty backend is seeded with the built-in corpus.
// Safe to call concurrently; only one initialization runs at a time and
// repeat calls are no-ops.
func (ix *Index) Initialize(ctx context.Context, force bool) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.initialized && !force {
		return nil
	}

	count, err := ix.backend.Count(ctx)
	if err != nil {
		return fmt.Errorf("knowledge: count backend: %w", err)
	}

	if count > 0 && !force {
		ix.log.Info("knowledge: adopting existing index", "chunks", count)
		ix.initialized = true
		return nil
	}

	docs := SeedCorpus()
	for _, doc := range docs {
		if _, err := ix.pipeline(ctx, doc); err != nil {
			return fmt.Errorf("knowledge: seed %s: %w", doc.Source(), err)
		}
	}
	total, err := ix.backend.Count(ctx)
	if err != nil {
		return fmt.Errorf("knowledge: count backend: %w", err)
	}
	ix.log.Info("knowledge: index built", "docs", len(docs), "chunks", total, "model", ix.embedder.Model())
	ix.initialized = true
	return nil
}

// AddDocuments ingests documents into an initialized index. Documents are
// processed in order; the first failure aborts and reports how many were
// stored.
func (ix *Index) AddDocuments(ctx context.Context, docs []domain.Document) (int, error) {
	if !ix.ready() {
		return 0, domain.ErrIndexNotInitialized
	}

	for i, doc := range docs {
		if _, err := ix.pipeline(ctx, doc); err != nil {
			return i, fmt.Errorf("knowledge: add document %s: %w", doc.Source(), err)
		}
	}
	return len(docs), nil
}

// Search embeds the query, fetches a relevance-ranked candidate pool, and
// re-ranks it with maximal marginal relevance so results cover distinct
// sources rather than near-duplicate chunks. Returns up to TopK results,
// fewer when the index holds fewer chunks, never an error for sparse indexes.
func (ix *Index) Search(ctx context.Context, query string) ([]semantic.SearchResult, error) {
	if !ix.ready() {
		return nil, domain.ErrIndexNotInitialized
	}
	if err := domain.ValidateQueryText(query); err != nil {
		return nil, err
	}

	qvec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("knowledge: embed query: %w", err)
	}

	cands, err := ix.backend.Search(ctx, qvec, ix.FetchK)
	if err != nil {
		return nil, fmt.Errorf("knowledge: backend search: %w", err)
	}
	if len(cands) == 0 {
		return nil, nil
	}

	records := make([]semantic.VectorRecord, len(cands))
	for i, c := range cands {
		records[i] = c.Record
	}

	picked := semantic.MMR(qvec, records, ix.TopK, ix.Lambda)
	results := make([]semantic.SearchResult, len(picked))
	for i, idx := range picked {
		results[i] = semantic.ResultFromRecord(cands[idx].Record, cands[idx].Score)
	}
	return results, nil
}

// Stats reports chunk count and embedder identity.
func (ix *Index) Stats(ctx context.Context) (Stats, error) {
	count, err := ix.backend.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("knowledge: count backend: %w", err)
	}
	return Stats{
		Chunks:      count,
		Model:       ix.embedder.Model(),
		Dimension:   ix.embedder.Dimension(),
		Initialized: ix.ready(),
	}, nil
}

func (ix *Index) ready() bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.initialized
}
