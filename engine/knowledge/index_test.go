package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/ClimateIQ/climateiq-mvp/engine/domain"
	"github.com/ClimateIQ/climateiq-mvp/engine/semantic"
)

func testIndex(t *testing.T) *Index {
	t.Helper()
	backend, err := semantic.OpenLocalIndex("")
	if err != nil {
		t.Fatalf("OpenLocalIndex: %v", err)
	}
	return NewIndex(backend, semantic.NewHashEmbedder(128), nil, nil)
}

func TestInitializeSeedsEmptyBackend(t *testing.T) {
	ix := testIndex(t)
	ctx := context.Background()

	if err := ix.Initialize(ctx, false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	stats, err := ix.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if !stats.Initialized {
		t.Fatal("index should report initialized")
	}
	if stats.Chunks == 0 {
		t.Fatal("seeding produced no chunks")
	}
	if stats.Model != "hash-v1" || stats.Dimension != 128 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestInitializeAdoptsPopulatedBackend(t *testing.T) {
	backend, _ := semantic.OpenLocalIndex("")
	ctx := context.Background()
	backend.Upsert(ctx, []semantic.VectorRecord{
		{ID: "pre", Embedding: make([]float32, 128), Payload: map[string]any{"content": "existing"}},
	})

	ix := NewIndex(backend, semantic.NewHashEmbedder(128), nil, nil)
	if err := ix.Initialize(ctx, false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	n, _ := backend.Count(ctx)
	if n != 1 {
		t.Fatalf("adopted backend was reseeded, count = %d", n)
	}
}

func TestOperationsBeforeInitialize(t *testing.T) {
	ix := testIndex(t)
	ctx := context.Background()

	if _, err := ix.Search(ctx, "how do I cut emissions"); !errors.Is(err, domain.ErrIndexNotInitialized) {
		t.Fatalf("Search pre-init: %v", err)
	}
	if _, err := ix.AddDocuments(ctx, []domain.Document{{Content: "doc"}}); !errors.Is(err, domain.ErrIndexNotInitialized) {
		t.Fatalf("AddDocuments pre-init: %v", err)
	}
}

func TestSearchReturnsTopK(t *testing.T) {
	ix := testIndex(t)
	ctx := context.Background()
	if err := ix.Initialize(ctx, false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	results, err := ix.Search(ctx, "how can my household reduce carbon emissions")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 || len(results) > DefaultTopK {
		t.Fatalf("got %d results, want 1..%d", len(results), DefaultTopK)
	}
	for i, r := range results {
		if r.Content == "" || r.Source == "" {
			t.Errorf("result %d incomplete: %+v", i, r)
		}
		if r.Score < 0 || r.Score > 1 {
			t.Errorf("result %d score %v outside [0,1]", i, r.Score)
		}
	}
}

func TestSearchFindsRelevantSource(t *testing.T) {
	ix := testIndex(t)
	ix.TopK = 10
	ix.FetchK = 50
	ctx := context.Background()
	if err := ix.Initialize(ctx, false); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	results, err := ix.Search(ctx, "replace incandescent bulbs with LED lighting at home")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	found := false
	for _, r := range results {
		if r.Source == "EPA_Carbon_Calculator" {
			found = true
		}
	}
	if !found {
		t.Fatal("lighting query did not surface the household calculator source")
	}
}

func TestSearchRejectsShortQuery(t *testing.T) {
	ix := testIndex(t)
	ctx := context.Background()
	ix.Initialize(ctx, false)

	if _, err := ix.Search(ctx, "x"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("short query: %v", err)
	}
}

func TestAddDocumentsExtendsIndex(t *testing.T) {
	ix := testIndex(t)
	ctx := context.Background()
	ix.Initialize(ctx, false)

	before, _ := ix.backend.Count(ctx)
	n, err := ix.AddDocuments(ctx, []domain.Document{
		{
			Content:  "District heating networks reuse industrial waste heat for residential buildings.",
			Metadata: map[string]string{"source": "DistrictHeat_Report", "category": "energy"},
		},
	})
	if err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}
	if n != 1 {
		t.Fatalf("added %d, want 1", n)
	}
	after, _ := ix.backend.Count(ctx)
	if after <= before {
		t.Fatalf("chunk count did not grow: %d -> %d", before, after)
	}
}

func TestAddDocumentsReportsPartialProgress(t *testing.T) {
	ix := testIndex(t)
	ctx := context.Background()
	ix.Initialize(ctx, false)

	n, err := ix.AddDocuments(ctx, []domain.Document{
		{Content: "Valid document about heat pump retrofits.", Metadata: map[string]string{"source": "ok"}},
		{}, // empty content fails validation
		{Content: "Never reached.", Metadata: map[string]string{"source": "later"}},
	})
	if err == nil {
		t.Fatal("expected failure on the empty document")
	}
	if n != 1 {
		t.Fatalf("stored %d before failure, want 1", n)
	}
}
