package semantic

import (
	"context"
	"math"
	"testing"
)

func TestHashEmbedderDeterministic(t *testing.T) {
	e := NewHashEmbedder(64)
	a, err := e.Embed(context.Background(), "solar panels on the roof")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	b, _ := e.Embed(context.Background(), "solar panels on the roof")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding differs at %d", i)
		}
	}
}

func TestHashEmbedderNormalized(t *testing.T) {
	e := NewHashEmbedder(128)
	vec, _ := e.Embed(context.Background(), "cycling to work reduces emissions")
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if math.Abs(sum-1.0) > 1e-5 {
		t.Fatalf("vector norm^2 = %v, want 1", sum)
	}
}

func TestHashEmbedderDimension(t *testing.T) {
	if got := NewHashEmbedder(0).Dimension(); got != DefaultDimension {
		t.Fatalf("default dimension = %d, want %d", got, DefaultDimension)
	}
	if got := NewHashEmbedder(32).Dimension(); got != 32 {
		t.Fatalf("dimension = %d, want 32", got)
	}
}

func TestHashEmbedderSimilarTextsCloser(t *testing.T) {
	e := NewHashEmbedder(256)
	ctx := context.Background()
	base, _ := e.Embed(ctx, "replace old bulbs with LED lighting")
	near, _ := e.Embed(ctx, "replace incandescent bulbs with LED lighting")
	far, _ := e.Embed(ctx, "compost vegetable scraps in the garden")

	if Cosine(base, near) <= Cosine(base, far) {
		t.Fatal("related text should score higher than unrelated text")
	}
}

func TestEmbedBatchOrder(t *testing.T) {
	e := NewHashEmbedder(64)
	texts := []string{"first text", "second text", "third text"}
	batch, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(batch) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(batch), len(texts))
	}
	for i, text := range texts {
		single, _ := e.Embed(context.Background(), text)
		for j := range single {
			if batch[i][j] != single[j] {
				t.Fatalf("batch[%d] differs from single embed", i)
			}
		}
	}
}
