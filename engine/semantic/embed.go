package semantic

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultDimension matches the all-MiniLM class of sentence embedders.
const DefaultDimension = 384

// HashEmbedder is a deterministic, dependency-free embedder. Tokens and
// token bigrams are hashed into a fixed-dimension signed feature vector,
// then L2-normalized. Identical input always yields identical output, so
// retrieval built on it is fully reproducible.
//
// It is the default backend for local mode and tests; production setups
// swap in an external embedding collaborator behind the same interface.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a HashEmbedder. A non-positive dim falls back to
// DefaultDimension.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &HashEmbedder{dim: dim}
}

// Dimension returns the embedding vector length.
func (e *HashEmbedder) Dimension() int { return e.dim }

// Model returns the embedding model identifier.
func (e *HashEmbedder) Model() string { return "hash-v1" }

// Embed produces the embedding for one text.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)
	tokens := tokenize(text)

	for _, tok := range tokens {
		e.addFeature(vec, tok, 1.0)
	}
	// Bigrams capture a little word order.
	for i := 0; i+1 < len(tokens); i++ {
		e.addFeature(vec, tokens[i]+" "+tokens[i+1], 0.5)
	}

	normalize(vec)
	return vec, nil
}

// EmbedBatch embeds texts one by one, preserving input order.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// addFeature hashes a feature into a bucket with a hash-derived sign.
func (e *HashEmbedder) addFeature(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()

	bucket := int(sum % uint64(e.dim))
	sign := float32(1)
	if (sum>>63)&1 == 1 {
		sign = -1
	}
	vec[bucket] += sign * weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
