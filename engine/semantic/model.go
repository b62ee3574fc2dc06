package semantic

import "context"

// SearchResult represents a single vector search hit.
type SearchResult struct {
	ID         string            `json:"id"`
	Score      float32           `json:"score"`
	Content    string            `json:"content"`
	Source     string            `json:"source"`
	Category   string            `json:"category"`
	ChunkIndex int               `json:"chunk_index"`
	Meta       map[string]string `json:"meta,omitempty"`
}

// VectorRecord represents a single embedded chunk to store.
type VectorRecord struct {
	ID        string         `json:"id"`
	Embedding []float32      `json:"embedding"`
	Payload   map[string]any `json:"payload"` // content, source, category, chunk_index, doc_id
}

// Embedder turns text into fixed-dimension vectors. EmbedBatch must return
// vectors in input order, identical to calling Embed per item.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Model() string
}

func payloadString(p map[string]any, key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

func payloadInt(p map[string]any, key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// ResultFromRecord builds a SearchResult from a stored record and score.
func ResultFromRecord(r VectorRecord, score float32) SearchResult {
	sr := SearchResult{
		ID:         r.ID,
		Score:      score,
		Content:    payloadString(r.Payload, "content"),
		Source:     payloadString(r.Payload, "source"),
		Category:   payloadString(r.Payload, "category"),
		ChunkIndex: payloadInt(r.Payload, "chunk_index"),
	}
	for k, v := range r.Payload {
		switch k {
		case "content", "source", "category", "chunk_index":
		default:
			if s, ok := v.(string); ok {
				if sr.Meta == nil {
					sr.Meta = make(map[string]string)
				}
				sr.Meta[k] = s
			}
		}
	}
	return sr
}
