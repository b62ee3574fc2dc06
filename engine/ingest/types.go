package ingest

import "github.com/ClimateIQ/climateiq-mvp/engine/domain"

// Chunk is a bounded text segment ready for embedding. Metadata is copied
// from the parent document with chunk_index/total_chunks added downstream.
type Chunk struct {
	Text     string            `json:"text"`
	Index    int               `json:"index"`
	Total    int               `json:"total"`
	Metadata map[string]string `json:"metadata"`
}

// ChunkedDoc is a document split into embeddable chunks.
type ChunkedDoc struct {
	Doc    domain.Document
	Chunks []Chunk
}

// EmbeddedDoc is a chunked document with embeddings, index-aligned with
// Chunks.
type EmbeddedDoc struct {
	ChunkedDoc
	Embeddings [][]float32
}
