package ingest

import (
	"strings"

	"github.com/ClimateIQ/climateiq-mvp/engine/domain"
)

const (
	// DefaultChunkSize is the maximum chunk length in characters.
	DefaultChunkSize = 1000
	// DefaultOverlap is the character overlap between adjacent chunks.
	DefaultOverlap = 200
)

// separators are tried coarsest-first; a finer one is used only when a piece
// still exceeds the chunk size. The empty separator means a hard cut.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", " ", ""}

// Splitter splits document text into bounded, overlapping chunks at natural
// boundaries. Splitting is deterministic: the same input always produces the
// same chunk sequence.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

// NewSplitter creates a Splitter, applying defaults for non-positive values.
// Overlap is clamped below ChunkSize to guarantee forward progress.
func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 2
	}
	return &Splitter{ChunkSize: chunkSize, Overlap: overlap}
}

// SplitText splits raw text into chunks of at most ChunkSize characters with
// at least Overlap characters shared between interior neighbors. Text that
// already fits in one chunk is returned as-is, unsplit.
func (s *Splitter) SplitText(text string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= s.ChunkSize {
		return []string{text}
	}

	parts := s.splitRecursive(text, separators)
	return s.merge(parts)
}

// SplitDocument chunks a document, propagating its metadata to every chunk
// and stamping chunk_index / total_chunks for traceability.
func (s *Splitter) SplitDocument(doc domain.Document) ([]Chunk, error) {
	if err := domain.ValidateDocument(doc); err != nil {
		return nil, err
	}

	texts := s.SplitText(doc.Content)
	chunks := make([]Chunk, len(texts))
	for i, t := range texts {
		meta := make(map[string]string, len(doc.Metadata))
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		chunks[i] = Chunk{
			Text:     t,
			Index:    i,
			Total:    len(texts),
			Metadata: meta,
		}
	}
	return chunks, nil
}

// splitRecursive breaks text into pieces no longer than ChunkSize, trying the
// coarsest separator first.
func (s *Splitter) splitRecursive(text string, seps []string) []string {
	if len(text) <= s.ChunkSize {
		return []string{text}
	}

	sep, rest := pickSeparator(text, seps)
	if sep == "" {
		return s.hardCut(text)
	}

	var parts []string
	for _, piece := range splitKeepSeparator(text, sep) {
		if len(piece) <= s.ChunkSize {
			parts = append(parts, piece)
		} else {
			parts = append(parts, s.splitRecursive(piece, rest)...)
		}
	}
	return parts
}

// merge packs pieces into chunks up to ChunkSize, seeding each new chunk with
// the tail of the previous one so cross-boundary context is preserved.
func (s *Splitter) merge(parts []string) []string {
	var chunks []string
	var buf strings.Builder

	for _, p := range parts {
		if buf.Len() > 0 && buf.Len()+len(p) > s.ChunkSize {
			chunk := buf.String()
			chunks = append(chunks, chunk)
			buf.Reset()

			tail := lastChars(chunk, s.Overlap)
			if len(tail)+len(p) > s.ChunkSize {
				tail = lastChars(chunk, s.ChunkSize-len(p))
			}
			buf.WriteString(tail)
		}
		buf.WriteString(p)
	}
	if buf.Len() > 0 {
		chunks = append(chunks, buf.String())
	}
	return chunks
}

// hardCut slices text into ChunkSize windows on rune boundaries. Last resort
// for separator-free runs longer than the chunk size.
func (s *Splitter) hardCut(text string) []string {
	runes := []rune(text)
	var parts []string
	for start := 0; start < len(runes); {
		end := start
		byteLen := 0
		for end < len(runes) {
			rl := len(string(runes[end]))
			if byteLen+rl > s.ChunkSize {
				break
			}
			byteLen += rl
			end++
		}
		if end == start {
			end++ // single rune wider than ChunkSize, emit it anyway
		}
		parts = append(parts, string(runes[start:end]))
		start = end
	}
	return parts
}

// pickSeparator returns the first separator present in text plus the finer
// ones after it.
func pickSeparator(text string, seps []string) (string, []string) {
	for i, sep := range seps {
		if sep == "" {
			return "", nil
		}
		if strings.Contains(text, sep) {
			return sep, seps[i+1:]
		}
	}
	return "", nil
}

// splitKeepSeparator splits text on sep, keeping sep attached to the piece
// that precedes it so no characters are lost.
func splitKeepSeparator(text, sep string) []string {
	raw := strings.SplitAfter(text, sep)
	parts := raw[:0]
	for _, p := range raw {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// lastChars returns the trailing n bytes of s, aligned to a rune boundary.
func lastChars(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	cut := len(s) - n
	for cut < len(s) && !isRuneStart(s[cut]) {
		cut++
	}
	return s[cut:]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
