package semantic

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Candidate is a stored record paired with its query similarity.
type Candidate struct {
	Record VectorRecord
	Score  float32
}

// LocalIndex is an exact nearest-neighbor index over in-memory records with
// JSON file persistence. It covers local mode and tests; the Qdrant-backed
// VectorStore serves the same role for deployed setups.
type LocalIndex struct {
	mu      sync.RWMutex
	path    string
	records []VectorRecord
}

// localSnapshot is the on-disk shape of a LocalIndex.
type localSnapshot struct {
	Records []VectorRecord `json:"records"`
}

// OpenLocalIndex loads the index at path, or starts empty if the file does
// not exist yet. An empty path keeps the index memory-only.
func OpenLocalIndex(path string) (*LocalIndex, error) {
	idx := &LocalIndex{path: path}
	if path == "" {
		return idx, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("semantic: read index %s: %w", path, err)
	}

	var snap localSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("semantic: decode index %s: %w", path, err)
	}
	idx.records = snap.Records
	return idx, nil
}

// Upsert appends or replaces records by ID and persists the index.
func (l *LocalIndex) Upsert(_ context.Context, records []VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	byID := make(map[string]int, len(l.records))
	for i, r := range l.records {
		byID[r.ID] = i
	}
	for _, r := range records {
		if i, ok := byID[r.ID]; ok {
			l.records[i] = r
		} else {
			byID[r.ID] = len(l.records)
			l.records = append(l.records, r)
		}
	}
	return l.persistLocked()
}

// Search returns up to k candidates ordered by cosine similarity descending.
// Scores are clamped to [0,1]. Returns fewer than k only when the index holds
// fewer than k records; never errors on an under-populated index.
func (l *LocalIndex) Search(_ context.Context, embedding []float32, k int) ([]Candidate, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if k <= 0 {
		return nil, nil
	}

	cands := make([]Candidate, 0, len(l.records))
	for _, r := range l.records {
		score := Cosine(embedding, r.Embedding)
		if score < 0 {
			score = 0
		} else if score > 1 {
			score = 1
		}
		cands = append(cands, Candidate{Record: r, Score: score})
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Score > cands[j].Score })

	if len(cands) > k {
		cands = cands[:k]
	}
	return cands, nil
}

// Count returns the number of stored records.
func (l *LocalIndex) Count(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records), nil
}

// Reset drops all records and removes the persisted file.
func (l *LocalIndex) Reset(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = nil
	if l.path == "" {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("semantic: reset index %s: %w", l.path, err)
	}
	return nil
}

// persistLocked writes the snapshot via temp-file rename. Must hold mu.
func (l *LocalIndex) persistLocked() error {
	if l.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("semantic: mkdir for %s: %w", l.path, err)
	}

	data, err := json.Marshal(localSnapshot{Records: l.records})
	if err != nil {
		return fmt.Errorf("semantic: encode index: %w", err)
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("semantic: write index %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("semantic: rename index %s: %w", l.path, err)
	}
	return nil
}
