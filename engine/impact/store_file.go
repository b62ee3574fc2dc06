package impact

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ClimateIQ/climateiq-mvp/engine/domain"
)

// FileStore persists one append-only JSON file per user under a base
// directory. It suits local and single-node deployments; SQLiteStore covers
// anything heavier.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore creates the base directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, domain.NewPersistenceError("mkdir", dir, nil, err)
	}
	return &FileStore{dir: dir}, nil
}

// userPath sanitizes the user ID into a file name so IDs cannot escape the
// base directory.
func (s *FileStore) userPath(userID string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, userID)
	return filepath.Join(s.dir, safe+".json")
}

// Append writes a record to the user's ledger file via read-modify-rename.
// On failure the attempted record travels with the error so the caller can
// retry.
func (s *FileStore) Append(_ context.Context, rec domain.ActionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.userPath(rec.UserID)
	recs, err := s.readFile(path)
	if err != nil {
		return domain.NewPersistenceError("read", path, rec, err)
	}
	recs = append(recs, rec)

	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return domain.NewPersistenceError("encode", path, rec, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return domain.NewPersistenceError("write", tmp, rec, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return domain.NewPersistenceError("rename", path, rec, err)
	}
	return nil
}

// ListByUser returns all records for a user, empty for unknown users.
func (s *FileStore) ListByUser(_ context.Context, userID string) ([]domain.ActionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.userPath(userID)
	recs, err := s.readFile(path)
	if err != nil {
		return nil, domain.NewPersistenceError("read", path, nil, err)
	}
	return recs, nil
}

// Users lists every user ID with a ledger file.
func (s *FileStore) Users(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, domain.NewPersistenceError("readdir", s.dir, nil, err)
	}
	var users []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		users = append(users, strings.TrimSuffix(name, ".json"))
	}
	return users, nil
}

func (s *FileStore) readFile(path string) ([]domain.ActionRecord, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var recs []domain.ActionRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return recs, nil
}
