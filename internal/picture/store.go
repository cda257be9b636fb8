package picture

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// ErrRecordNotFound is returned when no placeholder record exists for a path.
var ErrRecordNotFound = errors.New("placeholder record not found")

// RecordStore persists PlaceholderRecords as JSON files at <DataDir>/<rel>.json.
// Reads are memoized for the lifetime of the store.
type RecordStore struct {
	dir   string
	cache FSCache

	mu      sync.RWMutex
	records map[string]*PlaceholderRecord
}

// NewRecordStore returns a store rooted at dataDir.
func NewRecordStore(dataDir string) *RecordStore {
	return &RecordStore{dir: dataDir, records: make(map[string]*PlaceholderRecord)}
}

// Path returns the file backing the record for rel.
func (s *RecordStore) Path(rel string) string {
	return filepath.Join(s.dir, filepath.FromSlash(rel)+".json")
}

// Put writes rec, replacing any previous record for the same path.
func (s *RecordStore) Put(rec *PlaceholderRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if err := s.cache.Write(s.Path(rec.Path), func(w io.Writer) error {
		_, werr := w.Write(data)
		return werr
	}); err != nil {
		return fmt.Errorf("write placeholder record %s: %w", rec.Path, err)
	}
	s.mu.Lock()
	s.records[rec.Path] = rec
	s.mu.Unlock()
	return nil
}

// Get returns the record for rel or ErrRecordNotFound.
func (s *RecordStore) Get(rel string) (*PlaceholderRecord, error) {
	s.mu.RLock()
	rec, ok := s.records[rel]
	s.mu.RUnlock()
	if ok {
		return rec, nil
	}

	data, err := os.ReadFile(s.Path(rel))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	rec = &PlaceholderRecord{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("decode placeholder record %s: %w", rel, err)
	}

	s.mu.Lock()
	s.records[rel] = rec
	s.mu.Unlock()
	return rec, nil
}
