// Package store implements the Pipeline Store: a single-file,
// append-overwrite durable map from pipeline identifier to
// domain.PipelineRecord. It is the only shared mutable resource the
// process owns; every mutation serializes the full map and atomically
// replaces the backing file, the way the teacher's internal/config
// Manager treats its backing file as the single source of truth.
package store

import (
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/alvarolopez/sqaaas-api-server/internal/apperr"
	"github.com/alvarolopez/sqaaas-api-server/internal/domain"
)

// Store is a durable, process-wide map of pipeline records.
type Store struct {
	mu   sync.RWMutex
	path string
	data map[string]domain.PipelineRecord
}

// Open loads an existing store file, if any, and returns a ready Store.
// A missing file is not an error: the store starts empty and the file is
// created on the first write.
func Open(path string) (*Store, error) {
	s := &Store{path: path, data: map[string]domain.PipelineRecord{}}
	if err := s.loadAll(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) loadAll() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return apperr.Fatal("store: reading %s: %v", s.path, err)
	}
	if len(b) == 0 {
		return nil
	}
	var data map[string]domain.PipelineRecord
	if err := yaml.Unmarshal(b, &data); err != nil {
		return apperr.Fatal("store: decoding %s: %v", s.path, err)
	}
	s.data = data
	return nil
}

// Get returns the record for id, or ok=false if it does not exist.
func (s *Store) Get(id string) (domain.PipelineRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data[id]
	if !ok {
		return domain.PipelineRecord{}, false
	}
	return rec.Clone(), true
}

// List returns every stored record, in no particular order.
func (s *Store) List() []domain.PipelineRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PipelineRecord, 0, len(s.data))
	for _, rec := range s.data {
		out = append(out, rec.Clone())
	}
	return out
}

// Put inserts or replaces the record for id and persists the whole map.
func (s *Store) Put(id string, rec domain.PipelineRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = rec.Clone()
	return s.flushLocked()
}

// Delete removes id and persists the whole map. Deleting an absent id is
// a no-op (the orchestrator is responsible for the 404 semantics).
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return s.flushLocked()
}

// UpdateCI applies fn to the stored record's CI binding and persists the
// result. fn may mutate rec.CI in place or replace it outright.
func (s *Store) UpdateCI(id string, fn func(rec *domain.PipelineRecord)) (domain.PipelineRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.data[id]
	if !ok {
		return domain.PipelineRecord{}, apperr.NotFound("pipeline %q not found", id)
	}
	fn(&rec)
	s.data[id] = rec
	if err := s.flushLocked(); err != nil {
		return domain.PipelineRecord{}, err
	}
	return rec.Clone(), nil
}

// flushLocked serializes the whole map and atomically replaces the
// backing file. Callers must hold s.mu.
func (s *Store) flushLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return apperr.Fatal("store: creating parent directory: %v", err)
	}

	b, err := yaml.Marshal(s.data)
	if err != nil {
		return apperr.Fatal("store: encoding: %v", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".store-*.tmp")
	if err != nil {
		return apperr.Fatal("store: creating temp file: %v", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return apperr.Fatal("store: writing temp file: %v", err)
	}
	if err := tmp.Close(); err != nil {
		return apperr.Fatal("store: closing temp file: %v", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return apperr.Fatal("store: replacing %s: %v", s.path, err)
	}
	return nil
}
