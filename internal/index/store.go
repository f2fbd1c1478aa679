// Package index implements the persisted document index: the canonical
// path -> DocumentRecord map that is the system of record.
//
// The index is serialized as a single JSON document colocated with the
// documents themselves, so copying the documents folder copies the index.
// Every mutating operation updates memory and persists before returning;
// a mutex serializes writers so two interleaved mutations never race on the
// map nor leave the file reflecting only one of two changes.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hyperjump/bunsho/internal/dmserr"
	"github.com/hyperjump/bunsho/internal/models"
	"go.uber.org/zap"
)

// DefaultIndexPath returns the portable index location under the given
// documents root.
func DefaultIndexPath(root string) string {
	return filepath.Join(root, ".bunsho", "index.json")
}

// Store is the mutex-guarded document index.
type Store struct {
	mu         sync.Mutex
	path       string
	legacyPath string
	records    map[string]*models.DocumentRecord
	logger     *zap.Logger // optional; when set, logs persist failures and migrations
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets a logger for persistence diagnostics.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithLegacyPath sets a legacy index location consulted on Load when the
// portable index file is absent. A legacy index is migrated into the
// portable location on the next persist.
func WithLegacyPath(path string) StoreOption {
	return func(s *Store) { s.legacyPath = path }
}

// NewStore creates a store persisting to the given index file path.
func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{
		path:    path,
		records: make(map[string]*models.DocumentRecord),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the persisted index into memory. A missing index file is not an
// error: the store starts empty. When the portable index is absent but a
// legacy index exists, the legacy file is loaded; it is rewritten to the
// portable location by the next persist.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) && s.legacyPath != "" {
		data, err = os.ReadFile(s.legacyPath)
		if err == nil && s.logger != nil {
			s.logger.Info("loaded legacy index, will migrate on next persist",
				zap.String("legacy_path", s.legacyPath), zap.String("path", s.path))
		}
	}
	if os.IsNotExist(err) {
		s.records = make(map[string]*models.DocumentRecord)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}

	records := make(map[string]*models.DocumentRecord)
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to parse index: %w", err)
	}
	s.records = records
	return nil
}

// Get returns a copy of the record at path, or false if untracked.
func (s *Store) Get(path string) (*models.DocumentRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[path]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// GetByID returns a copy of the record with the given id, or false.
func (s *Store) GetByID(id string) (*models.DocumentRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.ID == id {
			return rec.Clone(), true
		}
	}
	return nil, false
}

// Upsert inserts or replaces the record keyed by its path, then persists.
func (s *Store) Upsert(rec *models.DocumentRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Path] = rec.Clone()
	s.persistLocked()
}

// Remove deletes the record at path, then persists. Returns false if the
// path was not tracked (nothing is persisted in that case).
func (s *Store) Remove(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[path]; !ok {
		return false
	}
	delete(s.records, path)
	s.persistLocked()
	return true
}

// SetOCRText attaches extracted text to the record with the given id, then
// persists. Returns ErrFileNotFound for an unknown id.
func (s *Store) SetOCRText(id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.ID == id {
			rec.OCRText = text
			s.persistLocked()
			return nil
		}
	}
	return dmserr.NotFound(id)
}

// Update runs fn against the live record map under the store lock, then
// persists. fn must not retain references past its return. Used for bulk
// mutations (tag rename/delete) that must persist as one write.
func (s *Store) Update(fn func(records map[string]*models.DocumentRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.records)
	s.persistLocked()
}

// All returns copies of every tracked record in unspecified order.
func (s *Store) All() []*models.DocumentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.DocumentRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	return out
}

// Count returns the number of tracked documents.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Recent returns up to n records ordered by ModifiedAt descending.
func (s *Store) Recent(n int) []*models.DocumentRecord {
	all := s.All()
	sort.Slice(all, func(i, j int) bool {
		return all[i].ModifiedAt.After(all[j].ModifiedAt)
	})
	if n >= 0 && n < len(all) {
		all = all[:n]
	}
	return all
}

// Persist serializes the full index to disk.
func (s *Store) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked()
}

// persistLocked persists best-effort: an I/O failure is logged and the
// in-memory state stays authoritative until the next successful persist.
func (s *Store) persistLocked() {
	if err := s.writeLocked(); err != nil && s.logger != nil {
		s.logger.Warn("index persist failed, in-memory state kept", zap.Error(err))
	}
}

// writeLocked writes the index with a write-then-replace strategy so a crash
// mid-write never leaves a partially written index file.
func (s *Store) writeLocked() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".index-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp index: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp index: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace index: %w", err)
	}
	return nil
}
