// Package tags mutates the tag sets of records in the index store. Every
// operation persists before returning; durability is preferred over latency.
package tags

import (
	"github.com/hyperjump/bunsho/internal/dmserr"
	"github.com/hyperjump/bunsho/internal/index"
	"github.com/hyperjump/bunsho/internal/models"
	"go.uber.org/zap"
)

// Manager applies tag mutations to the index store.
type Manager struct {
	store  *index.Store
	logger *zap.Logger // optional
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a tag manager over the given store.
func NewManager(store *index.Store, opts ...ManagerOption) *Manager {
	m := &Manager{store: store}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddTag adds tag to the record with the given id. Set union: adding an
// already-present tag is a no-op. Returns ErrFileNotFound for an unknown id.
func (m *Manager) AddTag(id, tag string) error {
	return m.mutateByID(id, func(rec *models.DocumentRecord) {
		if rec.AddTag(tag) && m.logger != nil {
			m.logger.Debug("tag added", zap.String("id", id), zap.String("tag", tag))
		}
	})
}

// RemoveTag removes tag from the record with the given id. Removing an
// absent tag is a no-op. Returns ErrFileNotFound for an unknown id.
func (m *Manager) RemoveTag(id, tag string) error {
	return m.mutateByID(id, func(rec *models.DocumentRecord) {
		if rec.RemoveTag(tag) && m.logger != nil {
			m.logger.Debug("tag removed", zap.String("id", id), zap.String("tag", tag))
		}
	})
}

// RenameTag replaces old with new in every record's tag set and returns the
// number of affected records.
func (m *Manager) RenameTag(old, new string) int {
	affected := 0
	m.store.Update(func(records map[string]*models.DocumentRecord) {
		for _, rec := range records {
			if rec.RemoveTag(old) {
				rec.AddTag(new)
				affected++
			}
		}
	})
	if m.logger != nil {
		m.logger.Debug("tag renamed", zap.String("old", old), zap.String("new", new), zap.Int("affected", affected))
	}
	return affected
}

// DeleteTag removes tag from every record and returns the number of
// affected records.
func (m *Manager) DeleteTag(tag string) int {
	affected := 0
	m.store.Update(func(records map[string]*models.DocumentRecord) {
		for _, rec := range records {
			if rec.RemoveTag(tag) {
				affected++
			}
		}
	})
	if m.logger != nil {
		m.logger.Debug("tag deleted", zap.String("tag", tag), zap.Int("affected", affected))
	}
	return affected
}

// mutateByID locates the record by id inside the store lock, applies fn,
// and persists once.
func (m *Manager) mutateByID(id string, fn func(*models.DocumentRecord)) error {
	found := false
	m.store.Update(func(records map[string]*models.DocumentRecord) {
		for _, rec := range records {
			if rec.ID == id {
				fn(rec)
				found = true
				return
			}
		}
	})
	if !found {
		return dmserr.NotFound(id)
	}
	return nil
}
