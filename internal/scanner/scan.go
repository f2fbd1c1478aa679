// Package scanner discovers documents under a root directory and keeps the
// index reconciled with the filesystem, both via full scans and via
// fsnotify change notifications.
package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hyperjump/bunsho/internal/index"
	"github.com/hyperjump/bunsho/internal/models"
	"go.uber.org/zap"
)

// supportedExtensions is the set of document types the engine tracks.
var supportedExtensions = map[string]bool{
	"pdf":  true,
	"docx": true,
	"doc":  true,
	"txt":  true,
	"md":   true,
	"epub": true,
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"tiff": true,
}

// Supported reports whether the file at path has a tracked extension.
func Supported(path string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return supportedExtensions[ext]
}

// Stats reports the outcome of a full scan. Scans never abort on a single
// file's error; failures are counted and the scan continues.
type Stats struct {
	Added  int `json:"added"`
	Kept   int `json:"kept"`
	Failed int `json:"failed"`
}

// Scan recursively enumerates supported files under root and reconciles
// them into the store. Paths already tracked keep their existing record;
// new paths get a fresh record built from filesystem stat data. Cancellation
// is cooperative, checked once per file.
func Scan(ctx context.Context, root string, store *index.Store, logger *zap.Logger) (Stats, error) {
	var stats Stats
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			stats.Failed++
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".bunsho" {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !Supported(path) {
			return nil
		}
		abs, absErr := filepath.Abs(path)
		if absErr != nil {
			stats.Failed++
			return nil
		}
		if _, ok := store.Get(abs); ok {
			stats.Kept++
			return nil
		}
		info, statErr := d.Info()
		if statErr != nil {
			stats.Failed++
			return nil
		}
		rec := NewRecord(abs, info)
		store.Upsert(rec)
		stats.Added++
		if logger != nil {
			logger.Debug("scan added document", zap.String("path", abs))
		}
		return nil
	})
	return stats, err
}

// NewRecord builds a DocumentRecord for a newly discovered file. The id is
// a UUID assigned once here; it stays stable for the life of the record and
// is independent of the mutable path.
func NewRecord(path string, info os.FileInfo) *models.DocumentRecord {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	// Creation time is not portably available from os.FileInfo; the
	// modification time at first sight stands in for it.
	mod := info.ModTime()
	return &models.DocumentRecord{
		ID:         uuid.New().String(),
		Name:       filepath.Base(path),
		Path:       path,
		Type:       ext,
		Tags:       []string{},
		CreatedAt:  mod,
		ModifiedAt: mod,
	}
}
