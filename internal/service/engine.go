// Package service wires the index store, scanner, watcher, tag manager,
// search router, and hybrid coordinator into one explicit engine object.
// There is no package-global instance; consumers receive the engine by
// reference.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/hyperjump/bunsho/internal/config"
	"github.com/hyperjump/bunsho/internal/dmserr"
	"github.com/hyperjump/bunsho/internal/events"
	"github.com/hyperjump/bunsho/internal/graph"
	"github.com/hyperjump/bunsho/internal/hybrid"
	"github.com/hyperjump/bunsho/internal/index"
	"github.com/hyperjump/bunsho/internal/llm"
	"github.com/hyperjump/bunsho/internal/models"
	"github.com/hyperjump/bunsho/internal/ocr"
	"github.com/hyperjump/bunsho/internal/scanner"
	"github.com/hyperjump/bunsho/internal/search"
	"github.com/hyperjump/bunsho/internal/semantic"
	"github.com/hyperjump/bunsho/internal/tags"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// reindexWorkers bounds how many documents are OCRed and indexed
// concurrently during a batch reindex.
const reindexWorkers = 4

// Engine owns the document index and all collaborator clients.
type Engine struct {
	cfg         *config.Config
	logger      *zap.Logger
	store       *index.Store
	bus         *events.Bus
	watcher     *scanner.Watcher
	tags        *tags.Manager
	router      *search.Router
	coordinator *hybrid.Coordinator
	semantic    *semantic.Client
	ocr         *ocr.Client
}

// New builds an engine from config and loads the persisted index.
func New(cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	indexPath := cfg.Documents.IndexPath
	if indexPath == "" {
		indexPath = index.DefaultIndexPath(cfg.Documents.Root)
	}
	storeOpts := []index.StoreOption{index.WithLogger(logger)}
	if cfg.Documents.LegacyIndexPath != "" {
		storeOpts = append(storeOpts, index.WithLegacyPath(cfg.Documents.LegacyIndexPath))
	}
	store := index.NewStore(indexPath, storeOpts...)
	if err := store.Load(); err != nil {
		return nil, err
	}

	timeout := time.Duration(cfg.Services.TimeoutSeconds) * time.Second
	semanticClient := semantic.NewClient(cfg.Services.SearchURL, timeout,
		semantic.WithLogger(logger), semantic.WithAPIKey(cfg.Services.APIKey))
	graphClient := graph.NewClient(cfg.Services.GraphURL, timeout, graph.WithLogger(logger))
	ocrClient := ocr.NewClient(cfg.Services.OCRURL, timeout)
	generator := llm.NewOllamaGenerator(cfg.Services.OllamaURL, cfg.Services.OllamaModel, timeout)

	bus := events.NewBus()
	router := search.NewRouter(store, semanticClient, search.WithLogger(logger))
	coordinator := hybrid.NewCoordinator(router, graphClient, generator, hybrid.WithLogger(logger))
	watcher := scanner.NewWatcher(cfg.Documents.Root, store, bus,
		scanner.WithLogger(logger),
		scanner.WithDebounce(time.Duration(cfg.Watch.DebounceMS)*time.Millisecond))

	return &Engine{
		cfg:         cfg,
		logger:      logger,
		store:       store,
		bus:         bus,
		watcher:     watcher,
		tags:        tags.NewManager(store, tags.WithLogger(logger)),
		router:      router,
		coordinator: coordinator,
		semantic:    semanticClient,
		ocr:         ocrClient,
	}, nil
}

// Start begins watching the documents root for incremental updates.
func (e *Engine) Start(ctx context.Context) error {
	return e.watcher.Start(ctx)
}

// Stop stops the watcher.
func (e *Engine) Stop() {
	e.watcher.Stop()
}

// Store exposes the index store.
func (e *Engine) Store() *index.Store { return e.store }

// Tags exposes the tag manager.
func (e *Engine) Tags() *tags.Manager { return e.tags }

// Events exposes the change notification bus.
func (e *Engine) Events() *events.Bus { return e.bus }

// ScanAll reconciles the full documents root into the index.
func (e *Engine) ScanAll(ctx context.Context) (scanner.Stats, error) {
	return scanner.Scan(ctx, e.cfg.Documents.Root, e.store, e.logger)
}

// Search executes a query through the router.
func (e *Engine) Search(ctx context.Context, query string) []models.SearchResult {
	return e.router.Search(ctx, query)
}

// Ask answers a free-text prompt with hybrid retrieval context.
func (e *Engine) Ask(ctx context.Context, prompt, activeExcerpt string) (*hybrid.Answer, error) {
	return e.coordinator.Answer(ctx, prompt, activeExcerpt)
}

// Recent returns the n most recently modified documents.
func (e *Engine) Recent(n int) []*models.DocumentRecord {
	return e.store.Recent(n)
}

// DocumentCount returns the number of tracked documents.
func (e *Engine) DocumentCount() int {
	return e.store.Count()
}

// ReindexStats reports the outcome of a batch reindex. Per-item failures
// are counted, not fatal.
type ReindexStats struct {
	Indexed int `json:"indexed"`
	OCRed   int `json:"ocred"`
	Failed  int `json:"failed"`
}

// ocrTypes are the document types whose text comes from the OCR service.
var ocrTypes = map[string]bool{
	"pdf": true, "png": true, "jpg": true, "jpeg": true, "tiff": true,
}

// ReindexAll pushes every tracked document through OCR (where applicable
// and not yet done) and into the remote search index. Cancellation is
// cooperative, checked once per document; in-flight calls are bounded by
// the client timeouts.
func (e *Engine) ReindexAll(ctx context.Context) (ReindexStats, error) {
	var (
		mu    sync.Mutex
		stats ReindexStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reindexWorkers)

	for _, doc := range e.store.All() {
		if err := ctx.Err(); err != nil {
			break
		}
		doc := doc
		g.Go(func() error {
			ocred, err := e.reindexOne(gctx, doc)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.Failed++
				if e.logger != nil {
					e.logger.Warn("reindex failed for document",
						zap.String("path", doc.Path), zap.Error(err))
				}
				return nil
			}
			stats.Indexed++
			if ocred {
				stats.OCRed++
			}
			return nil
		})
	}
	err := g.Wait()
	return stats, err
}

// reindexOne OCRs the document when needed and upserts it into the remote
// search index. Reports whether an OCR pass ran.
func (e *Engine) reindexOne(ctx context.Context, doc *models.DocumentRecord) (bool, error) {
	ocred := false
	if doc.OCRText == "" && ocrTypes[doc.Type] {
		result, err := e.ocr.Recognize(ctx, doc.Path, "")
		if err != nil {
			return false, err
		}
		if err := e.store.SetOCRText(doc.ID, result.Text); err != nil {
			return false, err
		}
		doc.OCRText = result.Text
		ocred = true
	}
	content := doc.OCRText
	if content == "" {
		content = doc.Name
	}
	if err := e.semantic.Index(ctx, doc, content); err != nil {
		return ocred, err
	}
	return ocred, nil
}

// SetOCRText persists externally produced OCR text for a document.
func (e *Engine) SetOCRText(id, text string) error {
	return e.store.SetOCRText(id, text)
}

// RemoveDocument removes a record by id from the local index and,
// best-effort, from the remote search index.
func (e *Engine) RemoveDocument(ctx context.Context, id string) error {
	rec, ok := e.store.GetByID(id)
	if !ok {
		return dmserr.NotFound(id)
	}
	e.store.Remove(rec.Path)
	if err := e.semantic.Delete(ctx, id); err != nil && e.logger != nil {
		e.logger.Warn("remote index delete failed", zap.String("id", id), zap.Error(err))
	}
	return nil
}
