// Package search dispatches queries between the remote semantic search
// collaborator and the deterministic local fallback ranking. Search always
// degrades rather than fails: callers never see a remote outage as an error.
package search

import (
	"context"
	"sort"
	"strings"

	"github.com/hyperjump/bunsho/internal/index"
	"github.com/hyperjump/bunsho/internal/models"
	"github.com/hyperjump/bunsho/internal/ranking"
	"github.com/hyperjump/bunsho/internal/semantic"
	"github.com/hyperjump/bunsho/pkg/utils"
	"go.uber.org/zap"
)

// tagQueryPrefix marks a literal tag query that bypasses ranking entirely.
const tagQueryPrefix = "tag:"

// snippetLen is the remote-result snippet length.
const snippetLen = 200

// Remote is the search collaborator consumed by the router.
type Remote interface {
	Search(ctx context.Context, query string, limit int) ([]semantic.RemoteResult, error)
}

// Router executes queries: literal tag queries against the index, otherwise
// remote semantic search with a silent fallback to the lexical scorer.
type Router struct {
	store  *index.Store
	remote Remote
	scorer *ranking.LexicalScorer
	logger *zap.Logger // optional
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithLogger sets a logger. Fallback use is only observable here.
func WithLogger(l *zap.Logger) RouterOption {
	return func(r *Router) { r.logger = l }
}

// NewRouter creates a router. remote may be nil, in which case every
// non-tag query uses the lexical fallback.
func NewRouter(store *index.Store, remote Remote, opts ...RouterOption) *Router {
	r := &Router{
		store:  store,
		remote: remote,
		scorer: ranking.NewLexicalScorer(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Search returns up to ten results ordered by descending score.
func (r *Router) Search(ctx context.Context, query string) []models.SearchResult {
	query = strings.TrimSpace(query)
	if strings.HasPrefix(query, tagQueryPrefix) {
		return r.tagSearch(strings.TrimSpace(strings.TrimPrefix(query, tagQueryPrefix)))
	}

	if r.remote != nil {
		remoteResults, err := r.remote.Search(ctx, query, ranking.MaxResults)
		if err == nil {
			return r.mapRemote(remoteResults)
		}
		if r.logger != nil {
			r.logger.Warn("remote search unavailable, using lexical fallback",
				zap.String("query", query), zap.Error(err))
		}
	}

	return r.scorer.Rank(query, r.store.All())
}

// tagSearch returns every record carrying the tag, score 1.0. This path
// never calls the remote collaborator.
func (r *Router) tagSearch(tag string) []models.SearchResult {
	var results []models.SearchResult
	for _, rec := range r.store.All() {
		if rec.HasTag(tag) {
			results = append(results, models.SearchResult{
				Document: rec,
				Score:    1.0,
				Snippet:  "Tag Match: " + tag,
			})
		}
	}
	return results
}

// mapRemote converts remote hits into SearchResults, ordered by descending
// score. Hits whose id is no longer tracked are dropped; the remote index
// may lag behind deletions. The service orders by distance, but a hit
// without a distance maps to the neutral 0.5 and may outrank later hits,
// so the mapped results are re-sorted before capping.
func (r *Router) mapRemote(remoteResults []semantic.RemoteResult) []models.SearchResult {
	results := make([]models.SearchResult, 0, len(remoteResults))
	for _, rr := range remoteResults {
		doc, ok := r.store.GetByID(rr.ID)
		if !ok {
			continue
		}
		results = append(results, models.SearchResult{
			Document: doc,
			Score:    remoteScore(rr.Distance),
			Snippet:  utils.Truncate(rr.Text, snippetLen),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > ranking.MaxResults {
		results = results[:ranking.MaxResults]
	}
	return results
}

// remoteScore maps a reported distance into [0,1]. A missing distance maps
// to the neutral 0.5.
func remoteScore(distance *float64) float64 {
	if distance == nil {
		return 0.5
	}
	return 1.0 / (1.0 + *distance)
}
