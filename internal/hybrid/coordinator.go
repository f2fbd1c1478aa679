// Package hybrid merges knowledge-graph and search evidence into a single
// provenance-tagged context bundle for a downstream generator.
package hybrid

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/bunsho/internal/graph"
	"github.com/hyperjump/bunsho/internal/models"
	"go.uber.org/zap"
)

// topSearchResults is how many search snippets enter the bundle.
const topSearchResults = 3

// intentKeywords mark prompts that ask about structured entities
// (who/which/organization/person/connection/relationship). The corpus is
// German-first, so the keyword set is too.
var intentKeywords = []string{
	"wer", "welche", "organisation", "person",
	"verbindung", "beziehung", "zusammenhang",
}

// entityTypeKeywords select a type-filtered graph query. Ordered so that a
// prompt containing several type keywords always picks the same one.
var entityTypeKeywords = []struct {
	keyword    string
	entityType string
}{
	{"organisation", "organization"},
	{"organization", "organization"},
	{"person", "person"},
	{"datum", "date"},
	{"date", "date"},
	{"betrag", "amount"},
	{"amount", "amount"},
}

// Searcher is the search router consumed by the coordinator.
type Searcher interface {
	Search(ctx context.Context, query string) []models.SearchResult
}

// GraphSource is the knowledge graph collaborator.
type GraphSource interface {
	Query(ctx context.Context, query string, params map[string]any) ([]graph.Row, error)
}

// Generator is the generation collaborator. The coordinator builds the
// context text; the generator owns the model call.
type Generator interface {
	Generate(ctx context.Context, prompt, contextText string) (string, error)
}

// Answer is one completed chat turn: the generated text plus the document
// paths whose snippets backed it.
type Answer struct {
	Text    string   `json:"text"`
	Sources []string `json:"sources"`
}

// Coordinator decides, per prompt, how to blend graph and search evidence.
type Coordinator struct {
	searcher Searcher
	graph    GraphSource
	gen      Generator
	logger   *zap.Logger // optional
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithLogger sets a logger; graph-path degradation is only observable here.
func WithLogger(l *zap.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = l }
}

// NewCoordinator creates a coordinator. graphSource and gen may be nil;
// a nil graph source simply never contributes evidence, and Answer requires
// a generator only at call time.
func NewCoordinator(searcher Searcher, graphSource GraphSource, gen Generator, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{searcher: searcher, graph: graphSource, gen: gen}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WantsGraph reports whether the prompt shows structured-entity intent.
func WantsGraph(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, kw := range intentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// graphQueryFor picks the graph query for a prompt: type-filtered when a
// type keyword occurs, otherwise the generic most-recent-entities query.
func graphQueryFor(prompt string) (string, map[string]any) {
	lower := strings.ToLower(prompt)
	for _, e := range entityTypeKeywords {
		if strings.Contains(lower, e.keyword) {
			return "SELECT * FROM entity WHERE type = $type ORDER BY created_at DESC LIMIT 10",
				map[string]any{"type": e.entityType}
		}
	}
	return "SELECT * FROM entity ORDER BY created_at DESC LIMIT 20", nil
}

// BuildContext assembles the context bundle for one chat turn: the active
// document excerpt when present, then graph findings when the prompt asked
// for them and the graph call succeeded, then the top search snippets with
// their source paths. Graph and search evidence are additive, never
// mutually exclusive; a graph failure degrades to search-only context and
// never aborts the turn.
func (c *Coordinator) BuildContext(ctx context.Context, prompt, activeExcerpt string) *models.ContextBundle {
	bundle := &models.ContextBundle{}

	if activeExcerpt != "" {
		bundle.Fragments = append(bundle.Fragments, models.ContextFragment{
			Text:       activeExcerpt,
			Provenance: "active-document",
		})
	}

	if c.graph != nil && WantsGraph(prompt) {
		query, params := graphQueryFor(prompt)
		rows, err := c.graph.Query(ctx, query, params)
		if err != nil {
			if c.logger != nil {
				c.logger.Warn("graph query failed, continuing with search-only context", zap.Error(err))
			}
		} else if len(rows) > 0 {
			bundle.Fragments = append(bundle.Fragments, models.ContextFragment{
				Text:       formatRows(rows),
				Provenance: "knowledge-graph",
			})
		}
	}

	results := c.searcher.Search(ctx, prompt)
	if len(results) > topSearchResults {
		results = results[:topSearchResults]
	}
	for _, res := range results {
		bundle.Fragments = append(bundle.Fragments, models.ContextFragment{
			Text:       res.Snippet,
			Provenance: res.Document.Path,
		})
		bundle.Sources = append(bundle.Sources, res.Document.Path)
	}

	return bundle
}

// Answer builds the context bundle for the prompt and hands it to the
// generator, returning the generated text plus the provenance list.
func (c *Coordinator) Answer(ctx context.Context, prompt, activeExcerpt string) (*Answer, error) {
	if c.gen == nil {
		return nil, fmt.Errorf("no generator configured")
	}
	bundle := c.BuildContext(ctx, prompt, activeExcerpt)
	text, err := c.gen.Generate(ctx, prompt, ContextText(bundle))
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}
	return &Answer{Text: text, Sources: bundle.Sources}, nil
}

// ContextText renders a bundle into the flat context string handed to the
// generator, each fragment prefixed with its provenance.
func ContextText(bundle *models.ContextBundle) string {
	var b strings.Builder
	for i, frag := range bundle.Fragments {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%s]\n%s", frag.Provenance, frag.Text)
	}
	return b.String()
}

// formatRows renders graph rows as "value (type)" lines.
func formatRows(rows []graph.Row) string {
	var b strings.Builder
	for _, row := range rows {
		value, _ := row["value"].(string)
		typ, _ := row["type"].(string)
		if value == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		if typ != "" {
			fmt.Fprintf(&b, "%s (%s)", value, typ)
		} else {
			b.WriteString(value)
		}
	}
	return b.String()
}
