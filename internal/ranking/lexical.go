// Package ranking implements the deterministic local ranking function used
// when remote semantic search is unavailable. It is pure: no filesystem or
// network state, unit-testable in isolation.
package ranking

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/bunsho/internal/models"
)

// MaxResults caps how many hits a ranking pass returns.
const MaxResults = 10

// Per-token weights for the accumulated score.
const (
	nameExactWeight    = 1.0
	nameContainsWeight = 0.6
	tagExactWeight     = 0.8
	tagContainsWeight  = 0.4
	ocrContainsWeight  = 0.3
)

// snippet window around the first matching token in the OCR text.
const (
	snippetBefore = 50
	snippetAfter  = 150
)

// LexicalScorer ranks documents by lexical overlap with a query.
type LexicalScorer struct{}

// NewLexicalScorer creates a LexicalScorer.
func NewLexicalScorer() *LexicalScorer {
	return &LexicalScorer{}
}

// Tokenize lowercases the query, splits on whitespace, and discards tokens
// of length <= 1.
func Tokenize(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// Rank scores every document against the query, discards zero scores, sorts
// descending, and returns at most MaxResults results. The final score is
// the accumulated per-token score normalized by token count and clamped to 1.0.
func (s *LexicalScorer) Rank(query string, docs []*models.DocumentRecord) []models.SearchResult {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	results := make([]models.SearchResult, 0, len(docs))
	for _, doc := range docs {
		score := s.score(tokens, doc)
		if score == 0 {
			continue
		}
		results = append(results, models.SearchResult{
			Document: doc,
			Score:    score,
			Snippet:  Snippet(doc, tokens[0]),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > MaxResults {
		results = results[:MaxResults]
	}
	return results
}

// score accumulates the per-token weights and normalizes by token count.
func (s *LexicalScorer) score(tokens []string, doc *models.DocumentRecord) float64 {
	name := strings.ToLower(doc.Name)
	ocr := strings.ToLower(doc.OCRText)

	accumulated := 0.0
	for _, t := range tokens {
		switch {
		case name == t:
			accumulated += nameExactWeight
		case strings.Contains(name, t):
			accumulated += nameContainsWeight
		}
		for _, tag := range doc.Tags {
			lower := strings.ToLower(tag)
			if lower == t {
				accumulated += tagExactWeight
			} else if strings.Contains(lower, t) {
				accumulated += tagContainsWeight
			}
		}
		if ocr != "" && strings.Contains(ocr, t) {
			accumulated += ocrContainsWeight
		}
	}

	final := accumulated / float64(len(tokens))
	if final > 1.0 {
		final = 1.0
	}
	return final
}

// Snippet locates the first case-insensitive occurrence of token in the
// document's OCR text and returns a window from max(0, idx-50) to
// min(len, idx+150), with "..." affixes when the window is clipped. When
// the OCR text is absent or the token does not occur, the document name is
// the snippet.
func Snippet(doc *models.DocumentRecord, token string) string {
	if doc.OCRText == "" {
		return doc.Name
	}
	idx := strings.Index(strings.ToLower(doc.OCRText), token)
	if idx < 0 {
		return doc.Name
	}
	start := idx - snippetBefore
	if start < 0 {
		start = 0
	}
	end := idx + snippetAfter
	if end > len(doc.OCRText) {
		end = len(doc.OCRText)
	}
	// The window offsets are byte positions; snap them to rune boundaries
	// so a multi-byte character at either edge is never split.
	for start > 0 && !utf8.RuneStart(doc.OCRText[start]) {
		start--
	}
	for end < len(doc.OCRText) && !utf8.RuneStart(doc.OCRText[end]) {
		end++
	}
	snippet := doc.OCRText[start:end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(doc.OCRText) {
		snippet = snippet + "..."
	}
	return snippet
}
