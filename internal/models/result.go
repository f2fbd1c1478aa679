package models

// SearchResult is a single search hit. Constructed fresh per query, never
// persisted. Score is always in [0,1].
type SearchResult struct {
	Document *DocumentRecord `json:"document"`
	Score    float64         `json:"score"`
	Snippet  string          `json:"snippet"`
}

// ContextFragment is one provenance-tagged piece of evidence assembled for a
// chat turn.
type ContextFragment struct {
	Text       string `json:"text"`
	Provenance string `json:"provenance"`
}

// ContextBundle is the ordered evidence handed to the generation collaborator
// for one chat turn. Sources lists the paths of the documents whose snippets
// contributed, so callers can surface "used these documents" references.
type ContextBundle struct {
	Fragments []ContextFragment `json:"fragments"`
	Sources   []string          `json:"sources"`
}
