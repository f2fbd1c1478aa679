// Package graph provides the HTTP client for the knowledge graph
// collaborator: ad-hoc tabular queries plus the per-document entity graph.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hyperjump/bunsho/internal/dmserr"
	"go.uber.org/zap"
)

// Row is one tabular result row from a graph query.
type Row map[string]any

// DocumentGraph is the entity graph stored for one document.
type DocumentGraph struct {
	Document      map[string]any   `json:"document"`
	Entities      []map[string]any `json:"entities"`
	Relationships []map[string]any `json:"relationships"`
}

// Client talks to the knowledge graph service.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *zap.Logger // optional
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for the graph service at baseURL.
func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query runs a graph query with params and returns the flattened rows.
// The service wraps results in per-statement envelopes; both the enveloped
// and the bare row forms are accepted.
func (c *Client) Query(ctx context.Context, query string, params map[string]any) ([]Row, error) {
	if params == nil {
		params = map[string]any{}
	}
	data, err := json.Marshal(map[string]any{"query": query, "params": params})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		Result json.RawMessage `json:"result"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	rows := flattenRows(out.Result)
	if c.logger != nil {
		c.logger.Debug("graph query", zap.Int("rows", len(rows)))
	}
	return rows, nil
}

// Document fetches the entity graph for one document id.
func (c *Client) Document(ctx context.Context, docID string) (*DocumentGraph, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/graph/"+docID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	var out DocumentGraph
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EntitiesByType lists stored entities of one type.
func (c *Client) EntitiesByType(ctx context.Context, entityType string, limit int) ([]Row, error) {
	url := fmt.Sprintf("%s/entities/%s?limit=%d", c.baseURL, entityType, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	var out struct {
		Entities []Row `json:"entities"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.Entities, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return dmserr.Network("knowledge graph", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return dmserr.Unavailable("knowledge graph", fmt.Errorf("status %d", resp.StatusCode))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return dmserr.Unavailable("knowledge graph", fmt.Errorf("bad response: %w", err))
	}
	return nil
}

// flattenRows accepts either a bare row list or a list of statement
// envelopes holding a "result" row list, and returns the rows.
func flattenRows(raw json.RawMessage) []Row {
	if len(raw) == 0 {
		return nil
	}
	var bare []Row
	if err := json.Unmarshal(raw, &bare); err == nil && looksLikeRows(bare) {
		return bare
	}
	var envelopes []struct {
		Result []Row `json:"result"`
	}
	if err := json.Unmarshal(raw, &envelopes); err == nil {
		var rows []Row
		for _, env := range envelopes {
			rows = append(rows, env.Result...)
		}
		return rows
	}
	return nil
}

// looksLikeRows rejects a bare decode that only matched statement
// envelopes (every element a lone "result"/"status" wrapper).
func looksLikeRows(rows []Row) bool {
	for _, r := range rows {
		if _, ok := r["result"]; ok {
			if _, ok := r["status"]; ok {
				return false
			}
		}
	}
	return true
}
