// Package semantic provides the HTTP client for the remote semantic search
// collaborator. The engine never computes embeddings itself; it hands
// document text to this service and asks it for nearest neighbours.
package semantic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hyperjump/bunsho/internal/dmserr"
	"github.com/hyperjump/bunsho/internal/models"
	"go.uber.org/zap"
)

// RemoteResult is one hit returned by the search service. Distance is nil
// when the service did not report one.
type RemoteResult struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
	Distance *float64       `json:"distance"`
}

// Client talks to the semantic search service.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	logger  *zap.Logger // optional
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithAPIKey sets the X-API-KEY header sent on every request.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) { c.apiKey = key }
}

// NewClient creates a client for the service at baseURL. Requests are
// bounded by timeout; in-flight calls are not cancellable mid-request
// beyond that bound and the caller's context.
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

// Search asks the service for the limit nearest documents to query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]RemoteResult, error) {
	body := map[string]any{"query": query, "limit": limit}
	var out struct {
		Results []RemoteResult `json:"results"`
	}
	if err := c.post(ctx, "/search", body, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// Index upserts a document's text into the remote index so it becomes
// searchable. The service owns the embedding.
func (c *Client) Index(ctx context.Context, rec *models.DocumentRecord, content string) error {
	body := map[string]any{
		"id":      rec.ID,
		"name":    rec.Name,
		"path":    rec.Path,
		"type":    rec.Type,
		"content": content,
		"tags":    rec.Tags,
	}
	return c.post(ctx, "/index", body, nil)
}

// Delete removes a document from the remote index.
func (c *Client) Delete(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/index/"+id, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	return c.do(req, nil)
}

// Health checks the service's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	return c.do(req, nil)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return dmserr.Network("semantic search", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return dmserr.Unavailable("semantic search", fmt.Errorf("status %d", resp.StatusCode))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return dmserr.Unavailable("semantic search", fmt.Errorf("bad response: %w", err))
	}
	if c.logger != nil {
		c.logger.Debug("semantic search response", zap.String("url", req.URL.Path))
	}
	return nil
}
