// Package ocr provides the HTTP client for the OCR collaborator. The engine
// never parses file formats itself; it sends a path and persists the text
// the service returns.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hyperjump/bunsho/internal/dmserr"
)

// defaultLanguage covers the German-first corpus with an English fallback.
const defaultLanguage = "deu+eng"

// Result is the recognized text for one file.
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language"`
	Pages      int     `json:"pages"`
}

// Client talks to the OCR service.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient creates a client for the OCR service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
	}
}

// Recognize runs OCR on the file at path. language may be empty to use the
// default.
func (c *Client) Recognize(ctx context.Context, path, language string) (*Result, error) {
	if language == "" {
		language = defaultLanguage
	}
	body, err := json.Marshal(map[string]string{"file": path, "language": language})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ocr", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, dmserr.Network("ocr", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, dmserr.Unavailable("ocr", fmt.Errorf("status %d", resp.StatusCode))
	}
	var out Result
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, dmserr.Unavailable("ocr", fmt.Errorf("bad response: %w", err))
	}
	return &out, nil
}
