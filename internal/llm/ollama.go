// Package llm provides a generation collaborator backed by a local Ollama
// server.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hyperjump/bunsho/internal/dmserr"
)

// OllamaGenerator implements hybrid.Generator via the Ollama generate API.
type OllamaGenerator struct {
	baseURL string
	model   string
	httpc   *http.Client
}

// NewOllamaGenerator creates a generator for the Ollama server at baseURL
// using the given model.
func NewOllamaGenerator(baseURL, model string, timeout time.Duration) *OllamaGenerator {
	return &OllamaGenerator{
		baseURL: baseURL,
		model:   model,
		httpc:   &http.Client{Timeout: timeout},
	}
}

// Generate answers the prompt grounded in contextText.
func (g *OllamaGenerator) Generate(ctx context.Context, prompt, contextText string) (string, error) {
	full := prompt
	if contextText != "" {
		full = fmt.Sprintf(
			"Beantworte die Frage anhand des folgenden Kontexts. Wenn der Kontext nicht ausreicht, sage das.\n\nKontext:\n%s\n\nFrage: %s",
			contextText, prompt)
	}
	body, err := json.Marshal(map[string]any{
		"model":  g.model,
		"prompt": full,
		"stream": false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpc.Do(req)
	if err != nil {
		return "", dmserr.Network("generation", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", dmserr.Unavailable("generation", fmt.Errorf("status %d", resp.StatusCode))
	}
	var out struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", dmserr.Unavailable("generation", fmt.Errorf("bad response: %w", err))
	}
	return out.Response, nil
}
