/*-------------------------------------------------------------------------
 *
 * pgEdge Hybrid Search
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"pgedge-hybrid-search/internal/logging"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "nomic-embed-text"

	// Ollama may load a model on first use, so the timeout is generous
	ollamaHTTPTimeout = 60 * time.Second
)

// Known dimensions for common Ollama embedding models. Unknown models
// are discovered on first Embed call.
var ollamaModelDimensions = map[string]int{
	"nomic-embed-text":  768,
	"mxbai-embed-large": 1024,
	"all-minilm":        384,
}

var ollamaDimensionsMu sync.RWMutex

// OllamaProvider generates embeddings through a local Ollama server
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

type ollamaEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// Ollama returns one embedding per input text
type ollamaEmbedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// NewOllamaProvider creates an Ollama embedding provider. Empty
// arguments select the local default server and nomic-embed-text.
func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	if model == "" {
		model = defaultOllamaModel
	}

	logging.Debug("embedding provider initialized",
		"provider", "ollama", "model", model, "base_url", baseURL)

	return &OllamaProvider{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: ollamaHTTPTimeout},
	}
}

// Embed generates an embedding vector for the given text
func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	start := time.Now()
	body, err := json.Marshal(ollamaEmbedRequest{Model: p.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := p.baseURL + "/api/embed"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		logging.Error("embedding request failed",
			"provider", "ollama", "url", url, "error", err.Error())
		return nil, fmt.Errorf("failed to connect to Ollama at %s: %w (is Ollama running?)", p.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama request failed with status %d: %s", resp.StatusCode, string(detail))
	}

	var embResp ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(embResp.Embeddings) == 0 || len(embResp.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("ollama returned an empty embedding (model may not be installed: try 'ollama pull %s')", p.model)
	}

	vector := embResp.Embeddings[0]

	ollamaDimensionsMu.Lock()
	if _, known := ollamaModelDimensions[p.model]; !known {
		ollamaModelDimensions[p.model] = len(vector)
	}
	ollamaDimensionsMu.Unlock()

	logging.Debug("embedding generated",
		"provider", "ollama", "model", p.model,
		"dimensions", len(vector), "duration_ms", time.Since(start).Milliseconds())
	return vector, nil
}

// Dimensions returns the vector width once known, 0 before the first
// call for an unrecognized model
func (p *OllamaProvider) Dimensions() int {
	ollamaDimensionsMu.RLock()
	defer ollamaDimensionsMu.RUnlock()
	return ollamaModelDimensions[p.model]
}

// ModelName returns the model name
func (p *OllamaProvider) ModelName() string {
	return p.model
}

// ProviderName returns "ollama"
func (p *OllamaProvider) ProviderName() string {
	return "ollama"
}
