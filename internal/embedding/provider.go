/*-------------------------------------------------------------------------
 *
 * pgEdge Hybrid Search
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package embedding generates dense vectors for text so the hybrid
// store can run similarity queries against them
package embedding

import (
	"context"
	"fmt"
)

// Provider defines the interface for embedding generation
type Provider interface {
	// Embed generates an embedding vector for the given text
	Embed(ctx context.Context, text string) ([]float64, error)

	// Dimensions returns the vector width of the model, or 0 when it
	// is only known after the first call
	Dimensions() int

	// ModelName returns the name of the model being used
	ModelName() string

	// ProviderName returns the provider identifier ("openai" or "ollama")
	ProviderName() string
}

// Config holds configuration for embedding providers
type Config struct {
	Provider string // "openai" or "ollama"
	Model    string // model name, provider-specific default when empty

	// APIKey authenticates hosted providers
	APIKey string

	// BaseURL overrides the provider endpoint (Ollama host, or an
	// OpenAI-compatible gateway)
	BaseURL string
}

// NewProvider creates an embedding provider from configuration
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("an API key is required when provider is 'openai'")
		}
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "ollama":
		return NewOllamaProvider(cfg.BaseURL, cfg.Model), nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (supported: openai, ollama)", cfg.Provider)
	}
}
