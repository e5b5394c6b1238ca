/*-------------------------------------------------------------------------
 *
 * pgEdge Hybrid Search
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package config loads the CLI configuration with a fixed priority:
// environment variables override the YAML file, which overrides
// hard-coded defaults. Environment variables use the PGEDGE_HYBRID_
// prefix, with the standard PG* and OPENAI_API_KEY variables accepted
// as fallbacks.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"pgedge-hybrid-search/internal/distance"
)

// Config is the complete CLI configuration
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Store     StoreConfig     `yaml:"store"`
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`

	// Connection pool settings
	PoolMaxConns        int    `yaml:"pool_max_conns"`
	PoolMinConns        int    `yaml:"pool_min_conns"`
	PoolMaxConnIdleTime string `yaml:"pool_max_conn_idle_time"`
}

// ConnString builds a postgres:// URL for pgxpool.ParseConfig
func (c DatabaseConfig) ConnString() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}
	query := url.Values{}
	if c.SSLMode != "" {
		query.Set("sslmode", c.SSLMode)
	}
	u.RawQuery = query.Encode()
	return u.String()
}

// EmbeddingConfig holds embedding provider settings
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`     // "openai" or "ollama"
	Model      string `yaml:"model"`        // provider-specific model name
	APIKey     string `yaml:"api_key"`      // direct key, discouraged; prefer api_key_file or env var
	APIKeyFile string `yaml:"api_key_file"` // path to a file holding the key
	BaseURL    string `yaml:"base_url"`     // Ollama host or OpenAI-compatible gateway
}

// ResolveAPIKey returns the API key with direct value taking priority
// over the key file
func (c EmbeddingConfig) ResolveAPIKey() (string, error) {
	if c.APIKey != "" {
		return c.APIKey, nil
	}
	if c.APIKeyFile != "" {
		data, err := os.ReadFile(c.APIKeyFile)
		if err != nil {
			return "", fmt.Errorf("failed to read API key file %s: %w", c.APIKeyFile, err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return "", nil
}

// StoreConfig holds hybrid store tuning
type StoreConfig struct {
	Table          string   `yaml:"table"`
	Dimensions     int      `yaml:"dimensions"`
	SemanticRatio  float64  `yaml:"semantic_ratio"`
	FuzzyWeight    float64  `yaml:"fuzzy_weight"`
	FuzzyThreshold float64  `yaml:"fuzzy_threshold"`
	Distance       string   `yaml:"distance"`    // l2, cosine or inner_product
	Language       string   `yaml:"language"`    // text search configuration
	TextSearch     string   `yaml:"text_search"` // native or bm25
	IndexMethod    string   `yaml:"index_method"`
	RRFK           int      `yaml:"rrf_k"`
	Normalize      *bool    `yaml:"normalize_scores"`
	MinScore       *float64 `yaml:"min_score"`
	MaxScore       *float64 `yaml:"max_score"`
}

// NormalizeScores reports whether fused scores should be scaled to
// 0-100, defaulting to true when unset
func (c StoreConfig) NormalizeScores() bool {
	return c.Normalize == nil || *c.Normalize
}

// LoadConfig loads configuration with fixed priority: environment
// variables over the YAML file over defaults. A missing file is only
// an error when the path was given explicitly.
func LoadConfig(path string, explicit bool) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		// decoding over the defaulted struct keeps absent keys at
		// their defaults while letting the file set explicit zeros
		data, err := os.ReadFile(path)
		switch {
		case err != nil && explicit:
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	}

	applyEnvironmentVariables(cfg)

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:                "localhost",
			Port:                5432,
			Database:            "postgres",
			SSLMode:             "prefer",
			PoolMaxConns:        4,
			PoolMinConns:        0,
			PoolMaxConnIdleTime: "30m",
		},
		Embedding: EmbeddingConfig{
			Provider: "ollama",
		},
		Store: StoreConfig{
			Table:          "embeddings",
			Dimensions:     1536,
			SemanticRatio:  0.5,
			FuzzyWeight:    0.25,
			FuzzyThreshold: 0.3,
			Distance:       string(distance.Cosine),
			Language:       "english",
			TextSearch:     "native",
			IndexMethod:    "hnsw",
			RRFK:           60,
		},
	}
}

// setStringFromEnv sets a string value from the first set variable
func setStringFromEnv(dest *string, keys ...string) {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			*dest = val
			return
		}
	}
}

// setIntFromEnv sets an integer value from an environment variable
func setIntFromEnv(dest *int, keys ...string) {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			var parsed int
			if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
				*dest = parsed
			}
			return
		}
	}
}

func applyEnvironmentVariables(cfg *Config) {
	setStringFromEnv(&cfg.Database.Host, "PGEDGE_HYBRID_DB_HOST", "PGHOST")
	setIntFromEnv(&cfg.Database.Port, "PGEDGE_HYBRID_DB_PORT", "PGPORT")
	setStringFromEnv(&cfg.Database.Database, "PGEDGE_HYBRID_DB_NAME", "PGDATABASE")
	setStringFromEnv(&cfg.Database.User, "PGEDGE_HYBRID_DB_USER", "PGUSER")
	setStringFromEnv(&cfg.Database.Password, "PGEDGE_HYBRID_DB_PASSWORD", "PGPASSWORD")
	setStringFromEnv(&cfg.Database.SSLMode, "PGEDGE_HYBRID_DB_SSLMODE", "PGSSLMODE")

	setStringFromEnv(&cfg.Embedding.Provider, "PGEDGE_HYBRID_EMBEDDING_PROVIDER")
	setStringFromEnv(&cfg.Embedding.Model, "PGEDGE_HYBRID_EMBEDDING_MODEL")
	setStringFromEnv(&cfg.Embedding.APIKey, "PGEDGE_HYBRID_EMBEDDING_API_KEY", "OPENAI_API_KEY")
	setStringFromEnv(&cfg.Embedding.BaseURL, "PGEDGE_HYBRID_EMBEDDING_BASE_URL")

	setStringFromEnv(&cfg.Store.Table, "PGEDGE_HYBRID_TABLE")
}

func validateConfig(cfg *Config) error {
	if cfg.Database.Port < 1 || cfg.Database.Port > 65535 {
		return fmt.Errorf("database port %d out of range", cfg.Database.Port)
	}
	switch cfg.Embedding.Provider {
	case "", "openai", "ollama":
	default:
		return fmt.Errorf("unknown embedding provider %q (supported: openai, ollama)", cfg.Embedding.Provider)
	}
	if !distance.Metric(cfg.Store.Distance).IsValid() {
		return fmt.Errorf("unknown distance metric %q (supported: l2, cosine, inner_product)", cfg.Store.Distance)
	}
	switch cfg.Store.TextSearch {
	case "native", "bm25":
	default:
		return fmt.Errorf("unknown text_search strategy %q (supported: native, bm25)", cfg.Store.TextSearch)
	}
	if cfg.Store.Dimensions < 1 {
		return fmt.Errorf("dimensions must be positive, got %d", cfg.Store.Dimensions)
	}
	if cfg.Store.SemanticRatio < 0 || cfg.Store.SemanticRatio > 1 {
		return fmt.Errorf("semantic_ratio must be between 0 and 1, got %g", cfg.Store.SemanticRatio)
	}
	if cfg.Store.FuzzyWeight < 0 || cfg.Store.FuzzyWeight > 1 {
		return fmt.Errorf("fuzzy_weight must be between 0 and 1, got %g", cfg.Store.FuzzyWeight)
	}
	if cfg.Store.FuzzyThreshold < 0 || cfg.Store.FuzzyThreshold > 1 {
		return fmt.Errorf("fuzzy_threshold must be between 0 and 1, got %g", cfg.Store.FuzzyThreshold)
	}
	return nil
}
