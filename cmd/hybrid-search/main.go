/*-------------------------------------------------------------------------
 *
 * pgEdge Hybrid Search
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"pgedge-hybrid-search/internal/config"
	"pgedge-hybrid-search/internal/database"
	"pgedge-hybrid-search/internal/distance"
	"pgedge-hybrid-search/internal/embedding"
	"pgedge-hybrid-search/internal/logging"
	"pgedge-hybrid-search/internal/rrf"
	"pgedge-hybrid-search/internal/store"
	"pgedge-hybrid-search/internal/textsearch"
)

const defaultConfigFile = "pgedge-hybrid-search.yaml"

var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "hybrid-search",
	Short: "pgEdge Hybrid Search - Postgres vector, full-text and fuzzy retrieval fused with RRF",
	Long: `hybrid-search manages a Postgres-backed hybrid retrieval table that
combines pgvector similarity, full-text search (native tsvector or
ParadeDB BM25) and trigram fuzzy matching into one ranked result set
using Reciprocal Rank Fusion.

Results can be emitted as JSON or as TOON, a compact indentation-based
notation suited to LLM context windows.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logLevel == "" {
			return nil
		}
		level, ok := logging.ParseLevel(logLevel)
		if !ok {
			return fmt.Errorf("unknown log level %q (supported: debug, info, warn, error)", logLevel)
		}
		logging.SetLevel(level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"Path to configuration file (default "+defaultConfigFile+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Minimum log level: debug, info, warn, error")

	rootCmd.AddCommand(setupCmd, dropCmd, addCmd, removeCmd, queryCmd, toonCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves the configuration, treating a missing file as an
// error only when --config was given
func loadConfig() (*config.Config, error) {
	path := configFile
	explicit := path != ""
	if path == "" {
		path = defaultConfigFile
	}
	return config.LoadConfig(path, explicit)
}

// openStore wires config into a connected hybrid store. The caller
// owns the returned pool.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, *pgxpool.Pool, error) {
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	var strategy textsearch.Strategy
	switch cfg.Store.TextSearch {
	case "bm25":
		strategy = textsearch.NewBM25()
	default:
		strategy = textsearch.NewNative()
	}

	calc := rrf.NewCalculator(cfg.Store.RRFK, cfg.Store.NormalizeScores())

	s, err := store.New(pool, store.Options{
		Table:           cfg.Store.Table,
		Language:        cfg.Store.Language,
		Distance:        distance.Metric(cfg.Store.Distance),
		SemanticRatio:   cfg.Store.SemanticRatio,
		FuzzyWeight:     cfg.Store.FuzzyWeight,
		FuzzyThreshold:  cfg.Store.FuzzyThreshold,
		DefaultMinScore: cfg.Store.MinScore,
		DefaultMaxScore: cfg.Store.MaxScore,
	}, strategy, calc)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return s, pool, nil
}

// newEmbedder builds the embedding provider from configuration
func newEmbedder(cfg *config.Config) (embedding.Provider, error) {
	apiKey, err := cfg.Embedding.ResolveAPIKey()
	if err != nil {
		return nil, err
	}
	return embedding.NewProvider(embedding.Config{
		Provider: cfg.Embedding.Provider,
		Model:    cfg.Embedding.Model,
		APIKey:   apiKey,
		BaseURL:  cfg.Embedding.BaseURL,
	})
}
