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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"pgedge-hybrid-search/internal/store"
	"pgedge-hybrid-search/internal/toon"
)

var (
	addFile string

	queryLimit     int
	queryRatio     float64
	queryMinScore  float64
	queryMaxScore  float64
	queryWhere     string
	queryParams    []string
	queryBoosts    []string
	queryBreakdown bool
	queryFormat    string
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the hybrid search table, extensions and indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		s, pool, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := s.Setup(cmd.Context(), store.SetupOptions{
			Dimensions:  cfg.Store.Dimensions,
			IndexMethod: cfg.Store.IndexMethod,
		}); err != nil {
			return err
		}
		fmt.Printf("Store %s is ready (%d dimensions, %s text search)\n",
			s.Name(), cfg.Store.Dimensions, cfg.Store.TextSearch)
		return nil
	},
}

var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop the hybrid search table",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		s, pool, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := s.Drop(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("Store %s dropped\n", s.Name())
		return nil
	},
}

// inputDocument is the JSON shape accepted by the add command
type inputDocument struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Embed and upsert documents from a JSON file or stdin",
	Long: `add reads a JSON array of documents, generates an embedding for each
document's text with the configured provider, and upserts them:

  [{"id": "optional-uuid", "text": "...", "metadata": {"title": "..."}}]`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var input io.Reader = os.Stdin
		if addFile != "" && addFile != "-" {
			f, err := os.Open(addFile)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", addFile, err)
			}
			defer f.Close()
			input = f
		}

		var docs []inputDocument
		if err := json.NewDecoder(input).Decode(&docs); err != nil {
			return fmt.Errorf("failed to parse documents: %w", err)
		}
		if len(docs) == 0 {
			return fmt.Errorf("no documents to add")
		}

		embedder, err := newEmbedder(cfg)
		if err != nil {
			return err
		}
		s, pool, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		records := make([]store.Document, 0, len(docs))
		for i, doc := range docs {
			if doc.Text == "" {
				return fmt.Errorf("document %d has no text", i)
			}
			vector, err := embedder.Embed(cmd.Context(), doc.Text)
			if err != nil {
				return fmt.Errorf("failed to embed document %d: %w", i, err)
			}
			metadata := doc.Metadata
			if metadata == nil {
				metadata = map[string]any{}
			}
			metadata[store.TextKey] = doc.Text
			records = append(records, store.Document{
				ID:       doc.ID,
				Vector:   vector,
				Metadata: metadata,
			})
		}

		if err := s.Add(cmd.Context(), records...); err != nil {
			return err
		}
		fmt.Printf("Added %d documents to %s\n", len(records), s.Name())
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <id> [id...]",
	Short: "Remove documents by id",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		s, pool, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := s.Remove(cmd.Context(), args...); err != nil {
			return err
		}
		fmt.Printf("Removed %d documents\n", len(args))
		return nil
	},
}

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Run a hybrid query and print ranked results",
	Long: `query embeds the given text, runs hybrid retrieval and prints ranked
results. --ratio tunes the blend: 1.0 is pure vector similarity, 0.0 is
pure text search, anything between fuses vector, full-text and fuzzy
signals with Reciprocal Rank Fusion.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ratio := cfg.Store.SemanticRatio
		if cmd.Flags().Changed("ratio") {
			ratio = queryRatio
		}

		text := strings.Join(args, " ")
		var vector []float64
		if ratio > 0 {
			embedder, err := newEmbedder(cfg)
			if err != nil {
				return err
			}
			if vector, err = embedder.Embed(cmd.Context(), text); err != nil {
				return err
			}
		}

		opts := &store.QueryOptions{
			Limit:                 queryLimit,
			Where:                 queryWhere,
			IncludeScoreBreakdown: queryBreakdown,
		}
		if cmd.Flags().Changed("min-score") {
			opts.MinScore = &queryMinScore
		}
		if cmd.Flags().Changed("max-score") {
			opts.MaxScore = &queryMaxScore
		}
		if opts.Params, err = parseParams(queryParams); err != nil {
			return err
		}
		if opts.Boosts, err = parseBoosts(queryBoosts); err != nil {
			return err
		}

		s, pool, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		results, err := s.Query(cmd.Context(), store.HybridQuery{
			Vector:        vector,
			Text:          text,
			SemanticRatio: ratio,
		}, opts)
		if err != nil {
			return err
		}
		return printResults(results, queryFormat)
	},
}

func init() {
	addCmd.Flags().StringVarP(&addFile, "file", "f", "",
		"Path to a JSON document file (default stdin)")

	queryCmd.Flags().IntVarP(&queryLimit, "limit", "n", 5, "Maximum number of results")
	queryCmd.Flags().Float64VarP(&queryRatio, "ratio", "r", 0.5,
		"Semantic ratio: 1.0 vector only, 0.0 text only (default from config)")
	queryCmd.Flags().Float64Var(&queryMinScore, "min-score", 0, "Drop results scoring below this")
	queryCmd.Flags().Float64Var(&queryMaxScore, "max-score", 0, "Vector distance cutoff")
	queryCmd.Flags().StringVar(&queryWhere, "where", "", "Extra SQL filter, e.g. \"metadata->>'category' = @category\"")
	queryCmd.Flags().StringArrayVar(&queryParams, "param", nil, "Named filter parameter key=value (repeatable)")
	queryCmd.Flags().StringArrayVar(&queryBoosts, "boost", nil, "Metadata boost key=factor (repeatable)")
	queryCmd.Flags().BoolVar(&queryBreakdown, "breakdown", false, "Include per-signal score breakdown")
	queryCmd.Flags().StringVarP(&queryFormat, "format", "o", "json", "Output format: json or toon")
}

func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --param %q, expected key=value", pair)
		}
		params[key] = value
	}
	return params, nil
}

func parseBoosts(pairs []string) (map[string]float64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	boosts := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --boost %q, expected key=factor", pair)
		}
		factor, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --boost factor %q: %w", value, err)
		}
		boosts[key] = factor
	}
	return boosts, nil
}

// printResults emits ranked documents as indented JSON or TOON
func printResults(results []store.Document, format string) error {
	rows := make([]any, len(results))
	for i, doc := range results {
		rows[i] = map[string]any{
			"id":       doc.ID,
			"score":    doc.Score,
			"metadata": doc.Metadata,
		}
	}

	switch format {
	case "json":
		out, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	case "toon":
		out, err := toon.Encode(rows, nil)
		if err != nil {
			return err
		}
		fmt.Println(out)
	default:
		return fmt.Errorf("unknown format %q (supported: json, toon)", format)
	}
	return nil
}
