/*-------------------------------------------------------------------------
 *
 * pgEdge Hybrid Search
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"pgedge-hybrid-search/internal/logging"
	"pgedge-hybrid-search/internal/rrf"
	"pgedge-hybrid-search/internal/textsearch"
)

// addStatementName is the prepared-statement name reused across an Add
// batch. Scoped per table: two stores over different tables can share
// one pool, and pgx rejects re-preparing a name with different SQL.
func (s *Store) addStatementName() string {
	return "hybrid_store_add_" + s.opts.Table
}

// Store orchestrates hybrid retrieval over a Postgres table: vector
// similarity, full-text relevance (through a pluggable strategy) and
// fuzzy trigram matching, fused into one ranked result set with
// Reciprocal Rank Fusion.
//
// The store performs synchronous, blocking calls against the pool and
// adds no locking or caching of its own; concurrent use is safe to the
// extent the pool and the database's MVCC isolation make it so.
type Store struct {
	pool     *pgxpool.Pool
	opts     Options
	strategy textsearch.Strategy
	calc     *rrf.Calculator
}

// New creates a hybrid store over the given pool. Out-of-range
// SemanticRatio, FuzzyThreshold or FuzzyWeight fail fast with a
// ConfigError; invalid identifiers in the table/field options are
// rejected before they can reach interpolated SQL. A nil strategy
// defaults to the native tsvector backend, a nil calculator to
// RRF with k=60 and normalization enabled.
func New(pool *pgxpool.Pool, opts Options, strategy textsearch.Strategy, calc *rrf.Calculator) (*Store, error) {
	opts = opts.withDefaults()

	if opts.SemanticRatio < 0 || opts.SemanticRatio > 1 {
		return nil, &ConfigError{Option: "semantic ratio", Value: opts.SemanticRatio}
	}
	if opts.FuzzyThreshold < 0 || opts.FuzzyThreshold > 1 {
		return nil, &ConfigError{Option: "fuzzy threshold", Value: opts.FuzzyThreshold}
	}
	if opts.FuzzyWeight < 0 || opts.FuzzyWeight > 1 {
		return nil, &ConfigError{Option: "fuzzy weight", Value: opts.FuzzyWeight}
	}

	for _, ident := range []string{opts.Table, opts.VectorField, opts.ContentField} {
		if err := validateIdentifier(ident); err != nil {
			return nil, err
		}
	}
	if err := validateLanguage(opts.Language); err != nil {
		return nil, err
	}

	if strategy == nil {
		strategy = textsearch.NewNative()
	}
	if calc == nil {
		calc = rrf.NewCalculator(rrf.DefaultK, true)
	}

	return &Store{
		pool:     pool,
		opts:     opts,
		strategy: strategy,
		calc:     calc,
	}, nil
}

// Name identifies the store in errors
func (s *Store) Name() string {
	return fmt.Sprintf("postgres-hybrid(%s)", s.opts.Table)
}

// Options returns the effective store options
func (s *Store) Options() Options {
	return s.opts
}

// Supports reports whether the store implements the query shape
func (s *Store) Supports(q Query) bool {
	switch q.(type) {
	case VectorQuery, HybridQuery:
		return true
	}
	return false
}

// Setup idempotently provisions everything the store needs: the vector
// and trigram extensions, the base table, the search_text trigger
// feeding fuzzy matching, the similarity index, the text-search
// strategy's DDL and the trigram index. Every statement uses
// IF NOT EXISTS (or OR REPLACE) semantics, so re-running after a
// partial failure is safe.
func (s *Store) Setup(ctx context.Context, setupOpts SetupOptions) error {
	setupOpts = setupOpts.withDefaults()

	available, err := s.strategy.IsAvailable(ctx, s.pool)
	if err != nil {
		return fmt.Errorf("unable to probe text-search strategy %q: %w", s.strategy.Name(), err)
	}
	if !available {
		return fmt.Errorf("text-search strategy %q is unavailable: missing extension(s) %s",
			s.strategy.Name(), strings.Join(s.strategy.RequiredExtensions(), ", "))
	}

	opsClass := setupOpts.IndexOpsClass
	if opsClass == "" {
		opsClass = s.opts.Distance.OpsClass()
	}

	statements := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		"CREATE EXTENSION IF NOT EXISTS pg_trgm",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id uuid PRIMARY KEY,
    metadata jsonb,
    %s text NOT NULL,
    %s %s(%d),
    search_text text
)`,
			s.opts.Table, s.opts.ContentField, s.opts.VectorField,
			setupOpts.VectorType, setupOpts.Dimensions),
		fmt.Sprintf(`CREATE OR REPLACE FUNCTION %s_search_text_sync() RETURNS trigger AS $$
BEGIN
    NEW.search_text := coalesce(NEW.metadata->>'%s', '');
    RETURN NEW;
END
$$ LANGUAGE plpgsql`,
			s.opts.Table, TitleKey),
		fmt.Sprintf("DROP TRIGGER IF EXISTS %s_search_text_sync_trg ON %s",
			s.opts.Table, s.opts.Table),
		fmt.Sprintf("CREATE TRIGGER %s_search_text_sync_trg BEFORE INSERT OR UPDATE ON %s FOR EACH ROW EXECUTE FUNCTION %s_search_text_sync()",
			s.opts.Table, s.opts.Table, s.opts.Table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s USING %s (%s %s)",
			s.opts.Table, s.opts.VectorField, s.opts.Table,
			setupOpts.IndexMethod, s.opts.VectorField, opsClass),
	}
	statements = append(statements, s.strategy.SetupSQL(s.opts.Table, s.opts.ContentField, s.opts.Language)...)
	statements = append(statements,
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_search_text_trgm ON %s USING GIN (search_text gin_trgm_ops)",
			s.opts.Table, s.opts.Table))

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("setup statement failed: %w", err)
		}
	}

	logging.Info("hybrid store provisioned",
		"table", s.opts.Table,
		"dimensions", setupOpts.Dimensions,
		"strategy", s.strategy.Name())
	return nil
}

// Drop removes the backing table and its trigger function
func (s *Store) Drop(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", s.opts.Table)); err != nil {
		return fmt.Errorf("unable to drop table %s: %w", s.opts.Table, err)
	}
	if _, err := s.pool.Exec(ctx, fmt.Sprintf("DROP FUNCTION IF EXISTS %s_search_text_sync()", s.opts.Table)); err != nil {
		return fmt.Errorf("unable to drop trigger function for %s: %w", s.opts.Table, err)
	}
	return nil
}

// Add upserts one or more documents through a prepared statement
// reused across the batch. Documents without an ID get a fresh UUID.
// The indexed body is taken from the _text metadata key and stored in
// the content column; the remaining metadata lands in the jsonb blob.
//
// No implicit transaction wraps the batch; callers needing atomicity
// must manage one externally.
func (s *Store) Add(ctx context.Context, documents ...Document) error {
	if len(documents) == 0 {
		return nil
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("unable to acquire connection: %w", err)
	}
	defer conn.Release()

	upsert := fmt.Sprintf(
		"INSERT INTO %s (id, metadata, %s, %s) VALUES ($1, $2, $3, $4) "+
			"ON CONFLICT (id) DO UPDATE SET metadata = EXCLUDED.metadata, %s = EXCLUDED.%s, %s = EXCLUDED.%s",
		s.opts.Table, s.opts.ContentField, s.opts.VectorField,
		s.opts.ContentField, s.opts.ContentField,
		s.opts.VectorField, s.opts.VectorField)

	stmt := s.addStatementName()
	if _, err := conn.Conn().Prepare(ctx, stmt, upsert); err != nil {
		return fmt.Errorf("unable to prepare upsert: %w", err)
	}

	for i, doc := range documents {
		id := doc.ID
		if id == "" {
			id = uuid.NewString()
		}

		content := ""
		metadata := make(map[string]any, len(doc.Metadata))
		for key, value := range doc.Metadata {
			if key == TextKey {
				if text, ok := value.(string); ok {
					content = text
				}
				continue
			}
			metadata[key] = value
		}

		metadataJSON, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("unable to marshal metadata for document %d: %w", i, err)
		}

		var vectorArg any
		if doc.Vector != nil {
			vectorArg = formatVector(doc.Vector)
		}

		if _, err := conn.Exec(ctx, stmt, id, metadataJSON, content, vectorArg); err != nil {
			return fmt.Errorf("unable to upsert document %s: %w", id, err)
		}
	}

	logging.Debug("documents upserted", "table", s.opts.Table, "count", len(documents))
	return nil
}

// Remove deletes documents by primary key. A no-op on empty input.
func (s *Store) Remove(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	sql := fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1::uuid[])", s.opts.Table)
	if _, err := s.pool.Exec(ctx, sql, ids); err != nil {
		return fmt.Errorf("unable to remove documents: %w", err)
	}
	return nil
}
