/*-------------------------------------------------------------------------
 *
 * pgEdge Hybrid Search
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package textsearch

import (
	"context"
	"fmt"
)

// BM25 implements full-text search on top of the pg_search extension
// (ParadeDB), which scores matches with true BM25 instead of
// ts_rank_cd's cover-density heuristic. Requires the extension to be
// installed on the server; IsAvailable probes for it.
type BM25 struct{}

// NewBM25 creates the pg_search BM25 strategy
func NewBM25() *BM25 {
	return &BM25{}
}

// Name identifies the strategy in configuration and errors
func (b *BM25) Name() string {
	return "bm25"
}

// SetupSQL creates the extension and a BM25 index over the content
// field. pg_search maintains its own inverted index, so no extra
// column is needed.
func (b *BM25) SetupSQL(table, contentField, _ string) []string {
	return []string{
		"CREATE EXTENSION IF NOT EXISTS pg_search",
		fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS idx_%s_%s_bm25 ON %s USING bm25 (id, %s) WITH (key_field='id')",
			table, contentField, table, contentField,
		),
	}
}

// SearchCTE ranks matching rows by paradedb.score(). The @@@ operator
// restricts the scan to rows the BM25 index matches, so every emitted
// row carries a positive score.
func (b *BM25) SearchCTE(table, contentField, _, queryParam string) string {
	if queryParam == "" {
		queryParam = DefaultQueryParam
	}
	return fmt.Sprintf(`%s AS (
    SELECT id,
           ROW_NUMBER() OVER (ORDER BY paradedb.score(id) DESC) AS %s,
           paradedb.score(id) AS %s
    FROM %s
    WHERE %s @@@ %s
)`,
		b.CTEAlias(),
		b.RankColumn(),
		b.ScoreColumn(),
		table,
		contentField, queryParam,
	)
}

// CTEAlias returns the name the store joins the search CTE under
func (b *BM25) CTEAlias() string {
	return "bm25_scores"
}

// RankColumn returns the CTE's rank column name
func (b *BM25) RankColumn() string {
	return "bm25_rank"
}

// ScoreColumn returns the CTE's raw score column name
func (b *BM25) ScoreColumn() string {
	return "bm25_score"
}

// NormalizedScoreExpression maps the unbounded BM25 score onto [0,1)
// with score/(1+score), the same shape the native strategy uses so the
// two backends weight uniformly.
func (b *BM25) NormalizedScoreExpression(scoreColumn string) string {
	return fmt.Sprintf("(%s / (1 + %s))", scoreColumn, scoreColumn)
}

// RequiredExtensions lists the pg_search extension
func (b *BM25) RequiredExtensions() []string {
	return []string{"pg_search"}
}

// IsAvailable probes pg_available_extensions for pg_search
func (b *BM25) IsAvailable(ctx context.Context, q Querier) (bool, error) {
	var available bool
	err := q.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM pg_available_extensions WHERE name = 'pg_search')",
	).Scan(&available)
	if err != nil {
		return false, fmt.Errorf("unable to probe for pg_search extension: %w", err)
	}
	return available, nil
}
