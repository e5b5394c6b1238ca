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

// Native implements full-text search with the built-in tsvector
// machinery: a stored generated column indexed with GIN and ranked
// with ts_rank_cd. It needs no extensions and works on any supported
// Postgres version.
type Native struct{}

// NewNative creates the native tsvector strategy
func NewNative() *Native {
	return &Native{}
}

// Name identifies the strategy in configuration and errors
func (n *Native) Name() string {
	return "native"
}

// SetupSQL adds a stored generated tsvector column over the content
// field plus a GIN index. The language must be baked into the column
// expression because generated columns only accept immutable
// expressions.
func (n *Native) SetupSQL(table, contentField, language string) []string {
	return []string{
		fmt.Sprintf(
			"ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s_tsv tsvector GENERATED ALWAYS AS (to_tsvector('%s', coalesce(%s, ''))) STORED",
			table, contentField, language, contentField,
		),
		fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS idx_%s_%s_tsv ON %s USING GIN (%s_tsv)",
			table, contentField, table, contentField,
		),
	}
}

// SearchCTE ranks matching rows by ts_rank_cd against a
// plainto_tsquery-parsed query. Rows that do not match the query are
// filtered out by the @@ predicate, so every emitted row carries a
// nonzero score.
func (n *Native) SearchCTE(table, contentField, language, queryParam string) string {
	if queryParam == "" {
		queryParam = DefaultQueryParam
	}
	tsquery := fmt.Sprintf("plainto_tsquery('%s', %s)", language, queryParam)
	return fmt.Sprintf(`%s AS (
    SELECT id,
           ROW_NUMBER() OVER (ORDER BY ts_rank_cd(%s_tsv, %s) DESC) AS %s,
           ts_rank_cd(%s_tsv, %s) AS %s
    FROM %s
    WHERE %s_tsv @@ %s
)`,
		n.CTEAlias(),
		contentField, tsquery, n.RankColumn(),
		contentField, tsquery, n.ScoreColumn(),
		table,
		contentField, tsquery,
	)
}

// CTEAlias returns the name the store joins the search CTE under
func (n *Native) CTEAlias() string {
	return "fts_scores"
}

// RankColumn returns the CTE's rank column name
func (n *Native) RankColumn() string {
	return "fts_rank"
}

// ScoreColumn returns the CTE's raw score column name
func (n *Native) ScoreColumn() string {
	return "fts_score"
}

// NormalizedScoreExpression maps the unbounded ts_rank_cd score onto
// [0,1) with score/(1+score).
func (n *Native) NormalizedScoreExpression(scoreColumn string) string {
	return fmt.Sprintf("(%s / (1 + %s))", scoreColumn, scoreColumn)
}

// RequiredExtensions returns nil: tsvector is built in
func (n *Native) RequiredExtensions() []string {
	return nil
}

// IsAvailable always reports true for the built-in backend
func (n *Native) IsAvailable(_ context.Context, _ Querier) (bool, error) {
	return true, nil
}
