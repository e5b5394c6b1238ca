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

	"github.com/jackc/pgx/v5"
)

// DefaultQueryParam is the named parameter the search CTE binds the
// query text against when the caller does not supply one.
const DefaultQueryParam = "@query_text"

// Querier is the subset of connection behavior strategies need for
// capability probing. *pgxpool.Pool and *pgx.Conn both satisfy it.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Strategy builds the SQL fragments for one full-text search backend.
//
// Isolating the backend behind this interface keeps the hybrid store
// backend-agnostic: swapping native tsvector ranking for a BM25
// extension touches no ranking-fusion logic, only the strategy.
type Strategy interface {
	// Name identifies the strategy in configuration and errors
	Name() string

	// SetupSQL returns the DDL statements that materialize the
	// searchable representation for the table. All statements must be
	// idempotent (IF NOT EXISTS / OR REPLACE semantics).
	SetupSQL(table, contentField, language string) []string

	// SearchCTE returns a CTE body producing, per matching row, an id
	// column plus the strategy's rank and score columns, filtered to
	// rows with a nonzero match against the bound query parameter.
	// queryParam is the named-parameter placeholder to bind the query
	// text against; empty means DefaultQueryParam.
	SearchCTE(table, contentField, language, queryParam string) string

	// CTEAlias returns the name the store joins the search CTE under
	CTEAlias() string

	// RankColumn returns the CTE's rank column name
	RankColumn() string

	// ScoreColumn returns the CTE's raw score column name
	ScoreColumn() string

	// NormalizedScoreExpression wraps the backend-specific raw score
	// so it lands in roughly [0,1] and can be weighted uniformly
	// across backends.
	NormalizedScoreExpression(scoreColumn string) string

	// RequiredExtensions lists Postgres extensions the strategy needs
	RequiredExtensions() []string

	// IsAvailable probes whether the backend can be used on the
	// connected server, so setup can fail fast with a clear error
	// instead of a cryptic SQL error from a missing extension.
	IsAvailable(ctx context.Context, q Querier) (bool, error)
}
