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
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"

	"pgedge-hybrid-search/internal/rrf"
)

// queryKind selects the SQL-construction branch
type queryKind int

const (
	kindVector queryKind = iota
	kindText
	kindHybrid
)

// signalWeights are the per-signal RRF weights derived from the
// semantic ratio and the fuzzy weight. They always sum to 1.
type signalWeights struct {
	vector float64
	text   float64
	fuzzy  float64
}

// queryPlan is one fully assembled query: SQL text plus bound
// parameters, with the construction branch recorded for row mapping.
type queryPlan struct {
	sql      string
	args     pgx.NamedArgs
	kind     queryKind
	hasFuzzy bool
	weights  signalWeights
}

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// validateIdentifier allowlists names that get interpolated into SQL
// text. Caller-supplied predicates go through bound parameters, but
// table and column names cannot, so they are restricted here.
func validateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid SQL identifier: %q", name)
	}
	return nil
}

// validateLanguage allowlists text-search configuration names, which
// end up inside single-quoted SQL literals
func validateLanguage(language string) error {
	if !identifierPattern.MatchString(language) {
		return fmt.Errorf("invalid text-search language: %q", language)
	}
	return nil
}

// derivedWeights splits the score weight three ways: the semantic
// ratio goes to the vector signal, the remainder is shared between
// text and fuzzy according to the fuzzy weight. A fuzzy weight of 0
// gives the whole remainder to text.
func (s *Store) derivedWeights(ratio float64) signalWeights {
	fw := s.opts.FuzzyWeight
	return signalWeights{
		vector: ratio,
		text:   (1 - ratio) * (1 - fw),
		fuzzy:  (1 - ratio) * fw,
	}
}

// whereClause combines the caller's raw predicate with the vector
// distance bound implied by maxScore. Returns "" or a leading
// " WHERE ..." fragment. The distance bound only applies when the
// ratio implies vector relevance.
func (s *Store) whereClause(ratio float64, opts QueryOptions, args pgx.NamedArgs) string {
	var conditions []string

	if opts.Where != "" {
		conditions = append(conditions, opts.Where)
	}

	if maxScore := resolveScore(opts.MaxScore, s.opts.DefaultMaxScore); maxScore != nil && ratio > 0 {
		conditions = append(conditions, fmt.Sprintf("(%s %s @query_vector) <= @max_score",
			s.opts.VectorField, s.opts.Distance.Operator()))
		args["max_score"] = *maxScore
	}

	if len(conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conditions, " AND ")
}

// buildPlan selects the construction branch and assembles SQL plus
// parameters for it.
func (s *Store) buildPlan(vector []float64, text string, ratio float64, opts QueryOptions) *queryPlan {
	args := pgx.NamedArgs{}
	for name, value := range opts.Params {
		args[name] = value
	}
	args["limit"] = opts.Limit

	switch {
	case ratio == 1.0 || text == "":
		return s.buildVectorPlan(vector, opts, args)
	case ratio == 0.0:
		return s.buildTextPlan(text, ratio, opts, args)
	default:
		return s.buildHybridPlan(vector, text, ratio, opts, args)
	}
}

// buildVectorPlan orders the whole table by distance ascending. The
// branch is also taken for hybrid queries with an empty query text, so
// the distance bound always applies here: the vector is the sole signal.
func (s *Store) buildVectorPlan(vector []float64, opts QueryOptions, args pgx.NamedArgs) *queryPlan {
	op := s.opts.Distance.Operator()
	args["query_vector"] = formatVector(vector)
	where := s.whereClause(1.0, opts, args)

	sql := fmt.Sprintf(`SELECT id::text AS id, metadata, %s, %s, (%s %s @query_vector) AS score
FROM %s%s
ORDER BY %s %s @query_vector
LIMIT @limit`,
		s.opts.ContentField, s.opts.VectorField,
		s.opts.VectorField, op,
		s.opts.Table, where,
		s.opts.VectorField, op)

	return &queryPlan{sql: sql, args: args, kind: kindVector}
}

// buildTextPlan delegates ranking entirely to the text-search strategy
func (s *Store) buildTextPlan(text string, ratio float64, opts QueryOptions, args pgx.NamedArgs) *queryPlan {
	args["query_text"] = text
	where := s.whereClause(ratio, opts, args)

	cte := s.strategy.SearchCTE(s.opts.Table, s.opts.ContentField, s.opts.Language, "")
	normalized := s.strategy.NormalizedScoreExpression("f." + s.strategy.ScoreColumn())

	sql := fmt.Sprintf(`WITH %s
SELECT t.id::text AS id, t.metadata, t.%s, t.%s, %s AS score
FROM %s f
JOIN %s t ON t.id = f.id%s
ORDER BY f.%s DESC
LIMIT @limit`,
		cte,
		s.opts.ContentField, s.opts.VectorField, normalized,
		s.strategy.CTEAlias(),
		s.opts.Table, where,
		s.strategy.ScoreColumn())

	return &queryPlan{sql: sql, args: args, kind: kindText}
}

// buildHybridPlan assembles the full fusion query: one CTE per signal,
// a FULL OUTER JOIN union across them (a document need only appear in
// one signal to be included), RRF score fusion, and a DISTINCT ON
// de-duplication by title before the final ordering.
func (s *Store) buildHybridPlan(vector []float64, text string, ratio float64, opts QueryOptions, args pgx.NamedArgs) *queryPlan {
	op := s.opts.Distance.Operator()
	args["query_vector"] = formatVector(vector)
	args["query_text"] = text
	where := s.whereClause(ratio, opts, args)

	weights := s.derivedWeights(ratio)
	hasFuzzy := s.opts.FuzzyWeight > 0

	ctes := []string{
		fmt.Sprintf(`vector_scores AS (
    SELECT id,
           ROW_NUMBER() OVER (ORDER BY %s %s @query_vector) AS vector_rank,
           1 - (%s %s @query_vector) AS vector_score
    FROM %s%s
)`,
			s.opts.VectorField, op,
			s.opts.VectorField, op,
			s.opts.Table, where),
		s.strategy.SearchCTE(s.opts.Table, s.opts.ContentField, s.opts.Language, ""),
	}

	if hasFuzzy {
		args["fuzzy_threshold"] = s.opts.FuzzyThreshold
		// The caller's predicate must filter this CTE too; a row
		// excluded from vector_scores would otherwise re-enter through
		// the FULL OUTER JOIN on the fuzzy signal.
		fuzzyWhere := ""
		if opts.Where != "" {
			fuzzyWhere = fmt.Sprintf(" AND (%s)", opts.Where)
		}
		ctes = append(ctes, fmt.Sprintf(`fuzzy_scores AS (
    SELECT id,
           ROW_NUMBER() OVER (ORDER BY word_similarity(@query_text, search_text) DESC) AS fuzzy_rank,
           word_similarity(@query_text, search_text) AS fuzzy_score
    FROM %s
    WHERE word_similarity(@query_text, search_text) >= @fuzzy_threshold%s
)`,
			s.opts.Table, fuzzyWhere))
	}

	ftsRank := "f." + s.strategy.RankColumn()
	ftsScore := s.strategy.NormalizedScoreExpression("f." + s.strategy.ScoreColumn())

	signals := []rrf.SignalExpression{
		{RankColumn: "v.vector_rank", ScoreExpr: "v.vector_score", Weight: weights.vector},
		{RankColumn: ftsRank, ScoreExpr: ftsScore, Weight: weights.text},
	}

	idExpr := "COALESCE(v.id, f.id)"
	joins := fmt.Sprintf(`    FROM vector_scores v
    FULL OUTER JOIN %s f ON v.id = f.id`, s.strategy.CTEAlias())
	signalColumns := fmt.Sprintf(`v.vector_rank, v.vector_score,
           %s AS fts_rank, %s AS fts_score`, ftsRank, ftsScore)
	dedupColumns := "c.vector_rank, c.vector_score, c.fts_rank, c.fts_score"
	outerColumns := "vector_rank, vector_score, fts_rank, fts_score"

	if hasFuzzy {
		signals = append(signals, rrf.SignalExpression{
			RankColumn: "z.fuzzy_rank", ScoreExpr: "z.fuzzy_score", Weight: weights.fuzzy,
		})
		idExpr = "COALESCE(v.id, f.id, z.id)"
		joins += "\n    FULL OUTER JOIN fuzzy_scores z ON COALESCE(v.id, f.id) = z.id"
		signalColumns += ",\n           z.fuzzy_rank, z.fuzzy_score"
		dedupColumns += ", c.fuzzy_rank, c.fuzzy_score"
		outerColumns += ", fuzzy_rank, fuzzy_score"
	}

	fused := s.calc.BuildCombinedSQLExpression(signals)

	ctes = append(ctes, fmt.Sprintf(`combined_results AS (
    SELECT %s AS id,
           %s,
           %s AS rrf_score
%s
)`,
		idExpr, signalColumns, fused, joins))

	sql := fmt.Sprintf(`WITH %s
SELECT id, metadata, %s, %s, %s, score
FROM (
    SELECT DISTINCT ON (grouping_key)
           t.id::text AS id, t.metadata, t.%s, t.%s,
           %s,
           c.rrf_score AS score,
           COALESCE(t.metadata->>'%s', t.id::text) AS grouping_key
    FROM combined_results c
    JOIN %s t ON t.id = c.id
    ORDER BY grouping_key, c.rrf_score DESC
) deduped
ORDER BY score DESC
LIMIT @limit`,
		strings.Join(ctes, ",\n"),
		s.opts.ContentField, s.opts.VectorField, outerColumns,
		s.opts.ContentField, s.opts.VectorField,
		dedupColumns,
		TitleKey,
		s.opts.Table)

	return &queryPlan{sql: sql, args: args, kind: kindHybrid, hasFuzzy: hasFuzzy, weights: weights}
}

// resolveScore picks the per-call override over the store default
func resolveScore(override, fallback *float64) *float64 {
	if override != nil {
		return override
	}
	return fallback
}
