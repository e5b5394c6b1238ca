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

	"github.com/jackc/pgx/v5"

	"pgedge-hybrid-search/internal/logging"
	"pgedge-hybrid-search/internal/rrf"
)

// Query executes the ranking operation for a vector or hybrid query
// and returns documents ordered by relevance.
//
// The construction branch follows the semantic ratio: 1.0 (or an empty
// query text) orders by vector distance alone, 0.0 delegates ranking
// to the text-search strategy, anything in between fuses vector, text
// and fuzzy signals with RRF. On the fusion branch the returned score
// is the fused RRF score, normalized to 0-100 when the calculator is
// configured to normalize; on the vector branch it is the raw distance
// (lower is better) and on the text branch the strategy's normalized
// relevance.
//
// Min-score filtering and attribute boosts apply to relevance-style
// scores only (text and hybrid branches); the vector branch is bounded
// by maxScore in SQL instead. SQL execution errors propagate wrapped
// but unretried.
func (s *Store) Query(ctx context.Context, q Query, opts *QueryOptions) ([]Document, error) {
	vector, text, ratio, err := s.resolveQuery(q)
	if err != nil {
		return nil, err
	}

	qopts := opts.withDefaults()
	plan := s.buildPlan(vector, text, ratio, qopts)

	logging.Debug("executing hybrid store query",
		"table", s.opts.Table,
		"kind", int(plan.kind),
		"limit", qopts.Limit)

	rows, err := s.pool.Query(ctx, plan.sql, plan.args)
	if err != nil {
		return nil, fmt.Errorf("query failed on %s: %w", s.Name(), err)
	}
	defer rows.Close()

	var documents []Document
	for rows.Next() {
		doc, keep, err := s.mapRow(rows, plan, qopts)
		if err != nil {
			return nil, err
		}
		if keep {
			documents = append(documents, doc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed on %s: %w", s.Name(), err)
	}

	return documents, nil
}

// resolveQuery maps a query shape onto (vector, text, ratio). The
// semantic ratio is validated here as well as at construction because
// it arrives per query on the hybrid shape.
func (s *Store) resolveQuery(q Query) ([]float64, string, float64, error) {
	switch query := q.(type) {
	case HybridQuery:
		if query.SemanticRatio < 0 || query.SemanticRatio > 1 {
			return nil, "", 0, &ConfigError{Option: "semantic ratio", Value: query.SemanticRatio}
		}
		return query.Vector, query.Text, query.SemanticRatio, nil
	case VectorQuery:
		return query.Vector, "", 1.0, nil
	default:
		return nil, "", 0, &UnsupportedQueryError{Store: s.Name(), QueryType: q.QueryType()}
	}
}

// hybridRow carries the nullable per-signal columns of a fusion row
type hybridRow struct {
	vectorRank  *int64
	vectorScore *float64
	ftsRank     *int64
	ftsScore    *float64
	fuzzyRank   *int64
	fuzzyScore  *float64
}

// mapRow scans and post-processes one result row. The boolean result
// reports whether the document survives min-score filtering.
func (s *Store) mapRow(rows pgx.Rows, plan *queryPlan, opts QueryOptions) (Document, bool, error) {
	var (
		id           string
		metadataJSON []byte
		content      string
		embedding    *string
		score        float64
		signals      hybridRow
	)

	var err error
	switch plan.kind {
	case kindHybrid:
		if plan.hasFuzzy {
			err = rows.Scan(&id, &metadataJSON, &content, &embedding,
				&signals.vectorRank, &signals.vectorScore,
				&signals.ftsRank, &signals.ftsScore,
				&signals.fuzzyRank, &signals.fuzzyScore,
				&score)
		} else {
			err = rows.Scan(&id, &metadataJSON, &content, &embedding,
				&signals.vectorRank, &signals.vectorScore,
				&signals.ftsRank, &signals.ftsScore,
				&score)
		}
	default:
		err = rows.Scan(&id, &metadataJSON, &content, &embedding, &score)
	}
	if err != nil {
		return Document{}, false, fmt.Errorf("unable to scan result row: %w", err)
	}

	metadata := make(map[string]any)
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
			return Document{}, false, fmt.Errorf("unable to parse metadata for document %s: %w", id, err)
		}
	}
	metadata[TextKey] = content

	// A SQL-NULL embedding means the row matched through a non-vector
	// signal only: keep the null-vector marker, never a zero-length
	// real vector.
	var vector []float64
	if embedding != nil {
		vector, err = parseVector(*embedding)
		if err != nil {
			return Document{}, false, fmt.Errorf("unable to parse embedding for document %s: %w", id, err)
		}
	}

	final := score
	if plan.kind == kindHybrid {
		if s.calc.NormalizesScores() {
			final = s.calc.Normalize(score)
		}
		if opts.IncludeScoreBreakdown {
			metadata[ScoreBreakdownKey] = s.scoreBreakdown(signals, plan)
		}
	}

	if plan.kind != kindVector {
		final = s.applyBoosts(final, metadata, opts.Boosts)

		if minScore := resolveScore(opts.MinScore, s.opts.DefaultMinScore); minScore != nil && final < *minScore {
			return Document{}, false, nil
		}
	}

	return Document{
		ID:       id,
		Vector:   vector,
		Metadata: metadata,
		Score:    final,
	}, true, nil
}

// scoreBreakdown rebuilds each present signal's contribution for
// observability. Scores scanned from the fusion query are already
// normalized, so the Go-side contribution matches the SQL term exactly.
func (s *Store) scoreBreakdown(signals hybridRow, plan *queryPlan) map[string]any {
	breakdown := make(map[string]any)
	if entry := s.breakdownEntry(signals.vectorRank, signals.vectorScore, plan.weights.vector); entry != nil {
		breakdown["vector"] = entry
	}
	if entry := s.breakdownEntry(signals.ftsRank, signals.ftsScore, plan.weights.text); entry != nil {
		breakdown[s.strategy.Name()] = entry
	}
	if plan.hasFuzzy {
		if entry := s.breakdownEntry(signals.fuzzyRank, signals.fuzzyScore, plan.weights.fuzzy); entry != nil {
			breakdown["fuzzy"] = entry
		}
	}
	return breakdown
}

func (s *Store) breakdownEntry(rank *int64, score *float64, weight float64) map[string]any {
	if rank == nil {
		return nil
	}
	signalScore := 0.0
	if score != nil {
		signalScore = *score
	}
	return map[string]any{
		"rank":         int(*rank),
		"score":        signalScore,
		"weight":       weight,
		"contribution": s.calc.CalculateContribution(int(*rank), signalScore, weight),
	}
}

// applyBoosts multiplies the score for every boost whose metadata
// attribute is present with a meaningful value, recording what applied
// under _applied_boosts. The record uses map[string]any, the same shape
// as every other injected metadata value, so it survives re-encoding.
func (s *Store) applyBoosts(score float64, metadata map[string]any, boosts map[string]float64) float64 {
	if len(boosts) == 0 {
		return score
	}

	applied := make(map[string]any)
	for attribute, factor := range boosts {
		if boostApplies(metadata[attribute]) {
			score *= factor
			applied[attribute] = factor
		}
	}
	if len(applied) > 0 {
		metadata[AppliedBoostsKey] = applied
	}
	return score
}

func boostApplies(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case bool:
		return v
	default:
		return true
	}
}

// contributionsOf exposes the RRF input tuple shape for callers that
// recompute fused scores outside SQL (tests, diagnostics).
func contributionsOf(signals hybridRow, weights signalWeights) map[string]rrf.Contribution {
	contributions := make(map[string]rrf.Contribution)
	if signals.vectorRank != nil {
		contributions["vector"] = rrf.Contribution{
			Rank: int(*signals.vectorRank), Score: deref(signals.vectorScore), Weight: weights.vector,
		}
	}
	if signals.ftsRank != nil {
		contributions["text"] = rrf.Contribution{
			Rank: int(*signals.ftsRank), Score: deref(signals.ftsScore), Weight: weights.text,
		}
	}
	if signals.fuzzyRank != nil {
		contributions["fuzzy"] = rrf.Contribution{
			Rank: int(*signals.fuzzyRank), Score: deref(signals.fuzzyScore), Weight: weights.fuzzy,
		}
	}
	return contributions
}

func deref(value *float64) float64 {
	if value == nil {
		return 0
	}
	return *value
}
