/*-------------------------------------------------------------------------
 *
 * pgEdge Hybrid Search
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package rrf

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultK is the default rank constant for RRF scoring.
// A value of 60 is the convention for hybrid search and works well
// in practice; smaller values sharpen the preference for top ranks.
const DefaultK = 60

// Contribution is a single signal's input to the fused score.
// Rank is 1-indexed; a rank of 0 marks the document as absent from
// that signal's result list.
type Contribution struct {
	Rank   int
	Score  float64
	Weight float64
}

// SignalExpression describes one ranked signal when building a SQL
// fusion expression: the column holding the signal's rank, a scalar
// expression for its score, and the weight applied to the term.
type SignalExpression struct {
	RankColumn string
	ScoreExpr  string
	Weight     float64
}

// Calculator computes Reciprocal Rank Fusion scores.
//
// RRF combines heterogeneous ranked lists by summing 1/(k+rank) terms,
// which makes fusion scale-invariant: cosine distances, ts_rank values
// and trigram similarities never need to be made directly comparable.
type Calculator struct {
	k               int
	normalizeScores bool
}

// NewCalculator creates a Calculator with the given rank constant.
// If k <= 0, DefaultK is used. When normalizeScores is true,
// Calculate returns scores scaled to the 0-100 range.
func NewCalculator(k int, normalizeScores bool) *Calculator {
	if k <= 0 {
		k = DefaultK
	}
	return &Calculator{k: k, normalizeScores: normalizeScores}
}

// K returns the configured rank constant
func (c *Calculator) K() int {
	return c.k
}

// NormalizesScores reports whether Calculate output is scaled to 0-100
func (c *Calculator) NormalizesScores() bool {
	return c.normalizeScores
}

// Calculate fuses per-signal contributions into a single score.
// Contributions whose rank is absent (<= 0) are skipped entirely, so a
// document missing from one signal loses only that signal's term and is
// not otherwise penalized.
//
// Weights are the caller's bookkeeping: they are expected to sum to at
// most 1.0 by convention, but this is not enforced. Callers passing
// weights summing above 1.0 will see normalized scores above 100.
func (c *Calculator) Calculate(contributions map[string]Contribution) float64 {
	var sum float64
	for _, contrib := range contributions {
		if contrib.Rank <= 0 {
			continue
		}
		sum += c.CalculateContribution(contrib.Rank, contrib.Score, contrib.Weight)
	}

	if c.normalizeScores {
		return c.Normalize(sum)
	}
	return sum
}

// CalculateContribution computes a single signal's RRF term:
// 1/(k+rank) * score * weight. Ranks are 1-indexed; callers producing
// ranks with ROW_NUMBER() or RANK() satisfy this by construction.
func (c *Calculator) CalculateContribution(rank int, score, weight float64) float64 {
	return 1.0 / float64(c.k+rank) * score * weight
}

// Normalize scales a raw RRF score to the 0-100 range relative to the
// maximum possible single-signal contribution (rank 1, score 1.0,
// weight 1.0), which is 1/(k+1) for the configured k.
func (c *Calculator) Normalize(rawScore float64) float64 {
	return rawScore / (1.0 / float64(c.k+1)) * 100.0
}

// Denormalize is the exact inverse of Normalize
func (c *Calculator) Denormalize(normalizedScore float64) float64 {
	return normalizedScore / 100.0 * (1.0 / float64(c.k+1))
}

// BuildSQLExpression generates a scalar SQL expression computing one
// signal's RRF term, suitable for embedding in a SELECT list:
//
//	COALESCE(1.0/(k + rankColumn) * scoreExpr * weight, nullDefault)
//
// The COALESCE handles rows a signal never ranked (NULL rank after an
// outer join). An empty nullDefault defaults to "0.0".
func (c *Calculator) BuildSQLExpression(rankColumn, scoreExpr string, weight float64, nullDefault string) string {
	if nullDefault == "" {
		nullDefault = "0.0"
	}
	return fmt.Sprintf("COALESCE(1.0/(%d + %s) * %s * %s, %s)",
		c.k, rankColumn, scoreExpr, formatWeight(weight), nullDefault)
}

// BuildCombinedSQLExpression sums the RRF terms of multiple signals
// inside parentheses, producing the fused-score expression for a
// hybrid query's SELECT list.
func (c *Calculator) BuildCombinedSQLExpression(signals []SignalExpression) string {
	terms := make([]string, len(signals))
	for i, sig := range signals {
		terms[i] = c.BuildSQLExpression(sig.RankColumn, sig.ScoreExpr, sig.Weight, "")
	}
	return "(" + strings.Join(terms, " + ") + ")"
}

// formatWeight renders a weight as a SQL numeric literal. Integral
// weights keep a trailing ".0" so the literal stays a float in SQL.
func formatWeight(weight float64) string {
	s := strconv.FormatFloat(weight, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
