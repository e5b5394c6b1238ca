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
	"strconv"
	"strings"
)

// Reserved metadata keys the store reads or injects.
const (
	// TextKey holds the indexed document body. On Add it is extracted
	// into the content column; on Query it is injected back from the
	// fetched row.
	TextKey = "_text"

	// TitleKey is the metadata field the search_text trigger mirrors
	// for fuzzy trigram matching and hybrid de-duplication
	TitleKey = "title"

	// ScoreBreakdownKey carries per-signal rank/score/contribution
	// diagnostics when a query requests them
	ScoreBreakdownKey = "_score_breakdown"

	// AppliedBoostsKey records which attribute boosts multiplied the
	// final score
	AppliedBoostsKey = "_applied_boosts"
)

// Document is one row of the hybrid store.
//
// A nil Vector is the null-vector marker: the row was produced by a
// text-only or fuzzy-only match path and carries no embedding. Rows
// returned from vector-only or hybrid vector matches always carry a
// vector.
type Document struct {
	ID       string
	Vector   []float64
	Metadata map[string]any
	Score    float64
}

// HasVector reports whether the document carries a real embedding
func (d Document) HasVector() bool {
	return d.Vector != nil
}

// formatVector renders an embedding in pgvector's text input format:
// "[v1,v2,...]".
func formatVector(vector []float64) string {
	parts := make([]string, len(vector))
	for i, val := range vector {
		parts[i] = strconv.FormatFloat(val, 'f', -1, 64)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// parseVector parses pgvector's text output format back into a slice
func parseVector(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("malformed vector literal: %q", s)
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return []float64{}, nil
	}

	parts := strings.Split(body, ",")
	vector := make([]float64, len(parts))
	for i, part := range parts {
		val, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("malformed vector element %d: %w", i, err)
		}
		vector[i] = val
	}
	return vector, nil
}
