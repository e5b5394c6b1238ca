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

import "pgedge-hybrid-search/internal/distance"

// Options are the store-level settings, immutable per instance.
// Zero-valued fields take the defaults documented per field.
type Options struct {
	// Table is the backing table name (default "embeddings")
	Table string

	// VectorField is the embedding column name (default "embedding")
	VectorField string

	// ContentField is the searchable body column name (default "content")
	ContentField string

	// Language is the text-search configuration (default "english")
	Language string

	// Distance selects the similarity metric (default Cosine)
	Distance distance.Metric

	// SemanticRatio is the default vector/text balance for hybrid
	// queries; must be in [0,1] (default 0.5)
	SemanticRatio float64

	// FuzzyThreshold is the minimum trigram word similarity for a row
	// to be considered a fuzzy match; must be in [0,1] (default 0.3,
	// matching pg_trgm's own similarity threshold default)
	FuzzyThreshold float64

	// FuzzyWeight is the share of the non-vector weight given to the
	// fuzzy signal; must be in [0,1]. 0 disables the fuzzy signal and
	// its CTE entirely (default 0.25).
	FuzzyWeight float64

	// DefaultMaxScore, when set, bounds vector distance from the query
	// vector; overridable per call
	DefaultMaxScore *float64

	// DefaultMinScore, when set, drops documents whose final (possibly
	// normalized) score falls below it; overridable per call
	DefaultMinScore *float64
}

// SetupOptions control table provisioning
type SetupOptions struct {
	// Dimensions is the embedding column dimension (default 1536)
	Dimensions int

	// VectorType is the pgvector column type (default "vector";
	// "halfvec" is the usual alternative)
	VectorType string

	// IndexMethod is the similarity index access method (default "hnsw")
	IndexMethod string

	// IndexOpsClass overrides the operator class; empty derives it
	// from the store's distance metric
	IndexOpsClass string
}

// QueryOptions are the per-call settings for Query
type QueryOptions struct {
	// Limit caps the result count (default 5)
	Limit int

	// Where is a raw SQL predicate ANDed into the query. Column
	// references must match the backing table; parameters belong in
	// Params, never interpolated into the string.
	//
	// In hybrid fusion the predicate filters the vector and fuzzy
	// signals. The text-search CTE is assembled by the strategy and
	// does not receive it, so a row matching only full-text can still
	// enter the result set.
	Where string

	// Params are extra named parameters bound during execution,
	// referenced as @name from Where
	Params map[string]any

	// MaxScore overrides the store default vector-distance bound
	MaxScore *float64

	// MinScore overrides the store default minimum final score. It
	// applies to relevance-style scores only (text and hybrid
	// branches); on the vector-only branch the score is a raw distance
	// and MaxScore bounds it instead.
	MinScore *float64

	// IncludeScoreBreakdown attaches per-signal rank/score/contribution
	// diagnostics under the _score_breakdown metadata key
	IncludeScoreBreakdown bool

	// Boosts multiplies the final score by the given factor for every
	// listed metadata attribute present (non-empty) on a document;
	// applied boosts are recorded under _applied_boosts
	Boosts map[string]float64
}

func (o Options) withDefaults() Options {
	if o.Table == "" {
		o.Table = "embeddings"
	}
	if o.VectorField == "" {
		o.VectorField = "embedding"
	}
	if o.ContentField == "" {
		o.ContentField = "content"
	}
	if o.Language == "" {
		o.Language = "english"
	}
	if o.Distance == "" {
		o.Distance = distance.Cosine
	}
	return o
}

func (o SetupOptions) withDefaults() SetupOptions {
	if o.Dimensions <= 0 {
		o.Dimensions = 1536
	}
	if o.VectorType == "" {
		o.VectorType = "vector"
	}
	if o.IndexMethod == "" {
		o.IndexMethod = "hnsw"
	}
	return o
}

func (o *QueryOptions) withDefaults() QueryOptions {
	opts := QueryOptions{}
	if o != nil {
		opts = *o
	}
	if opts.Limit <= 0 {
		opts.Limit = 5
	}
	return opts
}

// DefaultOptions returns the store defaults spelled out
func DefaultOptions() Options {
	return Options{
		SemanticRatio:  0.5,
		FuzzyThreshold: 0.3,
		FuzzyWeight:    0.25,
	}.withDefaults()
}
