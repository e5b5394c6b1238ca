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

// Query is the closed set of query shapes a store may be asked to
// execute. Stores advertise which shapes they implement via Supports;
// passing an unsupported shape yields an UnsupportedQueryError.
type Query interface {
	// QueryType names the shape for Supports checks and error messages
	QueryType() string
}

// VectorQuery retrieves documents by vector similarity alone
type VectorQuery struct {
	Vector []float64
}

// QueryType returns "vector"
func (VectorQuery) QueryType() string { return "vector" }

// HybridQuery retrieves documents by a weighted fusion of vector
// similarity, full-text relevance and fuzzy trigram matching.
//
// SemanticRatio in [0,1] controls the vector/text balance: 1.0 behaves
// exactly like a pure vector query even when Text is supplied, 0.0
// behaves text-only even when a vector is supplied. Values outside the
// range are rejected, never clamped.
type HybridQuery struct {
	Vector        []float64
	Text          string
	SemanticRatio float64
}

// QueryType returns "hybrid"
func (HybridQuery) QueryType() string { return "hybrid" }

// TextQuery retrieves documents by text relevance alone. The hybrid
// store does not implement this shape; it exists so callers routing
// queries across stores get a precise unsupported-query error rather
// than a malformed-query one.
type TextQuery struct {
	Text string
}

// QueryType returns "text"
func (TextQuery) QueryType() string { return "text" }
