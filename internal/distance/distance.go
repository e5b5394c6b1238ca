/*-------------------------------------------------------------------------
 *
 * pgEdge Hybrid Search
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package distance

// Metric identifies a pgvector distance metric used for similarity ordering
type Metric string

const (
	// L2 is Euclidean distance
	L2 Metric = "l2"

	// Cosine is cosine distance (1 - cosine similarity)
	Cosine Metric = "cosine"

	// InnerProduct is negative inner product
	InnerProduct Metric = "inner_product"
)

// Operator returns the pgvector comparison operator for the metric.
// All three operators produce values that sort ascending: a smaller
// result means a closer match.
func (m Metric) Operator() string {
	switch m {
	case L2:
		return "<->"
	case InnerProduct:
		return "<#>"
	default: // cosine
		return "<=>"
	}
}

// OpsClass returns the pgvector operator class used when creating a
// similarity index for this metric.
func (m Metric) OpsClass() string {
	switch m {
	case L2:
		return "vector_l2_ops"
	case InnerProduct:
		return "vector_ip_ops"
	default: // cosine
		return "vector_cosine_ops"
	}
}

// IsValid reports whether m names a known metric
func (m Metric) IsValid() bool {
	switch m {
	case L2, Cosine, InnerProduct:
		return true
	}
	return false
}
