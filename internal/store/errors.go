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

import "fmt"

// ConfigError reports an out-of-range configuration value. Values are
// surfaced immediately at construction or query time, never silently
// clamped.
type ConfigError struct {
	Option string
	Value  float64
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s must be between 0 and 1, got %v", e.Option, e.Value)
}

// UnsupportedQueryError reports a query shape the store does not
// implement, naming both so callers can distinguish "wrong store for
// this query" from a malformed query.
type UnsupportedQueryError struct {
	Store     string
	QueryType string
}

func (e *UnsupportedQueryError) Error() string {
	return fmt.Sprintf("query type %q is not supported by store %q", e.QueryType, e.Store)
}
