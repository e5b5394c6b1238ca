/*-------------------------------------------------------------------------
 *
 * pgEdge Hybrid Search
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package toon implements Token-Oriented Object Notation, a compact
// indentation-based text serialization used to hand structured data to
// LLMs without JSON's punctuation overhead.
//
// Values are null, booleans, int64/float64 numbers, strings, lists and
// string-keyed maps. Lists render in one of three shapes chosen from
// their contents: all-primitive lists inline as "key[n]: v1,v2,...",
// lists of uniform flat objects as a tabular block with a
// "key[n]{f1,f2}:" header and one row per item, and everything else as
// an indented dash-prefixed block. Maps render as "key: value" lines
// with one indentation level per nesting depth.
package toon

import "fmt"

// Options control encoding and decoding. The zero value means
// two-space indentation, comma delimiters and lenient decoding.
type Options struct {
	// Indent is the number of spaces per nesting level (default 2)
	Indent int

	// Delimiter separates inline list values and tabular row fields
	// (default ",")
	Delimiter string

	// Strict makes Decode fail on declared-vs-actual count mismatches
	// and unknown escape sequences instead of tolerating them
	Strict bool
}

func (o *Options) withDefaults() Options {
	opts := Options{}
	if o != nil {
		opts = *o
	}
	if opts.Indent <= 0 {
		opts.Indent = 2
	}
	if opts.Delimiter == "" {
		opts.Delimiter = ","
	}
	return opts
}

// DecodeError reports a structural violation at a specific input line.
// Lines are 1-indexed.
type DecodeError struct {
	Line    int
	Message string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("toon: line %d: %s", e.Line, e.Message)
}

// EncodeError reports a value the format cannot represent
type EncodeError struct {
	Message string
}

func (e *EncodeError) Error() string {
	return "toon: " + e.Message
}
