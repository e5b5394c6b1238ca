/*-------------------------------------------------------------------------
 *
 * pgEdge Hybrid Search
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package toon

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestEncodeShapes(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected string
	}{
		{name: "null", value: nil, expected: "null"},
		{name: "bool", value: true, expected: "true"},
		{name: "integer", value: int64(42), expected: "42"},
		{name: "float", value: 3.25, expected: "3.25"},
		{name: "integral float keeps decimal point", value: 2.0, expected: "2.0"},
		{name: "bare string", value: "postgres", expected: "postgres"},
		{
			name:     "flat map sorts keys",
			value:    map[string]any{"stars": int64(9000), "name": "pgvector"},
			expected: "name: pgvector\nstars: 9000",
		},
		{
			name:     "nested map indents",
			value:    map[string]any{"db": map[string]any{"host": "localhost", "port": int64(5432)}},
			expected: "db:\n  host: localhost\n  port: 5432",
		},
		{
			name:     "primitive list inlines",
			value:    map[string]any{"tags": []any{"a", "b", "c"}},
			expected: "tags[3]: a,b,c",
		},
		{
			name:     "empty list and empty map",
			value:    map[string]any{"meta": map[string]any{}, "items": []any{}},
			expected: "items[0]:\nmeta:",
		},
		{
			name: "uniform objects go tabular",
			value: map[string]any{"rows": []any{
				map[string]any{"id": int64(1), "name": "alpha"},
				map[string]any{"id": int64(2), "name": "beta"},
			}},
			expected: "rows[2]{id,name}:\n  1,alpha\n  2,beta",
		},
		{
			name: "mixed list uses dashes",
			value: map[string]any{"items": []any{
				int64(1),
				map[string]any{"a": int64(2)},
				[]any{int64(3), int64(4)},
			}},
			expected: "items[3]:\n  - 1\n  - a: 2\n  - [2]: 3,4",
		},
		{
			name: "multi field dash item continues indented",
			value: map[string]any{"items": []any{
				map[string]any{"a": int64(1), "b": int64(2)},
				map[string]any{"a": int64(3)},
			}},
			expected: "items[2]:\n  - a: 1\n    b: 2\n  - a: 3",
		},
		{
			name:     "top level keyless list",
			value:    []any{int64(1), int64(2), int64(3)},
			expected: "[3]: 1,2,3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.value, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected:\n%s\ngot:\n%s", tt.expected, got)
			}
		})
	}
}

func TestEncodeQuoting(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected string
	}{
		{name: "empty string", value: "", expected: `""`},
		{name: "leading space", value: " padded", expected: `" padded"`},
		{name: "reserved word", value: "true", expected: `"true"`},
		{name: "numeric looking", value: "42", expected: `"42"`},
		{name: "leading dash", value: "-flag", expected: `"-flag"`},
		{name: "contains colon", value: "a:b", expected: `"a:b"`},
		{name: "contains delimiter", value: "a,b", expected: `"a,b"`},
		{name: "contains newline", value: "line\nbreak", expected: `"line\nbreak"`},
		{name: "contains quote and backslash", value: `say "hi"\now`, expected: `"say \"hi\"\\now"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.value, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestEncodeRejectsUnsupportedTypes(t *testing.T) {
	_, err := Encode(map[string]any{"bad": struct{}{}}, nil)
	var encErr *EncodeError
	if !errors.As(err, &encErr) {
		t.Fatalf("expected EncodeError, got %v", err)
	}
	if !strings.Contains(err.Error(), "unsupported value type") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{name: "null", value: nil},
		{name: "bool", value: false},
		{name: "integer", value: int64(-17)},
		{name: "float", value: 3.14159},
		{name: "integral float survives as float", value: 100.0},
		{name: "bare string", value: "hybrid search"},
		{name: "string needing quotes", value: "key: value, with \"quotes\"\nand lines"},
		{name: "empty string", value: ""},
		{name: "empty map", value: map[string]any{}},
		{name: "empty list", value: []any{}},
		{
			name: "nested document",
			value: map[string]any{
				"title":   "Hybrid Retrieval",
				"year":    int64(2025),
				"ratio":   0.5,
				"draft":   false,
				"nothing": nil,
				"tags":    []any{"postgres", "pgvector", "rrf"},
				"author": map[string]any{
					"name":  "pgEdge",
					"email": "dev@pgedge.com",
				},
				"chunks": []any{
					map[string]any{"id": int64(1), "score": 0.92},
					map[string]any{"id": int64(2), "score": 0.4},
				},
				"mixed": []any{
					int64(1),
					"two",
					[]any{3.0, 4.0},
					map[string]any{"deep": map[string]any{"er": true}},
					map[string]any{},
				},
			},
		},
		{
			name: "tabular values needing quotes",
			value: map[string]any{"rows": []any{
				map[string]any{"name": "a,b", "note": "x: y"},
				map[string]any{"name": "true", "note": ""},
			}},
		},
		{
			name:  "nested keyless lists",
			value: []any{[]any{int64(1)}, []any{[]any{"a", "b"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := Encode(tt.value, nil)
			if err != nil {
				t.Fatalf("encode failed: %v", err)
			}
			decoded, err := Decode(encoded, nil)
			if err != nil {
				t.Fatalf("decode failed:\n%s\nerror: %v", encoded, err)
			}
			if !reflect.DeepEqual(decoded, tt.value) {
				t.Errorf("round trip changed value:\nencoded:\n%s\nexpected: %#v\ngot:      %#v", encoded, tt.value, decoded)
			}
		})
	}
}

func TestRoundTripCustomDelimiter(t *testing.T) {
	opts := &Options{Delimiter: "|"}
	value := map[string]any{"csv": []any{"a,b", "c,d"}}

	encoded, err := Encode(value, opts)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	// commas are plain characters under a pipe delimiter
	if encoded != "csv[2]: a,b|c,d" {
		t.Errorf("unexpected encoding: %s", encoded)
	}

	decoded, err := Decode(encoded, opts)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !reflect.DeepEqual(decoded, value) {
		t.Errorf("expected %#v, got %#v", value, decoded)
	}
}

func TestDecodeLenientToleratesCountMismatch(t *testing.T) {
	decoded, err := Decode("nums[3]: 1,2", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := decoded.(map[string]any)
	if !reflect.DeepEqual(m["nums"], []any{int64(1), int64(2)}) {
		t.Errorf("expected actual values to win, got %#v", m["nums"])
	}
}

func TestDecodeStrictCountMismatch(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "inline values", input: "nums[3]: 1,2"},
		{name: "dash items", input: "items[2]:\n  - 1"},
		{name: "tabular rows", input: "rows[2]{id}:\n  1"},
		{name: "tabular row width", input: "rows[1]{id,name}:\n  1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.input, &Options{Strict: true})
			var decErr *DecodeError
			if !errors.As(err, &decErr) {
				t.Fatalf("expected DecodeError, got %v", err)
			}
			if decErr.Line == 0 {
				t.Error("expected a line number in the error")
			}
		})
	}
}

func TestDecodeEscapes(t *testing.T) {
	t.Run("lenient keeps unknown escape character", func(t *testing.T) {
		decoded, err := Decode(`key: "a\qb"`, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if decoded.(map[string]any)["key"] != "aqb" {
			t.Errorf("expected escape to degrade to the bare character, got %q", decoded.(map[string]any)["key"])
		}
	})

	t.Run("strict rejects unknown escape", func(t *testing.T) {
		_, err := Decode(`key: "a\qb"`, &Options{Strict: true})
		var decErr *DecodeError
		if !errors.As(err, &decErr) {
			t.Fatalf("expected DecodeError, got %v", err)
		}
		if !strings.Contains(err.Error(), "escape") {
			t.Errorf("unexpected message: %v", err)
		}
	})
}

func TestDecodeMalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "missing colon in nested field", input: "outer:\n  key value"},
		{name: "unterminated quoted key", input: `"key: 1`},
		{name: "bad list count", input: "nums[x]: 1"},
		{name: "missing bracket close", input: "nums[3: 1"},
		{name: "missing brace close", input: "rows[1]{id:\n  1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.input, nil)
			var decErr *DecodeError
			if !errors.As(err, &decErr) {
				t.Fatalf("expected DecodeError, got %v", err)
			}
			if !strings.HasPrefix(err.Error(), "toon: line ") {
				t.Errorf("expected line-prefixed message, got %q", err.Error())
			}
		})
	}
}

func TestDecodeEmptyInput(t *testing.T) {
	for _, input := range []string{"", "\n", "  \n\n"} {
		decoded, err := Decode(input, nil)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", input, err)
		}
		if !reflect.DeepEqual(decoded, map[string]any{}) {
			t.Errorf("expected empty map for %q, got %#v", input, decoded)
		}
	}
}

func TestDecodeQuotedKeys(t *testing.T) {
	decoded, err := Decode(`"a:b": 1`+"\n"+`"list,key"[2]: x,y`, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := decoded.(map[string]any)
	if m["a:b"] != int64(1) {
		t.Errorf("expected quoted key to decode, got %#v", m)
	}
	if !reflect.DeepEqual(m["list,key"], []any{"x", "y"}) {
		t.Errorf("expected quoted list key to decode, got %#v", m["list,key"])
	}
}
