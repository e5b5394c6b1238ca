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
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// structuralChars force quoting because the decoder assigns them
// grammatical meaning
const structuralChars = ":\"\\[]{}"

// Encode renders a value in TOON notation. Map keys are emitted in
// sorted order so output is deterministic. Returns an EncodeError for
// value types the format cannot represent.
func Encode(value any, opts *Options) (string, error) {
	e := &encoder{opts: opts.withDefaults()}

	var lines []string
	var err error
	switch v := value.(type) {
	case map[string]any:
		lines, err = e.mapLines(v, 0)
	case []any:
		lines, err = e.listLines("", v, 0)
	default:
		var scalar string
		scalar, err = e.scalar(value)
		lines = []string{scalar}
	}
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

type encoder struct {
	opts Options
}

func (e *encoder) pad(depth int) string {
	return strings.Repeat(" ", depth*e.opts.Indent)
}

// mapLines renders one "key: value" line per field, recursing for
// nested maps and lists
func (e *encoder) mapLines(m map[string]any, depth int) ([]string, error) {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var lines []string
	for _, key := range keys {
		fieldLines, err := e.fieldLines(key, m[key], depth)
		if err != nil {
			return nil, err
		}
		lines = append(lines, fieldLines...)
	}
	return lines, nil
}

func (e *encoder) fieldLines(key string, value any, depth int) ([]string, error) {
	keyText := e.encodeKey(key)

	switch v := value.(type) {
	case map[string]any:
		head := e.pad(depth) + keyText + ":"
		if len(v) == 0 {
			return []string{head}, nil
		}
		children, err := e.mapLines(v, depth+1)
		if err != nil {
			return nil, err
		}
		return append([]string{head}, children...), nil

	case []any:
		return e.listLines(keyText, v, depth)

	default:
		scalar, err := e.scalar(value)
		if err != nil {
			return nil, err
		}
		return []string{e.pad(depth) + keyText + ": " + scalar}, nil
	}
}

// listLines picks the list shape: inline for all-primitive items,
// tabular for uniform flat objects, dash-prefixed block otherwise.
// keyText is empty for keyless (top-level or nested-item) lists.
func (e *encoder) listLines(keyText string, list []any, depth int) ([]string, error) {
	head := e.pad(depth) + keyText + "[" + strconv.Itoa(len(list)) + "]"

	if len(list) == 0 {
		return []string{head + ":"}, nil
	}

	if allPrimitive(list) {
		values := make([]string, len(list))
		for i, item := range list {
			scalar, err := e.scalar(item)
			if err != nil {
				return nil, err
			}
			values[i] = scalar
		}
		return []string{head + ": " + strings.Join(values, e.opts.Delimiter)}, nil
	}

	if fields, ok := tabularFields(list); ok {
		encodedFields := make([]string, len(fields))
		for i, field := range fields {
			encodedFields[i] = e.encodeKey(field)
		}
		lines := []string{head + "{" + strings.Join(encodedFields, e.opts.Delimiter) + "}:"}
		for _, item := range list {
			row := item.(map[string]any)
			values := make([]string, len(fields))
			for i, field := range fields {
				scalar, err := e.scalar(row[field])
				if err != nil {
					return nil, err
				}
				values[i] = scalar
			}
			lines = append(lines, e.pad(depth+1)+strings.Join(values, e.opts.Delimiter))
		}
		return lines, nil
	}

	lines := []string{head + ":"}
	for _, item := range list {
		itemLines, err := e.itemLines(item, depth+1)
		if err != nil {
			return nil, err
		}
		lines = append(lines, itemLines...)
	}
	return lines, nil
}

// itemLines renders one mixed-list item. Map and list items splice the
// dash into their first line; their remaining lines keep one extra
// indentation level.
func (e *encoder) itemLines(item any, depth int) ([]string, error) {
	dash := e.pad(depth) + "- "

	switch v := item.(type) {
	case map[string]any:
		if len(v) == 0 {
			return []string{e.pad(depth) + "-"}, nil
		}
		lines, err := e.mapLines(v, depth+1)
		if err != nil {
			return nil, err
		}
		lines[0] = dash + strings.TrimLeft(lines[0], " ")
		return lines, nil

	case []any:
		lines, err := e.listLines("", v, depth+1)
		if err != nil {
			return nil, err
		}
		lines[0] = dash + strings.TrimLeft(lines[0], " ")
		return lines, nil

	default:
		scalar, err := e.scalar(item)
		if err != nil {
			return nil, err
		}
		return []string{dash + scalar}, nil
	}
}

func (e *encoder) encodeKey(key string) string {
	if key == "" {
		return ""
	}
	if e.needsQuoting(key) {
		return quoteString(key)
	}
	return key
}

// scalar renders a primitive. Integral floats keep a ".0" suffix so
// decoding preserves their type.
func (e *encoder) scalar(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "null", nil
	case bool:
		if v {
			return "true", nil
		}
		return "false", nil
	case string:
		if e.needsQuoting(v) {
			return quoteString(v), nil
		}
		return v, nil
	case int:
		return strconv.FormatInt(int64(v), 10), nil
	case int8:
		return strconv.FormatInt(int64(v), 10), nil
	case int16:
		return strconv.FormatInt(int64(v), 10), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float32:
		return formatFloat(float64(v)), nil
	case float64:
		return formatFloat(v), nil
	default:
		return "", &EncodeError{Message: fmt.Sprintf("unsupported value type %T", value)}
	}
}

func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// needsQuoting reports whether a bare string would be misread by the
// decoder: empty, padded, numeric-looking, a reserved word, dash-led,
// containing structural characters, the delimiter, or control
// whitespace.
func (e *encoder) needsQuoting(s string) bool {
	if s == "" {
		return true
	}
	if s != strings.TrimSpace(s) {
		return true
	}
	switch s {
	case "true", "false", "null":
		return true
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return true
	}
	if strings.HasPrefix(s, "-") {
		return true
	}
	if strings.ContainsAny(s, structuralChars) {
		return true
	}
	if strings.ContainsAny(s, "\n\r\t") {
		return true
	}
	return strings.Contains(s, e.opts.Delimiter)
}

var escapeReplacer = strings.NewReplacer(
	"\\", "\\\\",
	"\"", "\\\"",
	"\n", "\\n",
	"\r", "\\r",
	"\t", "\\t",
)

func quoteString(s string) string {
	return "\"" + escapeReplacer.Replace(s) + "\""
}

func allPrimitive(list []any) bool {
	for _, item := range list {
		if !isPrimitive(item) {
			return false
		}
	}
	return true
}

func isPrimitive(value any) bool {
	switch value.(type) {
	case map[string]any, []any:
		return false
	}
	return true
}

// tabularFields reports whether every list item is a flat object with
// the same key set, returning the shared field order (sorted) when so
func tabularFields(list []any) ([]string, bool) {
	var fields []string
	for i, item := range list {
		row, ok := item.(map[string]any)
		if !ok || len(row) == 0 {
			return nil, false
		}

		keys := make([]string, 0, len(row))
		for key, value := range row {
			if !isPrimitive(value) {
				return nil, false
			}
			keys = append(keys, key)
		}
		sort.Strings(keys)

		if i == 0 {
			fields = keys
			continue
		}
		if len(keys) != len(fields) {
			return nil, false
		}
		for j := range keys {
			if keys[j] != fields[j] {
				return nil, false
			}
		}
	}
	return fields, true
}
