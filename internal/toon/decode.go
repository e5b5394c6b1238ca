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
	"strconv"
	"strings"
)

// Decode parses TOON text back into maps, lists and primitives.
// Numbers come back as int64 or float64, matching what Encode writes.
// In lenient mode declared counts and unknown escapes are tolerated;
// Strict turns both into a DecodeError.
func Decode(input string, opts *Options) (any, error) {
	d := &decoder{opts: opts.withDefaults()}
	lines := strings.Split(strings.ReplaceAll(input, "\r\n", "\n"), "\n")

	start := d.nextContent(lines, 0, len(lines))
	if start == len(lines) {
		// an empty document is an empty map, matching what Encode
		// produces for one
		return map[string]any{}, nil
	}

	content := strings.TrimSpace(lines[start])
	if strings.HasPrefix(content, "[") {
		value, _, err := d.parseListRest(content, lines, start, len(lines), 0)
		return value, err
	}
	if d.isScalarLine(content) {
		return d.parseScalar(content, start+1)
	}
	value, _, err := d.parseMap(lines, start, len(lines), 0)
	return value, err
}

type decoder struct {
	opts Options
}

func (d *decoder) level(line string) int {
	spaces := len(line) - len(strings.TrimLeft(line, " "))
	return spaces / d.opts.Indent
}

func (d *decoder) nextContent(lines []string, i, end int) int {
	for i < end && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	return i
}

// isScalarLine reports whether a line holds a bare value rather than a
// "key:" or "key[n]" structure. Unquoted scalars never contain ':' or
// '[' because the encoder quotes strings that do.
func (d *decoder) isScalarLine(content string) bool {
	if strings.HasPrefix(content, "\"") {
		closing := closingQuote(content)
		if closing < 0 {
			return true
		}
		rest := content[closing+1:]
		return !strings.HasPrefix(rest, ":") && !strings.HasPrefix(rest, "[")
	}
	return !strings.ContainsAny(content, ":[")
}

// parseMap consumes consecutive fields at the given indentation level
// and returns the index of the first line it did not consume
func (d *decoder) parseMap(lines []string, start, end, level int) (map[string]any, int, error) {
	result := map[string]any{}
	i := start
	for i < end {
		i = d.nextContent(lines, i, end)
		if i == end {
			break
		}
		lvl := d.level(lines[i])
		if lvl < level {
			break
		}
		if lvl > level {
			return nil, 0, &DecodeError{Line: i + 1, Message: fmt.Sprintf("unexpected indentation (level %d, expected %d)", lvl, level)}
		}
		key, value, next, err := d.parseField(lines, i, end, level)
		if err != nil {
			return nil, 0, err
		}
		result[key] = value
		i = next
	}
	return result, i, nil
}

// parseField parses one "key: value", "key:" block or "key[n]..." list
// line together with any dependent lines below it
func (d *decoder) parseField(lines []string, i, end, level int) (string, any, int, error) {
	lineNum := i + 1
	content := strings.TrimLeft(lines[i], " ")

	key, rest, err := d.parseKey(content, lineNum)
	if err != nil {
		return "", nil, 0, err
	}

	if strings.HasPrefix(rest, "[") {
		value, next, err := d.parseListRest(rest, lines, i, end, level)
		return key, value, next, err
	}

	remainder := strings.TrimSpace(rest[1:])
	if remainder != "" {
		value, err := d.parseScalar(remainder, lineNum)
		return key, value, i + 1, err
	}

	// a bare "key:" is a nested map when deeper lines follow, an empty
	// map otherwise
	j := d.nextContent(lines, i+1, end)
	if j < end && d.level(lines[j]) > level {
		value, next, err := d.parseMap(lines, j, end, level+1)
		return key, value, next, err
	}
	return key, map[string]any{}, i + 1, nil
}

// parseKey splits a line into its key and the rest starting at ':' or
// '['. Keyless list headers return an empty key.
func (d *decoder) parseKey(content string, lineNum int) (string, string, error) {
	if content == "" {
		return "", "", &DecodeError{Line: lineNum, Message: "empty line where a field was expected"}
	}
	if content[0] == '"' {
		closing := closingQuote(content)
		if closing < 0 {
			return "", "", &DecodeError{Line: lineNum, Message: "unterminated quoted key"}
		}
		key, err := d.unquote(content[:closing+1], lineNum)
		if err != nil {
			return "", "", err
		}
		rest := content[closing+1:]
		if !strings.HasPrefix(rest, ":") && !strings.HasPrefix(rest, "[") {
			return "", "", &DecodeError{Line: lineNum, Message: "missing ':' after key"}
		}
		return key, rest, nil
	}
	if content[0] == '[' {
		return "", content, nil
	}
	idx := strings.IndexAny(content, ":[")
	if idx < 0 {
		return "", "", &DecodeError{Line: lineNum, Message: "missing ':' after key"}
	}
	return strings.TrimSpace(content[:idx]), content[idx:], nil
}

// parseListRest parses a "[n]..." header (with the key already
// stripped) plus the list body, which is inline, tabular or a
// dash-item block depending on the header shape
func (d *decoder) parseListRest(rest string, lines []string, i, end, level int) (any, int, error) {
	lineNum := i + 1

	closeBracket := strings.Index(rest, "]")
	if closeBracket < 0 {
		return nil, 0, &DecodeError{Line: lineNum, Message: "malformed list header, missing ']'"}
	}
	count, err := strconv.Atoi(strings.TrimSpace(rest[1:closeBracket]))
	if err != nil || count < 0 {
		return nil, 0, &DecodeError{Line: lineNum, Message: fmt.Sprintf("invalid list count %q", rest[1:closeBracket])}
	}
	after := rest[closeBracket+1:]

	if strings.HasPrefix(after, "{") {
		return d.parseTabular(after, count, lines, i, end, level)
	}

	if !strings.HasPrefix(after, ":") {
		return nil, 0, &DecodeError{Line: lineNum, Message: "expected ':' after list header"}
	}

	remainder := strings.TrimSpace(after[1:])
	if remainder != "" {
		tokens := d.splitFields(remainder)
		if d.opts.Strict && len(tokens) != count {
			return nil, 0, &DecodeError{Line: lineNum, Message: fmt.Sprintf("declared %d values, found %d", count, len(tokens))}
		}
		values := make([]any, len(tokens))
		for idx, token := range tokens {
			if values[idx], err = d.parseScalar(token, lineNum); err != nil {
				return nil, 0, err
			}
		}
		return values, i + 1, nil
	}

	items, next, err := d.parseItems(lines, i+1, end, level+1)
	if err != nil {
		return nil, 0, err
	}
	if d.opts.Strict && len(items) != count {
		return nil, 0, &DecodeError{Line: lineNum, Message: fmt.Sprintf("declared %d items, found %d", count, len(items))}
	}
	return items, next, nil
}

// parseTabular reads a "{f1,f2}:" header remainder and one row line
// per item at the next indentation level
func (d *decoder) parseTabular(after string, count int, lines []string, i, end, level int) (any, int, error) {
	lineNum := i + 1

	closeBrace := indexOutsideQuotes(after, '}')
	if closeBrace < 0 {
		return nil, 0, &DecodeError{Line: lineNum, Message: "malformed tabular header, missing '}'"}
	}
	fieldTokens := d.splitFields(after[1:closeBrace])
	fields := make([]string, len(fieldTokens))
	for idx, token := range fieldTokens {
		if strings.HasPrefix(token, "\"") {
			field, err := d.unquote(token, lineNum)
			if err != nil {
				return nil, 0, err
			}
			fields[idx] = field
		} else {
			fields[idx] = token
		}
	}
	if !strings.HasPrefix(after[closeBrace+1:], ":") {
		return nil, 0, &DecodeError{Line: lineNum, Message: "expected ':' after tabular header"}
	}

	items := []any{}
	j := i + 1
	for j < end {
		j = d.nextContent(lines, j, end)
		if j == end || d.level(lines[j]) <= level {
			break
		}
		rowLine := j + 1
		tokens := d.splitFields(strings.TrimSpace(lines[j]))
		if d.opts.Strict && len(tokens) != len(fields) {
			return nil, 0, &DecodeError{Line: rowLine, Message: fmt.Sprintf("row has %d values, header declares %d fields", len(tokens), len(fields))}
		}
		row := map[string]any{}
		for idx, field := range fields {
			if idx >= len(tokens) {
				break
			}
			value, err := d.parseScalar(tokens[idx], rowLine)
			if err != nil {
				return nil, 0, err
			}
			row[field] = value
		}
		items = append(items, row)
		j++
	}
	if d.opts.Strict && len(items) != count {
		return nil, 0, &DecodeError{Line: lineNum, Message: fmt.Sprintf("declared %d rows, found %d", count, len(items))}
	}
	return items, j, nil
}

// parseItems reads dash-prefixed list items at the given level. Map
// and nested-list items continue on the dash line itself, so the line
// is reparsed one level deeper with the dash stripped.
func (d *decoder) parseItems(lines []string, start, end, level int) ([]any, int, error) {
	items := []any{}
	i := start
	for i < end {
		i = d.nextContent(lines, i, end)
		if i == end {
			break
		}
		trimmed := strings.TrimLeft(lines[i], " ")
		if d.level(lines[i]) != level || !strings.HasPrefix(trimmed, "-") {
			break
		}

		content := strings.TrimSpace(trimmed[1:])
		if content == "" {
			items = append(items, map[string]any{})
			i++
			continue
		}
		if d.isScalarLine(content) {
			value, err := d.parseScalar(content, i+1)
			if err != nil {
				return nil, 0, err
			}
			items = append(items, value)
			i++
			continue
		}

		saved := lines[i]
		lines[i] = strings.Repeat(" ", (level+1)*d.opts.Indent) + content

		var value any
		var next int
		var err error
		if content[0] == '[' {
			value, next, err = d.parseListRest(content, lines, i, end, level+1)
		} else {
			value, next, err = d.parseMap(lines, i, end, level+1)
		}
		lines[i] = saved
		if err != nil {
			return nil, 0, err
		}
		items = append(items, value)
		i = next
	}
	return items, i, nil
}

// parseScalar interprets one trimmed token as null, bool, int64,
// float64 or string. Quoted tokens are unescaped; anything else that
// is not a number or keyword is a bare string.
func (d *decoder) parseScalar(token string, lineNum int) (any, error) {
	if token == "" {
		return "", nil
	}
	if token[0] == '"' {
		if len(token) < 2 || token[len(token)-1] != '"' {
			return nil, &DecodeError{Line: lineNum, Message: "unterminated string"}
		}
		return d.unquote(token, lineNum)
	}
	switch token {
	case "null":
		return nil, nil
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	if n, err := strconv.ParseInt(token, 10, 64); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(token, 64); err == nil {
		return f, nil
	}
	return token, nil
}

// unquote strips the surrounding quotes and resolves escapes. Unknown
// escapes keep the escaped character in lenient mode and fail in
// strict mode.
func (d *decoder) unquote(token string, lineNum int) (string, error) {
	inner := token[1 : len(token)-1]
	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(inner) {
			if d.opts.Strict {
				return "", &DecodeError{Line: lineNum, Message: "dangling escape at end of string"}
			}
			b.WriteByte('\\')
			break
		}
		switch inner[i] {
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		default:
			if d.opts.Strict {
				return "", &DecodeError{Line: lineNum, Message: fmt.Sprintf("unknown escape sequence \\%c", inner[i])}
			}
			b.WriteByte(inner[i])
		}
	}
	return b.String(), nil
}

// splitFields splits on the delimiter outside quoted sections and
// trims each token
func (d *decoder) splitFields(s string) []string {
	var fields []string
	var buf strings.Builder
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inQuote {
			buf.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				i++
				buf.WriteByte(s[i])
				continue
			}
			if c == '"' {
				inQuote = false
			}
			continue
		}
		if c == '"' {
			inQuote = true
			buf.WriteByte(c)
			continue
		}
		if strings.HasPrefix(s[i:], d.opts.Delimiter) {
			fields = append(fields, strings.TrimSpace(buf.String()))
			buf.Reset()
			i += len(d.opts.Delimiter) - 1
			continue
		}
		buf.WriteByte(c)
	}
	fields = append(fields, strings.TrimSpace(buf.String()))
	return fields
}

// closingQuote returns the index of the quote terminating a string
// that starts at position 0, or -1 when unterminated
func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

func indexOutsideQuotes(s string, target byte) int {
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inQuote {
			if c == '\\' {
				i++
			} else if c == '"' {
				inQuote = false
			}
			continue
		}
		if c == '"' {
			inQuote = true
			continue
		}
		if c == target {
			return i
		}
	}
	return -1
}
