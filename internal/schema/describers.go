/*-------------------------------------------------------------------------
 *
 * pgEdge Hybrid Search
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// TypeDescriber infers the JSON type from the Go type: primitives map
// directly, pointers mark the schema nullable, slices and string-keyed
// maps recurse into their element type, and structs recurse into their
// exported fields through the whole pipeline.
type TypeDescriber struct{}

func (TypeDescriber) Describe(ctx *Context, target Target, schema map[string]any) error {
	return describeType(ctx, target.Type, schema)
}

func describeType(ctx *Context, t reflect.Type, schema map[string]any) error {
	if t == timeType {
		schema["type"] = "string"
		schema["format"] = "date-time"
		return nil
	}

	switch t.Kind() {
	case reflect.Pointer:
		if err := describeType(ctx, t.Elem(), schema); err != nil {
			return err
		}
		schema["nullable"] = true

	case reflect.String:
		schema["type"] = "string"

	case reflect.Bool:
		schema["type"] = "boolean"

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		schema["type"] = "integer"

	case reflect.Float32, reflect.Float64:
		schema["type"] = "number"

	case reflect.Slice, reflect.Array:
		schema["type"] = "array"
		items, err := ctx.Recurse(Target{Type: t.Elem()})
		if err != nil {
			return err
		}
		schema["items"] = items

	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return &UnsupportedTypeError{Type: t}
		}
		schema["type"] = "object"
		additional, err := ctx.Recurse(Target{Type: t.Elem()})
		if err != nil {
			return err
		}
		schema["additionalProperties"] = additional

	case reflect.Struct:
		schema["type"] = "object"
		// a revisited type stays a bare object, breaking reference
		// cycles
		if ctx.seen[t] {
			return nil
		}
		ctx.seen[t] = true
		defer delete(ctx.seen, t)

		properties := map[string]any{}
		var required []string
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			name, optional, skip := fieldName(field)
			if skip {
				continue
			}
			prop, err := ctx.Recurse(Target{Type: field.Type, Field: &field})
			if err != nil {
				return err
			}
			properties[name] = prop
			if !optional && field.Type.Kind() != reflect.Pointer {
				required = append(required, name)
			}
		}
		schema["properties"] = properties
		if len(required) > 0 {
			schema["required"] = required
		}

	case reflect.Interface:
		// any value is allowed, leave the schema unconstrained

	default:
		return &UnsupportedTypeError{Type: t}
	}
	return nil
}

// fieldName resolves the property name from the json tag, reporting
// whether the field is optional (omitempty) or skipped ("-")
func fieldName(field reflect.StructField) (name string, optional, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	name = field.Name
	if tag == "" {
		return name, false, false
	}
	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		name = parts[0]
	}
	for _, part := range parts[1:] {
		if part == "omitempty" {
			optional = true
		}
	}
	return name, optional, false
}

// Enumerated exposes the closed value set of an enum-like type. Types
// implementing it get an "enum" keyword without any tag.
type Enumerated interface {
	EnumValues() []any
}

// EnumDescriber derives the enum keyword, either from a type
// implementing Enumerated or from an explicit comma-separated "enum"
// struct tag. Tag values are converted to the inferred JSON type.
type EnumDescriber struct{}

func (EnumDescriber) Describe(ctx *Context, target Target, schema map[string]any) error {
	t := target.Type
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if enumerated, ok := reflect.New(t).Interface().(Enumerated); ok {
		schema["enum"] = enumerated.EnumValues()
	}

	if target.Field == nil {
		return nil
	}
	tag := target.Field.Tag.Get("enum")
	if tag == "" {
		return nil
	}

	tokens := strings.Split(tag, ",")
	values := make([]any, len(tokens))
	for i, token := range tokens {
		value, err := convertEnumValue(strings.TrimSpace(token), schema["type"])
		if err != nil {
			return fmt.Errorf("schema: invalid enum value %q on field %s: %w", token, target.Field.Name, err)
		}
		values[i] = value
	}
	schema["enum"] = values
	return nil
}

func convertEnumValue(token string, jsonType any) (any, error) {
	switch jsonType {
	case "integer":
		return strconv.ParseInt(token, 10, 64)
	case "number":
		return strconv.ParseFloat(token, 64)
	default:
		return token, nil
	}
}

// ConstraintDescriber translates validation struct tags into schema
// keywords: minimum, maximum, minLength, maxLength, pattern, format
type ConstraintDescriber struct{}

func (ConstraintDescriber) Describe(ctx *Context, target Target, schema map[string]any) error {
	if target.Field == nil {
		return nil
	}
	tags := target.Field.Tag

	for _, numeric := range []string{"minimum", "maximum"} {
		if tag := tags.Get(numeric); tag != "" {
			value, err := strconv.ParseFloat(tag, 64)
			if err != nil {
				return fmt.Errorf("schema: invalid %s tag %q on field %s: %w", numeric, tag, target.Field.Name, err)
			}
			schema[numeric] = value
		}
	}
	for _, integral := range []string{"minLength", "maxLength"} {
		if tag := tags.Get(integral); tag != "" {
			value, err := strconv.Atoi(tag)
			if err != nil {
				return fmt.Errorf("schema: invalid %s tag %q on field %s: %w", integral, tag, target.Field.Name, err)
			}
			schema[integral] = value
		}
	}
	if tag := tags.Get("pattern"); tag != "" {
		schema["pattern"] = tag
	}
	if tag := tags.Get("format"); tag != "" {
		schema["format"] = tag
	}
	return nil
}

// DescriptionDescriber copies the "description" struct tag into the
// schema
type DescriptionDescriber struct{}

func (DescriptionDescriber) Describe(ctx *Context, target Target, schema map[string]any) error {
	if target.Field == nil {
		return nil
	}
	if tag := target.Field.Tag.Get("description"); tag != "" {
		schema["description"] = tag
	}
	return nil
}

// OverrideDescriber merges a raw JSON object from the "schema" struct
// tag over everything inferred so far. It runs last in the default
// chain, so explicit overrides always win.
type OverrideDescriber struct{}

func (OverrideDescriber) Describe(ctx *Context, target Target, schema map[string]any) error {
	if target.Field == nil {
		return nil
	}
	tag := target.Field.Tag.Get("schema")
	if tag == "" {
		return nil
	}

	var override map[string]any
	if err := json.Unmarshal([]byte(tag), &override); err != nil {
		return fmt.Errorf("schema: invalid schema tag on field %s: %w", target.Field.Name, err)
	}
	for key, value := range override {
		schema[key] = value
	}
	return nil
}
