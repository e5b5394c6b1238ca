/*-------------------------------------------------------------------------
 *
 * pgEdge Hybrid Search
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package schema derives JSON Schema descriptions from Go types by
// running an ordered chain of describers over reflected type
// information. Each describer contributes or refines keys in a shared
// schema map; later describers may override what earlier ones wrote,
// so pipeline order is explicit configuration rather than an
// implementation detail. The result feeds tool-call parameter schemas
// for LLM function calling.
package schema

import (
	"fmt"
	"reflect"
)

// InputSchema is the wire shape of a tool parameter schema
type InputSchema struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Required   []string       `json:"required,omitempty"`
}

// Target is what a describer looks at: a reflected type, plus the
// struct field carrying its tags when the type is a field of a parent
// struct
type Target struct {
	Type  reflect.Type
	Field *reflect.StructField
}

// Describer contributes schema fragments for a target. Implementations
// must tolerate keys already present from earlier describers and may
// overwrite them.
type Describer interface {
	Describe(ctx *Context, target Target, schema map[string]any) error
}

// Pipeline is an ordered describer chain
type Pipeline struct {
	describers []Describer
}

// NewPipeline builds a pipeline running the given describers in order
func NewPipeline(describers ...Describer) *Pipeline {
	return &Pipeline{describers: describers}
}

// Default returns the standard chain: type inference first, then enum
// derivation, validation constraints, descriptions, and finally raw
// overrides so explicit schema tags win over everything inferred.
func Default() *Pipeline {
	return NewPipeline(
		TypeDescriber{},
		EnumDescriber{},
		ConstraintDescriber{},
		DescriptionDescriber{},
		OverrideDescriber{},
	)
}

// Describe runs the chain over a type and returns the merged schema
func (p *Pipeline) Describe(t reflect.Type) (map[string]any, error) {
	ctx := &Context{pipeline: p, seen: map[reflect.Type]bool{}}
	return ctx.Recurse(Target{Type: t})
}

// InputSchema describes a struct type (or pointer to one) as a
// tool-call parameter schema
func (p *Pipeline) InputSchema(t reflect.Type) (InputSchema, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return InputSchema{}, &UnsupportedTypeError{Type: t}
	}

	root, err := p.Describe(t)
	if err != nil {
		return InputSchema{}, err
	}

	properties, _ := root["properties"].(map[string]any)
	if properties == nil {
		properties = map[string]any{}
	}
	required, _ := root["required"].([]string)
	return InputSchema{Type: "object", Properties: properties, Required: required}, nil
}

// Context carries recursion state through one Describe call. Describers
// use Recurse to re-run the whole chain for nested types.
type Context struct {
	pipeline *Pipeline
	seen     map[reflect.Type]bool
}

// Recurse runs every describer in the pipeline against a nested target
func (c *Context) Recurse(target Target) (map[string]any, error) {
	schema := map[string]any{}
	for _, d := range c.pipeline.describers {
		if err := d.Describe(c, target, schema); err != nil {
			return nil, err
		}
	}
	return schema, nil
}

// UnsupportedTypeError reports a type with no reflectable JSON shape
type UnsupportedTypeError struct {
	Type reflect.Type
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("schema: cannot describe type %s (kind %s)", e.Type, e.Type.Kind())
}
