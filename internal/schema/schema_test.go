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
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

type searchParams struct {
	Query    string            `json:"query" description:"Search text" minLength:"1"`
	Limit    int               `json:"limit,omitempty" minimum:"1" maximum:"100"`
	Ratio    *float64          `json:"ratio" minimum:"0" maximum:"1"`
	Tags     []string          `json:"tags,omitempty"`
	Filters  map[string]string `json:"filters,omitempty"`
	Strategy string            `json:"strategy,omitempty" enum:"native,bm25"`
	Ignored  string            `json:"-"`

	hidden string
}

func TestInputSchemaFromStruct(t *testing.T) {
	got, err := Default().InputSchema(reflect.TypeOf(searchParams{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Type != "object" {
		t.Errorf("expected object type, got %q", got.Type)
	}
	if !reflect.DeepEqual(got.Required, []string{"query"}) {
		t.Errorf("expected only query required, got %v", got.Required)
	}
	if len(got.Properties) != 6 {
		t.Errorf("expected 6 properties, got %d: %v", len(got.Properties), got.Properties)
	}
	if _, present := got.Properties["Ignored"]; present {
		t.Error("json:\"-\" field must be skipped")
	}
	if _, present := got.Properties["hidden"]; present {
		t.Error("unexported field must be skipped")
	}

	query := got.Properties["query"].(map[string]any)
	if query["type"] != "string" || query["description"] != "Search text" || query["minLength"] != 1 {
		t.Errorf("unexpected query schema: %v", query)
	}

	limit := got.Properties["limit"].(map[string]any)
	if limit["type"] != "integer" || limit["minimum"] != 1.0 || limit["maximum"] != 100.0 {
		t.Errorf("unexpected limit schema: %v", limit)
	}

	ratio := got.Properties["ratio"].(map[string]any)
	if ratio["type"] != "number" || ratio["nullable"] != true {
		t.Errorf("pointer field must be a nullable number: %v", ratio)
	}

	tags := got.Properties["tags"].(map[string]any)
	if tags["type"] != "array" || tags["items"].(map[string]any)["type"] != "string" {
		t.Errorf("unexpected tags schema: %v", tags)
	}

	filters := got.Properties["filters"].(map[string]any)
	if filters["type"] != "object" || filters["additionalProperties"].(map[string]any)["type"] != "string" {
		t.Errorf("unexpected filters schema: %v", filters)
	}

	strategy := got.Properties["strategy"].(map[string]any)
	if !reflect.DeepEqual(strategy["enum"], []any{"native", "bm25"}) {
		t.Errorf("unexpected strategy enum: %v", strategy["enum"])
	}
}

func TestNumericEnumTagConvertsValues(t *testing.T) {
	type params struct {
		Level int `json:"level" enum:"1,2,3"`
	}

	got, err := Default().InputSchema(reflect.TypeOf(params{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	level := got.Properties["level"].(map[string]any)
	if !reflect.DeepEqual(level["enum"], []any{int64(1), int64(2), int64(3)}) {
		t.Errorf("expected integer enum values, got %#v", level["enum"])
	}
}

type searchMode string

func (searchMode) EnumValues() []any {
	return []any{"vector", "hybrid"}
}

func TestEnumeratedTypeDerivesEnum(t *testing.T) {
	got, err := Default().Describe(reflect.TypeOf(searchMode("")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["type"] != "string" || !reflect.DeepEqual(got["enum"], []any{"vector", "hybrid"}) {
		t.Errorf("unexpected schema: %v", got)
	}
}

func TestNestedStructRecursion(t *testing.T) {
	type author struct {
		Name string `json:"name"`
	}
	type doc struct {
		Title  string `json:"title"`
		Author author `json:"author"`
	}

	got, err := Default().Describe(reflect.TypeOf(doc{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	nested := got["properties"].(map[string]any)["author"].(map[string]any)
	if nested["type"] != "object" {
		t.Errorf("expected nested object, got %v", nested)
	}
	name := nested["properties"].(map[string]any)["name"].(map[string]any)
	if name["type"] != "string" {
		t.Errorf("expected nested property schema, got %v", name)
	}
	if !reflect.DeepEqual(nested["required"], []string{"name"}) {
		t.Errorf("expected nested required list, got %v", nested["required"])
	}
}

func TestSelfReferentialTypeTerminates(t *testing.T) {
	type node struct {
		Value int   `json:"value"`
		Next  *node `json:"next,omitempty"`
	}

	got, err := Default().Describe(reflect.TypeOf(node{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	next := got["properties"].(map[string]any)["next"].(map[string]any)
	if next["type"] != "object" || next["nullable"] != true {
		t.Errorf("expected cycle to degrade to a bare nullable object, got %v", next)
	}
	if _, present := next["properties"]; present {
		t.Error("expected no recursion into the cyclic type")
	}
}

func TestTimeBecomesDateTimeString(t *testing.T) {
	type event struct {
		At time.Time `json:"at"`
	}

	got, err := Default().Describe(reflect.TypeOf(event{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	at := got["properties"].(map[string]any)["at"].(map[string]any)
	if at["type"] != "string" || at["format"] != "date-time" {
		t.Errorf("unexpected time schema: %v", at)
	}
}

func TestOverrideTagWins(t *testing.T) {
	type params struct {
		ID string `json:"id" schema:"{\"type\":\"string\",\"format\":\"uuid\"}"`
	}

	got, err := Default().InputSchema(reflect.TypeOf(params{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id := got.Properties["id"].(map[string]any)
	if id["format"] != "uuid" {
		t.Errorf("expected override format, got %v", id)
	}
}

func TestUnsupportedTypes(t *testing.T) {
	tests := []struct {
		name   string
		target reflect.Type
	}{
		{name: "channel field", target: reflect.TypeOf(struct {
			C chan int `json:"c"`
		}{})},
		{name: "func field", target: reflect.TypeOf(struct {
			F func() `json:"f"`
		}{})},
		{name: "non string map key", target: reflect.TypeOf(struct {
			M map[int]string `json:"m"`
		}{})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Default().Describe(tt.target)
			var unsupported *UnsupportedTypeError
			if !errors.As(err, &unsupported) {
				t.Fatalf("expected UnsupportedTypeError, got %v", err)
			}
			if !strings.Contains(err.Error(), "cannot describe type") {
				t.Errorf("unexpected message: %v", err)
			}
		})
	}
}

func TestInputSchemaRejectsNonStruct(t *testing.T) {
	_, err := Default().InputSchema(reflect.TypeOf("not a struct"))
	var unsupported *UnsupportedTypeError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedTypeError, got %v", err)
	}
}

func TestInputSchemaAcceptsPointerToStruct(t *testing.T) {
	got, err := Default().InputSchema(reflect.TypeOf(&searchParams{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Type != "object" || len(got.Properties) == 0 {
		t.Errorf("unexpected schema: %#v", got)
	}
}

// raisingDescriber asserts that pipeline order is authoritative: a
// describer appended after the default chain can rewrite its output.
type raisingDescriber struct{}

func (raisingDescriber) Describe(ctx *Context, target Target, schema map[string]any) error {
	if schema["type"] == "string" {
		schema["type"] = "text"
	}
	return nil
}

func TestExplicitOrderLetsLaterDescribersOverride(t *testing.T) {
	pipeline := NewPipeline(TypeDescriber{}, raisingDescriber{})
	got, err := pipeline.Describe(reflect.TypeOf(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["type"] != "text" {
		t.Errorf("expected later describer to override, got %v", got["type"])
	}
}
