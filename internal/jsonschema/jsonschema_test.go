package jsonschema

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGenerate_Primitives(t *testing.T) {
	tests := []struct {
		name string
		gen  func() (*Schema, error)
		want *Schema
	}{
		{name: "string", gen: Generate[string], want: &Schema{Type: "string"}},
		{name: "int", gen: Generate[int64], want: &Schema{Type: "integer"}},
		{name: "float", gen: Generate[float32], want: &Schema{Type: "number"}},
		{name: "bool", gen: Generate[bool], want: &Schema{Type: "boolean"}},
		{name: "pointer", gen: Generate[*string], want: &Schema{Type: "string"}},
		{name: "bytes", gen: Generate[[]byte], want: &Schema{Type: "string"}},
		{name: "byte array", gen: Generate[[4]byte], want: &Schema{Type: "array", Items: &Schema{Type: "integer"}}},
		{name: "slice", gen: Generate[[]string], want: &Schema{Type: "array", Items: &Schema{Type: "string"}}},
		{name: "map", gen: Generate[map[string]float64], want: &Schema{Type: "object", AdditionalProperties: &Schema{Type: "number"}}},
		{name: "interface", gen: Generate[any], want: &Schema{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.gen()
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Generate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

type sticker struct {
	Shape  string   `json:"shape" jsonschema:"enum=star,enum=heart,description=Forma de la pegatina, sin colores"`
	Size   int      `json:"size,omitempty" jsonschema:"required,enum=1,enum=2"`
	Colors []string `json:"colors"`
	Note   *string  `json:"note"`
	Hidden string   `json:"-"`
	secret string
	Scale  float64
}

func TestGenerate_Struct(t *testing.T) {
	got, err := Generate[sticker]()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	want := &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"shape":  {Type: "string", Description: "Forma de la pegatina, sin colores", Enum: []any{"star", "heart"}},
			"size":   {Type: "integer", Enum: []any{int64(1), int64(2)}},
			"colors": {Type: "array", Items: &Schema{Type: "string"}},
			"note":   {Type: "string"},
			"Scale":  {Type: "number"},
		},
		Required: []string{"shape", "size", "colors", "Scale"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Generate() mismatch (-want +got):\n%s", diff)
	}
}

type storyNode struct {
	Text     string       `json:"text"`
	Children []*storyNode `json:"children,omitempty"`
}

type story struct {
	Title string     `json:"title"`
	Root  *storyNode `json:"root"`
}

func TestGenerate_Recursive(t *testing.T) {
	t.Run("recursive root", func(t *testing.T) {
		got, err := Generate[storyNode]()
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if got.Type != "object" || got.Ref != "" {
			t.Fatalf("root = %+v, want an inline object", got)
		}
		if ref := got.Properties["children"].Items.Ref; ref != "#/$defs/storynode" {
			t.Errorf("children items $ref = %q", ref)
		}
		def := got.Defs["storynode"]
		if def == nil || def.Defs != nil {
			t.Fatalf("$defs[storynode] = %+v, want a definition without nested $defs", def)
		}
		if _, err := json.Marshal(got); err != nil {
			t.Errorf("json.Marshal() error = %v", err)
		}
	})

	t.Run("recursive field", func(t *testing.T) {
		got, err := Generate[story]()
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if ref := got.Properties["root"].Ref; ref != "#/$defs/storynode" {
			t.Errorf("root $ref = %q", ref)
		}
		if def := got.Defs["storynode"]; def == nil || def.Properties["text"].Type != "string" {
			t.Errorf("$defs[storynode] = %+v", def)
		}
	})
}

type badEnum struct {
	Age int `json:"age" jsonschema:"enum=old"`
}

type unknownEntry struct {
	Name string `json:"name" jsonschema:"minLength=2"`
}

type enumOnList struct {
	Tags []string `json:"tags" jsonschema:"enum=a"`
}

func TestGenerate_TagErrors(t *testing.T) {
	tests := []struct {
		name    string
		gen     func() (*Schema, error)
		wantErr string
	}{
		{name: "enum of the wrong type", gen: Generate[badEnum], wantErr: "badEnum.Age"},
		{name: "unknown entry", gen: Generate[unknownEntry], wantErr: `unknown jsonschema tag entry "minLength=2"`},
		{name: "enum on a list", gen: Generate[enumOnList], wantErr: "enum is not supported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.gen()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Generate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestMustGenerate_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustGenerate() did not panic on an invalid tag")
		}
	}()
	MustGenerate[badEnum]()
}

func TestSchema_String(t *testing.T) {
	schema := &Schema{Type: "object", Properties: map[string]*Schema{"titulo": {Type: "string"}}}
	want := `{"type":"object","properties":{"titulo":{"type":"string"}}}`
	if got := schema.String(); got != want {
		t.Errorf("String() = %s, want %s", got, want)
	}
}
