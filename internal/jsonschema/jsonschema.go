package jsonschema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Schema is a JSON Schema document or subschema.
type Schema struct {
	Type                 string             `json:"type,omitempty"`
	Description          string             `json:"description,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	Items                *Schema            `json:"items,omitempty"` // array element schema
	AdditionalProperties *Schema            `json:"additionalProperties,omitempty"`
	Enum                 []any              `json:"enum,omitempty"`
	Ref                  string             `json:"$ref,omitempty"`
	Defs                 map[string]*Schema `json:"$defs,omitempty"`
}

// Generate returns the schema of T. It fails when a jsonschema tag cannot be
// applied to its field, such as an enum value of the wrong type.
func Generate[T any]() (*Schema, error) {
	g := &generator{
		defs:      make(map[reflect.Type]string),
		schemas:   make(map[string]*Schema),
		recursive: make(map[reflect.Type]bool),
	}
	schema, err := g.schema(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	if len(g.schemas) > 0 {
		schema.Defs = g.schemas
	}
	return schema, nil
}

// MustGenerate is like Generate but panics on error. It suits package-level
// schemas of types whose tags are fixed at compile time.
func MustGenerate[T any]() *Schema {
	schema, err := Generate[T]()
	if err != nil {
		panic(fmt.Sprintf("jsonschema: %v", err))
	}
	return schema
}

// generator carries the state of one Generate call. defs names the recursive
// struct types already given a $defs entry.
type generator struct {
	defs      map[reflect.Type]string
	schemas   map[string]*Schema
	recursive map[reflect.Type]bool
	depth     int
}

func (g *generator) schema(t reflect.Type) (*Schema, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.String:
		return &Schema{Type: "string"}, nil
	case reflect.Bool:
		return &Schema{Type: "boolean"}, nil
	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}, nil

	case reflect.Slice, reflect.Array:
		if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
			// encoding/json writes []byte as a base64 string
			return &Schema{Type: "string"}, nil
		}
		items, err := g.schema(t.Elem())
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "array", Items: items}, nil

	case reflect.Map:
		values, err := g.schema(t.Elem())
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "object", AdditionalProperties: values}, nil

	case reflect.Struct:
		return g.structSchema(t)

	default:
		// interfaces and anything encoding/json cannot type statically
		return &Schema{}, nil
	}
}

// structSchema inlines non-recursive structs. A recursive struct is defined
// once under $defs; the outermost occurrence stays inline so the root of a
// recursive type is still a plain object schema.
func (g *generator) structSchema(t reflect.Type) (*Schema, error) {
	if name, ok := g.defs[t]; ok {
		return &Schema{Ref: "#/$defs/" + name}, nil
	}
	if !g.isRecursive(t) {
		return g.objectSchema(t)
	}

	name := defName(t, len(g.schemas))
	g.defs[t] = name
	schema, err := g.objectSchema(t)
	if err != nil {
		return nil, err
	}
	if g.depth == 0 {
		// the root receives the $defs map, so its definition must be a copy
		def := *schema
		g.schemas[name] = &def
		return schema, nil
	}
	g.schemas[name] = schema
	return &Schema{Ref: "#/$defs/" + name}, nil
}

func (g *generator) objectSchema(t reflect.Type) (*Schema, error) {
	g.depth++
	defer func() { g.depth-- }()

	schema := &Schema{Type: "object", Properties: make(map[string]*Schema)}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name, omitEmpty, skip := jsonName(field)
		if skip {
			continue
		}

		property, err := g.schema(field.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name(), field.Name, err)
		}
		required := field.Type.Kind() != reflect.Pointer && !omitEmpty
		if property.Ref == "" {
			tagged, err := applyTag(field, property)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", t.Name(), field.Name, err)
			}
			required = required || tagged
		}

		schema.Properties[name] = property
		if required {
			schema.Required = append(schema.Required, name)
		}
	}
	return schema, nil
}

// isRecursive reports whether t can reach itself through its fields.
func (g *generator) isRecursive(t reflect.Type) bool {
	if known, ok := g.recursive[t]; ok {
		return known
	}
	found := reaches(t, t, make(map[reflect.Type]bool))
	g.recursive[t] = found
	return found
}

func reaches(target, current reflect.Type, visited map[reflect.Type]bool) bool {
	for current.Kind() == reflect.Pointer || current.Kind() == reflect.Slice ||
		current.Kind() == reflect.Array || current.Kind() == reflect.Map {
		current = current.Elem()
	}
	if current.Kind() != reflect.Struct || visited[current] {
		return false
	}
	visited[current] = true
	for i := 0; i < current.NumField(); i++ {
		field := current.Field(i)
		if !field.IsExported() {
			continue
		}
		next := field.Type
		for next.Kind() == reflect.Pointer || next.Kind() == reflect.Slice ||
			next.Kind() == reflect.Array || next.Kind() == reflect.Map {
			next = next.Elem()
		}
		if next == target || reaches(target, next, visited) {
			return true
		}
	}
	return false
}

func defName(t reflect.Type, n int) string {
	if t.Name() != "" {
		return strings.ToLower(t.Name())
	}
	return "anonymous" + strconv.Itoa(n)
}

// jsonName returns the property name encoding/json uses for field.
func jsonName(field reflect.StructField) (name string, omitEmpty, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = field.Name
	}
	for _, opt := range strings.Split(opts, ",") {
		if opt == "omitempty" || opt == "omitzero" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

// applyTag applies a `jsonschema` tag to schema and reports whether the tag
// marks the field required. Entries are comma separated: "required",
// "enum=<value>" (repeatable) and "description=<text>". A description takes
// the rest of the tag, so it must come last and may contain commas.
func applyTag(field reflect.StructField, schema *Schema) (bool, error) {
	tag := field.Tag.Get("jsonschema")
	required := false
	for tag = strings.TrimSpace(tag); tag != ""; tag = strings.TrimSpace(tag) {
		var entry string
		if strings.HasPrefix(tag, "description=") {
			entry, tag = tag, ""
		} else {
			entry, tag, _ = strings.Cut(tag, ",")
		}

		key, value, hasValue := strings.Cut(strings.TrimSpace(entry), "=")
		switch {
		case key == "required" && !hasValue:
			required = true
		case key == "description":
			schema.Description = value
		case key == "enum":
			v, err := enumValue(field.Type, value)
			if err != nil {
				return false, err
			}
			schema.Enum = append(schema.Enum, v)
		case key == "": // trailing comma
		default:
			return false, fmt.Errorf("unknown jsonschema tag entry %q", entry)
		}
	}
	return required, nil
}

// enumValue converts a tag value to the JSON type of the field.
func enumValue(t reflect.Type, value string) (any, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return value, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("enum value %q: %w", value, err)
		}
		return n, nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("enum value %q: %w", value, err)
		}
		return f, nil
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("enum value %q: %w", value, err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("enum is not supported on %s fields", t)
	}
}

// String returns the compact JSON form of s.
func (s *Schema) String() string {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return string(data)
}
