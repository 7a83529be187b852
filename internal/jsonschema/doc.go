// Package jsonschema derives JSON Schema documents from Go types.
//
// Generated schemas describe structured model output: the response schema
// sent with a generation request is built from the Go type the reply is
// decoded into, so the two cannot drift apart.
//
// Struct fields follow encoding/json naming. A field is required unless it is
// a pointer or tagged omitempty; a `jsonschema` tag adds a description, enum
// values or an explicit required marker. Recursive types are emitted once
// under $defs and referenced with $ref.
package jsonschema
