package locate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Kind tags the variant held by a Node.
type Kind int

const (
	KindNull     Kind = iota // absent, nil, cyclic or unsupported value
	KindString               // text value, candidate for base64 or escaped payloads
	KindScalar               // number or boolean rendered as text
	KindBytes                // raw byte sequence
	KindSequence             // ordered list of nodes
	KindMapping              // keyed entries in encounter order
)

// Node is one value of the tree built from an external response. The tree is
// acyclic by construction, so every traversal over it terminates. A value
// reached through several references is converted once and its node shared.
type Node struct {
	Kind    Kind
	Text    string  // KindString and KindScalar
	Bytes   []byte  // KindBytes
	Items   []*Node // KindSequence
	Entries []Entry // KindMapping
}

// Entry is a key/value pair of a mapping node.
type Entry struct {
	Key   string
	Value *Node
}

var (
	nullNode       = &Node{Kind: KindNull}
	jsonNumberType = reflect.TypeFor[json.Number]()
)

// Get returns the value of the first entry whose key matches one of keys.
// Matching ignores case, '_' and '-', so "inline_data", "inlineData" and the
// Go field name "InlineData" are the same key. It returns nil when n is not a
// mapping or no key matches.
func (n *Node) Get(keys ...string) *Node {
	if n == nil || n.Kind != KindMapping {
		return nil
	}
	for _, key := range keys {
		want := normalizeKey(key)
		for _, entry := range n.Entries {
			if normalizeKey(entry.Key) == want {
				return entry.Value
			}
		}
	}
	return nil
}

// Index returns the i-th item of a sequence node, or nil.
func (n *Node) Index(i int) *Node {
	if n == nil || n.Kind != KindSequence || i < 0 || i >= len(n.Items) {
		return nil
	}
	return n.Items[i]
}

// IsLeaf reports whether the node can itself carry a payload.
func (n *Node) IsLeaf() bool {
	return n != nil && (n.Kind == KindString || n.Kind == KindBytes)
}

func normalizeKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "_", "")
	return strings.ReplaceAll(key, "-", "")
}

// visitKey identifies a composite value. Slices sharing a backing array but
// with different lengths are distinct values.
type visitKey struct {
	typ reflect.Type
	ptr uintptr
	len int
}

// builder converts an arbitrary Go value into a Node tree. active holds the
// pointers, maps and slices on the path from the root to the value being
// converted; reaching one of them again is a back-edge and becomes a null
// node. done memoizes finished conversions so shared values keep their
// content wherever they are referenced.
type builder struct {
	active   map[visitKey]struct{}
	done     map[visitKey]*Node
	maxDepth int
	maxText  int
	nodes    int
}

func newBuilder(maxDepth, maxText int) *builder {
	return &builder{
		active:   make(map[visitKey]struct{}),
		done:     make(map[visitKey]*Node),
		maxDepth: maxDepth,
		maxText:  maxText,
	}
}

// visit converts the composite identified by key with convert, unless it is
// an ancestor of the current value or was converted before.
func (b *builder) visit(key visitKey, convert func() *Node) *Node {
	if node, ok := b.done[key]; ok {
		return node
	}
	if _, ok := b.active[key]; ok {
		return nullNode
	}
	b.active[key] = struct{}{}
	node := convert()
	delete(b.active, key)
	b.done[key] = node
	return node
}

func (b *builder) build(v reflect.Value, depth int) *Node {
	if !v.IsValid() || depth > b.maxDepth {
		return nullNode
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nullNode
		}
		return b.build(v.Elem(), depth)

	case reflect.Pointer:
		if v.IsNil() {
			return nullNode
		}
		return b.visit(visitKey{typ: v.Type(), ptr: v.Pointer()}, func() *Node {
			return b.build(v.Elem(), depth)
		})

	case reflect.Map:
		if v.IsNil() {
			return nullNode
		}
		return b.visit(visitKey{typ: v.Type(), ptr: v.Pointer()}, func() *Node {
			return b.buildMap(v, depth)
		})

	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return b.buildBytes(v.Bytes(), depth)
		}
		if v.IsNil() {
			return nullNode
		}
		return b.visit(visitKey{typ: v.Type(), ptr: v.Pointer(), len: v.Len()}, func() *Node {
			return b.buildSequence(v, depth)
		})

	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			raw := make([]byte, v.Len())
			reflect.Copy(reflect.ValueOf(raw), v)
			return &Node{Kind: KindBytes, Bytes: raw}
		}
		return b.buildSequence(v, depth)

	case reflect.Struct:
		return b.buildStruct(v, depth)

	case reflect.String:
		if v.Type() == jsonNumberType {
			return &Node{Kind: KindScalar, Text: v.String()}
		}
		return b.buildString(v.String(), depth)

	case reflect.Bool:
		return &Node{Kind: KindScalar, Text: fmt.Sprint(v.Bool())}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return &Node{Kind: KindScalar, Text: fmt.Sprint(v.Int())}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return &Node{Kind: KindScalar, Text: fmt.Sprint(v.Uint())}

	case reflect.Float32, reflect.Float64:
		return &Node{Kind: KindScalar, Text: fmt.Sprint(v.Float())}

	default:
		// chan, func, complex and unsafe pointers never carry payloads
		return nullNode
	}
}

func (b *builder) buildMap(v reflect.Value, depth int) *Node {
	b.nodes++
	keys := v.MapKeys()
	names := make([]string, len(keys))
	for i, key := range keys {
		names[i] = mapKeyString(key)
	}
	order := make([]int, len(keys))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, c int) bool { return names[order[a]] < names[order[c]] })

	node := &Node{Kind: KindMapping, Entries: make([]Entry, 0, len(keys))}
	for _, i := range order {
		node.Entries = append(node.Entries, Entry{
			Key:   names[i],
			Value: b.build(v.MapIndex(keys[i]), depth+1),
		})
	}
	return node
}

func mapKeyString(key reflect.Value) string {
	if key.Kind() == reflect.String {
		return key.String()
	}
	if key.CanInterface() {
		return fmt.Sprint(key.Interface())
	}
	return key.Type().String()
}

func (b *builder) buildSequence(v reflect.Value, depth int) *Node {
	b.nodes++
	node := &Node{Kind: KindSequence, Items: make([]*Node, 0, v.Len())}
	for i := 0; i < v.Len(); i++ {
		node.Items = append(node.Items, b.build(v.Index(i), depth+1))
	}
	return node
}

func (b *builder) buildStruct(v reflect.Value, depth int) *Node {
	b.nodes++
	node := &Node{Kind: KindMapping}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() && !(field.Anonymous && isStructType(field.Type)) {
			continue
		}
		name, skip := fieldName(field)
		if skip {
			continue
		}
		child := b.build(v.Field(i), depth+1)
		if field.Anonymous && child.Kind == KindMapping && !hasJSONName(field) {
			node.Entries = append(node.Entries, child.Entries...)
			continue
		}
		node.Entries = append(node.Entries, Entry{Key: name, Value: child})
	}
	return node
}

// isStructType reports whether t is a struct or a pointer to one. Exported
// fields of embedded structs are promoted even when the embedded type is not.
func isStructType(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

func fieldName(field reflect.StructField) (string, bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name, false
	}
	return field.Name, false
}

func hasJSONName(field reflect.StructField) bool {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	return name != "" && name != "-"
}

// buildBytes keeps raw bytes as a leaf unless they hold a JSON document, as
// happens with undecoded HTTP bodies and json.RawMessage fields.
func (b *builder) buildBytes(raw []byte, depth int) *Node {
	if decoded, ok := b.decodeJSON(raw); ok {
		return b.build(reflect.ValueOf(decoded), depth+1)
	}
	return &Node{Kind: KindBytes, Bytes: raw}
}

// buildString expands strings holding a JSON object or array, which models
// and SDK wrappers produce when they stringify nested payloads.
func (b *builder) buildString(s string, depth int) *Node {
	if decoded, ok := b.decodeJSON([]byte(s)); ok {
		return b.build(reflect.ValueOf(decoded), depth+1)
	}
	return &Node{Kind: KindString, Text: s}
}

func (b *builder) decodeJSON(raw []byte) (any, bool) {
	if len(raw) < 2 || len(raw) > b.maxText {
		return nil, false
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) < 2 {
		return nil, false
	}
	first, last := trimmed[0], trimmed[len(trimmed)-1]
	if !(first == '{' && last == '}') && !(first == '[' && last == ']') {
		return nil, false
	}
	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return nil, false
	}
	return decoded, true
}
