package activity

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var (
	// jsonFence matches a code fence labelled json and captures its body. An
	// unterminated fence is captured to the end of the text.
	jsonFence = regexp.MustCompile("(?is)(?:```|~~~)[ \t]*json[ \t]*\\r?\\n?(.*?)(?:```|~~~|$)")

	// fenceMarker matches every fence opener or closer with its optional
	// language label.
	fenceMarker = regexp.MustCompile("(?i)(?:```|~~~)[ \t]*(?:json)?")
)

// fencedBodies returns the bodies of every json-labelled fence in text.
func fencedBodies(text string) []string {
	var out []string
	for _, match := range jsonFence.FindAllStringSubmatch(text, -1) {
		if body := strings.TrimSpace(match[1]); body != "" {
			out = append(out, body)
		}
	}
	return out
}

// stripFences removes fence markers and stray backticks.
func stripFences(text string) string {
	text = fenceMarker.ReplaceAllString(text, "")
	return strings.TrimSpace(strings.ReplaceAll(text, "`", ""))
}

// objectCandidates returns the substrings of text that may hold the object,
// in the order they are tried: the first {…} span ending at the next closing
// brace and at least minLength long, the span from the first { to the last },
// and the tail from the first { for output cut off before it closed.
func objectCandidates(text string, minLength int) []string {
	first := strings.IndexByte(text, '{')
	if first < 0 {
		return nil
	}

	var out []string
	add := func(s string) {
		for _, seen := range out {
			if seen == s {
				return
			}
		}
		out = append(out, s)
	}

	for start := first; start >= 0; {
		end := strings.IndexByte(text[start:], '}')
		if end < 0 {
			break
		}
		if span := text[start : start+end+1]; len(span) >= minLength {
			add(span)
			break
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}

	if last := strings.LastIndexByte(text, '}'); last > first {
		add(text[first : last+1])
	}
	add(text[first:])
	return out
}

// parseObject decodes s as a JSON object, retrying with a repaired copy when
// the model produced invalid JSON.
func parseObject(s string) (map[string]any, error) {
	var obj map[string]any
	err := json.Unmarshal([]byte(s), &obj)
	if err == nil {
		return obj, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(s)
	if repairErr != nil {
		return nil, fmt.Errorf("failed to unmarshal object and failed to repair JSON: unmarshal error: %w, repair error: %v", err, repairErr)
	}
	obj = nil
	if err := json.Unmarshal([]byte(repaired), &obj); err != nil {
		return nil, fmt.Errorf("failed to unmarshal repaired JSON: %w", err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: repaired JSON is null", ErrNoObject)
	}
	return obj, nil
}

// decode parses s and converts it to a Record. Objects whose values are
// wrapped in schema-like {"type": ..., "value": ...} envelopes are unwrapped
// and validated again.
func decode(s string) (Record, error) {
	obj, err := parseObject(s)
	if err != nil {
		return Record{}, err
	}
	record, err := fromObject(obj)
	if err == nil {
		return record, nil
	}
	if unwrapped, ok := unwrapSchemaValues(obj).(map[string]any); ok {
		if record, unwrapErr := fromObject(unwrapped); unwrapErr == nil {
			return record, nil
		}
	}
	return Record{}, err
}

// unwrapSchemaValues replaces every {"type": ..., "value": ...} map, a common
// mistake when models confuse the response schema with the data, by its
// value.
//
// Example input:
//
//	{"titulo": {"type": "string", "value": "Dragones"}, "duracion_minutos": {"type": "number", "value": 5}}
//
// Example output:
//
//	{"titulo": "Dragones", "duracion_minutos": 5}
func unwrapSchemaValues(data any) any {
	switch v := data.(type) {
	case map[string]any:
		if _, hasType := v["type"]; hasType {
			if value, hasValue := v["value"]; hasValue && len(v) == 2 {
				return unwrapSchemaValues(value)
			}
		}
		out := make(map[string]any, len(v))
		for key, val := range v {
			out[key] = unwrapSchemaValues(val)
		}
		return out

	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = unwrapSchemaValues(val)
		}
		return out

	default:
		return data
	}
}
