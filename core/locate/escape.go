package locate

import (
	"strings"
	"unicode/utf8"
)

// escapedMarkers are image signatures as they appear after a transport has
// rendered binary data through a backslash-escaping text layer: Python bytes
// repr (\x89PNG), C or protobuf text format (\211PNG) and latin-1 text passed
// through a JSON encoder (\u0089PNG).
var escapedMarkers = []string{
	`\x89PNG`,
	`\211PNG`,
	`\u0089PNG`,
	`\xff\xd8\xff`,
	`\377\330\377`,
	`\u00ff\u00d8\u00ff`,
}

// maxCollapse bounds how many escaping layers are peeled off a dump.
const maxCollapse = 3

// Unescape finds an escaped image signature inside text and decodes the
// escaped run that starts there into raw bytes. The run ends at the quote
// that opened it, at the first quote when the run is unquoted, or at the end
// of text. Dumps escaped more than once (\\x89PNG) are collapsed first.
// Every signature occurrence outside an earlier run is tried, so a log line
// quoting the signature ahead of the real dump does not hide it; the longest
// decoded run wins. The second result is false when no run starts with a
// known image signature.
func Unescape(text string) ([]byte, bool) {
	if !strings.Contains(text, `\`) {
		return nil, false
	}
	for i := 0; i < maxCollapse && hasDoubleEscapedMarker(text); i++ {
		text = strings.ReplaceAll(text, `\\`, `\`)
	}

	var best []byte
	markers := newMarkerIndex(text)
	for offset := 0; offset < len(text); {
		start := markers.next(offset)
		if start < 0 {
			break
		}
		run, end := unescapeRun(text, start)
		if _, ok := sniff(run); ok && len(run) > len(best) {
			best = run
		}
		offset = max(end, start+1)
	}
	return best, best != nil
}

func hasDoubleEscapedMarker(text string) bool {
	for _, marker := range escapedMarkers {
		if strings.Contains(text, strings.ReplaceAll(marker, `\`, `\\`)) {
			return true
		}
	}
	return false
}

// markerIndex finds signature occurrences in increasing order. Each marker
// keeps its next position, so a full pass costs one scan per marker.
type markerIndex struct {
	text string
	pos  []int
}

func newMarkerIndex(text string) *markerIndex {
	m := &markerIndex{text: text, pos: make([]int, len(escapedMarkers))}
	for i, marker := range escapedMarkers {
		m.pos[i] = strings.Index(text, marker)
	}
	return m
}

// next returns the first occurrence at or after offset, or -1.
func (m *markerIndex) next(offset int) int {
	best := -1
	for i, marker := range escapedMarkers {
		if m.pos[i] >= 0 && m.pos[i] < offset {
			m.pos[i] = -1
			if j := strings.Index(m.text[offset:], marker); j >= 0 {
				m.pos[i] = offset + j
			}
		}
		if m.pos[i] >= 0 && (best < 0 || m.pos[i] < best) {
			best = m.pos[i]
		}
	}
	return best
}

// unescapeRun decodes the run starting at start and returns the bytes with
// the offset where the run ended.
func unescapeRun(text string, start int) ([]byte, int) {
	var quote byte
	if start > 0 && (text[start-1] == '\'' || text[start-1] == '"') {
		quote = text[start-1]
	}

	out := make([]byte, 0, len(text)-start)
	rest := text[start:]
	for len(rest) > 0 {
		c := rest[0]
		if c == quote || (quote == 0 && (c == '\'' || c == '"')) {
			break
		}
		if c != '\\' {
			out = append(out, c)
			rest = rest[1:]
			continue
		}
		decoded, width, ok := unescapeOne(rest)
		if !ok {
			break
		}
		out = append(out, decoded...)
		rest = rest[width:]
	}
	return out, len(text) - len(rest)
}

// unescapeOne decodes the escape sequence at the start of s, which begins
// with a backslash, and returns the decoded bytes and the consumed width.
func unescapeOne(s string) ([]byte, int, bool) {
	if len(s) < 2 {
		return nil, 0, false
	}
	switch c := s[1]; c {
	case 'x':
		if v, ok := parseHex(s[2:], 2); ok {
			return []byte{byte(v)}, 4, true
		}
		return nil, 0, false
	case 'u':
		v, ok := parseHex(s[2:], 4)
		if !ok {
			return nil, 0, false
		}
		if v <= 0xff {
			return []byte{byte(v)}, 6, true
		}
		return utf8.AppendRune(nil, rune(v)), 6, true
	case 'n':
		return []byte{'\n'}, 2, true
	case 'r':
		return []byte{'\r'}, 2, true
	case 't':
		return []byte{'\t'}, 2, true
	case 'a':
		return []byte{'\a'}, 2, true
	case 'b':
		return []byte{'\b'}, 2, true
	case 'f':
		return []byte{'\f'}, 2, true
	case 'v':
		return []byte{'\v'}, 2, true
	case '\\', '\'', '"', '/':
		return []byte{c}, 2, true
	case '0', '1', '2', '3', '4', '5', '6', '7':
		v, width := 0, 1
		for width <= 3 && width < len(s) && s[width] >= '0' && s[width] <= '7' {
			v = v*8 + int(s[width]-'0')
			width++
		}
		if v > 0xff {
			return nil, 0, false
		}
		return []byte{byte(v)}, width, true
	}
	return nil, 0, false
}

func parseHex(s string, digits int) (int, bool) {
	if len(s) < digits {
		return 0, false
	}
	v := 0
	for i := 0; i < digits; i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			v = v*16 + int(c-'0')
		case c >= 'a' && c <= 'f':
			v = v*16 + int(c-'a'+10)
		case c >= 'A' && c <= 'F':
			v = v*16 + int(c-'A'+10)
		default:
			return 0, false
		}
	}
	return v, true
}
