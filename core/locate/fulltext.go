package locate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxTextLength bounds the text rendering searched by the full-text
// strategy.
const DefaultMaxTextLength = 32 << 20

// maxRegexpRepeat is the largest repetition count Go's regexp accepts.
const maxRegexpRepeat = 1000

// runPatterns compiles the patterns for a quoted base64 run and for the
// payload of a data URI, both at least minLength characters long. Longer
// thresholds are enforced by the plausibility check on each match.
func runPatterns(minLength int) (quoted, dataURI *regexp.Regexp) {
	repeat := min(max(minLength, 1), maxRegexpRepeat)
	quoted = regexp.MustCompile(fmt.Sprintf(`["']([A-Za-z0-9+/=\r\n]{%d,})["']`, repeat))
	dataURI = regexp.MustCompile(fmt.Sprintf(`base64,([A-Za-z0-9+/=]{%d,})`, repeat))
	return quoted, dataURI
}

// fullText renders the tree and searches the rendering for a quoted base64
// run, a data URI payload or an escaped signature run.
func (l *Locator) fullText(root *Node) ([]byte, bool) {
	var sb strings.Builder
	render(&sb, root, l.opts.MaxTextLength)
	text := sb.String()

	for _, pattern := range []*regexp.Regexp{l.quotedRun, l.dataURIRun} {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			candidate := stripWhitespace(match[1])
			if !plausible(candidate, l.opts.MinPayloadLength) {
				continue
			}
			if decoded, ok := decodeBase64(candidate); ok {
				return decoded, true
			}
		}
	}
	return Unescape(text)
}

// render writes a JSON-like text form of n, stopping once limit bytes are
// written. Strings are written verbatim between double quotes so escape
// sequences inside them survive unchanged.
func render(sb *strings.Builder, n *Node, limit int) {
	if n == nil || sb.Len() >= limit {
		return
	}
	switch n.Kind {
	case KindNull:
		sb.WriteString("null")
	case KindScalar:
		sb.WriteString(n.Text)
	case KindString:
		writeQuoted(sb, n.Text, limit)
	case KindBytes:
		if utf8.Valid(n.Bytes) {
			writeQuoted(sb, string(n.Bytes), limit)
		} else {
			sb.WriteString("null")
		}
	case KindSequence:
		sb.WriteByte('[')
		for i, item := range n.Items {
			if i > 0 {
				sb.WriteString(", ")
			}
			render(sb, item, limit)
		}
		sb.WriteByte(']')
	case KindMapping:
		sb.WriteByte('{')
		for i, entry := range n.Entries {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeQuoted(sb, entry.Key, limit)
			sb.WriteString(": ")
			render(sb, entry.Value, limit)
		}
		sb.WriteByte('}')
	}
}

func writeQuoted(sb *strings.Builder, s string, limit int) {
	if room := limit - sb.Len() - 2; len(s) > room {
		s = s[:max(room, 0)]
	}
	sb.WriteByte('"')
	sb.WriteString(s)
	sb.WriteByte('"')
}
