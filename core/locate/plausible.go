package locate

import (
	"bytes"
	"encoding/base64"
	"strings"
)

// DefaultMinPayloadLength is the shortest whitespace-free string accepted as a
// base64 payload. Short alphanumeric strings (ids, hashes, finish reasons) are
// far more common than tiny images, so anything below it is rejected.
const DefaultMinPayloadLength = 200

var base64Alphabet = func() (table [256]bool) {
	for c := 'A'; c <= 'Z'; c++ {
		table[c] = true
	}
	for c := 'a'; c <= 'z'; c++ {
		table[c] = true
	}
	for c := '0'; c <= '9'; c++ {
		table[c] = true
	}
	table['+'], table['/'], table['='] = true, true, true
	return table
}()

// Plausible reports whether s looks like a base64 payload under the default
// threshold: after removing whitespace it is at least
// [DefaultMinPayloadLength] characters long and uses only the standard base64
// alphabet.
func Plausible(s string) bool {
	return plausible(stripWhitespace(s), DefaultMinPayloadLength)
}

// plausible expects s without whitespace.
func plausible(s string, minLength int) bool {
	if len(s) < minLength || len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !base64Alphabet[s[i]] {
			return false
		}
	}
	return true
}

func stripWhitespace(s string) string {
	if strings.IndexAny(s, " \t\r\n") < 0 {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\r', '\n':
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// stripDataURI removes a "data:<mime>;base64," prefix.
func stripDataURI(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	header, payload, ok := strings.Cut(s, ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return s
	}
	return payload
}

// decodeBase64 decodes standard base64, with or without padding.
func decodeBase64(s string) ([]byte, bool) {
	if decoded, err := base64.StdEncoding.DecodeString(s); err == nil && len(decoded) > 0 {
		return decoded, true
	}
	decoded, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil || len(decoded) == 0 {
		return nil, false
	}
	return decoded, true
}

// signature is the leading magic number of an image format.
type signature struct {
	mime  string
	magic []byte
}

var signatures = []signature{
	{mime: "image/png", magic: []byte("\x89PNG")},
	{mime: "image/jpeg", magic: []byte{0xff, 0xd8, 0xff}},
	{mime: "image/gif", magic: []byte("GIF8")},
	{mime: "image/webp", magic: []byte("RIFF")},
}

// sniff returns the MIME type of a known image signature at the start of data.
func sniff(data []byte) (string, bool) {
	for _, sig := range signatures {
		if !bytes.HasPrefix(data, sig.magic) {
			continue
		}
		if sig.mime == "image/webp" && (len(data) < 12 || string(data[8:12]) != "WEBP") {
			continue
		}
		return sig.mime, true
	}
	return "", false
}

// acceptString applies the plausibility gate, then escaped-binary recovery.
func (l *Locator) acceptString(s string) ([]byte, bool) {
	candidate := stripWhitespace(stripDataURI(strings.TrimSpace(s)))
	if plausible(candidate, l.opts.MinPayloadLength) {
		if decoded, ok := decodeBase64(candidate); ok {
			return decoded, true
		}
	}
	return Unescape(s)
}

// acceptBytes accepts raw image bytes, base64 text carried as bytes, or an
// escaped dump carried as bytes. trusted is set by known-shape probes, whose
// byte fields are payloads by definition.
func (l *Locator) acceptBytes(raw []byte, trusted bool) ([]byte, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	if _, ok := sniff(raw); ok {
		return bytes.Clone(raw), true
	}
	if decoded, ok := l.acceptString(string(raw)); ok {
		return decoded, true
	}
	if trusted {
		return bytes.Clone(raw), true
	}
	return nil, false
}

// accept dispatches on the leaf kind.
func (l *Locator) accept(n *Node, trusted bool) ([]byte, bool) {
	if n == nil {
		return nil, false
	}
	switch n.Kind {
	case KindString:
		return l.acceptString(n.Text)
	case KindBytes:
		return l.acceptBytes(n.Bytes, trusted)
	}
	return nil, false
}
