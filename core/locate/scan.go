package locate

import "strings"

// DefaultHintKeys are key fragments that mark a mapping entry as likely to
// hold a payload. Hinted entries are scanned before the others.
var DefaultHintKeys = []string{"data", "image", "blob", "b64", "base64", "bytes", "inline", "payload"}

// scan walks the tree depth first and returns the first accepted leaf.
// Mappings visit hinted entries first, then the rest, each group in
// encounter order; sequences go left to right.
func (l *Locator) scan(root *Node) ([]byte, bool) {
	return l.scanNode(root, make(map[*Node]struct{}))
}

// scanNode skips composites already searched: a shared node that held no
// payload the first time holds none the second.
func (l *Locator) scanNode(n *Node, searched map[*Node]struct{}) ([]byte, bool) {
	if n == nil {
		return nil, false
	}
	if n.Kind == KindSequence || n.Kind == KindMapping {
		if _, ok := searched[n]; ok {
			return nil, false
		}
		searched[n] = struct{}{}
	}
	switch n.Kind {
	case KindString, KindBytes:
		return l.accept(n, false)

	case KindSequence:
		for _, item := range n.Items {
			if data, ok := l.scanNode(item, searched); ok {
				return data, true
			}
		}

	case KindMapping:
		var rest []*Node
		for _, entry := range n.Entries {
			if !l.hinted(entry.Key) {
				rest = append(rest, entry.Value)
				continue
			}
			if data, ok := l.scanNode(entry.Value, searched); ok {
				return data, true
			}
		}
		for _, value := range rest {
			if data, ok := l.scanNode(value, searched); ok {
				return data, true
			}
		}
	}
	return nil, false
}

func (l *Locator) hinted(key string) bool {
	key = normalizeKey(key)
	for _, hint := range l.opts.HintKeys {
		if strings.Contains(key, hint) {
			return true
		}
	}
	return false
}
