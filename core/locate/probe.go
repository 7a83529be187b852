package locate

// Probe is a known response layout. Candidates walks a fixed path through the
// tree and returns the leaves that should hold the payload, in priority
// order. A missing field anywhere on the path yields no candidates; it is
// never an error.
type Probe struct {
	Name       string
	Candidates func(root *Node) []*Node
}

// Probe names, also reported in [Result.Strategy].
const (
	ProbeGallery      = "gallery"
	ProbeCandidates   = "candidates"
	ProbeContentParts = "content_parts"
)

// dataFields are the alternately named fields observed to hold image data on
// a gallery element.
var dataFields = []string{"data", "base64_data", "b64_json", "image_bytes", "bytes", "base64"}

// DefaultProbes returns the built-in probe chain:
//   - gallery: images[0].data (and its aliases), as returned by image
//     generation endpoints and by generic chat responses;
//   - candidates: candidates[0].content.parts[*].inline_data.data, the
//     generateContent layout;
//   - content_parts: content.parts[*].inline_data.data for a single content
//     object, or parts[*] at the root.
func DefaultProbes() []Probe {
	return []Probe{
		{Name: ProbeGallery, Candidates: galleryCandidates},
		{Name: ProbeCandidates, Candidates: candidateCandidates},
		{Name: ProbeContentParts, Candidates: contentPartCandidates},
	}
}

func galleryCandidates(root *Node) []*Node {
	first := root.Get("images", "generated_images").Index(0)
	if first == nil {
		return nil
	}
	if first.IsLeaf() {
		return []*Node{first}
	}
	out := fieldsOf(first, dataFields)
	return append(out, fieldsOf(first.Get("image"), dataFields)...)
}

func candidateCandidates(root *Node) []*Node {
	content := root.Get("candidates").Index(0).Get("content")
	return partsPayloads(content.Get("parts"))
}

func contentPartCandidates(root *Node) []*Node {
	if parts := root.Get("content").Get("parts"); parts != nil {
		return partsPayloads(parts)
	}
	return partsPayloads(root.Get("parts"))
}

func partsPayloads(parts *Node) []*Node {
	if parts == nil || parts.Kind != KindSequence {
		return nil
	}
	var out []*Node
	for _, part := range parts.Items {
		if data := part.Get("inline_data").Get("data"); data != nil {
			out = append(out, data)
		}
	}
	return out
}

// fieldsOf returns the values of the named fields present on n, in the order
// of names.
func fieldsOf(n *Node, names []string) []*Node {
	var out []*Node
	for _, name := range names {
		if value := n.Get(name); value != nil {
			out = append(out, value)
		}
	}
	return out
}
