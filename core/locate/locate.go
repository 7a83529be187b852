package locate

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// DefaultMaxDepth bounds the nesting depth converted into the tree.
const DefaultMaxDepth = 64

// Strategy names reported in [Result.Strategy] besides the probe names.
const (
	StrategyScan     = "scan"
	StrategyFullText = "fulltext"
)

// Result is the outcome of one locate call. It is either found, carrying the
// decoded payload bytes, or not found with an empty Data.
type Result struct {
	// Data holds the raw payload bytes (not base64).
	Data []byte
	// Strategy names the probe or strategy that produced Data.
	Strategy string
	// Nodes counts the composite values converted while building the tree.
	Nodes int
	// Faults lists strategies that panicked and were treated as misses.
	Faults []string
}

// Found reports whether a payload was located.
func (r Result) Found() bool {
	return len(r.Data) > 0
}

// Base64 returns Data in standard base64 with padding, or "" when nothing was
// found.
func (r Result) Base64() string {
	if !r.Found() {
		return ""
	}
	return base64.StdEncoding.EncodeToString(r.Data)
}

// MimeType returns the image type recognised from the payload signature, or
// "application/octet-stream".
func (r Result) MimeType() string {
	if mime, ok := sniff(r.Data); ok {
		return mime
	}
	return "application/octet-stream"
}

// Options tunes a Locator. Zero values are replaced by the package defaults.
type Options struct {
	MinPayloadLength int
	MaxTextLength    int
	MaxDepth         int
	Probes           []Probe
	HintKeys         []string
}

// Option configures a Locator.
type Option func(*Options)

// WithMinPayloadLength sets the plausibility threshold for base64 strings.
func WithMinPayloadLength(n int) Option {
	return func(o *Options) {
		o.MinPayloadLength = n
	}
}

// WithMaxTextLength bounds the rendering searched by the full-text strategy.
func WithMaxTextLength(n int) Option {
	return func(o *Options) {
		o.MaxTextLength = n
	}
}

// WithMaxDepth bounds the nesting depth converted into the tree.
func WithMaxDepth(n int) Option {
	return func(o *Options) {
		o.MaxDepth = n
	}
}

// WithProbes replaces the known-shape probe chain.
func WithProbes(probes ...Probe) Option {
	return func(o *Options) {
		o.Probes = probes
	}
}

// WithHintKeys replaces the key fragments preferred by the recursive scan.
func WithHintKeys(keys ...string) Option {
	return func(o *Options) {
		o.HintKeys = keys
	}
}

// Locator runs the locate strategy chain. Its configuration is fixed at
// construction, so a Locator is safe for concurrent use.
type Locator struct {
	opts       Options
	quotedRun  *regexp.Regexp
	dataURIRun *regexp.Regexp
}

// New creates a Locator with the given options.
func New(opts ...Option) *Locator {
	o := Options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.MinPayloadLength <= 0 {
		o.MinPayloadLength = DefaultMinPayloadLength
	}
	if o.MaxTextLength <= 0 {
		o.MaxTextLength = DefaultMaxTextLength
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.Probes == nil {
		o.Probes = DefaultProbes()
	}
	if o.HintKeys == nil {
		o.HintKeys = DefaultHintKeys
	}
	hints := make([]string, len(o.HintKeys))
	for i, key := range o.HintKeys {
		hints[i] = normalizeKey(key)
	}
	o.HintKeys = hints

	l := &Locator{opts: o}
	l.quotedRun, l.dataURIRun = runPatterns(o.MinPayloadLength)
	return l
}

// Options returns a copy of the effective configuration.
func (l *Locator) Options() Options {
	o := l.opts
	o.Probes = append([]Probe(nil), l.opts.Probes...)
	o.HintKeys = append([]string(nil), l.opts.HintKeys...)
	return o
}

var defaultLocator = New()

// Locate runs the default Locator on response.
func Locate(response any) Result {
	return defaultLocator.Locate(response)
}

// LocateJSON runs the default Locator on a raw response body. Bodies that are
// not valid JSON are searched as text.
func LocateJSON(body []byte) Result {
	return defaultLocator.LocateJSON(body)
}

// strategy is one link of the chain: it returns a payload or reports a miss.
type strategy struct {
	name string
	find func(root *Node) ([]byte, bool)
}

// Locate converts response into a tree once and runs the probes, the
// recursive scan and the full-text search in that order. The first strategy
// returning a payload wins. A panicking strategy counts as a miss.
func (l *Locator) Locate(response any) Result {
	var result Result

	root, nodes, fault := l.buildTree(response)
	result.Nodes = nodes
	if fault != "" {
		result.Faults = append(result.Faults, fault)
	}

	for _, s := range l.strategies() {
		data, ok, fault := run(s, root)
		if fault != "" {
			result.Faults = append(result.Faults, fault)
			continue
		}
		if ok {
			result.Data = data
			result.Strategy = s.name
			return result
		}
	}
	return result
}

// LocateJSON decodes body and locates the payload in the decoded document.
func (l *Locator) LocateJSON(body []byte) Result {
	var decoded any
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&decoded); err != nil {
		return l.Locate(string(body))
	}
	return l.Locate(decoded)
}

func (l *Locator) strategies() []strategy {
	chain := make([]strategy, 0, len(l.opts.Probes)+2)
	for _, probe := range l.opts.Probes {
		chain = append(chain, strategy{name: probe.Name, find: l.probe(probe)})
	}
	return append(chain,
		strategy{name: StrategyScan, find: l.scan},
		strategy{name: StrategyFullText, find: l.fullText},
	)
}

// probe adapts a Probe into a strategy. Byte leaves found by a probe are
// trusted; strings still go through the plausibility gate.
func (l *Locator) probe(p Probe) func(root *Node) ([]byte, bool) {
	return func(root *Node) ([]byte, bool) {
		if p.Candidates == nil {
			return nil, false
		}
		for _, candidate := range p.Candidates(root) {
			if data, ok := l.accept(candidate, true); ok {
				return data, true
			}
		}
		return nil, false
	}
}

func run(s strategy, root *Node) (data []byte, ok bool, fault string) {
	defer func() {
		if r := recover(); r != nil {
			data, ok, fault = nil, false, fmt.Sprintf("%s: %v", s.name, r)
		}
	}()
	data, ok = s.find(root)
	return data, ok, ""
}

func (l *Locator) buildTree(response any) (root *Node, nodes int, fault string) {
	b := newBuilder(l.opts.MaxDepth, l.opts.MaxTextLength)
	defer func() {
		if r := recover(); r != nil {
			root, nodes, fault = nullNode, b.nodes, fmt.Sprintf("tree: %v", r)
		}
	}()
	root = b.build(reflect.ValueOf(response), 0)
	return root, b.nodes, ""
}

// String summarises the result for logs without dumping the payload.
func (r Result) String() string {
	if !r.Found() {
		return fmt.Sprintf("not found (nodes=%d, faults=%s)", r.Nodes, strings.Join(r.Faults, "; "))
	}
	return fmt.Sprintf("%s %d bytes via %s", r.MimeType(), len(r.Data), r.Strategy)
}
