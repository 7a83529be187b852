// Package locate finds an image payload inside a generative-model response
// whose shape is not known in advance.
//
// A response may be a typed SDK struct, a decoded JSON document, a raw HTTP
// body or a text dump of any of those. [Locate] converts it once into an
// acyclic tree of [Node] values and then runs a fixed chain of strategies,
// stopping at the first one that yields bytes: known-shape probes (see
// [DefaultProbes]), a recursive scan that prefers payload-looking keys, and a
// full-text search over a rendering of the tree. Every string candidate must
// pass the base64 plausibility check ([Plausible]) or carry an escaped binary
// signature ([Unescape]).
//
// The package performs no I/O and keeps no state between calls; a [Locator]
// can be shared by any number of goroutines.
package locate
