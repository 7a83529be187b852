package activity

import (
	"errors"
	"fmt"
	"strings"
)

// Source tells how the record of an [Outcome] was produced.
type Source string

const (
	// SourceParsed means the record was recovered from the model text.
	SourceParsed Source = "parsed"
	// SourceDefault means recovery failed and the fixed default was used.
	SourceDefault Source = "default"
)

// ErrEmptyText is reported when there was no text to recover from.
var ErrEmptyText = errors.New("empty text")

// DefaultMinObjectLength is the shortest {…} span taken by the first-object
// candidate. "{}" is two characters long.
const DefaultMinObjectLength = 2

// Outcome is the result of one recovery. Record is always a valid activity.
type Outcome struct {
	Record Record
	Source Source
	// Err is the last parse error when Source is SourceDefault. It is meant
	// for logs, not for end users.
	Err error
}

// Parsed reports whether the record came from the model text.
func (o Outcome) Parsed() bool {
	return o.Source == SourceParsed
}

// Options tunes a Recoverer.
type Options struct {
	// MinObjectLength is the shortest {…} span accepted as the first-object
	// candidate. Shorter spans are skipped in favour of the next one.
	MinObjectLength int
	// ConvertHTML converts text carrying HTML markup to markdown before
	// searching it.
	ConvertHTML bool
}

// Option configures a Recoverer.
type Option func(*Options)

// WithMinObjectLength sets the shortest first-object candidate.
func WithMinObjectLength(n int) Option {
	return func(o *Options) {
		o.MinObjectLength = n
	}
}

// WithHTMLConversion enables or disables HTML to markdown conversion.
func WithHTMLConversion(enabled bool) Option {
	return func(o *Options) {
		o.ConvertHTML = enabled
	}
}

// Recoverer extracts a Record from model text.
type Recoverer struct {
	opts Options
}

// New creates a Recoverer. HTML conversion is enabled by default.
func New(opts ...Option) *Recoverer {
	o := Options{MinObjectLength: DefaultMinObjectLength, ConvertHTML: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.MinObjectLength <= 0 {
		o.MinObjectLength = DefaultMinObjectLength
	}
	return &Recoverer{opts: o}
}

var defaultRecoverer = New()

// Recover runs the default Recoverer on text.
func Recover(text string) Outcome {
	return defaultRecoverer.Recover(text)
}

// Recover returns the activity found in text, or the default activity tagged
// SourceDefault when none can be recovered. It never panics.
func (r *Recoverer) Recover(text string) (outcome Outcome) {
	defer func() {
		if p := recover(); p != nil {
			outcome = fallback(fmt.Errorf("recover panicked: %v", p))
		}
	}()

	text = strings.TrimSpace(text)
	if text == "" {
		return fallback(ErrEmptyText)
	}
	if r.opts.ConvertHTML && hasMarkup(text) {
		if converted, err := htmlToMarkdown(text); err == nil {
			text = converted
		}
	}

	lastErr := ErrNoObject
	for _, body := range fencedBodies(text) {
		record, err := decode(body)
		if err == nil {
			return Outcome{Record: record, Source: SourceParsed}
		}
		lastErr = err
	}

	for _, candidate := range objectCandidates(stripFences(text), r.opts.MinObjectLength) {
		record, err := decode(candidate)
		if err == nil {
			return Outcome{Record: record, Source: SourceParsed}
		}
		lastErr = err
	}
	return fallback(lastErr)
}

func fallback(err error) Outcome {
	return Outcome{Record: Default(), Source: SourceDefault, Err: err}
}
