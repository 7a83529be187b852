package promobs

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leofalp/storypaint/providers/observability"
	"github.com/leofalp/storypaint/providers/observability/slogobs"
)

// Observer implements observability.Provider with slog for traces and logs
// and Prometheus for metrics.
type Observer struct {
	*slogobs.Observer

	registry *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*counter
	histograms map[string]*histogram
}

var _ observability.Provider = (*Observer)(nil)

// Option configures an Observer.
type Option func(*Observer)

// WithRegistry records metrics in registry instead of a fresh one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(o *Observer) {
		o.registry = registry
	}
}

// New creates an Observer logging through logs. When no registry is given a
// new one is created with the Go runtime and process collectors.
func New(logs *slogobs.Observer, opts ...Option) *Observer {
	o := &Observer{
		Observer:   logs,
		counters:   make(map[string]*counter),
		histograms: make(map[string]*histogram),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
		o.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	for name, def := range counterDefinitions {
		o.counters[name] = o.registerCounter(name, def)
	}
	for name, def := range histogramDefinitions {
		o.histograms[name] = o.registerHistogram(name, def)
	}
	return o
}

// Registry returns the registry holding the metrics.
func (o *Observer) Registry() *prometheus.Registry {
	return o.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (o *Observer) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{Registry: o.registry})
}

// Counter returns the named counter. Unknown names are registered on first
// use.
func (o *Observer) Counter(name string) observability.Counter {
	o.mu.Lock()
	defer o.mu.Unlock()
	c, ok := o.counters[name]
	if !ok {
		c = &counter{name: name, logs: o.Observer.Counter(name), owner: o}
		o.counters[name] = c
	}
	return c
}

// Histogram returns the named histogram. Unknown names are registered on
// first use.
func (o *Observer) Histogram(name string) observability.Histogram {
	o.mu.Lock()
	defer o.mu.Unlock()
	h, ok := o.histograms[name]
	if !ok {
		h = &histogram{name: name, logs: o.Observer.Histogram(name), owner: o}
		o.histograms[name] = h
	}
	return h
}

func (o *Observer) registerCounter(name string, def definition) *counter {
	vec := newCounterVec(name, def)
	o.registry.MustRegister(vec)
	return &counter{name: name, labels: def.labels, vec: vec, logs: o.Observer.Counter(name), owner: o}
}

func (o *Observer) registerHistogram(name string, def definition) *histogram {
	vec := newHistogramVec(name, def)
	o.registry.MustRegister(vec)
	return &histogram{name: name, labels: def.labels, vec: vec, logs: o.Observer.Histogram(name), owner: o}
}

type counter struct {
	name  string
	logs  observability.Counter
	owner *Observer

	once   sync.Once
	labels []string
	vec    *prometheus.CounterVec
	err    error
}

func (c *counter) Add(ctx context.Context, value int64, attrs ...observability.Attribute) {
	c.logs.Add(ctx, value, attrs...)
	if value < 0 {
		return
	}
	c.once.Do(func() {
		if c.vec != nil {
			return
		}
		c.labels = attributeKeys(attrs)
		c.vec = newCounterVec(c.name, definition{help: c.name, labels: c.labels})
		c.err = c.owner.registry.Register(c.vec)
	})
	if c.err != nil {
		return
	}
	c.vec.WithLabelValues(labelValues(c.labels, attrs)...).Add(float64(value))
}

type histogram struct {
	name  string
	logs  observability.Histogram
	owner *Observer

	once   sync.Once
	labels []string
	vec    *prometheus.HistogramVec
	err    error
}

func (h *histogram) Record(ctx context.Context, value float64, attrs ...observability.Attribute) {
	h.logs.Record(ctx, value, attrs...)
	h.once.Do(func() {
		if h.vec != nil {
			return
		}
		h.labels = attributeKeys(attrs)
		h.vec = newHistogramVec(h.name, definition{help: h.name, labels: h.labels})
		h.err = h.owner.registry.Register(h.vec)
	})
	if h.err != nil {
		return
	}
	h.vec.WithLabelValues(labelValues(h.labels, attrs)...).Observe(value)
}

func attributeKeys(attrs []observability.Attribute) []string {
	keys := make([]string, 0, len(attrs))
	for _, attr := range attrs {
		keys = append(keys, attr.Key)
	}
	sort.Strings(keys)
	return keys
}

// labelValues orders attribute values by labels. Missing labels are empty and
// attributes that are not labels are dropped, so a call never panics on a
// label mismatch.
func labelValues(labels []string, attrs []observability.Attribute) []string {
	values := make([]string, len(labels))
	for i, label := range labels {
		for _, attr := range attrs {
			if attr.Key == label {
				values[i] = fmt.Sprint(attr.Value)
				break
			}
		}
	}
	return values
}
