package promobs

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/leofalp/storypaint/providers/observability"
)

// definition fixes the help text and label names of a metric.
type definition struct {
	help   string
	labels []string
}

var counterDefinitions = map[string]definition{
	observability.MetricLocateTotal: {
		help:   "Image lookups in model responses by winning strategy (none when not found).",
		labels: []string{observability.AttrLocateStrategy},
	},
	observability.MetricActivityTotal: {
		help:   "Activity recoveries by source (parsed or default).",
		labels: []string{observability.AttrActivitySource},
	},
	observability.MetricLLMRequests: {
		help:   "Model calls by model and status.",
		labels: []string{observability.AttrLLMModel, observability.AttrStatus},
	},
	observability.MetricHTTPRequests: {
		help:   "HTTP requests by route and status code.",
		labels: []string{observability.AttrHTTPRoute, observability.AttrHTTPStatusCode},
	},
}

var histogramDefinitions = map[string]definition{
	observability.MetricLLMDuration: {
		help:   "Model call latency in seconds.",
		labels: []string{observability.AttrLLMModel},
	},
	observability.MetricHTTPDuration: {
		help:   "HTTP request latency in seconds.",
		labels: []string{observability.AttrHTTPRoute},
	},
}

// modelBuckets cover image generation calls, which routinely take tens of
// seconds.
var modelBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120}

// sanitize turns a dotted attribute or metric name into a valid Prometheus
// name: letters, digits and underscores, not starting with a digit.
func sanitize(name string) string {
	out := []byte(name)
	for i, c := range out {
		valid := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		if !valid {
			out[i] = '_'
		}
	}
	if len(out) == 0 || (out[0] >= '0' && out[0] <= '9') {
		out = append([]byte{'_'}, out...)
	}
	return string(out)
}

func sanitizeAll(names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = sanitize(name)
	}
	return out
}

// newCounterVec and newHistogramVec build collectors for name; def supplies
// the labels, falling back to the attribute keys of the first update.
func newCounterVec(name string, def definition) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: sanitize(name),
		Help: def.help,
	}, sanitizeAll(def.labels))
}

func newHistogramVec(name string, def definition) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    sanitize(name),
		Help:    def.help,
		Buckets: modelBuckets,
	}, sanitizeAll(def.labels))
}
