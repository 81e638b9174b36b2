package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "cropadvisor"

// Sample is one counter series at snapshot time.
type Sample struct {
	Key   string `json:"key"`
	Value int64  `json:"value"`
}

type series struct {
	value int64
	attrs metric.MeasurementOption
}

// Registry counts advisor and HTTP events. Every increment is also recorded on
// the OpenTelemetry counter of the same name, so an exporter installed on the
// global meter provider sees the same numbers as /metrics.
type Registry struct {
	mu          sync.Mutex
	series      map[string]*series
	meter       metric.Meter
	instruments map[string]metric.Int64Counter
}

// NewRegistry returns an empty registry bound to the global meter provider.
func NewRegistry() *Registry {
	return &Registry{
		series:      map[string]*series{},
		meter:       otel.GetMeterProvider().Meter(meterName),
		instruments: map[string]metric.Int64Counter{},
	}
}

// Key renders name and labels as name{k=v,...} with sorted label keys.
func Key(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	pairs := make([]string, 0, len(labels))
	for k, v := range labels {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return name + "{" + strings.Join(pairs, ",") + "}"
}

// Inc adds n to the series name{labels}.
func (r *Registry) Inc(ctx context.Context, name string, labels map[string]string, n int64) {
	key := Key(name, labels)

	r.mu.Lock()
	s, ok := r.series[key]
	if !ok {
		attrs := make([]attribute.KeyValue, 0, len(labels))
		for k, v := range labels {
			attrs = append(attrs, attribute.String(k, v))
		}
		s = &series{attrs: metric.WithAttributes(attrs...)}
		r.series[key] = s
	}
	s.value += n
	inst := r.instrument(name)
	r.mu.Unlock()

	if inst != nil {
		inst.Add(ctx, n, s.attrs)
	}
}

// instrument returns the otel counter for name, creating it on first use.
// Callers hold r.mu.
func (r *Registry) instrument(name string) metric.Int64Counter {
	if inst, ok := r.instruments[name]; ok {
		return inst
	}
	inst, err := r.meter.Int64Counter(name)
	if err != nil {
		// keep counting locally
		inst = nil
	}
	r.instruments[name] = inst
	return inst
}

// Value returns the current value of name{labels}, zero when never incremented.
func (r *Registry) Value(name string, labels map[string]string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.series[Key(name, labels)]; ok {
		return s.value
	}
	return 0
}

// Snapshot returns every series sorted by key.
func (r *Registry) Snapshot() []Sample {
	r.mu.Lock()
	out := make([]Sample, 0, len(r.series))
	for k, s := range r.series {
		out = append(out, Sample{Key: k, Value: s.value})
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// TextHandler serves the snapshot as "key value" lines.
func (r *Registry) TextHandler(c echo.Context) error {
	var b strings.Builder
	for _, s := range r.Snapshot() {
		fmt.Fprintf(&b, "%s %d\n", s.Key, s.Value)
	}
	return c.String(http.StatusOK, b.String())
}

// JSONHandler serves the snapshot as a key to value object.
func (r *Registry) JSONHandler(c echo.Context) error {
	samples := r.Snapshot()
	out := make(map[string]int64, len(samples))
	for _, s := range samples {
		out[s.Key] = s.Value
	}
	return c.JSON(http.StatusOK, out)
}
