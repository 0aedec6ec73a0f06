// Metrics for calibration runs
//
// Counters, gauges and histograms keyed by label sets, rendered in the
// Prometheus text exposition format. Series are written sorted by label
// key so output is stable between runs.
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// MetricType represents the type of metric
type MetricType int

const (
	TypeCounter MetricType = iota
	TypeGauge
	TypeHistogram
)

func (t MetricType) String() string {
	switch t {
	case TypeCounter:
		return "counter"
	case TypeGauge:
		return "gauge"
	case TypeHistogram:
		return "histogram"
	default:
		return "untyped"
	}
}

// Labels is a set of label name/value pairs
type Labels map[string]string

// key returns a canonical string for the label set.
func (l Labels) key() string {
	if len(l) == 0 {
		return ""
	}
	names := l.names()
	var sb strings.Builder
	for i, k := range names {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(l[k])
	}
	return sb.String()
}

func (l Labels) names() []string {
	names := make([]string, 0, len(l))
	for k := range l {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// String renders the labels in exposition format, e.g. {a="1",b="2"}.
func (l Labels) String() string {
	if len(l) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range l.names() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteString(`="`)
		sb.WriteString(labelEscaper.Replace(l[k]))
		sb.WriteByte('"')
	}
	sb.WriteByte('}')
	return sb.String()
}

func (l Labels) clone() Labels {
	out := make(Labels, len(l)+1)
	for k, v := range l {
		out[k] = v
	}
	return out
}

// with returns a copy of l with one extra label.
func (l Labels) with(name, value string) Labels {
	out := l.clone()
	out[name] = value
	return out
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// Metric is implemented by every metric kind
type Metric interface {
	Name() string
	Help() string
	Type() MetricType
	WriteTo(w io.Writer) (int64, error)
}

// family holds the per-label-set values of one metric.
type family[V any] struct {
	name, help string
	mu         sync.Mutex
	series     map[string]*V
	labels     map[string]Labels
}

func (f *family[V]) init(name, help string) {
	f.name, f.help = name, help
	f.series = make(map[string]*V)
	f.labels = make(map[string]Labels)
}

// get returns the value for labels, creating it with mk; callers hold mu.
func (f *family[V]) get(labels Labels, mk func() *V) *V {
	k := labels.key()
	v, ok := f.series[k]
	if !ok {
		v = mk()
		f.series[k] = v
		f.labels[k] = labels.clone()
	}
	return v
}

// sortedKeys returns the series keys in order; callers hold mu.
func (f *family[V]) sortedKeys() []string {
	keys := make([]string, 0, len(f.series))
	for k := range f.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (f *family[V]) Name() string { return f.name }
func (f *family[V]) Help() string { return f.help }

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (cw *countingWriter) printf(format string, args ...interface{}) {
	if cw.err != nil {
		return
	}
	n, err := fmt.Fprintf(cw.w, format, args...)
	cw.n += int64(n)
	cw.err = err
}

func writeHeader(cw *countingWriter, name, help string, t MetricType) {
	cw.printf("# HELP %s %s\n# TYPE %s %s\n", name, help, name, t)
}

func formatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	case math.IsNaN(v):
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Counter is a monotonically increasing count
type Counter struct {
	family[uint64]
}

// NewCounter creates a counter
func NewCounter(name, help string) *Counter {
	c := &Counter{}
	c.init(name, help)
	return c
}

func (c *Counter) Type() MetricType { return TypeCounter }

// Inc adds one to the series for labels
func (c *Counter) Inc(labels Labels) {
	c.Add(labels, 1)
}

// Add adds delta to the series for labels
func (c *Counter) Add(labels Labels, delta uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*c.get(labels, func() *uint64 { return new(uint64) }) += delta
}

// Get returns the value of the series for labels
func (c *Counter) Get(labels Labels) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.series[labels.key()]; ok {
		return *v
	}
	return 0
}

func (c *Counter) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	writeHeader(cw, c.name, c.help, TypeCounter)
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range c.sortedKeys() {
		cw.printf("%s%s %d\n", c.name, c.labels[k], *c.series[k])
	}
	return cw.n, cw.err
}

// Gauge is a value that can go up and down
type Gauge struct {
	family[float64]
}

// NewGauge creates a gauge
func NewGauge(name, help string) *Gauge {
	g := &Gauge{}
	g.init(name, help)
	return g
}

func (g *Gauge) Type() MetricType { return TypeGauge }

// Set stores value in the series for labels
func (g *Gauge) Set(labels Labels, value float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	*g.get(labels, func() *float64 { return new(float64) }) = value
}

// Add adds delta to the series for labels
func (g *Gauge) Add(labels Labels, delta float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	*g.get(labels, func() *float64 { return new(float64) }) += delta
}

// Get returns the value of the series for labels
func (g *Gauge) Get(labels Labels) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if v, ok := g.series[labels.key()]; ok {
		return *v
	}
	return 0
}

func (g *Gauge) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	writeHeader(cw, g.name, g.help, TypeGauge)
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, k := range g.sortedKeys() {
		cw.printf("%s%s %s\n", g.name, g.labels[k], formatFloat(*g.series[k]))
	}
	return cw.n, cw.err
}

type histogramValue struct {
	count   uint64
	sum     float64
	buckets []uint64 // per bucket, not cumulative
}

// Histogram counts observations into upper-bounded buckets
type Histogram struct {
	family[histogramValue]
	bounds []float64
}

// NewHistogram creates a histogram with the given bucket upper bounds
func NewHistogram(name, help string, bounds []float64) *Histogram {
	sorted := append([]float64(nil), bounds...)
	sort.Float64s(sorted)
	h := &Histogram{bounds: sorted}
	h.init(name, help)
	return h
}

// LinearBuckets returns count bounds starting at start, width apart
func LinearBuckets(start, width float64, count int) []float64 {
	b := make([]float64, count)
	for i := range b {
		b[i] = start + float64(i)*width
	}
	return b
}

// ExponentialBuckets returns count bounds starting at start, each factor
// times the previous
func ExponentialBuckets(start, factor float64, count int) []float64 {
	b := make([]float64, count)
	for i := range b {
		b[i] = start
		start *= factor
	}
	return b
}

func (h *Histogram) Type() MetricType { return TypeHistogram }

// Observe records value in the series for labels
func (h *Histogram) Observe(labels Labels, value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	hv := h.get(labels, func() *histogramValue {
		return &histogramValue{buckets: make([]uint64, len(h.bounds))}
	})
	hv.count++
	hv.sum += value
	if i := sort.SearchFloat64s(h.bounds, value); i < len(h.bounds) {
		hv.buckets[i]++
	}
}

// HistogramSnapshot is a copy of one histogram series
type HistogramSnapshot struct {
	Count uint64
	Sum   float64
	// Cumulative counts keyed by bucket upper bound.
	Buckets map[float64]uint64
}

// Snapshot returns the current state of the series for labels
func (h *Histogram) Snapshot(labels Labels) HistogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	snap := HistogramSnapshot{Buckets: make(map[float64]uint64, len(h.bounds))}
	hv, ok := h.series[labels.key()]
	if !ok {
		return snap
	}
	snap.Count, snap.Sum = hv.count, hv.sum
	var cum uint64
	for i, b := range h.bounds {
		cum += hv.buckets[i]
		snap.Buckets[b] = cum
	}
	return snap
}

func (h *Histogram) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	writeHeader(cw, h.name, h.help, TypeHistogram)
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, k := range h.sortedKeys() {
		hv, labels := h.series[k], h.labels[k]
		var cum uint64
		for i, b := range h.bounds {
			cum += hv.buckets[i]
			cw.printf("%s_bucket%s %d\n", h.name, labels.with("le", formatFloat(b)), cum)
		}
		cw.printf("%s_bucket%s %d\n", h.name, labels.with("le", "+Inf"), hv.count)
		cw.printf("%s_sum%s %s\n", h.name, labels, formatFloat(hv.sum))
		cw.printf("%s_count%s %d\n", h.name, labels, hv.count)
	}
	return cw.n, cw.err
}

// Registry holds metrics in registration order
type Registry struct {
	mu      sync.RWMutex
	metrics map[string]Metric
	order   []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{metrics: make(map[string]Metric)}
}

// Register adds a metric; names must be unique
func (r *Registry) Register(m Metric) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.metrics[m.Name()]; exists {
		return fmt.Errorf("metric %q already registered", m.Name())
	}
	r.metrics[m.Name()] = m
	r.order = append(r.order, m.Name())
	return nil
}

// MustRegister adds a metric and panics on error
func (r *Registry) MustRegister(m Metric) {
	if err := r.Register(m); err != nil {
		panic(err)
	}
}

// Get returns the metric registered under name, or nil
func (r *Registry) Get(name string) Metric {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.metrics[name]
}

// WriteTo writes every metric in exposition format
func (r *Registry) WriteTo(w io.Writer) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var total int64
	for _, name := range r.order {
		n, err := r.metrics[name].WriteTo(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Gather returns every metric in exposition format
func (r *Registry) Gather() string {
	var sb strings.Builder
	_, _ = r.WriteTo(&sb)
	return sb.String()
}
