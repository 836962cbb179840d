package runner

import (
	"sort"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram bounds in microseconds: 1us to 60s.
const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
)

// Metrics collects request latencies overall and per endpoint.
type Metrics struct {
	mu        sync.Mutex
	histogram *hdrhistogram.Histogram
	endpoints map[string]*hdrhistogram.Histogram
}

// LatencySummary is a snapshot of a latency histogram.
type LatencySummary struct {
	Count int64
	Min   time.Duration
	Mean  time.Duration
	P50   time.Duration
	P95   time.Duration
	P99   time.Duration
	Max   time.Duration
}

// EndpointSummary is the latency of a single "METHOD endpoint" key.
type EndpointSummary struct {
	Name string
	LatencySummary
}

func NewMetrics() *Metrics {
	return &Metrics{
		histogram: newHistogram(),
		endpoints: make(map[string]*hdrhistogram.Histogram),
	}
}

func newHistogram() *hdrhistogram.Histogram {
	// 3 significant digits
	return hdrhistogram.New(minLatencyUs, maxLatencyUs, 3)
}

// Record adds a request latency under name. An empty name only counts
// towards the overall histogram.
func (m *Metrics) Record(name string, d time.Duration) {
	latencyUs := d.Microseconds()
	if latencyUs < minLatencyUs {
		latencyUs = minLatencyUs
	}
	if latencyUs > maxLatencyUs {
		latencyUs = maxLatencyUs
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_ = m.histogram.RecordValue(latencyUs)
	if name == "" {
		return
	}
	h, ok := m.endpoints[name]
	if !ok {
		h = newHistogram()
		m.endpoints[name] = h
	}
	_ = h.RecordValue(latencyUs)
}

func (m *Metrics) Summary() LatencySummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return summarize(m.histogram)
}

// Endpoints returns per endpoint summaries sorted by name.
func (m *Metrics) Endpoints() []EndpointSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]EndpointSummary, 0, len(m.endpoints))
	for name, h := range m.endpoints {
		out = append(out, EndpointSummary{Name: name, LatencySummary: summarize(h)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func summarize(h *hdrhistogram.Histogram) LatencySummary {
	count := h.TotalCount()
	if count == 0 {
		return LatencySummary{}
	}
	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	return LatencySummary{
		Count: count,
		Min:   us(h.Min()),
		Mean:  us(int64(h.Mean())),
		P50:   us(h.ValueAtQuantile(50)),
		P95:   us(h.ValueAtQuantile(95)),
		P99:   us(h.ValueAtQuantile(99)),
		Max:   us(h.Max()),
	}
}
