package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Sample is one recorded metric observation.
type Sample struct {
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// sampleRing is a fixed-capacity ring of samples; pushing over capacity
// evicts the oldest. Bounded so a long run cannot grow memory without limit.
type sampleRing struct {
	buf   []Sample
	start int
	count int
}

func newSampleRing(capacity int) *sampleRing {
	return &sampleRing{buf: make([]Sample, capacity)}
}

func (r *sampleRing) push(s Sample) {
	if r.count < len(r.buf) {
		r.buf[(r.start+r.count)%len(r.buf)] = s
		r.count++
		return
	}
	r.buf[r.start] = s
	r.start = (r.start + 1) % len(r.buf)
}

func (r *sampleRing) all() []Sample {
	out := make([]Sample, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Stats summarizes the samples of one metric inside a window.
type Stats struct {
	Current float64 `json:"current"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
	Median  float64 `json:"median"`
	StdDev  float64 `json:"std_dev"`
	Count   int     `json:"count"`
}

// Alert records a threshold violation seen by CheckAlerts.
type Alert struct {
	Metric    string    `json:"metric"`
	Type      string    `json:"type"` // below_minimum | above_maximum
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}

// Threshold bounds a metric for alerting. Nil bound = unchecked.
type Threshold struct {
	Min *float64
	Max *float64
}

// Collector keeps a bounded in-memory history per named metric and derives
// windowed stats and threshold alerts from it. It is explicitly constructed
// and handed to its consumers; lifecycle belongs to the caller.
type Collector struct {
	mu         sync.RWMutex
	maxHistory int
	metrics    map[string]*sampleRing
	alerts     []Alert
	lastUpdate time.Time
}

// NewCollector creates a Collector keeping at most maxHistory samples per
// metric.
func NewCollector(maxHistory int) *Collector {
	if maxHistory <= 0 {
		maxHistory = 1000
	}
	return &Collector{
		maxHistory: maxHistory,
		metrics:    make(map[string]*sampleRing),
	}
}

// Record appends an observation for the named metric.
func (c *Collector) Record(name string, value float64) {
	c.RecordAt(name, value, time.Now())
}

// RecordAt appends an observation with an explicit timestamp.
func (c *Collector) RecordAt(name string, value float64, ts time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ring, ok := c.metrics[name]
	if !ok {
		ring = newSampleRing(c.maxHistory)
		c.metrics[name] = ring
	}
	ring.push(Sample{Value: value, Timestamp: ts})
	c.lastUpdate = time.Now()
}

// GetStats summarizes the named metric over the trailing window.
// A zero window means all retained samples. ok is false when no samples
// fall inside the window.
func (c *Collector) GetStats(name string, window time.Duration) (Stats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ring, exists := c.metrics[name]
	if !exists {
		return Stats{}, false
	}

	cutoff := time.Time{}
	if window > 0 {
		cutoff = time.Now().Add(-window)
	}
	values := make([]float64, 0, ring.count)
	for _, s := range ring.all() {
		if s.Timestamp.After(cutoff) {
			values = append(values, s.Value)
		}
	}
	if len(values) == 0 {
		return Stats{}, false
	}

	st := Stats{
		Current: values[len(values)-1],
		Min:     values[0],
		Max:     values[0],
		Count:   len(values),
	}
	sum := 0.0
	for _, v := range values {
		if v < st.Min {
			st.Min = v
		}
		if v > st.Max {
			st.Max = v
		}
		sum += v
	}
	st.Mean = sum / float64(len(values))

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		st.Median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		st.Median = sorted[mid]
	}

	if len(values) > 1 {
		variance := 0.0
		for _, v := range values {
			variance += (v - st.Mean) * (v - st.Mean)
		}
		st.StdDev = math.Sqrt(variance / float64(len(values)-1))
	}
	return st, true
}

// AllStats summarizes every tracked metric over the trailing window.
func (c *Collector) AllStats(window time.Duration) map[string]Stats {
	c.mu.RLock()
	names := make([]string, 0, len(c.metrics))
	for name := range c.metrics {
		names = append(names, name)
	}
	c.mu.RUnlock()

	out := make(map[string]Stats, len(names))
	for _, name := range names {
		if st, ok := c.GetStats(name, window); ok {
			out[name] = st
		}
	}
	return out
}

// CheckAlerts evaluates the current value of each bounded metric and records
// violations. Returns only the alerts raised by this call.
func (c *Collector) CheckAlerts(thresholds map[string]Threshold) []Alert {
	var raised []Alert
	now := time.Now()

	for name, th := range thresholds {
		st, ok := c.GetStats(name, 0)
		if !ok {
			continue
		}
		if th.Min != nil && st.Current < *th.Min {
			raised = append(raised, Alert{
				Metric: name, Type: "below_minimum",
				Value: st.Current, Threshold: *th.Min, Timestamp: now,
			})
		}
		if th.Max != nil && st.Current > *th.Max {
			raised = append(raised, Alert{
				Metric: name, Type: "above_maximum",
				Value: st.Current, Threshold: *th.Max, Timestamp: now,
			})
		}
	}

	if len(raised) > 0 {
		c.mu.Lock()
		c.alerts = append(c.alerts, raised...)
		c.mu.Unlock()
	}
	return raised
}

// Alerts returns all recorded alerts not older than maxAge, pruning the rest.
func (c *Collector) Alerts(maxAge time.Duration) []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	kept := c.alerts[:0]
	for _, a := range c.alerts {
		if a.Timestamp.After(cutoff) {
			kept = append(kept, a)
		}
	}
	c.alerts = kept

	out := make([]Alert, len(c.alerts))
	copy(out, c.alerts)
	return out
}

// LastUpdate returns the time of the most recent Record call.
func (c *Collector) LastUpdate() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdate
}
