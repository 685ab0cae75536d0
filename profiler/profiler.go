// Package profiler - Thread-safe operation timing with summary statistics.
package profiler

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Summary describes the recorded durations of one operation.
type Summary struct {
	Count int           `json:"count"`
	Total time.Duration `json:"total"`
	Mean  time.Duration `json:"mean"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	P50   time.Duration `json:"p50"`
	P95   time.Duration `json:"p95"`
}

// TimeTracker records durations per named operation. It is safe for
// concurrent use; the zero value is not, use New.
type TimeTracker struct {
	mu        sync.Mutex
	durations map[string][]time.Duration
}

// New returns an empty tracker.
func New() *TimeTracker {
	return &TimeTracker{durations: make(map[string][]time.Duration)}
}

// Record adds one duration for name.
func (t *TimeTracker) Record(name string, d time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.durations[name] = append(t.durations[name], d)
}

// Time starts a measurement and returns the function that records it.
//
// @example
// defer tracker.Time("merge")()
func (t *TimeTracker) Time(name string) func() {
	start := time.Now()
	return func() {
		t.Record(name, time.Since(start))
	}
}

// Summary returns the statistics of name. Unknown names give a zero Summary.
func (t *TimeTracker) Summary(name string) Summary {
	if t == nil {
		return Summary{}
	}
	t.mu.Lock()
	values := make([]float64, len(t.durations[name]))
	for i, d := range t.durations[name] {
		values[i] = float64(d)
	}
	t.mu.Unlock()

	return summarize(values)
}

// Summaries returns the statistics of every recorded operation.
func (t *TimeTracker) Summaries() map[string]Summary {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	names := make([]string, 0, len(t.durations))
	for name := range t.durations {
		names = append(names, name)
	}
	t.mu.Unlock()

	out := make(map[string]Summary, len(names))
	for _, name := range names {
		out[name] = t.Summary(name)
	}
	return out
}

func summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sort.Float64s(values)

	var total float64
	for _, v := range values {
		total += v
	}
	return Summary{
		Count: len(values),
		Total: time.Duration(total),
		Mean:  time.Duration(stat.Mean(values, nil)),
		Min:   time.Duration(values[0]),
		Max:   time.Duration(values[len(values)-1]),
		P50:   time.Duration(stat.Quantile(0.5, stat.Empirical, values, nil)),
		P95:   time.Duration(stat.Quantile(0.95, stat.Empirical, values, nil)),
	}
}
