// Package metricstest provides an in-memory Emitter for asserting on
// emitted measurements in tests.
package metricstest

import (
	"sort"
	"sync"
	"time"
)

// Kind discriminates recorded samples.
type Kind string

// Sample kinds.
const (
	KindCount  Kind = "count"
	KindGauge  Kind = "gauge"
	KindTiming Kind = "timing"
)

// Sample is one recorded emission.
type Sample struct {
	Kind     Kind
	Name     string
	Value    int64
	Duration time.Duration
	Tags     map[string]string
}

// Recorder implements metrics.Emitter and keeps every emission in memory.
// When Err is set, every call records its sample and then returns Err,
// which lets tests exercise the swallow-on-failure paths.
type Recorder struct {
	mu      sync.Mutex
	samples []Sample
	closed  bool

	Err error
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Count records a counter sample.
func (r *Recorder) Count(name string, delta int64, tags map[string]string) error {
	r.record(Sample{Kind: KindCount, Name: name, Value: delta, Tags: copyTags(tags)})
	return r.Err
}

// Gauge records a gauge sample.
func (r *Recorder) Gauge(name string, value int64, tags map[string]string) error {
	r.record(Sample{Kind: KindGauge, Name: name, Value: value, Tags: copyTags(tags)})
	return r.Err
}

// Timing records a timing sample.
func (r *Recorder) Timing(name string, d time.Duration, tags map[string]string) error {
	r.record(Sample{Kind: KindTiming, Name: name, Duration: d, Tags: copyTags(tags)})
	return r.Err
}

// Close marks the recorder closed.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return r.Err
}

// Closed reports whether Close was called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Samples returns a copy of everything recorded, in emission order.
func (r *Recorder) Samples() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sample, len(r.samples))
	copy(out, r.samples)
	return out
}

// Timings returns the recorded durations for the named timer.
func (r *Recorder) Timings(name string) []time.Duration {
	var out []time.Duration
	for _, s := range r.Samples() {
		if s.Kind == KindTiming && s.Name == name {
			out = append(out, s.Duration)
		}
	}
	return out
}

// CountOf sums the recorded deltas for the named counter.
func (r *Recorder) CountOf(name string) int64 {
	var total int64
	for _, s := range r.Samples() {
		if s.Kind == KindCount && s.Name == name {
			total += s.Value
		}
	}
	return total
}

// TagsOf returns the tags of the first sample recorded under name.
func (r *Recorder) TagsOf(name string) map[string]string {
	for _, s := range r.Samples() {
		if s.Name == name {
			return s.Tags
		}
	}
	return nil
}

// Names lists the distinct metric names recorded, sorted.
func (r *Recorder) Names() []string {
	seen := make(map[string]struct{})
	for _, s := range r.Samples() {
		seen[s.Name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Recorder) record(s Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, s)
}

func copyTags(tags map[string]string) map[string]string {
	if tags == nil {
		return nil
	}
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}
