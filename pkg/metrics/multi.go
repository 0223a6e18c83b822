package metrics

import (
	"time"

	"go.uber.org/multierr"
)

// MultiEmitter fans every measurement out to a set of emitters, so a
// service can feed statsd and the Prometheus bridge from one call site.
type MultiEmitter struct {
	emitters []Emitter
}

// NewMultiEmitter combines emitters into one. Nil entries are skipped.
func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	combined := make([]Emitter, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			combined = append(combined, e)
		}
	}
	return &MultiEmitter{emitters: combined}
}

// Count fans out to every emitter and aggregates their errors.
func (m *MultiEmitter) Count(name string, delta int64, tags map[string]string) error {
	var err error
	for _, e := range m.emitters {
		err = multierr.Append(err, e.Count(name, delta, tags))
	}
	return err
}

// Gauge fans out to every emitter and aggregates their errors.
func (m *MultiEmitter) Gauge(name string, value int64, tags map[string]string) error {
	var err error
	for _, e := range m.emitters {
		err = multierr.Append(err, e.Gauge(name, value, tags))
	}
	return err
}

// Timing fans out to every emitter and aggregates their errors.
func (m *MultiEmitter) Timing(name string, d time.Duration, tags map[string]string) error {
	var err error
	for _, e := range m.emitters {
		err = multierr.Append(err, e.Timing(name, d, tags))
	}
	return err
}

// Close closes every emitter and aggregates their errors.
func (m *MultiEmitter) Close() error {
	var err error
	for _, e := range m.emitters {
		err = multierr.Append(err, e.Close())
	}
	return err
}
