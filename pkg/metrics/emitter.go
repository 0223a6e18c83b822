// Package metrics contains the emitter abstraction through which request
// and task measurements leave the process. The primary implementation ships
// to a statsd daemon; a no-op, a fan-out, and a Prometheus bridge reuse the
// same call sites so instrumentation code never branches on the backend.
package metrics

import "time"

// Emitter publishes instrumentation measurements to a metrics backend.
//
// Implementations never panic on emission. Errors are returned to the
// caller, which decides whether they matter; the request middleware and the
// task reporter always swallow them so a metrics outage cannot affect the
// work being measured.
type Emitter interface {
	// Count adds delta to the named counter.
	Count(name string, delta int64, tags map[string]string) error

	// Gauge sets the named gauge to value.
	Gauge(name string, value int64, tags map[string]string) error

	// Timing records a duration under the named timer.
	Timing(name string, d time.Duration, tags map[string]string) error

	// Close flushes buffered measurements and releases the underlying
	// transport.
	Close() error
}

// NoopEmitter discards all measurements. It stands in wherever emission is
// disabled.
type NoopEmitter struct{}

// NewNoopEmitter returns an emitter that does nothing.
func NewNoopEmitter() NoopEmitter {
	return NoopEmitter{}
}

// Count noops.
func (NoopEmitter) Count(name string, delta int64, tags map[string]string) error {
	return nil
}

// Gauge noops.
func (NoopEmitter) Gauge(name string, value int64, tags map[string]string) error {
	return nil
}

// Timing noops.
func (NoopEmitter) Timing(name string, d time.Duration, tags map[string]string) error {
	return nil
}

// Close noops.
func (NoopEmitter) Close() error {
	return nil
}
