package metrics

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/cactus/go-statsd-client/v5/statsd"
)

// StatsdEmitter publishes measurements to a statsd daemon over UDP. The
// wire protocol and socket handling belong to the client library; this type
// only derives metric names and forwards values.
type StatsdEmitter struct {
	client      statsd.Statter
	defaultTags map[string]string
	sampleRate  float32
}

type statsdSettings struct {
	sampleRate    float64
	flushInterval time.Duration
	defaultTags   map[string]string
}

// StatsdOption customises a StatsdEmitter.
type StatsdOption func(*statsdSettings)

// WithSampleRate sets the client-side sample rate in (0, 1]. The default of
// 1 sends every measurement.
func WithSampleRate(rate float64) StatsdOption {
	return func(s *statsdSettings) {
		if rate > 0 && rate <= 1 {
			s.sampleRate = rate
		}
	}
}

// WithBufferedClient batches datagrams and flushes them on the given
// interval instead of sending one packet per measurement.
func WithBufferedClient(flushInterval time.Duration) StatsdOption {
	return func(s *statsdSettings) {
		if flushInterval > 0 {
			s.flushInterval = flushInterval
		}
	}
}

// WithDefaultTags attaches tags to every emitted metric. Per-call tags of
// the same key win.
func WithDefaultTags(tags map[string]string) StatsdOption {
	return func(s *statsdSettings) {
		s.defaultTags = tags
	}
}

// NewStatsdEmitter connects a client to the daemon at addr (host:port) and
// namespaces every metric under prefix.
func NewStatsdEmitter(addr, prefix string, opts ...StatsdOption) (*StatsdEmitter, error) {
	settings := statsdSettings{sampleRate: 1.0}
	for _, opt := range opts {
		opt(&settings)
	}

	cfg := &statsd.ClientConfig{
		Address: addr,
		Prefix:  prefix,
	}
	if settings.flushInterval > 0 {
		cfg.UseBuffered = true
		cfg.FlushInterval = settings.flushInterval
	}

	client, err := statsd.NewClientWithConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("metrics: create statsd client: %w", err)
	}

	return &StatsdEmitter{
		client:      client,
		defaultTags: settings.defaultTags,
		sampleRate:  float32(settings.sampleRate),
	}, nil
}

// Count adds delta to the named counter.
func (e *StatsdEmitter) Count(name string, delta int64, tags map[string]string) error {
	return e.client.Inc(e.formatMetric(name, tags), delta, e.sampleRate)
}

// Gauge sets the named gauge to value.
func (e *StatsdEmitter) Gauge(name string, value int64, tags map[string]string) error {
	return e.client.Gauge(e.formatMetric(name, tags), value, e.sampleRate)
}

// Timing records a duration under the named timer.
func (e *StatsdEmitter) Timing(name string, d time.Duration, tags map[string]string) error {
	return e.client.TimingDuration(e.formatMetric(name, tags), d, e.sampleRate)
}

// Close flushes any buffered measurements and closes the client.
func (e *StatsdEmitter) Close() error {
	return e.client.Close()
}

// formatMetric serializes a metric name and its tags (merged over the
// default tags) into a single statsd key. Characters the statsd protocol
// cannot carry, like colons, are URL-escaped; tags are delimited
// InfluxDB-style.
func (e *StatsdEmitter) formatMetric(name string, tags map[string]string) string {
	escaped := url.QueryEscape(name)

	if len(e.defaultTags)+len(tags) == 0 {
		return escaped
	}

	merged := make(map[string]string, len(e.defaultTags)+len(tags))
	for key, value := range e.defaultTags {
		merged[key] = value
	}
	for key, value := range tags {
		merged[key] = value
	}

	keys := make([]string, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	components := make([]string, 0, len(keys))
	for _, key := range keys {
		components = append(
			components,
			fmt.Sprintf("%s=%s", url.QueryEscape(key), url.QueryEscape(merged[key])),
		)
	}

	return fmt.Sprintf("%s,%s", escaped, strings.Join(components, ","))
}
