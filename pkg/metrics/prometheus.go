package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PromEmitter mirrors measurements onto Prometheus collectors so services
// already scraping Prometheus can reuse the statsd call sites. The statsd
// metric name becomes the "metric" label; "method" and "status" tags are
// lifted into labels of the same name and any other tags are dropped.
type PromEmitter struct {
	timings *prometheus.HistogramVec
	counts  *prometheus.CounterVec
	gauges  *prometheus.GaugeVec
}

// NewPromEmitter registers the bridge collectors with reg. A nil reg falls
// back to the default registerer. namespace must be empty or a valid
// Prometheus name fragment.
func NewPromEmitter(reg prometheus.Registerer, namespace string) *PromEmitter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PromEmitter{
		timings: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "timing_seconds",
				Help:      "Request and timer durations keyed by metric name",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"metric", "method", "status"},
		),
		counts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "count_total",
				Help:      "Counter increments keyed by metric name",
			},
			[]string{"metric", "method", "status"},
		),
		gauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "gauge",
				Help:      "Gauge values keyed by metric name",
			},
			[]string{"metric", "method", "status"},
		),
	}
}

// Count adds delta to the counter labeled with name. Negative deltas are
// dropped; Prometheus counters are monotonic.
func (e *PromEmitter) Count(name string, delta int64, tags map[string]string) error {
	if delta < 0 {
		return nil
	}
	e.counts.WithLabelValues(name, tags["method"], tags["status"]).Add(float64(delta))
	return nil
}

// Gauge sets the gauge labeled with name.
func (e *PromEmitter) Gauge(name string, value int64, tags map[string]string) error {
	e.gauges.WithLabelValues(name, tags["method"], tags["status"]).Set(float64(value))
	return nil
}

// Timing observes the duration in seconds under the histogram labeled with
// name.
func (e *PromEmitter) Timing(name string, d time.Duration, tags map[string]string) error {
	e.timings.WithLabelValues(name, tags["method"], tags["status"]).Observe(d.Seconds())
	return nil
}

// Close is a no-op; the collectors stay registered for the scraper.
func (e *PromEmitter) Close() error {
	return nil
}
