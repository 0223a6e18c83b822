package emit

import (
	"time"

	"go.uber.org/multierr"

	"github.com/statkit/gin-statsd/pkg/metrics"
	"github.com/statkit/gin-statsd/pkg/timing"
)

const (
	// RollupView is the pseudo-view that aggregates every request regardless
	// of the route it matched.
	RollupView = "all"

	// HitCounter counts requests under the rollup view.
	HitCounter = "hit"
)

// Flush sends the total duration plus every accumulated timer and counter
// through the emitter. Timers are named under base, the total additionally
// under rollupBase when it is nonempty, and counters with a zero value are
// skipped. Emitter errors are collected and returned, never raised.
func Flush(e metrics.Emitter, base, rollupBase string, total time.Duration, reg *timing.Registry, counters *timing.Counters, tags map[string]string) error {
	if e == nil {
		return nil
	}

	var errs error
	errs = multierr.Append(errs, e.Timing(base, total, tags))
	if rollupBase != "" {
		errs = multierr.Append(errs, e.Timing(rollupBase, total, tags))
		errs = multierr.Append(errs, e.Count(Join(rollupBase, HitCounter), 1, tags))
	}

	if reg != nil {
		for name, d := range reg.Durations() {
			errs = multierr.Append(errs, e.Timing(Join(base, name), d, tags))
		}
	}

	if counters != nil {
		for name, n := range counters.Counts() {
			if n == 0 {
				continue
			}
			errs = multierr.Append(errs, e.Count(Join(base, name), n, tags))
		}
	}

	return errs
}
