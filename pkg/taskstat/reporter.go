// Package taskstat instruments background tasks the way the middleware
// instruments requests: each run gets a timer registry and a counter set,
// and the collected metrics are emitted when the task returns.
package taskstat

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/statkit/gin-statsd/internal/emit"
	"github.com/statkit/gin-statsd/pkg/logger"
	"github.com/statkit/gin-statsd/pkg/metrics"
	"github.com/statkit/gin-statsd/pkg/timing"
)

// ErrorCounter counts failed runs of a task.
const ErrorCounter = "error"

// Reporter times background task runs and emits their metrics under
// "<prefix>.task.<name>".
type Reporter struct {
	emitter metrics.Emitter
	prefix  string
	clk     clock.Clock
	log     *zap.Logger
}

// Option customises the Reporter.
type Option func(*Reporter)

// WithClock overrides the clock used to time runs, primarily for testing.
func WithClock(clk clock.Clock) Option {
	return func(r *Reporter) {
		if clk != nil {
			r.clk = clk
		}
	}
}

// WithLogger overrides the logger receiving emission failures.
func WithLogger(log *zap.Logger) Option {
	return func(r *Reporter) {
		if log != nil {
			r.log = log
		}
	}
}

// New creates a Reporter emitting through e. A nil emitter disables
// instrumentation and Run invokes tasks directly.
func New(e metrics.Emitter, prefix string, opts ...Option) *Reporter {
	r := &Reporter{
		emitter: e,
		prefix:  prefix,
		clk:     clock.New(),
		log:     logger.WithModule("taskstat"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes fn under the given task name. The context passed to fn
// carries a timer registry and counter set so the task can record spans of
// its own. The total run time is emitted tagged with result=ok or
// result=error; errors and panics additionally increment the task's error
// counter. Panics propagate after the metrics are emitted.
func (r *Reporter) Run(ctx context.Context, name string, fn func(context.Context) error) error {
	if r.emitter == nil {
		return fn(ctx)
	}

	start := r.clk.Now()
	reg := timing.NewRegistry(timing.WithClock(r.clk))
	counters := timing.NewCounters()
	counters.Incr(emit.HitCounter)

	ctx = timing.NewContext(ctx, reg)
	ctx = timing.NewContextWithCounters(ctx, counters)

	var err error
	panicked := true
	defer func() {
		total := r.clk.Since(start)
		result := "ok"
		if err != nil || panicked {
			result = "error"
			counters.Incr(ErrorCounter)
		}

		base := emit.Join(r.prefix, "task", name)
		tags := map[string]string{"result": result}
		if ferr := emit.Flush(r.emitter, base, "", total, reg, counters, tags); ferr != nil {
			r.log.Debug("metric emission failed", zap.Error(ferr))
		}
	}()

	err = fn(ctx)
	panicked = false
	return err
}

// Wrap binds a task name to a function, returning a closure that runs it
// through the Reporter.
func (r *Reporter) Wrap(name string, fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		return r.Run(ctx, name, fn)
	}
}
