// Package middleware instruments gin applications with per-request timing
// and counter metrics. Track wraps the whole request and emits once on the
// way out; PhaseTimer optionally splits the request into middleware and
// handler phases.
package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/statkit/gin-statsd/internal/emit"
	"github.com/statkit/gin-statsd/pkg/logger"
	"github.com/statkit/gin-statsd/pkg/metrics"
	"github.com/statkit/gin-statsd/pkg/timing"
)

// stateKey stores the per-request instrumentation state in the gin context.
const stateKey = "statkit.ginstatsd.state"

// Options configures the tracking middleware.
type Options struct {
	// Emitter receives the request metrics. A nil emitter disables tracking
	// and the middleware becomes a passthrough.
	Emitter metrics.Emitter

	// Prefix is prepended to every metric name, e.g. "server.app".
	Prefix string

	// Clock measures durations. Defaults to the wall clock.
	Clock clock.Clock

	// Logger receives emission failures and leaked timer warnings.
	Logger *zap.Logger
}

func (o Options) clock() clock.Clock {
	if o.Clock != nil {
		return o.Clock
	}
	return clock.New()
}

func (o Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logger.WithModule("metrics")
}

// requestState carries the registry and counters from Track to PhaseTimer
// and to handlers reading them through Timings and Counters.
type requestState struct {
	reg      *timing.Registry
	counters *timing.Counters
	arrival  time.Time
	clk      clock.Clock
}

// Track records the arrival of each request, attaches a timer registry and
// counter set to it, and emits the collected metrics once the response is
// written. Metrics are named "<prefix>.<method>.<route>[.<timer>]" with an
// aggregate under "<prefix>.all". Emission failures are logged and never
// reach the client.
func Track(o Options) gin.HandlerFunc {
	if o.Emitter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	clk := o.clock()
	log := o.logger()

	return func(c *gin.Context) {
		arrival := clk.Now()
		reg := timing.NewRegistry(timing.WithClock(clk))
		counters := timing.NewCounters()
		counters.Incr(emit.HitCounter)

		c.Set(stateKey, &requestState{reg: reg, counters: counters, arrival: arrival, clk: clk})

		ctx := timing.NewContext(c.Request.Context(), reg)
		ctx = timing.NewContextWithCounters(ctx, counters)
		c.Request = c.Request.WithContext(ctx)

		defer func() {
			// The response phase must stop before the total is read so the
			// recorded phases never sum past it.
			if reg.IsRunning(PhaseResponse) {
				_, _ = reg.Stop(PhaseResponse)
			}
			total := clk.Since(arrival)
			if leaked := reg.Running(); len(leaked) > 0 {
				log.Warn("timers still running at emit", zap.Strings("timers", leaked))
			}

			base := emit.Join(o.Prefix, emit.ViewName(c.Request.Method, route(c)))
			rollup := emit.Join(o.Prefix, emit.RollupView)
			tags := map[string]string{
				"method": strings.ToLower(c.Request.Method),
				"status": strconv.Itoa(c.Writer.Status()),
			}
			if err := emit.Flush(o.Emitter, base, rollup, total, reg, counters, tags); err != nil {
				log.Debug("metric emission failed", zap.Error(err))
			}
		}()

		c.Next()
	}
}

// route returns the matched route pattern, falling back to the raw URL path
// for requests that matched no route.
func route(c *gin.Context) string {
	if path := c.FullPath(); path != "" {
		return path
	}
	return c.Request.URL.Path
}
