package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/statkit/gin-statsd/internal/emit"
	"github.com/statkit/gin-statsd/pkg/timing"
)

// WrapHandler instruments a plain http.Handler for applications not built
// on gin. The name is used verbatim as the view segment, so metrics are
// named "<prefix>.<method>.<name>[.<timer>]". A nil emitter returns the
// handler unchanged.
func WrapHandler(name string, h http.Handler, o Options) http.Handler {
	if o.Emitter == nil {
		return h
	}

	clk := o.clock()
	log := o.logger()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		arrival := clk.Now()
		reg := timing.NewRegistry(timing.WithClock(clk))
		counters := timing.NewCounters()
		counters.Incr(emit.HitCounter)

		ctx := timing.NewContext(r.Context(), reg)
		ctx = timing.NewContextWithCounters(ctx, counters)
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			total := clk.Since(arrival)
			if leaked := reg.Running(); len(leaked) > 0 {
				log.Warn("timers still running at emit", zap.Strings("timers", leaked))
			}

			base := emit.Join(o.Prefix, strings.ToLower(r.Method), name)
			rollup := emit.Join(o.Prefix, emit.RollupView)
			tags := map[string]string{
				"method": strings.ToLower(r.Method),
				"status": strconv.Itoa(sw.status),
			}
			if err := emit.Flush(o.Emitter, base, rollup, total, reg, counters, tags); err != nil {
				log.Debug("metric emission failed", zap.Error(err))
			}
		}()

		h.ServeHTTP(sw, r.WithContext(ctx))
	})
}

// statusWriter captures the response status code for tagging.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
