package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/statkit/gin-statsd/pkg/timing"
)

// Timings returns the timer registry of the current request. Handlers use
// it to time named spans that are emitted alongside the request total. When
// Track is not mounted a detached registry is returned, so callers can time
// unconditionally.
func Timings(c *gin.Context) *timing.Registry {
	if st, ok := stateFrom(c); ok {
		return st.reg
	}
	return timing.NewRegistry()
}

// Counters returns the counter set of the current request, or a detached
// set when Track is not mounted.
func Counters(c *gin.Context) *timing.Counters {
	if st, ok := stateFrom(c); ok {
		return st.counters
	}
	return timing.NewCounters()
}

func stateFrom(c *gin.Context) (*requestState, bool) {
	v, ok := c.Get(stateKey)
	if !ok {
		return nil, false
	}
	st, ok := v.(*requestState)
	return st, ok
}
