package middleware

import "github.com/gin-gonic/gin"

// Timer names recorded by PhaseTimer.
const (
	// PhaseRequest measures the inbound chain: arrival until PhaseTimer ran.
	PhaseRequest = "middleware.request"

	// PhaseView measures the matched handler itself.
	PhaseView = "view"

	// PhaseResponse measures the outbound chain: handler return until emit.
	PhaseResponse = "middleware.response"
)

// PhaseTimer splits a tracked request into middleware and handler phases.
// Mount it last, after every other middleware, so the phase boundaries fall
// around the handler. Without Track in front it does nothing.
func PhaseTimer() gin.HandlerFunc {
	return func(c *gin.Context) {
		st, ok := stateFrom(c)
		if !ok {
			c.Next()
			return
		}

		st.reg.Record(PhaseRequest, st.clk.Since(st.arrival))
		if err := st.reg.Start(PhaseView); err == nil {
			defer func() {
				if _, err := st.reg.Stop(PhaseView); err == nil {
					_ = st.reg.Start(PhaseResponse)
				}
			}()
		}

		c.Next()
	}
}
