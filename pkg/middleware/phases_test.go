package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/statkit/gin-statsd/pkg/metrics/metricstest"
)

func TestPhaseTimerSplitsRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := metricstest.NewRecorder()
	mock := clock.NewMock()

	r := gin.New()
	r.Use(Track(Options{Emitter: rec, Prefix: "app", Clock: mock}))
	r.Use(func(c *gin.Context) {
		mock.Add(10 * time.Millisecond)
		c.Next()
		mock.Add(5 * time.Millisecond)
	})
	r.Use(PhaseTimer())
	r.GET("/work", func(c *gin.Context) {
		mock.Add(30 * time.Millisecond)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/work", nil))

	require.Equal(t, []time.Duration{45 * time.Millisecond}, rec.Timings("app.get.work"))
	require.Equal(t, []time.Duration{10 * time.Millisecond}, rec.Timings("app.get.work.middleware.request"))
	require.Equal(t, []time.Duration{30 * time.Millisecond}, rec.Timings("app.get.work.view"))
	require.Equal(t, []time.Duration{5 * time.Millisecond}, rec.Timings("app.get.work.middleware.response"))
}

func TestPhaseTimerWithoutTrackIsInert(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(PhaseTimer())
	r.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, http.StatusOK, w.Code)
}

func TestPhaseSumNeverExceedsTotal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := metricstest.NewRecorder()

	r := gin.New()
	r.Use(Track(Options{Emitter: rec, Prefix: "app"}))
	r.Use(PhaseTimer())
	r.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	const requests = 500
	for i := 0; i < requests; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	totals := rec.Timings("app.get.ping")
	requestPhase := rec.Timings("app.get.ping.middleware.request")
	viewPhase := rec.Timings("app.get.ping.view")
	responsePhase := rec.Timings("app.get.ping.middleware.response")
	require.Len(t, totals, requests)
	require.Len(t, requestPhase, requests)
	require.Len(t, viewPhase, requests)
	require.Len(t, responsePhase, requests)

	for i := range totals {
		sum := requestPhase[i] + viewPhase[i] + responsePhase[i]
		require.LessOrEqual(t, sum, totals[i], "request %d", i)
	}
}

func TestPhaseTimerStopsViewOnPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := metricstest.NewRecorder()
	mock := clock.NewMock()

	r := gin.New()
	r.Use(Track(Options{Emitter: rec, Prefix: "app", Clock: mock, Logger: zap.NewNop()}))
	r.Use(gin.Recovery())
	r.Use(PhaseTimer())
	r.GET("/boom", func(c *gin.Context) {
		mock.Add(8 * time.Millisecond)
		panic("kaboom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, []time.Duration{8 * time.Millisecond}, rec.Timings("app.get.boom.view"))
	require.Equal(t, "500", rec.TagsOf("app.get.boom")["status"])
}
