package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/statkit/gin-statsd/pkg/metrics/metricstest"
	"github.com/statkit/gin-statsd/pkg/timing"
)

func TestWrapHandlerEmitsMetrics(t *testing.T) {
	rec := metricstest.NewRecorder()
	mock := clock.NewMock()

	h := WrapHandler("users", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reg, ok := timing.FromContext(r.Context())
		require.True(t, ok)
		require.NoError(t, reg.Start("db"))
		mock.Add(20 * time.Millisecond)
		_, err := reg.Stop("db")
		require.NoError(t, err)

		mock.Add(5 * time.Millisecond)
		w.WriteHeader(http.StatusCreated)
	}), Options{Emitter: rec, Prefix: "server.app", Clock: mock})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/users", nil))

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, []time.Duration{25 * time.Millisecond}, rec.Timings("server.app.post.users"))
	require.Equal(t, []time.Duration{20 * time.Millisecond}, rec.Timings("server.app.post.users.db"))
	require.Equal(t, map[string]string{"method": "post", "status": "201"}, rec.TagsOf("server.app.post.users"))
	require.Equal(t, int64(1), rec.CountOf("server.app.all.hit"))
}

func TestWrapHandlerDefaultsStatusToOK(t *testing.T) {
	rec := metricstest.NewRecorder()

	h := WrapHandler("ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong"))
	}), Options{Emitter: rec})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, "pong", w.Body.String())
	require.Equal(t, "200", rec.TagsOf("get.ping")["status"])
	require.Equal(t, int64(1), rec.CountOf("all.hit"))
}

type passthroughHandler struct{}

func (passthroughHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func TestWrapHandlerNilEmitterReturnsHandler(t *testing.T) {
	h := passthroughHandler{}
	require.Equal(t, http.Handler(h), WrapHandler("ping", h, Options{}))
}
