package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/statkit/gin-statsd/pkg/metrics/metricstest"
)

var (
	_ Emitter = NoopEmitter{}
	_ Emitter = (*StatsdEmitter)(nil)
	_ Emitter = (*MultiEmitter)(nil)
	_ Emitter = (*PromEmitter)(nil)
	_ Emitter = (*metricstest.Recorder)(nil)
)

func TestMultiEmitterFansOut(t *testing.T) {
	a := metricstest.NewRecorder()
	b := metricstest.NewRecorder()

	m := NewMultiEmitter(a, nil, b)

	require.NoError(t, m.Timing("x", time.Second, nil))
	require.NoError(t, m.Count("y", 2, nil))
	require.NoError(t, m.Gauge("z", 3, nil))

	require.Equal(t, []time.Duration{time.Second}, a.Timings("x"))
	require.Equal(t, []time.Duration{time.Second}, b.Timings("x"))
	require.Equal(t, int64(2), a.CountOf("y"))
	require.Equal(t, int64(2), b.CountOf("y"))
}

func TestMultiEmitterAggregatesErrors(t *testing.T) {
	a := metricstest.NewRecorder()
	a.Err = errors.New("statsd unreachable")
	b := metricstest.NewRecorder()

	m := NewMultiEmitter(a, b)

	err := m.Count("x", 1, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "statsd unreachable")

	// The failing emitter does not stop the others.
	require.Equal(t, int64(1), b.CountOf("x"))
}

func TestMultiEmitterClosesAll(t *testing.T) {
	a := metricstest.NewRecorder()
	b := metricstest.NewRecorder()

	m := NewMultiEmitter(a, b)
	require.NoError(t, m.Close())

	require.True(t, a.Closed())
	require.True(t, b.Closed())
}

func TestNoopEmitterDiscardsEverything(t *testing.T) {
	e := NewNoopEmitter()

	require.NoError(t, e.Count("x", 1, nil))
	require.NoError(t, e.Gauge("x", 1, nil))
	require.NoError(t, e.Timing("x", time.Second, nil))
	require.NoError(t, e.Close())
}
