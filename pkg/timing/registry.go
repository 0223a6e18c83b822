package timing

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/benbjohnson/clock"
)

var (
	// ErrTimerRunning reports a start of a timer name that is already running.
	ErrTimerRunning = errors.New("timer already running")

	// ErrTimerNotStarted reports a stop of a timer name that is not running.
	ErrTimerNotStarted = errors.New("timer not started")
)

// Registry collects named timers over the lifetime of a single request or
// task run. Durations accumulate per name: a stopped name may be started
// again, and later stops add into the same bucket. At most one running
// interval per name is allowed at any instant.
//
// The zero value is an empty registry measuring with the wall clock.
//
// A registry is exclusively owned by one in-flight request and is not safe
// for concurrent use.
type Registry struct {
	clock   clock.Clock
	starts  map[string]time.Time
	elapsed map[string]time.Duration
}

func (r *Registry) lazyInit() {
	if r.clock == nil {
		r.clock = clock.New()
	}
	if r.starts == nil {
		r.starts = make(map[string]time.Time)
	}
	if r.elapsed == nil {
		r.elapsed = make(map[string]time.Duration)
	}
}

// Option customises a Registry.
type Option func(*Registry)

// WithClock overrides the wall clock, primarily for testing.
func WithClock(c clock.Clock) Option {
	return func(r *Registry) {
		if c != nil {
			r.clock = c
		}
	}
}

// NewRegistry returns an empty timer registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		clock:   clock.New(),
		starts:  make(map[string]time.Time),
		elapsed: make(map[string]time.Duration),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins timing name. Starting a name that is already running is a
// usage error and leaves the original start untouched.
func (r *Registry) Start(name string) error {
	r.lazyInit()
	if _, running := r.starts[name]; running {
		return fmt.Errorf("timing: start %q: %w", name, ErrTimerRunning)
	}
	r.starts[name] = r.clock.Now()
	return nil
}

// Stop ends timing name, adds the elapsed interval into the name's
// accumulated bucket, and returns the interval. Stopping a name that is
// not running is a usage error.
func (r *Registry) Stop(name string) (time.Duration, error) {
	started, running := r.starts[name]
	if !running {
		return 0, fmt.Errorf("timing: stop %q: %w", name, ErrTimerNotStarted)
	}
	delete(r.starts, name)

	d := r.clock.Since(started)
	r.elapsed[name] += d
	return d, nil
}

// Time starts name and returns the matching stop, for use with defer:
//
//	defer reg.Time("render")()
//
// The stop runs on every exit path, including panics. If name is already
// running the returned stop is a no-op, so a misuse cannot take down the
// surrounding request.
func (r *Registry) Time(name string) (stop func()) {
	if err := r.Start(name); err != nil {
		return func() {}
	}
	return func() {
		_, _ = r.Stop(name)
	}
}

// Record adds an externally measured duration into the name's accumulated
// bucket without touching running timers.
func (r *Registry) Record(name string, d time.Duration) {
	r.lazyInit()
	r.elapsed[name] += d
}

// IsRunning reports whether name is currently started and not yet stopped.
func (r *Registry) IsRunning(name string) bool {
	_, running := r.starts[name]
	return running
}

// Elapsed reports the accumulated duration for name and whether the name
// has completed at least one start/stop cycle.
func (r *Registry) Elapsed(name string) (time.Duration, bool) {
	d, ok := r.elapsed[name]
	return d, ok
}

// Durations returns a copy of all accumulated buckets. Running timers are
// not included until they stop.
func (r *Registry) Durations() map[string]time.Duration {
	out := make(map[string]time.Duration, len(r.elapsed))
	for name, d := range r.elapsed {
		out[name] = d
	}
	return out
}

// Running lists the names that are currently started and not yet stopped,
// sorted for stable output.
func (r *Registry) Running() []string {
	if len(r.starts) == 0 {
		return nil
	}
	names := make([]string, 0, len(r.starts))
	for name := range r.starts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
