package timing

import "context"

type registryContextKey struct{}

type countersContextKey struct{}

// NewContext injects the registry into the supplied context, returning a
// derived context that callers can pass down into service layers so code
// below the handler records timings without a framework dependency.
func NewContext(ctx context.Context, reg *Registry) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, registryContextKey{}, reg)
}

// FromContext extracts a previously stored registry from the context.
func FromContext(ctx context.Context) (*Registry, bool) {
	if ctx == nil {
		return nil, false
	}
	reg, ok := ctx.Value(registryContextKey{}).(*Registry)
	return reg, ok
}

// NewContextWithCounters injects the counter set into the supplied context.
func NewContextWithCounters(ctx context.Context, counters *Counters) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, countersContextKey{}, counters)
}

// CountersFromContext extracts a previously stored counter set from the
// context.
func CountersFromContext(ctx context.Context) (*Counters, bool) {
	if ctx == nil {
		return nil, false
	}
	counters, ok := ctx.Value(countersContextKey{}).(*Counters)
	return counters, ok
}
