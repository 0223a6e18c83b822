package timing

// Counters collects named signed counters over the lifetime of a single
// request or task run. The zero value is an empty counter set ready to
// use. Like Registry, a counter set is exclusively owned by one in-flight
// request and is not safe for concurrent use.
type Counters struct {
	counts map[string]int64
}

// NewCounters returns an empty counter set.
func NewCounters() *Counters {
	return &Counters{counts: make(map[string]int64)}
}

// Add accumulates delta into name.
func (c *Counters) Add(name string, delta int64) {
	if c.counts == nil {
		c.counts = make(map[string]int64)
	}
	c.counts[name] += delta
}

// Incr adds one to name.
func (c *Counters) Incr(name string) {
	c.Add(name, 1)
}

// Decr subtracts one from name.
func (c *Counters) Decr(name string) {
	c.Add(name, -1)
}

// Counts returns a copy of the accumulated counters.
func (c *Counters) Counts() map[string]int64 {
	out := make(map[string]int64, len(c.counts))
	for name, v := range c.counts {
		out[name] = v
	}
	return out
}
