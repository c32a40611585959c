// Package clock provides a monotonic nanosecond time source for event
// timestamps (§9 "Time source: use a monotonic high-resolution clock...
// wall-clock time is not used").
package clock

import "time"

// Monotonic reads elapsed nanoseconds since an arbitrary reference point
// fixed at construction. time.Since relies on the monotonic reading Go
// attaches to time.Time internally, so two Monotonic clocks never need to
// agree on wall-clock time -- only on elapsed duration, which is exactly
// what a timestamp ordering requires.
type Monotonic struct {
	epoch time.Time
}

func New() *Monotonic {
	return &Monotonic{epoch: time.Now()}
}

// NowNs returns nanoseconds elapsed since the clock was constructed.
func (c *Monotonic) NowNs() uint64 {
	return uint64(time.Since(c.epoch).Nanoseconds())
}
