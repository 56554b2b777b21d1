// Package repeater implements the periodic gate used to rate-limit scheduler tasks.
// A Repeater answers "may my owner run now?" and re-arms itself every time it says yes.
// It is owned by exactly one task and does no locking.
package repeater

import (
	"math/rand/v2"
	"time"
)

// Repeater fires at most once per interval. The interval is either fixed,
// drawn from a {min, max} range, or taken in turn from a repeating pattern.
type Repeater struct {
	delays  []time.Duration
	next    int
	armed   time.Duration
	last    time.Time
	fired   bool
	now     func() time.Time
	jitterN func(n int64) int64
}

// New returns a Repeater with a fixed interval. The first CanFire returns true.
func New(interval time.Duration) *Repeater {
	r := &Repeater{now: time.Now, jitterN: rand.Int64N}
	r.UpdateDelay(interval)
	r.armed = r.draw()
	return r
}

// NewRange returns a Repeater whose interval is drawn uniformly from [min, max] on every re-arm.
func NewRange(min, max time.Duration) *Repeater {
	r := &Repeater{now: time.Now, jitterN: rand.Int64N}
	r.UpdateDelay(min, max)
	r.armed = r.draw()
	return r
}

// CanFire reports whether the armed interval has elapsed since the last true result.
// On true the gate re-arms with the next interval.
func (r *Repeater) CanFire() bool {
	now := r.now()
	if r.fired && now.Sub(r.last) < r.armed {
		return false
	}
	r.last = now
	r.fired = true
	r.armed = r.draw()
	return true
}

// Clear forgets the last firing so the next CanFire returns true.
func (r *Repeater) Clear() {
	r.fired = false
	r.last = time.Time{}
}

// UpdateDelay reconfigures the gate. One value sets a fixed interval, two values a
// {min, max} range and three or more a cyclic pattern. The interval already armed is
// left alone; the new configuration is used from the next re-arm.
// Calls without delays are ignored.
func (r *Repeater) UpdateDelay(delays ...time.Duration) {
	if len(delays) == 0 {
		return
	}
	if len(delays) == 2 && delays[1] < delays[0] {
		delays = []time.Duration{delays[1], delays[0]}
	}
	r.delays = append([]time.Duration(nil), delays...)
	r.next = 0
}

// Interval returns the interval currently armed.
func (r *Repeater) Interval() time.Duration { return r.armed }

func (r *Repeater) draw() time.Duration {
	switch len(r.delays) {
	case 1:
		return r.delays[0]
	case 2:
		min, max := r.delays[0], r.delays[1]
		if max == min {
			return min
		}
		return min + time.Duration(r.jitterN(int64(max-min)+1))
	default:
		d := r.delays[r.next]
		r.next = (r.next + 1) % len(r.delays)
		return d
	}
}
