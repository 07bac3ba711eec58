package sim

import "time"

// StepClock is a deterministic timer for scripted runs. Time only moves when
// the scenario advances it, and due callbacks run in due order, then schedule
// order. Callbacks may schedule further callbacks; AdvanceTo keeps firing
// until nothing is due before the target instant.
type StepClock struct {
	now     time.Duration
	seq     int
	pending []scheduled
}

type scheduled struct {
	due time.Duration
	seq int
	fn  func()
}

func NewStepClock() *StepClock { return &StepClock{} }

// Now reports the current simulated instant, measured from the run start.
func (c *StepClock) Now() time.Duration { return c.now }

// Pending reports how many callbacks are still waiting to fire.
func (c *StepClock) Pending() int { return len(c.pending) }

// After schedules fn at now+d. It satisfies the engine's timer contract.
func (c *StepClock) After(d time.Duration, fn func()) {
	if d < 0 {
		d = 0
	}
	c.seq++
	c.pending = append(c.pending, scheduled{due: c.now + d, seq: c.seq, fn: fn})
}

// Advance moves the clock forward by d, firing everything that falls due.
func (c *StepClock) Advance(d time.Duration) { c.AdvanceTo(c.now + d) }

// AdvanceTo moves the clock to instant t. Instants already past are ignored.
func (c *StepClock) AdvanceTo(t time.Duration) {
	if t < c.now {
		return
	}
	for {
		i := c.nextDue(t)
		if i < 0 {
			break
		}
		next := c.pending[i]
		c.pending = append(c.pending[:i], c.pending[i+1:]...)
		if next.due > c.now {
			c.now = next.due
		}
		next.fn()
	}
	c.now = t
}

// Drain fires every pending callback, advancing the clock as far as the
// schedule reaches. Bounded timer chains (debounce, verify retries) settle;
// the clock stops once nothing is left.
func (c *StepClock) Drain() {
	for len(c.pending) > 0 {
		horizon := c.pending[0].due
		for _, s := range c.pending[1:] {
			if s.due > horizon {
				horizon = s.due
			}
		}
		c.AdvanceTo(horizon)
	}
}

func (c *StepClock) nextDue(limit time.Duration) int {
	best := -1
	for i, s := range c.pending {
		if s.due > limit {
			continue
		}
		if best < 0 || s.due < c.pending[best].due ||
			(s.due == c.pending[best].due && s.seq < c.pending[best].seq) {
			best = i
		}
	}
	return best
}
