package tick

import "sync/atomic"

// Clock is the logical-time source for the game loop. The loop advances it
// once per iteration; any goroutine may read Current to turn a relative
// delay into an absolute due tick for Scheduler.Schedule.
type Clock struct {
	current atomic.Int64
}

func NewClock() *Clock {
	return &Clock{}
}

// Advance increments the tick counter and returns the new value.
// Called only by the game loop, once per tick.
func (c *Clock) Advance() int64 {
	return c.current.Add(1)
}

// Current returns the most recently advanced tick.
func (c *Clock) Current() int64 {
	return c.current.Load()
}
