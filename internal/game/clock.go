package game

import "time"

// FrameClock turns wall-clock readings into per-frame elapsed seconds.
// The first reading is always zero so a driver's first frame never jumps.
type FrameClock struct {
	last    time.Time
	started bool
}

// Elapsed returns the seconds since the previous call.
func (c *FrameClock) Elapsed(now time.Time) float64 {
	if !c.started {
		c.started = true
		c.last = now
		return 0
	}
	dt := now.Sub(c.last).Seconds()
	c.last = now
	if dt < 0 {
		return 0
	}
	return dt
}

// Reset makes the next reading zero again, e.g. after a pause.
func (c *FrameClock) Reset() {
	c.started = false
}
