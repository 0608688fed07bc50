package engine

import "time"

// WallClock is an anim.Clock reading seconds elapsed since it was created.
// It uses the monotonic clock, so system time changes do not jump frames.
type WallClock struct {
	start time.Time
}

// NewWallClock starts a clock at zero.
func NewWallClock() *WallClock {
	return &WallClock{start: time.Now()}
}

// Seconds implements anim.Clock.
func (c *WallClock) Seconds() float64 {
	return time.Since(c.start).Seconds()
}
