package game

import (
	"math"
	"testing"
	"time"

	"github.com/paulmach/orb"
)

func TestAngleDiff(t *testing.T) {
	tests := []struct {
		from, to, want float64
	}{
		{0, math.Pi / 2, math.Pi / 2},
		{math.Pi / 2, 0, -math.Pi / 2},
		{0.9 * math.Pi, -0.9 * math.Pi, 0.2 * math.Pi},
		{-0.9 * math.Pi, 0.9 * math.Pi, -0.2 * math.Pi},
		{0, math.Pi, math.Pi},
		{0, -math.Pi, math.Pi},
		{2*math.Pi + 0.5, 0, -0.5},
	}
	for _, tt := range tests {
		if got := angleDiff(tt.from, tt.to); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("angleDiff(%v, %v) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	if got := normalize(orb.Point{3, 4}); !samePoint(got, orb.Point{0.6, 0.8}) {
		t.Errorf("normalize(3,4) = %v", got)
	}
	if got := normalize(orb.Point{}); got != (orb.Point{}) {
		t.Errorf("normalize(0,0) = %v, want zero", got)
	}
	if got := heading(unitFromAngle(1.2)); math.Abs(got-1.2) > 1e-12 {
		t.Errorf("heading(unitFromAngle(1.2)) = %v", got)
	}
}

func TestFrameClock(t *testing.T) {
	var c FrameClock
	t0 := time.Unix(100, 0)

	if got := c.Elapsed(t0); got != 0 {
		t.Errorf("first reading = %v, want 0", got)
	}
	if got := c.Elapsed(t0.Add(250 * time.Millisecond)); got != 0.25 {
		t.Errorf("second reading = %v, want 0.25", got)
	}
	if got := c.Elapsed(t0); got != 0 {
		t.Errorf("clock going backwards = %v, want 0", got)
	}

	c.Reset()
	if got := c.Elapsed(t0.Add(time.Hour)); got != 0 {
		t.Errorf("reading after reset = %v, want 0", got)
	}
}
