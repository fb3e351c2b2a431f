package game

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func TestBezierEndpoints(t *testing.T) {
	curves := map[string]*Bezier{
		"quadratic": NewQuadratic(orb.Point{0, 0}, orb.Point{1, 2}, orb.Point{3, 0}),
		"cubic":     NewCubic(orb.Point{0, 0}, orb.Point{0, 2}, orb.Point{3, 2}, orb.Point{3, 0}),
	}
	for name, b := range curves {
		t.Run(name, func(t *testing.T) {
			first, last := b.Points[0], b.Points[len(b.Points)-1]
			if got := b.PointAt(0); got != first {
				t.Errorf("PointAt(0) = %v, want %v", got, first)
			}
			if got := b.PointAt(1); got != last {
				t.Errorf("PointAt(1) = %v, want %v", got, last)
			}
			if b.Length() < distance(first, last) {
				t.Errorf("arc length %v shorter than chord %v", b.Length(), distance(first, last))
			}
		})
	}
}

func TestStraightBezierLength(t *testing.T) {
	b := NewQuadratic(orb.Point{0, 0}, orb.Point{1, 0}, orb.Point{2, 0})
	if math.Abs(b.Length()-2) > 1e-9 {
		t.Errorf("Length = %v, want 2", b.Length())
	}
	if got := b.PointAt(0.25); math.Abs(got.X()-0.5) > 1e-6 || got.Y() != 0 {
		t.Errorf("PointAt(0.25) = %v, want 0.5,0", got)
	}
	if got := b.TangentAt(0.5); !samePoint(got, orb.Point{1, 0}) {
		t.Errorf("TangentAt(0.5) = %v, want 1,0", got)
	}
}

// Equal arc-length steps move forward and cover roughly equal distance.
func TestArcLengthMonotonic(t *testing.T) {
	b := NewCubic(orb.Point{0, 0}, orb.Point{4, 0}, orb.Point{0, 3}, orb.Point{4, 3})
	const steps = 50
	want := b.Length() / steps

	prevT := 0.0
	prev := b.PointAt(0)
	for i := 1; i <= steps; i++ {
		u := float64(i) / steps
		tt := b.paramAt(u)
		if tt < prevT {
			t.Fatalf("paramAt(%v) = %v went backwards from %v", u, tt, prevT)
		}
		p := b.PointAt(u)
		if d := distance(prev, p); math.Abs(d-want) > want*0.1 {
			t.Errorf("step %d covers %v, want about %v", i, d, want)
		}
		if !b.Bound().Pad(1e-9).Contains(p) {
			t.Errorf("PointAt(%v) = %v outside control hull", u, p)
		}
		prevT, prev = tt, p
	}
}

func TestTangentDegenerate(t *testing.T) {
	p := orb.Point{1, 1}
	b := NewQuadratic(p, p, p)
	if b.Length() != 0 {
		t.Errorf("Length = %v, want 0", b.Length())
	}
	if got := b.TangentAt(0.5); got != (orb.Point{}) {
		t.Errorf("TangentAt on a point = %v, want zero", got)
	}

	// Control point on the start: the derivative vanishes at t=0.
	b = NewQuadratic(orb.Point{0, 0}, orb.Point{0, 0}, orb.Point{2, 0})
	if got := b.TangentAt(0); !samePoint(got, orb.Point{1, 0}) {
		t.Errorf("TangentAt(0) = %v, want chord direction 1,0", got)
	}
}

// Cubic curves with uneven speed: sampling by arc length never lands past
// the requested distance from the start.
func TestPointAtStaysWithinArcLength(t *testing.T) {
	curves := map[string]*Bezier{
		"s-bend":   NewCubic(orb.Point{0, 0}, orb.Point{4, 0}, orb.Point{0, 3}, orb.Point{4, 3}),
		"hairpin":  NewCubic(orb.Point{0, 0}, orb.Point{0.6, 0}, orb.Point{0.6, 0.4}, orb.Point{0.05, 0.4}),
		"slow end": NewCubic(orb.Point{0, 0}, orb.Point{0.2, 0.1}, orb.Point{0.4, 0.4}, orb.Point{0.4045, 0.4045}),
	}
	for name, b := range curves {
		t.Run(name, func(t *testing.T) {
			start := b.PointAt(0)
			for i := 1; i < 1000; i++ {
				u := float64(i) / 1000
				want := u * b.Length()
				got := distance(start, b.PointAt(u))
				if got > want+1e-12 {
					t.Fatalf("PointAt(%v) is %v from the start, more than %v", u, got, want)
				}
			}
		})
	}
}
