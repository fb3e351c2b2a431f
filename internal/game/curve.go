/*
Package game
File: curve.go
Description:
    Quadratic and cubic Bezier curves with arc-length parameterisation.

    Ships build a fresh curve every frame from where they are to a point a
    couple of cells ahead, then advance along it by distance travelled.
    PointAt / TangentAt take u in [0,1] as a fraction of arc length rather
    than the raw Bezier parameter t, so equal u steps cover equal distance.
*/

package game

import (
	"sort"

	"github.com/paulmach/orb"
)

// arcDivisions is the number of chords used to approximate arc length.
const arcDivisions = 200

// chordRefinements is the number of bisection steps inside one chord.
const chordRefinements = 40

// Bezier is a quadratic (3 control points) or cubic (4 control points) curve.
type Bezier struct {
	Points  []orb.Point `json:"points"`
	lengths []float64   // Cumulative chord lengths, lengths[0] = 0
}

// NewQuadratic builds a curve from p0 to p2 pulled towards p1.
func NewQuadratic(p0, p1, p2 orb.Point) *Bezier {
	return newBezier([]orb.Point{p0, p1, p2})
}

// NewCubic builds a curve from p0 to p3 with control points p1 and p2.
func NewCubic(p0, p1, p2, p3 orb.Point) *Bezier {
	return newBezier([]orb.Point{p0, p1, p2, p3})
}

func newBezier(points []orb.Point) *Bezier {
	b := &Bezier{Points: points, lengths: make([]float64, arcDivisions+1)}
	prev := b.Point(0)
	for i := 1; i <= arcDivisions; i++ {
		p := b.Point(float64(i) / arcDivisions)
		b.lengths[i] = b.lengths[i-1] + distance(prev, p)
		prev = p
	}
	return b
}

// Point evaluates the curve at Bezier parameter t.
func (b *Bezier) Point(t float64) orb.Point {
	mt := 1 - t
	p := b.Points
	if len(p) == 3 {
		return add(add(scale(p[0], mt*mt), scale(p[1], 2*mt*t)), scale(p[2], t*t))
	}
	return add(
		add(scale(p[0], mt*mt*mt), scale(p[1], 3*mt*mt*t)),
		add(scale(p[2], 3*mt*t*t), scale(p[3], t*t*t)),
	)
}

// Derivative evaluates dB/dt at t.
func (b *Bezier) Derivative(t float64) orb.Point {
	mt := 1 - t
	p := b.Points
	if len(p) == 3 {
		return add(scale(sub(p[1], p[0]), 2*mt), scale(sub(p[2], p[1]), 2*t))
	}
	return add(
		add(scale(sub(p[1], p[0]), 3*mt*mt), scale(sub(p[2], p[1]), 6*mt*t)),
		scale(sub(p[3], p[2]), 3*t*t),
	)
}

// Length is the approximate arc length of the curve.
func (b *Bezier) Length() float64 {
	return b.lengths[arcDivisions]
}

// paramAt maps an arc-length fraction u to the Bezier parameter t.
func (b *Bezier) paramAt(u float64) float64 {
	if u <= 0 {
		return 0
	}
	if u >= 1 {
		return 1
	}
	total := b.Length()
	if total < epsilon {
		return u
	}
	target := u * total

	i := sort.SearchFloat64s(b.lengths, target)
	if i == 0 {
		return 0
	}
	lo, hi := float64(i-1)/arcDivisions, float64(i)/arcDivisions
	if b.lengths[i]-b.lengths[i-1] <= epsilon {
		return lo
	}
	return b.withinChord(lo, hi, target-b.lengths[i-1])
}

// withinChord finds t in [lo, hi] whose straight distance from Point(lo) is
// rest. The result never lies farther than rest, so the distance from the
// curve start to PointAt(u) is at most u*Length().
func (b *Bezier) withinChord(lo, hi, rest float64) float64 {
	start := b.Point(lo)
	for range chordRefinements {
		mid := (lo + hi) / 2
		if distance(start, b.Point(mid)) <= rest {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

// PointAt returns the point a fraction u of the way along the curve by arc length.
func (b *Bezier) PointAt(u float64) orb.Point {
	return b.Point(b.paramAt(u))
}

// TangentAt returns the unit direction of travel at arc-length fraction u.
func (b *Bezier) TangentAt(u float64) orb.Point {
	t := b.paramAt(u)
	d := normalize(b.Derivative(t))
	if d == (orb.Point{}) {
		// Degenerate control polygon (coincident points): fall back to the chord.
		d = normalize(sub(b.Points[len(b.Points)-1], b.Points[0]))
	}
	return d
}

// Bound is the bounding box of the control points. Every point on the
// curve lies inside it.
func (b *Bezier) Bound() orb.Bound {
	return orb.MultiPoint(b.Points).Bound()
}
