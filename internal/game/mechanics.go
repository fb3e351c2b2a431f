/*
Package game
File: mechanics.go
Description:
    Plane geometry helpers for ship motion.
    World positions and headings are orb.Points; these helpers treat them
    as 2D vectors.
*/

package game

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// epsilon below which lengths are treated as zero.
const epsilon = 1e-9

func add(a, b orb.Point) orb.Point { return orb.Point{a[0] + b[0], a[1] + b[1]} }
func sub(a, b orb.Point) orb.Point { return orb.Point{a[0] - b[0], a[1] - b[1]} }

func scale(v orb.Point, s float64) orb.Point { return orb.Point{v[0] * s, v[1] * s} }

func length(v orb.Point) float64 { return math.Hypot(v[0], v[1]) }

// distance between two world positions.
func distance(a, b orb.Point) float64 { return planar.Distance(a, b) }

// normalize returns v scaled to unit length, or the zero vector.
func normalize(v orb.Point) orb.Point {
	l := length(v)
	if l < epsilon {
		return orb.Point{}
	}
	return orb.Point{v[0] / l, v[1] / l}
}

// heading is the angle of v from the +x axis in (-π, π].
func heading(v orb.Point) float64 { return math.Atan2(v[1], v[0]) }

// unitFromAngle returns the unit vector pointing at angle.
func unitFromAngle(angle float64) orb.Point {
	return orb.Point{math.Cos(angle), math.Sin(angle)}
}

// angleDiff returns the signed rotation from -> to along the shorter arc,
// wrapped into (-π, π].
func angleDiff(from, to float64) float64 {
	d := math.Mod(to-from, 2*math.Pi)
	if d > math.Pi {
		d -= 2 * math.Pi
	} else if d <= -math.Pi {
		d += 2 * math.Pi
	}
	return d
}
