/*
Package game
File: navigation.go
Description:
    The navigation engine. Drives each ship from where it is to where it was
    asked to go, one frame at a time, and keeps the occupancy grid and the
    parking pools consistent with where ships actually are.

    Per ship the engine runs a small state machine:
    Idle -> Turning (rotate in place towards the next cell) -> Traveling
    (follow a Bezier curve rebuilt every frame) -> Idle on arrival.

    Update is a function of the ship's state and the elapsed seconds only;
    it never reads a clock, so it can be stepped deterministically in tests.
*/

package game

import (
	"errors"
	"fmt"
	"math"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb"

	"github.com/everforgeworks/shipnav/internal/grid"
)

var (
	ErrUnknownMapPoint  = errors.New("unknown map point")
	ErrParkingExhausted = errors.New("no free parking space")
	ErrUnknownShip      = errors.New("unknown ship")
	ErrShipExists       = errors.New("ship already exists")
)

// surfaceStep is how far a ship rises or sinks per frame.
const surfaceStep = 0.01

// Pathfinder computes a route of grid cells, start and goal inclusive.
// It must treat the grid as read-only.
type Pathfinder interface {
	FindPath(start, goal grid.Cell) ([]grid.Cell, error)
}

// Navigator moves ships over a shared grid.
type Navigator struct {
	cfg    EngineConfig
	grid   *grid.Grid
	finder Pathfinder
	points map[string]*MapPoint
	logger *log.Logger

	occupants map[grid.Cell]int // Ships idling on each cell they marked Parked
}

// NewNavigator wires an engine to its grid, pathfinder and map points.
func NewNavigator(cfg EngineConfig, g *grid.Grid, finder Pathfinder, points map[string]*MapPoint, logger *log.Logger) *Navigator {
	if logger == nil {
		logger = log.Default()
	}
	return &Navigator{
		cfg:    cfg,
		grid:   g,
		finder: finder,
		points: points,
		logger: logger.WithPrefix("nav"),

		occupants: make(map[grid.Cell]int),
	}
}

// Engine returns the current motion parameters.
func (n *Navigator) Engine() EngineConfig { return n.cfg }

// SetEngine swaps the motion parameters. Ships keep their state.
func (n *Navigator) SetEngine(cfg EngineConfig) { n.cfg = cfg }

// Grid exposes the occupancy grid.
func (n *Navigator) Grid() *grid.Grid { return n.grid }

// GridPosition is the cell nearest to the ship.
func (n *Navigator) GridPosition(s *Ship) grid.Cell {
	return n.grid.WorldToGrid(s.Position)
}

// RequestMove sends a ship to a map point, or to a spot QuartersFrom quarters
// of the way from Reference to Target. A ship that is not visible yet appears
// at the destination without sailing there.
//
// Asking again for the spot a ship is already sailing to keeps it sailing;
// the new OnArrive replaces the old one and fires on actual arrival.
//
// ErrParkingExhausted is returned, with the ship left untouched, when the
// target has no free parking space.
func (n *Navigator) RequestMove(s *Ship, req MoveRequest) error {
	target, ok := n.points[req.Target]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMapPoint, req.Target)
	}

	req = req.Normalized()
	between := req.between()
	quarters, refID := req.QuartersFrom, req.Reference
	var ref *MapPoint
	if between {
		if ref, ok = n.points[refID]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownMapPoint, refID)
		}
	}

	// Same spot as last time: nothing to sail.
	if s.Visible && s.HasDestination && s.MapPoint == target.ID && s.Quarters == quarters && s.PreviousMapPoint == refID {
		s.onArrive = req.OnArrive
		if !s.Traveling && n.GridPosition(s) == s.Destination {
			n.arrive(s)
		}
		return nil
	}

	// Check the pool before letting go of anything so a refusal leaves no trace.
	if !between && !target.Parking.CanReserve(s.ID) {
		return fmt.Errorf("%w: ship %s at %s", ErrParkingExhausted, s.ID, target.ID)
	}

	if s.HasDestination {
		n.depart(s)
	}

	s.MapPoint = target.ID
	s.Quarters = quarters
	s.PreviousMapPoint = refID
	s.Between = between

	if between {
		s.Destination = n.stopBetween(ref, target, quarters)
	} else {
		cell, err := target.ReserveParkingSpace(s.ID)
		if err != nil {
			// CanReserve said yes above; only a broken pool gets here.
			return fmt.Errorf("%w: ship %s at %s", ErrParkingExhausted, s.ID, target.ID)
		}
		s.Destination = cell
	}
	s.HasDestination = true
	s.onArrive = req.OnArrive
	s.Traveling, s.Turning = false, false
	s.Path = nil

	n.logger.Debug("move requested", "ship", s.ID, "target", target.ID, "quarters", quarters, "from", refID, "cell", s.Destination)

	if !s.Visible {
		// First appearance: no sailing in from nowhere.
		s.Position = n.grid.GridToWorld(s.Destination)
		n.arrive(s)
		s.Visible = true
	}
	return nil
}

// Depart hides the ship and gives up whatever it occupies.
// The destination is kept so a later identical move is recognised.
func (n *Navigator) Depart(s *Ship) {
	s.Visible = false
	s.Traveling, s.Turning = false, false
	s.Path = nil
	n.depart(s)
}

// stopBetween picks the route cell quarters/4 of the way from one point to another.
func (n *Navigator) stopBetween(from, to *MapPoint, quarters int) grid.Cell {
	frac := float64(quarters) / 4

	path, err := n.finder.FindPath(from.Location(), to.Location())
	if err != nil || len(path) == 0 {
		// No sea route between the two anchors: interpolate on the straight line.
		a, b := from.Location(), to.Location()
		n.logger.Warn("no route between map points, using straight line", "from", from.ID, "to", to.ID, "err", err)
		return grid.Cell{
			X: a.X + int(math.Round(float64(b.X-a.X)*frac)),
			Y: a.Y + int(math.Round(float64(b.Y-a.Y)*frac)),
		}
	}
	return path[int(math.Round(float64(len(path)-1)*frac))]
}

// depart releases what the ship holds: its parking space when docked at a
// map point, its grid cell when idling between two.
func (n *Navigator) depart(s *Ship) {
	if !s.Between {
		if p, ok := n.points[s.MapPoint]; ok {
			p.ReleaseParkingSpace(s.ID)
		}
		return
	}
	if !s.marked {
		return
	}
	s.marked = false
	if n.occupants[s.Destination]--; n.occupants[s.Destination] <= 0 {
		delete(n.occupants, s.Destination)
		n.grid.MarkFree(s.Destination)
	}
}

// arrive marks a ship idling between map points as an obstacle, then fires
// and drops the arrival callback. Ships sharing a stop share its mark, and
// the cell reads open water again only once the last of them leaves.
func (n *Navigator) arrive(s *Ship) {
	if s.Between && !s.marked {
		cell := s.Destination
		if n.occupants[cell] > 0 || n.grid.At(cell) == grid.Free {
			n.grid.MarkOccupied(cell)
			n.occupants[cell]++
			s.marked = true
		}
	}
	if cb := s.onArrive; cb != nil {
		s.onArrive = nil
		cb()
	}
}

// Update advances one ship by elapsed seconds.
func (n *Navigator) Update(s *Ship, elapsed float64) {
	n.surface(s)
	if !s.Visible {
		return
	}
	if elapsed < 0 {
		elapsed = 0
	}

	cell := n.GridPosition(s)
	if !s.Traveling && s.HasDestination && cell != s.Destination {
		s.Traveling, s.Turning = true, true
	}
	if !s.Traveling {
		return
	}

	// 1. Make sure the path starts where the ship is.
	if len(s.Path) == 0 || s.Path[0] != cell {
		path, err := n.finder.FindPath(cell, s.Destination)
		if err != nil || len(path) == 0 {
			// Gameplay must not stall on an unreachable cell: jump there.
			s.PathFailures++
			n.logger.Warn("no route, jumping to destination", "ship", s.ID, "from", cell, "to", s.Destination, "failures", s.PathFailures, "err", err)
			n.finish(s)
			return
		}
		s.PathFailures = 0
		s.Path = path
	}

	next := s.Path[0]
	if len(s.Path) > 1 {
		next = s.Path[1]
	}
	nextPoint := n.grid.GridToWorld(next)

	// 2. Turn in place, then sail.
	if s.Turning {
		n.turn(s, nextPoint, elapsed)
		return
	}
	n.travel(s, nextPoint, elapsed)
}

// turn rotates the ship towards nextPoint at the engine's angular speed.
func (n *Navigator) turn(s *Ship, nextPoint orb.Point, elapsed float64) {
	target := normalize(sub(nextPoint, s.Position))
	if target == (orb.Point{}) {
		s.Turning = false
		return
	}

	current := heading(s.Forward)
	diff := angleDiff(current, heading(target))
	budget := n.cfg.AngularSpeed * elapsed
	if math.Abs(diff) <= budget {
		s.Forward = target
		s.Turning = false
		return
	}
	if diff < 0 {
		budget = -budget
	}
	s.Forward = unitFromAngle(current + budget)
}

// travel moves the ship along a curve towards the cell two steps ahead.
func (n *Navigator) travel(s *Ship, nextPoint orb.Point, elapsed float64) {
	pos, fwd := s.Position, s.Forward
	path := s.Path

	var curve *Bezier
	switch {
	case len(path) > 3:
		// The point after next sets the approach direction.
		target := n.grid.GridToWorld(path[2])
		reach := distance(pos, target) / 2
		approach := normalize(sub(n.grid.GridToWorld(path[3]), target))
		curve = NewCubic(pos, add(pos, scale(fwd, reach)), sub(target, scale(approach, 0.5*reach)), target)
	case len(path) > 2:
		target := n.grid.GridToWorld(path[2])
		reach := distance(pos, target) / 2
		curve = NewQuadratic(pos, add(pos, scale(fwd, reach)), target)
	default:
		reach := distance(pos, nextPoint) / 2
		curve = NewQuadratic(pos, add(pos, scale(fwd, reach)), nextPoint)
	}

	movement := n.cfg.Speed * elapsed
	total := curve.Length()

	// Last leg and this frame would reach or overshoot the end: snap.
	if len(path) <= 2 && total <= movement {
		s.Curve, s.CurveParam = curve, 1
		n.finish(s)
		return
	}

	u := 1.0
	if total > epsilon {
		u = math.Min(movement/total, 1)
	}
	next := curve.PointAt(u)
	s.Odometer += distance(pos, next)
	s.Position = next
	if tangent := curve.TangentAt(u); tangent != (orb.Point{}) {
		s.Forward = tangent
	}
	s.Curve, s.CurveParam = curve, u
}

// finish snaps the ship onto its destination and runs arrival.
func (n *Navigator) finish(s *Ship) {
	dest := n.grid.GridToWorld(s.Destination)
	s.Odometer += distance(s.Position, dest)
	s.Position = dest
	s.Traveling, s.Turning = false, false
	s.Path = nil
	n.logger.Debug("arrived", "ship", s.ID, "cell", s.Destination, "map_point", s.MapPoint)
	n.arrive(s)
}

// surface eases the ship up out of the water when visible and down when not.
func (n *Navigator) surface(s *Ship) {
	if s.Visible {
		s.Surface = math.Min(1, s.Surface+surfaceStep)
	} else {
		s.Surface = math.Max(0, s.Surface-surfaceStep)
	}
}
