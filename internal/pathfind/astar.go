/*
Package pathfind
File: astar.go
Description:
    Shortest-path search over the occupancy grid.

    The finder runs a weighted A* with 8-way movement. Edge costs are
    cardinal = 10 and diagonal = 14 (about 10*sqrt(2)), so routes look like
    straight sailing lines instead of staircases. Diagonal steps may not cut
    the corner of a blocked cell.

    The grid is read at call time only; nothing is cached between calls
    because ships park and leave between frames.
*/

package pathfind

import (
	"errors"
	"fmt"

	"github.com/everforgeworks/shipnav/internal/grid"
)

var (
	ErrUnreachable = errors.New("pathfind: goal unreachable")
	ErrOutOfBounds = errors.New("pathfind: cell outside grid")
)

const (
	costCardinal = 10
	costDiagonal = 14
)

// Neighbour offsets. Order: N, NE, E, SE, S, SW, W, NW.
var dirVectors = [8][2]int{
	{0, -1}, {1, -1}, {1, 0}, {1, 1},
	{0, 1}, {-1, 1}, {-1, 0}, {-1, -1},
}

// Finder computes routes on a grid.
type Finder struct {
	grid *grid.Grid
	heap minHeap // Reused between searches
}

// New returns a Finder reading from g.
func New(g *grid.Grid) *Finder {
	return &Finder{grid: g}
}

// FindPath returns the cells from start to goal inclusive.
// Start and goal are always enterable: map point anchors sit on land and a
// ship's own cell may still be marked when it asks for a route.
func (f *Finder) FindPath(start, goal grid.Cell) ([]grid.Cell, error) {
	g := f.grid
	if !g.InBounds(start) || !g.InBounds(goal) {
		return nil, fmt.Errorf("%w: %v -> %v", ErrOutOfBounds, start, goal)
	}
	if start == goal {
		return []grid.Cell{start}, nil
	}

	w, h := g.Width(), g.Height()
	size := w * h
	idx := func(c grid.Cell) int { return c.Y*w + c.X }

	passable := func(c grid.Cell) bool {
		return c == start || c == goal || !g.Blocked(c)
	}

	cost := make([]int, size)
	came := make([]int, size)
	closed := make([]bool, size)
	for i := range cost {
		cost[i] = -1
		came[i] = -1
	}

	startIdx, goalIdx := idx(start), idx(goal)
	cost[startIdx] = 0

	f.heap = f.heap[:0]
	f.heap.push(heapEntry{idx: startIdx, priority: octile(start, goal)})

	for len(f.heap) > 0 {
		entry := f.heap.pop()
		if closed[entry.idx] {
			continue // Stale entry
		}
		if entry.idx == goalIdx {
			return rebuild(came, goalIdx, w), nil
		}
		closed[entry.idx] = true

		cur := grid.Cell{X: entry.idx % w, Y: entry.idx / w}
		for d, v := range dirVectors {
			next := grid.Cell{X: cur.X + v[0], Y: cur.Y + v[1]}
			if !g.InBounds(next) || !passable(next) {
				continue
			}

			step := costCardinal
			if d%2 == 1 {
				// No squeezing diagonally between two blocked cells or past a corner.
				if !passable(grid.Cell{X: cur.X + v[0], Y: cur.Y}) || !passable(grid.Cell{X: cur.X, Y: cur.Y + v[1]}) {
					continue
				}
				step = costDiagonal
			}

			ni := idx(next)
			if closed[ni] {
				continue
			}
			nc := cost[entry.idx] + step
			if cost[ni] >= 0 && nc >= cost[ni] {
				continue
			}
			cost[ni] = nc
			came[ni] = entry.idx
			f.heap.push(heapEntry{idx: ni, priority: nc + octile(next, goal)})
		}
	}

	return nil, fmt.Errorf("%w: %v -> %v", ErrUnreachable, start, goal)
}

// octile is the admissible 8-way distance heuristic for the 10/14 cost model.
func octile(a, b grid.Cell) int {
	dx, dy := abs(a.X-b.X), abs(a.Y-b.Y)
	if dx < dy {
		dx, dy = dy, dx
	}
	return costCardinal*(dx-dy) + costDiagonal*dy
}

func rebuild(came []int, goalIdx, width int) []grid.Cell {
	var rev []grid.Cell
	for i := goalIdx; i >= 0; i = came[i] {
		rev = append(rev, grid.Cell{X: i % width, Y: i / width})
	}
	path := make([]grid.Cell, len(rev))
	for i, c := range rev {
		path[len(rev)-1-i] = c
	}
	return path
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
