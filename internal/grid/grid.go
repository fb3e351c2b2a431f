/*
Package grid
File: grid.go
Description:
    The occupancy grid shared by every ship on the chart.

    Each cell holds exactly one status character:
    '.' free water, 'x' obstacle (land, rock), '@' a ship idling between map points.
    The grid is the single source of truth for traversability. The pathfinder
    reads it, and the navigation engine writes it when ships arrive and depart.
*/

package grid

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
)

// Status is the single-character state of one grid cell.
type Status byte

const (
	Free     Status = '.'
	Obstacle Status = 'x'
	Parked   Status = '@'
)

var (
	ErrEmpty           = errors.New("grid: no rows")
	ErrNotRectangular  = errors.New("grid: rows differ in length")
	ErrBadStatus       = errors.New("grid: unknown cell character")
	ErrInvalidCellSize = errors.New("grid: cell size must be positive")
)

// Cell is a position on the grid. X is the column, Y the row.
type Cell struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Grid is a rectangular occupancy map with a fixed world-space cell size.
type Grid struct {
	width    int
	height   int
	cellSize float64 // World units per cell
	cells    []Status
}

// New creates an all-free grid.
func New(width, height int, cellSize float64) *Grid {
	cells := make([]Status, width*height)
	for i := range cells {
		cells[i] = Free
	}
	return &Grid{width: width, height: height, cellSize: cellSize, cells: cells}
}

// Parse builds a grid from its text form, one row per string.
// Trailing carriage returns are tolerated so CRLF files load cleanly.
func Parse(rows []string, cellSize float64) (*Grid, error) {
	if cellSize <= 0 {
		return nil, ErrInvalidCellSize
	}

	// Drop trailing blank lines (a final newline in the source file).
	for len(rows) > 0 && strings.TrimRight(rows[len(rows)-1], "\r") == "" {
		rows = rows[:len(rows)-1]
	}
	if len(rows) == 0 {
		return nil, ErrEmpty
	}

	width := len(strings.TrimRight(rows[0], "\r"))
	g := &Grid{
		width:    width,
		height:   len(rows),
		cellSize: cellSize,
		cells:    make([]Status, 0, width*len(rows)),
	}

	for y, raw := range rows {
		row := strings.TrimRight(raw, "\r")
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrNotRectangular, y, len(row), width)
		}
		for x := 0; x < len(row); x++ {
			s := Status(row[x])
			if s != Free && s != Obstacle && s != Parked {
				return nil, fmt.Errorf("%w: %q at (%d,%d)", ErrBadStatus, row[x], x, y)
			}
			g.cells = append(g.cells, s)
		}
	}
	return g, nil
}

func (g *Grid) Width() int        { return g.width }
func (g *Grid) Height() int       { return g.height }
func (g *Grid) CellSize() float64 { return g.cellSize }

func (g *Grid) InBounds(c Cell) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < g.width && c.Y < g.height
}

// At returns the status of a cell. Out-of-bounds cells read as obstacles.
func (g *Grid) At(c Cell) Status {
	if !g.InBounds(c) {
		return Obstacle
	}
	return g.cells[c.Y*g.width+c.X]
}

// Blocked reports whether a ship may not pass through the cell.
func (g *Grid) Blocked(c Cell) bool {
	return g.At(c) != Free
}

// MarkOccupied records a ship idling in the cell.
func (g *Grid) MarkOccupied(c Cell) { g.set(c, Parked) }

// MarkFree returns the cell to open water.
func (g *Grid) MarkFree(c Cell) { g.set(c, Free) }

// MarkObstacle turns the cell into permanent land.
func (g *Grid) MarkObstacle(c Cell) { g.set(c, Obstacle) }

// set writes a status. Callers guarantee c is in bounds.
func (g *Grid) set(c Cell, s Status) {
	g.cells[c.Y*g.width+c.X] = s
}

// Rows renders the grid back into its text form.
func (g *Grid) Rows() []string {
	rows := make([]string, g.height)
	buf := make([]byte, g.width)
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			buf[x] = byte(g.cells[y*g.width+x])
		}
		rows[y] = string(buf)
	}
	return rows
}

// Clone returns an independent copy of the grid.
func (g *Grid) Clone() *Grid {
	cp := *g
	cp.cells = append([]Status(nil), g.cells...)
	return &cp
}

// center is the grid coordinate that maps to the world origin.
func (g *Grid) center() (float64, float64) {
	return float64(g.width-1) / 2, float64(g.height-1) / 2
}

// GridToWorld returns the world-space centre of a cell.
// Grid rows grow downwards while world y grows upwards.
func (g *Grid) GridToWorld(c Cell) orb.Point {
	cx, cy := g.center()
	return orb.Point{
		(float64(c.X) - cx) * g.cellSize,
		-(float64(c.Y) - cy) * g.cellSize,
	}
}

// WorldToGrid returns the cell nearest to a world position.
func (g *Grid) WorldToGrid(p orb.Point) Cell {
	cx, cy := g.center()
	return Cell{
		X: int(math.Round(p.X()/g.cellSize + cx)),
		Y: int(math.Round(-p.Y()/g.cellSize + cy)),
	}
}
