/*
Package parking
File: pool.go
Description:
    Parking spaces around a map point.

    A Pool owns a fixed, ordered list of grid cells near one location and
    hands each of them to at most one ship at a time. Reserve and Release
    are the only mutating operations. Releasing for a ship that holds
    nothing is a no-op, so departure logic can call it unconditionally.
*/

package parking

import (
	"errors"

	"github.com/everforgeworks/shipnav/internal/grid"
)

// ErrExhausted is returned when every space in the pool is taken.
var ErrExhausted = errors.New("parking: no free space")

// Reservation pairs a space with the ship holding it.
type Reservation struct {
	Cell   grid.Cell `json:"cell"`
	ShipID string    `json:"ship_id"`
}

// Pool is the set of reservable cells for one location.
type Pool struct {
	cells   []grid.Cell
	holders []string // holders[i] is the ship parked in cells[i], "" if free
}

// NewPool creates a pool over cells, kept in the given order.
func NewPool(cells []grid.Cell) *Pool {
	return &Pool{
		cells:   append([]grid.Cell(nil), cells...),
		holders: make([]string, len(cells)),
	}
}

// Reserve hands shipID a free space, first free in pool order.
// A ship that already holds a space here gets the same space back.
func (p *Pool) Reserve(shipID string) (grid.Cell, error) {
	if i := p.indexOf(shipID); i >= 0 {
		return p.cells[i], nil
	}
	for i, holder := range p.holders {
		if holder == "" {
			p.holders[i] = shipID
			return p.cells[i], nil
		}
	}
	return grid.Cell{}, ErrExhausted
}

// Release frees the space held by shipID, if any.
func (p *Pool) Release(shipID string) {
	if i := p.indexOf(shipID); i >= 0 {
		p.holders[i] = ""
	}
}

// CanReserve reports whether Reserve would succeed for shipID.
func (p *Pool) CanReserve(shipID string) bool {
	return p.indexOf(shipID) >= 0 || p.Free() > 0
}

// Holding returns the space held by shipID.
func (p *Pool) Holding(shipID string) (grid.Cell, bool) {
	if i := p.indexOf(shipID); i >= 0 {
		return p.cells[i], true
	}
	return grid.Cell{}, false
}

// Holder returns the ship parked in cell.
func (p *Pool) Holder(cell grid.Cell) (string, bool) {
	for i, c := range p.cells {
		if c == cell && p.holders[i] != "" {
			return p.holders[i], true
		}
	}
	return "", false
}

// Free counts unreserved spaces.
func (p *Pool) Free() int {
	n := 0
	for _, holder := range p.holders {
		if holder == "" {
			n++
		}
	}
	return n
}

func (p *Pool) Len() int { return len(p.cells) }

// Cells returns the pool's spaces in order.
func (p *Pool) Cells() []grid.Cell {
	return append([]grid.Cell(nil), p.cells...)
}

// Reservations lists the taken spaces in pool order.
func (p *Pool) Reservations() []Reservation {
	out := make([]Reservation, 0, len(p.cells))
	for i, holder := range p.holders {
		if holder != "" {
			out = append(out, Reservation{Cell: p.cells[i], ShipID: holder})
		}
	}
	return out
}

func (p *Pool) indexOf(shipID string) int {
	if shipID == "" {
		return -1
	}
	for i, holder := range p.holders {
		if holder == shipID {
			return i
		}
	}
	return -1
}
