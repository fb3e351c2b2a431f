package parking

import (
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"github.com/everforgeworks/shipnav/internal/grid"
)

func testCells(n int) []grid.Cell {
	cells := make([]grid.Cell, n)
	for i := range cells {
		cells[i] = grid.Cell{X: i, Y: 0}
	}
	return cells
}

func TestReserveFirstFree(t *testing.T) {
	p := NewPool(testCells(3))

	a, err := p.Reserve("a")
	if err != nil || a != (grid.Cell{X: 0}) {
		t.Fatalf("a got %v, %v", a, err)
	}
	b, _ := p.Reserve("b")
	if b != (grid.Cell{X: 1}) {
		t.Fatalf("b got %v", b)
	}

	p.Release("a")
	c, _ := p.Reserve("c")
	if c != (grid.Cell{X: 0}) {
		t.Fatalf("c should reuse freed space, got %v", c)
	}
}

func TestReserveSameShipKeepsSpace(t *testing.T) {
	p := NewPool(testCells(2))
	first, _ := p.Reserve("a")
	again, err := p.Reserve("a")
	if err != nil || again != first {
		t.Fatalf("second reserve = %v, %v; want %v", again, err, first)
	}
	if p.Free() != 1 {
		t.Fatalf("free = %d, want 1", p.Free())
	}
}

func TestReserveExhausted(t *testing.T) {
	p := NewPool(testCells(2))
	p.Reserve("a")
	p.Reserve("b")

	if p.CanReserve("c") {
		t.Fatal("CanReserve true on a full pool")
	}
	if !p.CanReserve("a") {
		t.Fatal("holder should always be able to reserve")
	}
	if _, err := p.Reserve("c"); !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}

	empty := NewPool(nil)
	if _, err := empty.Reserve("a"); !errors.Is(err, ErrExhausted) {
		t.Fatalf("empty pool err = %v", err)
	}
}

func TestReleaseIdempotent(t *testing.T) {
	p := NewPool(testCells(3))
	p.Reserve("a")
	p.Reserve("b")

	p.Release("a")
	once := p.Reservations()
	p.Release("a")
	twice := p.Reservations()

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("second release changed state: %v -> %v", once, twice)
	}
	p.Release("nobody")
	if !reflect.DeepEqual(twice, p.Reservations()) {
		t.Fatal("releasing for a non-holder changed state")
	}
}

func TestHolderLookups(t *testing.T) {
	p := NewPool(testCells(2))
	cell, _ := p.Reserve("a")

	if id, ok := p.Holder(cell); !ok || id != "a" {
		t.Fatalf("Holder(%v) = %q, %v", cell, id, ok)
	}
	if _, ok := p.Holder(grid.Cell{X: 1}); ok {
		t.Fatal("free cell reported a holder")
	}
	if got, ok := p.Holding("a"); !ok || got != cell {
		t.Fatalf("Holding = %v, %v", got, ok)
	}
}

// No sequence of reserve/release calls may ever hand one space to two ships
// or exceed the pool size.
func TestNoDoubleReservation(t *testing.T) {
	const k, ships, steps = 4, 7, 2000
	rng := rand.New(rand.NewSource(1))
	p := NewPool(testCells(k))

	for step := 0; step < steps; step++ {
		id := fmt.Sprintf("ship-%d", rng.Intn(ships))
		if rng.Intn(2) == 0 {
			_, err := p.Reserve(id)
			if err != nil && !errors.Is(err, ErrExhausted) {
				t.Fatalf("step %d: %v", step, err)
			}
		} else {
			p.Release(id)
		}

		res := p.Reservations()
		if len(res) > k {
			t.Fatalf("step %d: %d reservations in a pool of %d", step, len(res), k)
		}
		cells := map[grid.Cell]string{}
		holders := map[string]bool{}
		for _, r := range res {
			if other, ok := cells[r.Cell]; ok {
				t.Fatalf("step %d: %v held by %s and %s", step, r.Cell, other, r.ShipID)
			}
			if holders[r.ShipID] {
				t.Fatalf("step %d: %s holds two spaces", step, r.ShipID)
			}
			cells[r.Cell] = r.ShipID
			holders[r.ShipID] = true
		}
		if len(res)+p.Free() != k {
			t.Fatalf("step %d: accounting broken", step)
		}
	}
}
