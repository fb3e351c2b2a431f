package main

import (
	"io"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/everforgeworks/shipnav/internal/game"
	"github.com/everforgeworks/shipnav/internal/grid"
)

func TestHeadingGlyph(t *testing.T) {
	tests := []struct {
		heading float64
		want    rune
	}{
		{0, '→'},
		{math.Pi / 2, '↑'},
		{math.Pi, '←'},
		{-math.Pi, '←'},
		{-math.Pi / 2, '↓'},
		{-math.Pi / 4, '↘'},
		{0.1, '→'},
	}
	for _, tt := range tests {
		if got := headingGlyph(tt.heading); got != tt.want {
			t.Errorf("headingGlyph(%v) = %c, want %c", tt.heading, got, tt.want)
		}
	}
}

func TestRenderChart(t *testing.T) {
	rows := []string{"..x", ".@."}
	ships := []game.ShipSnapshot{
		{ID: "a", Visible: true, Cell: grid.Cell{X: 0, Y: 0}, Heading: math.Pi / 2},
		{ID: "b", Visible: false, Cell: grid.Cell{X: 2, Y: 1}},
	}
	out := renderChart(rows, ships)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("%d lines, want 2", len(lines))
	}
	if !strings.Contains(lines[0], "↑") || !strings.Contains(lines[0], "█") {
		t.Errorf("first row %q lacks the ship or the land", lines[0])
	}
	if !strings.Contains(lines[1], "@") || strings.Contains(out, "↓") {
		t.Errorf("second row %q", lines[1])
	}
}

func TestDispatchSendsArrivedShips(t *testing.T) {
	cfg, err := game.ParseConfig([]byte(`
engine:
  cell_size: 1
map:
  grid: |-
    ......
    ......
  points:
    - id: west
      anchors: [[0, 0]]
      parking: [[0, 1], [1, 1], [2, 1]]
    - id: east
      anchors: [[5, 0]]
      parking: [[5, 1], [4, 1], [3, 1]]
`))
	if err != nil {
		t.Fatal(err)
	}
	logger := log.New(io.Discard)
	world, err := game.NewWorld(cfg, logger)
	if err != nil {
		t.Fatal(err)
	}
	m := newModel(world, 60, rand.New(rand.NewSource(1)), logger)
	for _, id := range []string{"a", "b", "c"} {
		if err := world.AddShip(id, "", id == "a"); err != nil {
			t.Fatal(err)
		}
		m.arrived.add(id)
	}
	m.dispatch()

	for _, s := range world.Ships() {
		if !s.Visible || s.MapPoint == "" {
			t.Errorf("ship %s not launched: %+v", s.ID, s)
		}
	}

	m.toggleLocal()
	if local, _ := world.LocalShip(); local.Visible {
		t.Error("local ship did not dive")
	}
	if !strings.Contains(m.View(), "submerged") {
		t.Error("view does not show the dive")
	}
}
