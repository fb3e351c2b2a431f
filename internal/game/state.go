/*
Package game
File: state.go
Description:
    Manages the runtime state of the harbor.
    The World is the arena every other part of the program goes through:
    it owns the occupancy grid, the map points with their parking pools,
    the ships (indexed by stable ID), and the navigation engine that moves them.

    It also handles configuration loading (LoadConfig) and building a World
    from it.
*/

package game

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"

	"github.com/everforgeworks/shipnav/internal/grid"
	"github.com/everforgeworks/shipnav/internal/parking"
	"github.com/everforgeworks/shipnav/internal/pathfind"
)

var ErrInvalidConfig = errors.New("invalid config")

// LoadConfig reads and validates a harbor.yaml file.
func LoadConfig(path string) (*Config, error) {
	// 1. Read the YAML file
	f, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// 2. Unmarshal and validate
	return ParseConfig(f)
}

// ParseConfig decodes a harbor.yaml document, fills defaults and validates it.
func ParseConfig(data []byte) (*Config, error) {
	cfg := Config{Engine: DefaultEngineConfig()}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8081"
	}
	if cfg.Server.BroadcastEvery <= 0 {
		cfg.Server.BroadcastEvery = 1
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Telemetry.FlushEvery <= 0 {
		cfg.Telemetry.FlushEvery = 600
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the engine tuning and map point ids.
// Cell-level checks happen in NewWorld, once the grid exists.
func (c *Config) Validate() error {
	e := c.Engine
	if e.Speed <= 0 || e.AngularSpeed <= 0 || e.CellSize <= 0 {
		return fmt.Errorf("%w: engine speed, angular_speed and cell_size must be positive", ErrInvalidConfig)
	}
	if e.TickRate <= 0 {
		return fmt.Errorf("%w: engine tick_rate must be positive", ErrInvalidConfig)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.Log.Level)
	}

	seen := make(map[string]bool)
	for _, p := range c.Map.Points {
		if p.ID == "" {
			return fmt.Errorf("%w: map point without id", ErrInvalidConfig)
		}
		if seen[p.ID] {
			return fmt.Errorf("%w: duplicate map point %q", ErrInvalidConfig, p.ID)
		}
		seen[p.ID] = true
		if len(p.Anchors) == 0 {
			return fmt.Errorf("%w: map point %q has no anchors", ErrInvalidConfig, p.ID)
		}
	}
	return nil
}

// World holds every ship and map point on one grid.
//
// All exported methods are safe for concurrent use. Arrival callbacks run
// while the world lock is held and must not call back into the World.
type World struct {
	mu sync.RWMutex

	nav    *Navigator
	grid   *grid.Grid
	points map[string]*MapPoint
	order  []string // Map point ids in config order

	ships     map[string]*Ship
	shipOrder []string // Ship ids in join order; the update order within a frame
	frame     int64

	rng    *rand.Rand
	logger *log.Logger
}

// NewWorld builds the grid, map points and engine described by cfg.
func NewWorld(cfg *Config, logger *log.Logger) (*World, error) {
	if logger == nil {
		logger = log.Default()
	}

	g, err := grid.Parse(strings.Split(cfg.Map.Grid, "\n"), cfg.Engine.CellSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	w := &World{
		grid:   g,
		points: make(map[string]*MapPoint),
		ships:  make(map[string]*Ship),
		rng:    rand.New(rand.NewSource(rand.Int63())),
		logger: logger,
	}

	for _, pc := range cfg.Map.Points {
		mp, err := buildMapPoint(g, pc)
		if err != nil {
			return nil, err
		}
		w.points[mp.ID] = mp
		w.order = append(w.order, mp.ID)
		logger.Debug("map point ready", "id", mp.ID, "anchors", len(mp.Anchors), "spaces", mp.Parking.Len())
	}

	w.nav = NewNavigator(cfg.Engine, g, pathfind.New(g), w.points, logger)
	return w, nil
}

func buildMapPoint(g *grid.Grid, pc MapPointConfig) (*MapPoint, error) {
	anchors := make([]grid.Cell, 0, len(pc.Anchors))
	for _, a := range pc.Anchors {
		c := grid.Cell{X: a[0], Y: a[1]}
		if !g.InBounds(c) {
			return nil, fmt.Errorf("%w: map point %q anchor %v outside grid", ErrInvalidConfig, pc.ID, c)
		}
		anchors = append(anchors, c)
	}

	var spaces []grid.Cell
	if len(pc.Parking) > 0 {
		for _, s := range pc.Parking {
			c := grid.Cell{X: s[0], Y: s[1]}
			if !g.InBounds(c) || g.At(c) == grid.Obstacle {
				return nil, fmt.Errorf("%w: map point %q parking space %v is not open water", ErrInvalidConfig, pc.ID, c)
			}
			spaces = append(spaces, c)
		}
	} else {
		radius := pc.ParkingRadius
		if radius <= 0 {
			radius = 1
		}
		spaces = ringSpaces(g, anchors, radius)
	}

	name := pc.Name
	if name == "" {
		name = pc.ID
	}
	return &MapPoint{
		ID:      pc.ID,
		Name:    name,
		Island:  pc.Island,
		Anchors: anchors,
		Parking: parking.NewPool(spaces),
	}, nil
}

// ringSpaces collects the free cells within radius (Chebyshev) of any
// anchor, nearest ring first, then row-major.
func ringSpaces(g *grid.Grid, anchors []grid.Cell, radius int) []grid.Cell {
	type candidate struct {
		cell grid.Cell
		ring int
	}

	minX, minY, maxX, maxY := anchors[0].X, anchors[0].Y, anchors[0].X, anchors[0].Y
	for _, a := range anchors[1:] {
		minX, maxX = min(minX, a.X), max(maxX, a.X)
		minY, maxY = min(minY, a.Y), max(maxY, a.Y)
	}

	var found []candidate
	for y := minY - radius; y <= maxY+radius; y++ {
		for x := minX - radius; x <= maxX+radius; x++ {
			c := grid.Cell{X: x, Y: y}
			if !g.InBounds(c) || g.At(c) != grid.Free {
				continue
			}
			ring := math.MaxInt
			for _, a := range anchors {
				ring = min(ring, max(abs(a.X-x), abs(a.Y-y)))
			}
			if ring >= 1 && ring <= radius {
				found = append(found, candidate{c, ring})
			}
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].ring < found[j].ring })

	cells := make([]grid.Cell, len(found))
	for i, f := range found {
		cells[i] = f.cell
	}
	return cells
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// AddShip registers a new, not yet visible ship with a random heading.
func (w *World) AddShip(id, name string, isLocal bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.ships[id]; ok {
		return fmt.Errorf("%w: %q", ErrShipExists, id)
	}
	if name == "" {
		name = id
	}
	angle := w.rng.Float64()*2*math.Pi - math.Pi
	w.ships[id] = NewShip(id, name, isLocal, angle)
	w.shipOrder = append(w.shipOrder, id)
	w.logger.Info("ship joined", "ship", id, "name", name, "local", isLocal)
	return nil
}

// RemoveShip departs the ship for good and forgets it.
func (w *World) RemoveShip(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	s, ok := w.ships[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownShip, id)
	}
	w.nav.Depart(s)
	delete(w.ships, id)
	for i, sid := range w.shipOrder {
		if sid == id {
			w.shipOrder = append(w.shipOrder[:i], w.shipOrder[i+1:]...)
			break
		}
	}
	w.logger.Info("ship left", "ship", id)
	return nil
}

// MoveShip forwards a move request to the engine.
func (w *World) MoveShip(id string, req MoveRequest) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	s, ok := w.ships[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownShip, id)
	}
	return w.nav.RequestMove(s, req)
}

// DepartShip hides a ship and frees what it holds.
func (w *World) DepartShip(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	s, ok := w.ships[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownShip, id)
	}
	w.nav.Depart(s)
	return nil
}

// Tick advances every ship by elapsed seconds, in join order, and returns
// the new frame number.
func (w *World) Tick(elapsed float64) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, id := range w.shipOrder {
		w.nav.Update(w.ships[id], elapsed)
	}
	w.frame++
	return w.frame
}

// Frame is the number of ticks run so far.
func (w *World) Frame() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.frame
}

// SetEngine applies new motion tuning (hot reload).
func (w *World) SetEngine(cfg EngineConfig) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nav.SetEngine(cfg)
}

// Engine returns the current motion tuning.
func (w *World) Engine() EngineConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.nav.Engine()
}

func (w *World) snapshot(s *Ship) ShipSnapshot {
	snap := ShipSnapshot{
		ID:           s.ID,
		Name:         s.Name,
		IsLocal:      s.IsLocal,
		X:            s.Position.X(),
		Y:            s.Position.Y(),
		Heading:      heading(s.Forward),
		Traveling:    s.Traveling,
		Turning:      s.Turning,
		Visible:      s.Visible,
		Surface:      s.Surface,
		Cell:         w.grid.WorldToGrid(s.Position),
		MapPoint:     s.MapPoint,
		Quarters:     s.Quarters,
		Previous:     s.PreviousMapPoint,
		PathLength:   len(s.Path),
		PathFailures: s.PathFailures,
	}
	if s.HasDestination {
		dest := s.Destination
		snap.Destination = &dest
	}
	return snap
}

// Ships returns snapshots of every ship in join order.
func (w *World) Ships() []ShipSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]ShipSnapshot, 0, len(w.shipOrder))
	for _, id := range w.shipOrder {
		out = append(out, w.snapshot(w.ships[id]))
	}
	return out
}

// Ship returns one ship's snapshot.
func (w *World) Ship(id string) (ShipSnapshot, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	s, ok := w.ships[id]
	if !ok {
		return ShipSnapshot{}, false
	}
	return w.snapshot(s), true
}

// LocalShip returns the locally controlled ship, if one has joined.
func (w *World) LocalShip() (ShipSnapshot, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, id := range w.shipOrder {
		if s := w.ships[id]; s.IsLocal {
			return w.snapshot(s), true
		}
	}
	return ShipSnapshot{}, false
}

// Route returns the ship's remaining path in world coordinates together
// with its current position.
func (w *World) Route(id string) (orb.LineString, orb.Point, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	s, ok := w.ships[id]
	if !ok {
		return nil, orb.Point{}, fmt.Errorf("%w: %q", ErrUnknownShip, id)
	}
	line := make(orb.LineString, 0, len(s.Path))
	for _, c := range s.Path {
		line = append(line, w.grid.GridToWorld(c))
	}
	return line, s.Position, nil
}

// MapPoints lists every map point with its parking state, in config order.
func (w *World) MapPoints() []MapPointView {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]MapPointView, 0, len(w.order))
	for _, id := range w.order {
		mp := w.points[id]
		out = append(out, MapPointView{
			ID:           mp.ID,
			Name:         mp.Name,
			Island:       mp.Island,
			Anchors:      append([]grid.Cell(nil), mp.Anchors...),
			Selectable:   mp.Selectable,
			Spaces:       mp.Parking.Cells(),
			Reservations: mp.Parking.Reservations(),
		})
	}
	return out
}

// MapPointIDs returns the map point ids in config order.
func (w *World) MapPointIDs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]string(nil), w.order...)
}

// SetSelectable makes exactly the given map points selectable. Nil clears all.
func (w *World) SetSelectable(ids []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, id := range ids {
		if _, ok := w.points[id]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownMapPoint, id)
		}
	}
	for _, mp := range w.points {
		mp.Selectable = false
	}
	for _, id := range ids {
		w.points[id].Selectable = true
	}
	return nil
}

// Selectable returns the ids of selectable map points in config order.
func (w *World) Selectable() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var out []string
	for _, id := range w.order {
		if w.points[id].Selectable {
			out = append(out, id)
		}
	}
	return out
}

// GridRows dumps the occupancy grid in its text form.
func (w *World) GridRows() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.grid.Rows()
}

// GridToWorld converts a cell using the world's grid geometry.
func (w *World) GridToWorld(c grid.Cell) orb.Point {
	return w.grid.GridToWorld(c)
}
