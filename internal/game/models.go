/*
Package game
File: models.go
Description:
    Defines the data structures used throughout the harbor: the YAML
    configuration schema, map points, ships, and the read-only snapshots
    handed to the API and renderers.

    Behaviour lives in navigation.go (the engine) and state.go (the world).
*/

package game

import (
	"github.com/paulmach/orb"

	"github.com/everforgeworks/shipnav/internal/grid"
	"github.com/everforgeworks/shipnav/internal/parking"
)

// EngineConfig holds the fixed motion parameters shared by every ship.
type EngineConfig struct {
	Speed        float64 `yaml:"speed" json:"speed"`                 // World units per second
	AngularSpeed float64 `yaml:"angular_speed" json:"angular_speed"` // Radians per second while turning in place
	CellSize     float64 `yaml:"cell_size" json:"cell_size"`         // World units per grid cell
	TickRate     int     `yaml:"tick_rate" json:"tick_rate"`         // Frames per second for the server driver
}

// DefaultEngineConfig matches the original tuning: 1 unit/s, 3 rad/s, 22 cells per 8.9 units.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Speed:        1,
		AngularSpeed: 3,
		CellSize:     8.9 / 22,
		TickRate:     60,
	}
}

// ServerConfig controls the HTTP / WebSocket surface.
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	BroadcastEvery int    `yaml:"broadcast_every"` // Send a frame snapshot every N frames
}

// LogConfig selects the log level ("debug", "info", "warn", "error").
type LogConfig struct {
	Level string `yaml:"level"`
}

// TelemetryConfig enables the parquet track recorder when Dir is set.
type TelemetryConfig struct {
	Dir        string `yaml:"dir"`
	FlushEvery int    `yaml:"flush_every"` // Frames per parquet file
}

// MapPointConfig describes one named location in harbor.yaml.
type MapPointConfig struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	Island        bool     `yaml:"island"`
	Anchors       [][2]int `yaml:"anchors"`        // [x, y] grid positions, first is the primary
	Parking       [][2]int `yaml:"parking"`        // Explicit, ordered parking spaces
	ParkingRadius int      `yaml:"parking_radius"` // Used when Parking is empty
}

// MapConfig is the chart: the occupancy grid rows and the named locations.
type MapConfig struct {
	Grid   string           `yaml:"grid"`
	Points []MapPointConfig `yaml:"points"`
}

// Config is the root configuration struct, mapping to the entire 'harbor.yaml' file.
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Map       MapConfig       `yaml:"map"`
}

// MapPoint is a named location ships sail to.
// Islands may span several anchor cells (piers); the first anchor is the
// location used for routing.
type MapPoint struct {
	ID         string
	Name       string
	Island     bool
	Anchors    []grid.Cell
	Parking    *parking.Pool
	Selectable bool // Whether UI collaborators may offer this point as a destination
}

// Location returns the primary anchor cell.
func (m *MapPoint) Location() grid.Cell {
	return m.Anchors[0]
}

// ReserveParkingSpace claims a free space in this point's pool for shipID.
func (m *MapPoint) ReserveParkingSpace(shipID string) (grid.Cell, error) {
	return m.Parking.Reserve(shipID)
}

// ReleaseParkingSpace frees shipID's space, if it holds one.
func (m *MapPoint) ReleaseParkingSpace(shipID string) {
	m.Parking.Release(shipID)
}

// MoveRequest asks a ship to sail to a map point, or to a spot part of the
// way there from another map point.
type MoveRequest struct {
	Target       string // Map point ID
	QuartersFrom int    // 1..3 quarters of the way from Reference to Target; 0 or >= 4 means all the way
	Reference    string // Map point ID the quarters are measured from
	OnArrive     func() // Invoked once on arrival, then dropped
}

// between reports whether the request names a spot between two map points.
func (r MoveRequest) between() bool {
	return r.QuartersFrom > 0 && r.QuartersFrom < 4 && r.Reference != ""
}

// Normalized returns the request as the engine reads it: a request that does
// not name a spot between two map points loses its quarters and reference.
func (r MoveRequest) Normalized() MoveRequest {
	if !r.between() {
		r.QuartersFrom, r.Reference = 0, ""
	}
	return r
}

// Ship is a mobile agent on the chart.
type Ship struct {
	// Identity
	ID      string
	Name    string
	IsLocal bool // Controlled by the local player

	// Kinematics
	Position  orb.Point // World position
	Forward   orb.Point // Unit heading vector
	Traveling bool
	Turning   bool // Only ever true while Traveling
	Visible   bool
	Surface   float64 // 0 fully sunk .. 1 fully surfaced, eased towards Visible each frame

	// Navigation
	Destination    grid.Cell
	HasDestination bool
	Path           []grid.Cell // Path[0] is the ship's rounded cell when non-empty
	PathFailures   int         // Consecutive pathfinder failures
	Curve          *Bezier     // Curve followed in the last travel frame
	CurveParam     float64     // Arc-length fraction advanced along Curve in the last frame
	Odometer       float64     // Total distance sailed

	// Docking
	MapPoint         string // Target (or current) map point ID
	Quarters         int    // Quarters of the way from PreviousMapPoint, 0 when parked
	PreviousMapPoint string
	Between          bool // Stopped (or heading to stop) between two map points

	onArrive func()
	marked   bool // Counted among the occupants of its stop cell
}

// NewShip creates an invisible, idle ship facing angle radians from +x.
func NewShip(id, name string, isLocal bool, angle float64) *Ship {
	return &Ship{
		ID:      id,
		Name:    name,
		IsLocal: isLocal,
		Forward: unitFromAngle(angle),
	}
}

// ShipSnapshot is the read-only view of a ship sent to clients.
type ShipSnapshot struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	IsLocal      bool       `json:"is_local"`
	X            float64    `json:"x"`
	Y            float64    `json:"y"`
	Heading      float64    `json:"heading"` // Radians from +x
	Traveling    bool       `json:"traveling"`
	Turning      bool       `json:"turning"`
	Visible      bool       `json:"visible"`
	Surface      float64    `json:"surface"`
	Cell         grid.Cell  `json:"cell"`
	Destination  *grid.Cell `json:"destination,omitempty"`
	MapPoint     string     `json:"map_point,omitempty"`
	Quarters     int        `json:"quarters,omitempty"`
	Previous     string     `json:"previous_map_point,omitempty"`
	PathLength   int        `json:"path_length"`
	PathFailures int        `json:"path_failures,omitempty"`
}

// MapPointView is the read-only view of a map point and its parking.
type MapPointView struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Island       bool                  `json:"island"`
	Anchors      []grid.Cell           `json:"anchors"`
	Selectable   bool                  `json:"selectable"`
	Spaces       []grid.Cell           `json:"spaces"`
	Reservations []parking.Reservation `json:"reservations"`
}
