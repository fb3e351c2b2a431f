/*
Package api
File: handlers.go
Description:
    Contains the HTTP handlers for the REST API.
    These functions decode JSON requests, call into the World
    (internal/game), and return JSON responses.

    Key Responsibilities:
    - Input Validation (Is the JSON valid? Does the ship / map point exist?)
    - State Modification (joining, moving and departing ships)
    - Mapping engine errors to HTTP status codes

    Locking is the World's job; handlers never hold a lock themselves.
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb/geojson"

	"github.com/everforgeworks/shipnav/internal/game"
)

// Request DTOs (Data Transfer Objects)

type JoinRequest struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsLocal bool   `json:"is_local"`
}

type ShipRequest struct {
	ID string `json:"id"`
}

type MoveRequest struct {
	ID           string `json:"id"`
	Target       string `json:"target"`
	QuartersFrom int    `json:"quarters_from"`
	Reference    string `json:"reference"`
}

type SelectableRequest struct {
	IDs []string `json:"ids"`
}

// ArrivalEvent is published when a ship reaches the spot it was sent to.
type ArrivalEvent struct {
	ShipID    string `json:"ship_id"`
	MapPoint  string `json:"map_point"`
	Quarters  int    `json:"quarters,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// FrameEvent is the periodic snapshot of every ship.
type FrameEvent struct {
	Frame int64               `json:"frame"`
	Ships []game.ShipSnapshot `json:"ships"`
}

// Server exposes a World over HTTP and the Hub.
type Server struct {
	world  *game.World
	hub    *Hub
	logger *log.Logger
}

// NewServer binds the handlers to world and installs the websocket command handler.
func NewServer(world *game.World, hub *Hub, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{world: world, hub: hub, logger: logger.WithPrefix("api")}
	hub.SetHandler(s.handleCommand)
	return s
}

// Routes registers every endpoint on a new mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Information Endpoints
	mux.HandleFunc("GET /api/ships", s.HandleGetShips)
	mux.HandleFunc("GET /api/ships/path", s.HandleGetPath)
	mux.HandleFunc("GET /api/map", s.HandleGetMap)
	mux.HandleFunc("GET /api/grid", s.HandleGetGrid)
	mux.HandleFunc("GET /api/map/selectable", s.HandleGetSelectable)

	// Action Endpoints
	mux.HandleFunc("POST /api/ships/join", s.HandleJoin)
	mux.HandleFunc("POST /api/ships/leave", s.HandleLeave)
	mux.HandleFunc("POST /api/ships/move", s.HandleMove)
	mux.HandleFunc("POST /api/ships/depart", s.HandleDepart)
	mux.HandleFunc("POST /api/map/selectable", s.HandleSetSelectable)

	// Real-Time WebSocket Endpoint
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ServeWs(s.hub, w, r)
	})
	return mux
}

// BroadcastFrame publishes a snapshot of every ship.
func (s *Server) BroadcastFrame(frame int64) {
	if err := s.hub.Publish("frame", FrameEvent{Frame: frame, Ships: s.world.Ships()}); err != nil {
		s.logger.Error("encoding frame", "err", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// writeError maps engine errors onto status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrUnknownShip), errors.Is(err, game.ErrUnknownMapPoint):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, game.ErrShipExists), errors.Is(err, game.ErrParkingExhausted):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// decode reads a JSON body, answering 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return false
	}
	return true
}

// HandleGetShips returns a snapshot of every ship.
func (s *Server) HandleGetShips(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.world.Ships())
}

// HandleGetPath returns the ship's remaining route and position as GeoJSON.
func (s *Server) HandleGetPath(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Missing ship id", http.StatusBadRequest)
		return
	}
	route, pos, err := s.world.Route(id)
	if err != nil {
		writeError(w, err)
		return
	}

	fc := geojson.NewFeatureCollection()
	ship := geojson.NewFeature(pos)
	ship.Properties["ship_id"] = id
	ship.Properties["kind"] = "position"
	fc.Append(ship)
	if len(route) > 0 {
		path := geojson.NewFeature(route)
		path.Properties["ship_id"] = id
		path.Properties["kind"] = "route"
		fc.Append(path)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(data)
}

// HandleGetMap returns every map point with its parking state.
func (s *Server) HandleGetMap(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.world.MapPoints())
}

// HandleGetGrid returns the occupancy grid rows.
func (s *Server) HandleGetGrid(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"rows": s.world.GridRows()})
}

// HandleGetSelectable lists the map points UI collaborators may offer.
func (s *Server) HandleGetSelectable(w http.ResponseWriter, r *http.Request) {
	ids := s.world.Selectable()
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, SelectableRequest{IDs: ids})
}

// HandleSetSelectable replaces the set of selectable map points.
func (s *Server) HandleSetSelectable(w http.ResponseWriter, r *http.Request) {
	var req SelectableRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.world.SetSelectable(req.IDs); err != nil {
		writeError(w, err)
		return
	}
	s.HandleGetSelectable(w, r)
}

// HandleJoin registers a new, not yet visible ship.
func (s *Server) HandleJoin(w http.ResponseWriter, r *http.Request) {
	var req JoinRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		http.Error(w, "Missing ship id", http.StatusBadRequest)
		return
	}
	if err := s.world.AddShip(req.ID, req.Name, req.IsLocal); err != nil {
		writeError(w, err)
		return
	}
	s.writeShip(w, req.ID)
}

// HandleLeave removes a ship for good.
func (s *Server) HandleLeave(w http.ResponseWriter, r *http.Request) {
	var req ShipRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.world.RemoveShip(req.ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMove sends a ship to a map point or a spot between two.
func (s *Server) HandleMove(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.move(req); err != nil {
		writeError(w, err)
		return
	}
	s.writeShip(w, req.ID)
}

// HandleDepart hides a ship and frees its space.
func (s *Server) HandleDepart(w http.ResponseWriter, r *http.Request) {
	var req ShipRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.world.DepartShip(req.ID); err != nil {
		writeError(w, err)
		return
	}
	s.writeShip(w, req.ID)
}

func (s *Server) writeShip(w http.ResponseWriter, id string) {
	snap, ok := s.world.Ship(id)
	if !ok {
		http.Error(w, "Ship not found", http.StatusNotFound)
		return
	}
	writeJSON(w, snap)
}

// move forwards a request to the World, publishing an event on arrival.
func (s *Server) move(req MoveRequest) error {
	move := game.MoveRequest{
		Target:       req.Target,
		QuartersFrom: req.QuartersFrom,
		Reference:    req.Reference,
	}.Normalized()
	event := ArrivalEvent{
		ShipID:    req.ID,
		MapPoint:  move.Target,
		Quarters:  move.QuartersFrom,
		Reference: move.Reference,
	}
	move.OnArrive = func() {
		// Runs under the world lock: only the non-blocking hub is touched.
		if err := s.hub.Publish("ship_arrived", event); err != nil {
			s.logger.Error("encoding arrival", "err", err)
		}
	}
	return s.world.MoveShip(req.ID, move)
}

// handleCommand executes websocket commands.
func (s *Server) handleCommand(cmd Command) error {
	switch cmd.Type {
	case "move":
		var req MoveRequest
		if err := json.Unmarshal(cmd.Payload, &req); err != nil {
			return err
		}
		return s.move(req)
	case "depart":
		var req ShipRequest
		if err := json.Unmarshal(cmd.Payload, &req); err != nil {
			return err
		}
		return s.world.DepartShip(req.ID)
	default:
		return errors.New("unknown command " + cmd.Type)
	}
}
