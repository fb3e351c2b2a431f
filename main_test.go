package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/everforgeworks/shipnav/internal/api"
	"github.com/everforgeworks/shipnav/internal/game"
	"github.com/everforgeworks/shipnav/internal/telemetry"
)

func TestRunFramesAdvancesAndFlushes(t *testing.T) {
	cfg, err := game.LoadConfig("harbor.yaml")
	if err != nil {
		t.Fatal(err)
	}
	logger := log.New(io.Discard)
	world, err := game.NewWorld(cfg, logger)
	if err != nil {
		t.Fatal(err)
	}
	if err := world.AddShip("a", "", true); err != nil {
		t.Fatal(err)
	}
	if err := world.MoveShip("a", game.MoveRequest{Target: "tortuga"}); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	recorder, err := telemetry.NewRecorder(dir, 1000, logger)
	if err != nil {
		t.Fatal(err)
	}
	server := api.NewServer(world, api.NewHub(logger), logger)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	runFrames(ctx, world, server, recorder, 100, 1, logger)

	if world.Frame() == 0 {
		t.Fatal("no frames ran")
	}
	files, _ := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if len(files) != 1 {
		t.Fatalf("%d track files after shutdown, want 1", len(files))
	}
	rows, err := telemetry.ReadTracks(files[0])
	if err != nil {
		t.Fatal(err)
	}
	if int64(len(rows)) != world.Frame() {
		t.Errorf("%d rows for %d frames of one ship", len(rows), world.Frame())
	}
}

func TestCorsPreflight(t *testing.T) {
	h := corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/ships", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("preflight = %d %v", rec.Code, rec.Header())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ships", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("GET passed through as %d", rec.Code)
	}
}
