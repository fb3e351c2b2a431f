/*
Package main
File: main.go
Description: Server entry point. Loads the harbor chart, starts the real-time
WebSocket hub, and runs the frame loop that advances every ship at the
configured tick rate.
*/

package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/everforgeworks/shipnav/internal/api"
	"github.com/everforgeworks/shipnav/internal/game"
	"github.com/everforgeworks/shipnav/internal/telemetry"
)

func main() {
	defaultConfig := os.Getenv("SHIPNAV_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "harbor.yaml"
	}
	configPath := flag.String("config", defaultConfig, "Path to harbor.yaml")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "shipnav"})

	// 1. Load the chart and engine tuning from YAML
	cfg, err := game.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("config", "path", *configPath, "err", err)
	}
	if level, err := log.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}

	world, err := game.NewWorld(cfg, logger)
	if err != nil {
		logger.Fatal("world", "err", err)
	}
	logger.Info("chart loaded", "path", *configPath, "map_points", len(cfg.Map.Points))

	// 2. Initialize and start the Real-Time WebSocket Hub
	hub := api.NewHub(logger)
	server := api.NewServer(world, hub, logger)
	go hub.Run()

	// 3. Optional track archive
	var recorder *telemetry.Recorder
	if cfg.Telemetry.Dir != "" {
		recorder, err = telemetry.NewRecorder(cfg.Telemetry.Dir, cfg.Telemetry.FlushEvery, logger)
		if err != nil {
			logger.Fatal("telemetry", "err", err)
		}
		logger.Info("recording tracks", "dir", cfg.Telemetry.Dir, "flush_every", cfg.Telemetry.FlushEvery)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. THE FRAME LOOP
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		runFrames(ctx, world, server, recorder, cfg.Engine.TickRate, cfg.Server.BroadcastEvery, logger)
	}()

	// 5. Hot-reload logic: SIGHUP re-reads engine tuning without touching ships
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGHUP)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigChan:
			}
			next, err := game.LoadConfig(*configPath)
			if err != nil {
				logger.Error("reload failed, keeping current tuning", "err", err)
				continue
			}
			engine := next.Engine
			current := world.Engine()
			// Grid geometry and frame rate are fixed for the process lifetime.
			engine.CellSize = current.CellSize
			engine.TickRate = current.TickRate
			world.SetEngine(engine)
			if level, err := log.ParseLevel(next.Log.Level); err == nil {
				logger.SetLevel(level)
			}
			logger.Info("engine reloaded", "speed", engine.Speed, "angular_speed", engine.AngularSpeed)
		}
	}()

	// 6. Start the Server
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: corsMiddleware(server.Routes())}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("harbor live", "addr", cfg.Server.Addr, "tick_rate", cfg.Engine.TickRate)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("listen", "err", err)
	}

	stop()
	<-loopDone
	logger.Info("harbor closed", "frames", world.Frame())
}

// runFrames advances the world at tickRate until ctx ends, broadcasting a
// snapshot every broadcastEvery frames.
func runFrames(ctx context.Context, world *game.World, server *api.Server, recorder *telemetry.Recorder, tickRate, broadcastEvery int, logger *log.Logger) {
	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()

	var clock game.FrameClock
	for {
		select {
		case <-ctx.Done():
			if recorder != nil {
				if _, err := recorder.Flush(); err != nil {
					logger.Error("final telemetry flush", "err", err)
				}
			}
			return
		case now := <-ticker.C:
			frame := world.Tick(clock.Elapsed(now))
			if frame%int64(broadcastEvery) == 0 {
				server.BroadcastFrame(frame)
			}
			if recorder != nil {
				if err := recorder.Record(frame, world.Ships()); err != nil {
					logger.Error("telemetry", "err", err)
				}
			}
		}
	}
}

// corsMiddleware lets browser renderers on other origins talk to the API.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
