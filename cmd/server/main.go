// Command seekflee-server runs a seek/flee scenario in real time and streams
// every tick to websocket clients on /ws.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cxd309/seekflee-engine/internal/config"
	"github.com/cxd309/seekflee-engine/internal/engine"
	"github.com/cxd309/seekflee-engine/internal/logging"
	"github.com/cxd309/seekflee-engine/internal/recorder"
	"github.com/cxd309/seekflee-engine/internal/stream"
)

const shutdownTimeout = 5 * time.Second

func main() {
	flags := config.Flags()
	configDir := flags.String("config", "", "directory holding seekflee.yaml")
	if err := flags.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load(*configDir, flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error creating logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func loadScenario(path string) (engine.SimulationInput, error) {
	if path == "" {
		return engine.DemoInput(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return engine.SimulationInput{}, fmt.Errorf("opening scenario: %w", err)
	}
	defer f.Close()
	return engine.DecodeInput(f, engine.FormatFromPath(path))
}

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	input, err := loadScenario(cfg.Scenario)
	if err != nil {
		return err
	}
	sim, err := engine.NewSimulation(input,
		engine.WithLogger(logger),
		engine.WithParallelism(cfg.Parallelism))
	if err != nil {
		return err
	}

	var rec *recorder.Recorder
	if cfg.Recorder.Enabled {
		rec, err = recorder.Open(cfg.Recorder.Path, logger)
		if err != nil {
			return err
		}
		defer rec.Close()
		if err := rec.BeginRun(sim.Meta()); err != nil {
			return err
		}
	}

	hub := stream.NewHub(logger)
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening",
			zap.String("addr", cfg.Listen),
			zap.String("simulation_id", sim.Meta().SimulationID),
			zap.Duration("tick", cfg.TickInterval()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return tickLoop(gctx, sim, hub, rec, cfg.TickInterval(), logger)
	})

	return g.Wait()
}

// tickLoop advances the simulation once per interval until ctx is done.
// A bounded run (Ticks > 0) stops after that many ticks and keeps the server
// up for connected clients.
func tickLoop(ctx context.Context, sim *engine.Simulation, hub *stream.Hub, rec *recorder.Recorder,
	interval time.Duration, logger *zap.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	limit := sim.Meta().Ticks
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if limit > 0 && sim.Tick() >= limit {
			logger.Info("run complete", zap.Int("ticks", sim.Tick()), zap.Int("resets", sim.Resets()))
			<-ctx.Done()
			return nil
		}

		row, err := sim.Step(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if err := hub.Broadcast(row); err != nil {
			logger.Warn("broadcast failed", zap.Int("tick", row.Tick), zap.Error(err))
		}
		if rec != nil {
			if err := rec.RecordRow(sim.Meta().SimulationID, row); err != nil {
				return err
			}
		}
	}
}
