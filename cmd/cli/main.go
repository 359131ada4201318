// Command seekflee reads a SimulationInput (JSON, or YAML for .yaml/.yml
// files) from a file argument or stdin, runs the simulation, and writes the
// SimulationLog JSON to stdout.
//
//	seekflee [--record runs.db] [--log-level debug] [scenario.json]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/cxd309/seekflee-engine/internal/engine"
	"github.com/cxd309/seekflee-engine/internal/logging"
	"github.com/cxd309/seekflee-engine/internal/recorder"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "seekflee: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := pflag.NewFlagSet("seekflee", pflag.ContinueOnError)
	recordPath := fs.String("record", "", "also store the run in this sqlite file")
	logLevel := fs.String("log-level", "warn", "log level (debug, info, warn, error)")
	parallelism := fs.Int("parallelism", 1, "agents ticked concurrently")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger, err := logging.New(*logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	input, err := readInput(fs.Args(), stdin)
	if err != nil {
		return err
	}

	sim, err := engine.NewSimulation(input, engine.WithLogger(logger), engine.WithParallelism(*parallelism))
	if err != nil {
		return fmt.Errorf("simulation error: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	simLog, err := sim.Run(ctx)
	if err != nil {
		return fmt.Errorf("simulation error: %w", err)
	}

	if *recordPath != "" {
		rec, err := recorder.Open(*recordPath, logger)
		if err != nil {
			return err
		}
		defer rec.Close()
		if err := rec.RecordLog(simLog); err != nil {
			return err
		}
		logger.Info("run recorded", zap.String("path", *recordPath))
	}

	enc := json.NewEncoder(stdout)
	if err := enc.Encode(simLog); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

func readInput(args []string, stdin io.Reader) (engine.SimulationInput, error) {
	if len(args) == 0 || args[0] == "-" {
		return engine.DecodeInput(stdin, engine.FormatJSON)
	}

	f, err := os.Open(args[0])
	if err != nil {
		return engine.SimulationInput{}, fmt.Errorf("error reading input: %w", err)
	}
	defer f.Close()
	return engine.DecodeInput(f, engine.FormatFromPath(args[0]))
}
