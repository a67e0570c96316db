package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/pthm-cable/evolimo/config"
	"github.com/pthm-cable/evolimo/sim"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxFrames := flag.Int("max-frames", 0, "Stop after N frames (0 = run until interrupted)")
	agents := flag.Int("agents", 0, "Number of agents (0 = use config)")
	record := flag.String("record", "", "Recording path (empty = recorder.path from config)")
	noRecord := flag.Bool("no-record", false, "Disable frame recording")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	logStats := flag.Bool("log-stats", false, "Output full stats and perf via slog")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	recordPath := *record
	if recordPath == "" {
		recordPath = cfg.Recorder.Path
	}
	if *noRecord {
		recordPath = ""
	}

	s, err := sim.New(cfg, sim.Options{
		Seed:       rngSeed,
		Agents:     *agents,
		MaxFrames:  *maxFrames,
		RecordPath: recordPath,
		OutputDir:  *outputDir,
		LogStats:   *logStats,
	})
	if err != nil {
		slog.Error("failed to start simulation", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	slog.Info("starting simulation",
		"seed", rngSeed,
		"agents", s.World().Len(),
		"grid_width", cfg.Grid.Width,
		"grid_height", cfg.Grid.Height,
		"capacity", cfg.Grid.Capacity,
		"max_frames", *maxFrames,
		"record", recordPath,
	)

	start := time.Now()
	runErr := s.Run(ctx, *maxFrames)
	if err := s.Close(); err != nil {
		slog.Error("failed to close outputs", "error", err)
	}
	if runErr != nil {
		slog.Error("simulation failed", "error", runErr, "tick", s.Tick())
		os.Exit(1)
	}

	slog.Info("simulation finished",
		"frames", s.Tick(),
		"elapsed", time.Since(start).String(),
		"record", recordPath,
	)
}
