package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pthm-cable/evolimo/components"
	"github.com/pthm-cable/evolimo/config"
	"github.com/pthm-cable/evolimo/grid"
	"github.com/pthm-cable/evolimo/recorder"
	"github.com/pthm-cable/evolimo/telemetry"
)

// Options configures a Simulation beyond the loaded config.
type Options struct {
	Seed       int64
	Agents     int    // 0 = population.agents from config
	MaxFrames  int    // frame budget written to the recording header, 0 = unbounded
	RecordPath string // empty disables recording
	OutputDir  string // empty disables CSV output
	LogStats   bool
}

// Simulation drives the world, the dynamics and the output sinks.
type Simulation struct {
	cfg      *config.Config
	world    *World
	dynamics *Dynamics

	recorder      *recorder.Writer
	outputManager *telemetry.OutputManager
	perfCollector *telemetry.PerfCollector
	logStats      bool

	tick int64

	// wall clock of the current stats window, for FPS
	windowStart time.Time
	windowTicks int

	// statsCallback receives every flushed StepStats.
	statsCallback func(telemetry.StepStats)
}

// New builds a simulation, spawns its population and opens the configured
// outputs.
func New(cfg *config.Config, opts Options) (*Simulation, error) {
	dynamics, err := NewDynamics(cfg)
	if err != nil {
		return nil, err
	}

	agents := opts.Agents
	if agents <= 0 {
		agents = cfg.Population.Agents
	}

	s := &Simulation{
		cfg:           cfg,
		world:         NewWorld(),
		dynamics:      dynamics,
		perfCollector: telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		logStats:      opts.LogStats,
		windowStart:   time.Now(),
	}
	s.dynamics.SetOnPhase(s.perfCollector.StartPhase)

	NewSpawner(opts.Seed, cfg).Populate(s.world, agents)

	if opts.RecordPath != "" {
		header := recorder.NewHeader(recorder.Config{
			NAgents:     s.world.Len(),
			StateDims:   components.NumStateDims,
			StateLabels: components.StateLabels[:],
			DT:          cfg.Derived.DT32,
		}, recorder.Playback{
			TotalFrames:  opts.MaxFrames,
			SaveInterval: 1,
		})
		s.recorder, err = recorder.Create(opts.RecordPath, header)
		if err != nil {
			return nil, err
		}
	}

	s.outputManager, err = telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		s.closeRecorder()
		return nil, err
	}
	if err := s.outputManager.WriteConfig(cfg); err != nil {
		s.Close()
		return nil, fmt.Errorf("writing config snapshot: %w", err)
	}

	return s, nil
}

// Step advances the simulation by one frame.
func (s *Simulation) Step() error {
	s.perfCollector.StartTick()

	s.perfCollector.StartPhase(telemetry.PhaseSnapshot)
	state := s.world.Snapshot()

	res, err := s.dynamics.Step(state)
	if err != nil {
		return fmt.Errorf("tick %d: %w", s.tick, err)
	}
	if err := s.world.Apply(res.State); err != nil {
		return fmt.Errorf("tick %d: %w", s.tick, err)
	}
	s.tick++
	s.windowTicks++

	s.perfCollector.StartPhase(telemetry.PhaseRecord)
	if err := s.record(res.State); err != nil {
		return err
	}

	s.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	s.flushTelemetry(res)

	s.perfCollector.EndTick()
	return nil
}

// Run steps until ctx is cancelled or maxFrames frames have run
// (0 = unbounded). Cancellation is a normal stop, not an error.
func (s *Simulation) Run(ctx context.Context, maxFrames int) error {
	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping", "tick", s.tick, "reason", context.Cause(ctx))
			return nil
		default:
		}

		if err := s.Step(); err != nil {
			return err
		}

		if maxFrames > 0 && s.tick >= int64(maxFrames) {
			slog.Info("max frames reached", "tick", s.tick)
			return nil
		}
	}
}

// record writes the frame and flushes every flush_interval frames.
func (s *Simulation) record(state grid.Batch) error {
	if s.recorder == nil {
		return nil
	}
	if err := s.recorder.WriteFrame(state); err != nil {
		return fmt.Errorf("recording tick %d: %w", s.tick, err)
	}
	if every := s.cfg.Recorder.FlushInterval; every > 0 && s.tick%int64(every) == 0 {
		if err := s.recorder.Flush(); err != nil {
			return fmt.Errorf("flushing recorder: %w", err)
		}
	}
	return nil
}

// Tick returns the number of frames run.
func (s *Simulation) Tick() int64 {
	return s.tick
}

// World returns the agent world.
func (s *Simulation) World() *World {
	return s.world
}

// SetStatsCallback registers fn to receive every flushed StepStats.
func (s *Simulation) SetStatsCallback(fn func(telemetry.StepStats)) {
	s.statsCallback = fn
}

// Close flushes and closes the recorder and the CSV outputs.
func (s *Simulation) Close() error {
	return errors.Join(s.closeRecorder(), s.outputManager.Close())
}

func (s *Simulation) closeRecorder() error {
	if s.recorder == nil {
		return nil
	}
	err := s.recorder.Close()
	s.recorder = nil
	return err
}
