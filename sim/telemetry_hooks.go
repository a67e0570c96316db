package sim

import (
	"log/slog"
	"time"

	"github.com/pthm-cable/evolimo/telemetry"
)

// flushTelemetry reports stats every stats_interval frames.
func (s *Simulation) flushTelemetry(res *StepResult) {
	every := s.cfg.Telemetry.StatsInterval
	if every <= 0 || s.tick%int64(every) != 0 {
		return
	}

	stats := telemetry.ComputeStepStats(s.tick, s.cfg.Physics.DT, res.State, res.Forces, res.Scattered)
	perfStats := s.perfCollector.Stats()

	now := time.Now()
	var fps float64
	if elapsed := now.Sub(s.windowStart); elapsed > 0 {
		fps = float64(s.windowTicks) / elapsed.Seconds()
	}
	s.windowStart = now
	s.windowTicks = 0

	if s.statsCallback != nil {
		s.statsCallback(stats)
	}

	slog.Info("progress",
		"tick", s.tick,
		"kinetic_energy", stats.KineticEnergy,
		"fps", fps,
	)

	if s.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := s.outputManager.WriteStats(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := s.outputManager.WritePerf(perfStats, s.tick); err != nil {
		slog.Error("failed to write perf", "error", err)
	}
}
