// Package telemetry provides per-step statistics, phase timing and CSV output.
package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/evolimo/components"
	"github.com/pthm-cable/evolimo/grid"
)

// StepStats summarizes one simulation step.
type StepStats struct {
	Tick    int64   `csv:"tick"`
	SimTime float64 `csv:"sim_time"`
	Agents  int     `csv:"agents"`

	// Grid occupancy
	OccupiedSlots int     `csv:"occupied_slots"`
	Collisions    int     `csv:"collisions"`     // agents averaged into a shared slot
	CollisionRate float64 `csv:"collision_rate"` // Collisions / Agents

	// Force magnitude distribution
	ForceMean float64 `csv:"force_mean"`
	ForceStd  float64 `csv:"force_std"`
	ForceMax  float64 `csv:"force_max"`

	// Speed distribution
	SpeedMean float64 `csv:"speed_mean"`
	SpeedP50  float64 `csv:"speed_p50"`
	SpeedP90  float64 `csv:"speed_p90"`

	// Conserved-ish quantities
	TotalMass     float64 `csv:"total_mass"`
	KineticEnergy float64 `csv:"kinetic_energy"`
	MomentumX     float64 `csv:"momentum_x"`
	MomentumY     float64 `csv:"momentum_y"`
}

// ComputeStepStats derives StepStats from the post-step state, the forces
// gathered for it and the scatter that produced them. sc may be nil.
func ComputeStepStats(tick int64, dt float64, state, forces grid.Batch, sc *grid.Scattered) StepStats {
	s := StepStats{
		Tick:    tick,
		SimTime: float64(tick) * dt,
		Agents:  state.N,
	}
	if sc != nil {
		s.OccupiedSlots = sc.Occupied
		s.Collisions = sc.Collisions
	}
	if state.N == 0 {
		return s
	}
	s.CollisionRate = float64(s.Collisions) / float64(state.N)

	mass := make([]float64, state.N)
	vx := make([]float64, state.N)
	vy := make([]float64, state.N)
	speed := make([]float64, state.N)
	speedSq := make([]float64, state.N)
	for i := 0; i < state.N; i++ {
		row := state.Row(i)
		mass[i] = float64(row[components.ChanMass])
		vx[i] = float64(row[components.ChanVelX])
		vy[i] = float64(row[components.ChanVelY])
		speedSq[i] = vx[i]*vx[i] + vy[i]*vy[i]
		speed[i] = math.Sqrt(speedSq[i])
	}

	s.TotalMass = floats.Sum(mass)
	s.KineticEnergy = 0.5 * floats.Dot(mass, speedSq)
	s.MomentumX = floats.Dot(mass, vx)
	s.MomentumY = floats.Dot(mass, vy)

	s.SpeedMean = stat.Mean(speed, nil)
	sort.Float64s(speed)
	s.SpeedP50 = stat.Quantile(0.5, stat.Empirical, speed, nil)
	s.SpeedP90 = stat.Quantile(0.9, stat.Empirical, speed, nil)

	if forces.N == state.N {
		mag := make([]float64, forces.N)
		for i := range mag {
			row := forces.Row(i)
			mag[i] = math.Hypot(float64(row[components.ChanVelX]), float64(row[components.ChanVelY]))
		}
		s.ForceMean, s.ForceStd = stat.PopMeanStdDev(mag, nil)
		s.ForceMax = floats.Max(mag)
	}

	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s StepStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("tick", s.Tick),
		slog.Float64("sim_time", s.SimTime),
		slog.Int("agents", s.Agents),
		slog.Int("occupied_slots", s.OccupiedSlots),
		slog.Int("collisions", s.Collisions),
		slog.Float64("collision_rate", s.CollisionRate),
		slog.Float64("force_mean", s.ForceMean),
		slog.Float64("force_std", s.ForceStd),
		slog.Float64("force_max", s.ForceMax),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_p50", s.SpeedP50),
		slog.Float64("speed_p90", s.SpeedP90),
		slog.Float64("total_mass", s.TotalMass),
		slog.Float64("kinetic_energy", s.KineticEnergy),
		slog.Float64("momentum_x", s.MomentumX),
		slog.Float64("momentum_y", s.MomentumY),
	)
}

// LogStats logs the headline numbers using slog.
func (s StepStats) LogStats() {
	slog.Info("stats",
		"tick", s.Tick,
		"sim_time", s.SimTime,
		"agents", s.Agents,
		"collisions", s.Collisions,
		"collision_rate", s.CollisionRate,
		"force_mean", s.ForceMean,
		"force_max", s.ForceMax,
		"speed_mean", s.SpeedMean,
		"kinetic_energy", s.KineticEnergy,
	)
}
