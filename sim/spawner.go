package sim

import (
	"math"
	"math/rand"

	"github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/evolimo/components"
	"github.com/pthm-cable/evolimo/config"
)

// Spawner places agents by rejection sampling against an OpenSimplex
// density field, so the initial population is clustered.
type Spawner struct {
	rng   *rand.Rand
	noise opensimplex.Noise

	worldW, worldH float32

	noiseScale   float64
	threshold    float64
	maxAttempts  int
	massMin      float32
	massMax      float32
	initialSpeed float32
}

// NewSpawner creates a spawner. The same seed always yields the same
// population.
func NewSpawner(seed int64, cfg *config.Config) *Spawner {
	return &Spawner{
		rng:          rand.New(rand.NewSource(seed)),
		noise:        opensimplex.NewNormalized(seed),
		worldW:       cfg.Derived.WorldW32,
		worldH:       cfg.Derived.WorldH32,
		noiseScale:   cfg.Spawn.NoiseScale,
		threshold:    cfg.Spawn.Threshold,
		maxAttempts:  cfg.Spawn.MaxAttempts,
		massMin:      float32(cfg.Population.MassMin),
		massMax:      float32(cfg.Population.MassMax),
		initialSpeed: float32(cfg.Population.InitialSpeed),
	}
}

// Density returns the spawn density in [0, 1) at (x, y).
func (s *Spawner) Density(x, y float32) float64 {
	return s.noise.Eval2(float64(x)*s.noiseScale, float64(y)*s.noiseScale)
}

// Position draws a position from the density field. After maxAttempts
// rejections the last candidate is accepted.
func (s *Spawner) Position() components.Position {
	var x, y float32
	for attempt := 0; attempt < max(s.maxAttempts, 1); attempt++ {
		x = s.rng.Float32() * s.worldW
		y = s.rng.Float32() * s.worldH
		if s.Density(x, y) >= s.threshold {
			break
		}
	}
	return components.Position{X: x, Y: y}
}

// Agent draws a full agent: clustered position, random heading at the
// initial speed, uniform mass.
func (s *Spawner) Agent() (components.Position, components.Velocity, components.Body) {
	pos := s.Position()
	heading := s.rng.Float64() * 2 * math.Pi
	vel := components.Velocity{
		X: s.initialSpeed * float32(math.Cos(heading)),
		Y: s.initialSpeed * float32(math.Sin(heading)),
	}
	body := components.Body{Mass: s.massMin + s.rng.Float32()*(s.massMax-s.massMin)}
	return pos, vel, body
}

// Populate spawns n agents into w.
func (s *Spawner) Populate(w *World, n int) {
	for i := 0; i < n; i++ {
		pos, vel, body := s.Agent()
		w.Spawn(pos, vel, body)
	}
}
