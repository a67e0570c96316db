package sim

import (
	"math"
	"testing"
)

func TestSpawner_Deterministic(t *testing.T) {
	cfg := loadConfig(t, smallConfig)

	a := NewSpawner(7, cfg)
	b := NewSpawner(7, cfg)
	for i := 0; i < 50; i++ {
		pa, va, ba := a.Agent()
		pb, vb, bb := b.Agent()
		if pa != pb || va != vb || ba != bb {
			t.Fatalf("agent %d differs between spawners with the same seed", i)
		}
	}
}

func TestSpawner_Bounds(t *testing.T) {
	cfg := loadConfig(t, smallConfig)
	s := NewSpawner(1, cfg)

	speed := float32(cfg.Population.InitialSpeed)
	for i := 0; i < 500; i++ {
		pos, vel, body := s.Agent()
		if pos.X < 0 || pos.X > 32 || pos.Y < 0 || pos.Y > 32 {
			t.Fatalf("position %+v outside world", pos)
		}
		if body.Mass < float32(cfg.Population.MassMin) || body.Mass > float32(cfg.Population.MassMax) {
			t.Fatalf("mass %v outside [%v, %v]", body.Mass, cfg.Population.MassMin, cfg.Population.MassMax)
		}
		if got := float32(math.Hypot(float64(vel.X), float64(vel.Y))); !approxEqual(got, speed, 1e-5) {
			t.Fatalf("speed = %v, want %v", got, speed)
		}
	}
}

func TestSpawner_FollowsDensity(t *testing.T) {
	cfg := loadConfig(t, smallConfig+`
spawn:
  noise_scale: 0.1
  threshold: 0.45
  max_attempts: 1000
`)
	s := NewSpawner(3, cfg)

	const n = 400
	accepted := 0
	for i := 0; i < n; i++ {
		pos := s.Position()
		if s.Density(pos.X, pos.Y) >= cfg.Spawn.Threshold {
			accepted++
		}
	}
	if accepted < n*95/100 {
		t.Errorf("only %d/%d positions meet the density threshold", accepted, n)
	}
}

func TestSpawner_Populate(t *testing.T) {
	cfg := loadConfig(t, smallConfig)
	w := NewWorld()

	NewSpawner(9, cfg).Populate(w, 17)

	if w.Len() != 17 {
		t.Errorf("Len = %d, want 17", w.Len())
	}
	if state := w.Snapshot(); state.N != 17 {
		t.Errorf("snapshot rows = %d, want 17", state.N)
	}
}
