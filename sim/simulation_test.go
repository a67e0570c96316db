package sim

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/evolimo/components"
	"github.com/pthm-cable/evolimo/grid"
	"github.com/pthm-cable/evolimo/recorder"
	"github.com/pthm-cable/evolimo/telemetry"
)

func TestSimulation_RunRecordsFrames(t *testing.T) {
	cfg := loadConfig(t, smallConfig)
	dir := t.TempDir()
	recordPath := filepath.Join(dir, "run.evo")
	outDir := filepath.Join(dir, "out")

	s, err := New(cfg, Options{
		Seed:       42,
		MaxFrames:  5,
		RecordPath: recordPath,
		OutputDir:  outDir,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var flushed []telemetry.StepStats
	s.SetStatsCallback(func(st telemetry.StepStats) { flushed = append(flushed, st) })

	if err := s.Run(context.Background(), 5); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Tick() != 5 {
		t.Errorf("Tick = %d, want 5", s.Tick())
	}
	final := s.World().Snapshot()
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// stats_interval 2: ticks 2 and 4
	if len(flushed) != 2 || flushed[0].Tick != 2 || flushed[1].Tick != 4 {
		t.Errorf("unexpected stats flushes: %+v", flushed)
	}
	for _, st := range flushed {
		if st.Agents != 24 {
			t.Errorf("stats agents = %d, want 24", st.Agents)
		}
	}

	r, err := recorder.Open(recordPath)
	if err != nil {
		t.Fatalf("recorder.Open: %v", err)
	}
	defer r.Close()

	h := r.Header()
	if h.Config.NAgents != 24 || h.Config.StateDims != components.NumStateDims || h.Playback.TotalFrames != 5 {
		t.Errorf("unexpected header: %+v", h)
	}
	if r.FrameCount() != 5 {
		t.Fatalf("FrameCount = %d, want 5", r.FrameCount())
	}
	last, err := r.ReadFrame(4)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	for i, v := range final.Data {
		if last.Data[i] != v {
			t.Fatalf("recorded frame differs from world state at %d: %v vs %v", i, last.Data[i], v)
		}
	}

	for _, name := range []string{"telemetry.csv", "perf.csv", "config.yaml"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}
}

func TestSimulation_PositionsStayInWorld(t *testing.T) {
	cfg := loadConfig(t, smallConfig)
	s, err := New(cfg, Options{Seed: 5, Agents: 40})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	if err := s.Run(context.Background(), 20); err != nil {
		t.Fatalf("Run: %v", err)
	}

	state := s.World().Snapshot()
	if state.N != 40 {
		t.Fatalf("agents = %d, want 40", state.N)
	}
	for i := 0; i < state.N; i++ {
		row := state.Row(i)
		x, y := row[components.ChanPosX], row[components.ChanPosY]
		if x < 0 || x >= 32 || y < 0 || y >= 32 {
			t.Errorf("agent %d at (%v, %v) left the world", i, x, y)
		}
	}
	for i, v := range state.Data {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("state[%d] = %v", i, v)
		}
	}
}

func TestSimulation_CancelledContext(t *testing.T) {
	cfg := loadConfig(t, smallConfig)
	s, err := New(cfg, Options{Seed: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Run(ctx, 0); err != nil {
		t.Errorf("Run on cancelled context: %v", err)
	}
	if s.Tick() != 0 {
		t.Errorf("Tick = %d, want 0", s.Tick())
	}
}

func TestSimulation_Deterministic(t *testing.T) {
	cfg := loadConfig(t, smallConfig)

	run := func() grid.Batch {
		s, err := New(cfg, Options{Seed: 11})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		defer s.Close()
		if err := s.Run(context.Background(), 10); err != nil {
			t.Fatalf("Run: %v", err)
		}
		return s.World().Snapshot()
	}

	a, b := run(), run()
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatalf("runs diverge at %d: %v vs %v", i, a.Data[i], b.Data[i])
		}
	}
}
