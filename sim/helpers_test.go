package sim

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/evolimo/components"
	"github.com/pthm-cable/evolimo/config"
	"github.com/pthm-cable/evolimo/grid"
)

const smallConfig = `
grid:
  width: 8
  height: 8
  capacity: 2
  cell_width: 4.0
  cell_height: 4.0
population:
  agents: 24
telemetry:
  stats_interval: 2
  perf_window: 4
recorder:
  flush_interval: 3
`

func loadConfig(t *testing.T, body string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return cfg
}

// newTestDynamics returns dynamics on a 4x4 grid of 8-unit cells with
// capacity 2, radius 1, no drag and no speed limit.
func newTestDynamics(t *testing.T, dt float32) *Dynamics {
	t.Helper()
	cfg := grid.Config{Width: 4, Height: 4, Capacity: 2, CellWidth: 8, CellHeight: 8}
	opts := grid.StencilOptions{Radius: 1, Softening: grid.DefaultSoftening, Layout: components.StateLayout()}
	engine, err := grid.NewEngine(cfg, opts, components.NumStateDims)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	w, h := cfg.WorldSize()
	return &Dynamics{Engine: engine, DT: dt, Gravity: 1, WorldW: w, WorldH: h}
}

type agent struct {
	x, y, vx, vy, mass float32
}

func stateOf(agents ...agent) grid.Batch {
	b := grid.NewBatch(len(agents), components.NumStateDims)
	for i, a := range agents {
		components.PackState(b.Row(i),
			components.Position{X: a.x, Y: a.y},
			components.Velocity{X: a.vx, Y: a.vy},
			components.Body{Mass: a.mass})
	}
	return b
}

func approxEqual(a, b, tol float32) bool {
	return math.Abs(float64(a-b)) <= float64(tol)
}
