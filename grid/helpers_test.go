package grid

import (
	"math"
	"testing"
)

// agent is a test agent in the default layout: pos_x, pos_y, vel_x, vel_y, mass.
type agent struct {
	x, y, vx, vy, m float32
}

func batchOf(agents []agent) (posX, posY []float32, state Batch) {
	state = NewBatch(len(agents), 5)
	posX = make([]float32, len(agents))
	posY = make([]float32, len(agents))
	for i, a := range agents {
		copy(state.Row(i), []float32{a.x, a.y, a.vx, a.vy, a.m})
		posX[i] = a.x
		posY[i] = a.y
	}
	return posX, posY, state
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func mustScatter(t *testing.T, cfg Config, agents []agent) *Scattered {
	t.Helper()
	posX, posY, state := batchOf(agents)
	sc, err := Scatter(cfg, posX, posY, state)
	if err != nil {
		t.Fatalf("Scatter: %v", err)
	}
	return sc
}
