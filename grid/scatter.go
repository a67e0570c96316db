package grid

import (
	"fmt"

	"gonum.org/v1/gonum/blas/blas32"
)

// Scattered is the output of Scatter for one step.
type Scattered struct {
	Grid *Buffer // averaged agent state per slot
	Mask *Buffer // 1 where a slot holds at least one agent, Dims == 1
	// Index maps agent i to its flat slot in [0, Config.Slots()).
	Index []int
	// Occupied counts slots holding at least one agent.
	Occupied int
	// Collisions counts agents that were averaged into an already occupied slot.
	Collisions int
}

// Scatter bins agents into a fixed-capacity grid.
//
// Agent i goes to slot i % Capacity of the cell containing (posX[i], posY[i]).
// The slot choice ignores density, so two agents with the same ordinal modulo
// Capacity collide in a shared cell even if other slots are free. Colliding
// states are summed and divided by the count, giving their mean.
func Scatter(cfg Config, posX, posY []float32, state Batch) (*Scattered, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scatter: %w", err)
	}
	if err := state.check(); err != nil {
		return nil, fmt.Errorf("scatter: %w", err)
	}
	n := state.N
	if len(posX) != n || len(posY) != n {
		return nil, fmt.Errorf("scatter: %w: %d agents but %d x and %d y positions",
			ErrShapeMismatch, n, len(posX), len(posY))
	}

	index := make([]int, n)
	for i := 0; i < n; i++ {
		if !cfg.InRange(posX[i], posY[i]) {
			return nil, fmt.Errorf("scatter: %w: agent %d at (%g, %g) is outside the cell range",
				ErrNonFinite, i, posX[i], posY[i])
		}
		gx, gy := cfg.CellOf(posX[i], posY[i])
		cell := gy*cfg.Width + gx
		index[i] = cell*cfg.Capacity + i%cfg.Capacity
	}

	dims := state.Dims
	grid := NewBuffer(cfg.Height, cfg.Width, cfg.Capacity, dims)
	mask := NewBuffer(cfg.Height, cfg.Width, cfg.Capacity, 1)
	counts := make([]float32, cfg.Slots())

	for i, flat := range index {
		src := blas32.Vector{N: dims, Inc: 1, Data: state.Row(i)}
		dst := blas32.Vector{N: dims, Inc: 1, Data: grid.Flat(flat)}
		blas32.Axpy(1, src, dst)
		counts[flat]++
	}

	out := &Scattered{Grid: grid, Mask: mask, Index: index}
	for flat, count := range counts {
		if count == 0 {
			continue
		}
		out.Occupied++
		mask.Data[flat] = 1
		if count > 1 {
			blas32.Scal(1/max(count, 1), blas32.Vector{N: dims, Inc: 1, Data: grid.Flat(flat)})
		}
	}
	out.Collisions = n - out.Occupied

	return out, nil
}
