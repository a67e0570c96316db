package grid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas/blas32"
)

// DefaultSoftening is the epsilon added to every squared distance.
const DefaultSoftening = 0.01

// Layout names the state channels the force law reads and writes.
type Layout struct {
	PosX, PosY int // position channels
	Mass       int // source mass channel
	ForceX     int // output channel for the x force
	ForceY     int // output channel for the y force
}

// DefaultLayout is pos_x, pos_y, vel_x, vel_y, mass with forces written into
// the velocity channels.
func DefaultLayout() Layout {
	return Layout{PosX: 0, PosY: 1, Mass: 4, ForceX: 2, ForceY: 3}
}

func (l Layout) check(dims int) error {
	for _, ch := range []int{l.PosX, l.PosY, l.Mass, l.ForceX, l.ForceY} {
		if ch < 0 || ch >= dims {
			return fmt.Errorf("%w: channel %d outside %d dims", ErrInvalidConfig, ch, dims)
		}
	}
	if l.ForceX == l.ForceY {
		return fmt.Errorf("%w: force channels overlap at %d", ErrInvalidConfig, l.ForceX)
	}
	return nil
}

// StencilOptions controls the neighbor force accumulation.
type StencilOptions struct {
	// Radius is the Chebyshev cell radius; (2r+1)^2 offsets are visited.
	Radius int
	// Softening is added to d^2 before the reciprocal. Must be > 0.
	Softening float32
	// ExcludeSelf drops the i == j slot pair on the (0, 0) offset. Off by
	// default, in which case the self term is 0 because its delta is 0.
	ExcludeSelf bool
	Layout      Layout
	// Workers caps row parallelism. 0 uses GOMAXPROCS, 1 runs serially.
	Workers int
}

// DefaultStencilOptions returns radius 1, DefaultSoftening and DefaultLayout.
func DefaultStencilOptions() StencilOptions {
	return StencilOptions{
		Radius:    1,
		Softening: DefaultSoftening,
		Layout:    DefaultLayout(),
	}
}

// Validate checks the options against a state width.
func (o StencilOptions) Validate(dims int) error {
	if o.Radius < 0 {
		return fmt.Errorf("%w: radius %d", ErrInvalidConfig, o.Radius)
	}
	if !positiveFinite(o.Softening) {
		return fmt.Errorf("%w: softening %g", ErrInvalidConfig, o.Softening)
	}
	return o.Layout.check(dims)
}

// SolveGravity pads buf by the stencil radius and runs Stencil on it.
func SolveGravity(buf *Buffer, opts StencilOptions) (*Buffer, error) {
	if opts.Radius < 0 {
		return nil, fmt.Errorf("stencil: %w: radius %d", ErrInvalidConfig, opts.Radius)
	}
	padded, err := Pad(buf, opts.Radius)
	if err != nil {
		return nil, err
	}
	return Stencil(buf, padded, opts)
}

// Stencil accumulates inverse-square forces on every slot of center from
// every slot of the cells within opts.Radius, read through zero-copy windows
// of padded (the output of Pad on center).
//
// For each offset the contribution of neighbor slot j on center slot i is
// m_j * delta / (|delta|^2 + eps). Contributions are summed over j first and
// the per-offset total is then added to the running sum. The result has the
// shape of center with the forces in Layout.ForceX/ForceY and zeros elsewhere.
//
// Deltas are raw position differences. A neighbor reached through the halo
// keeps its unwrapped position, and on grids no wider than 2r+1 cells the same
// physical cell is visited by more than one offset.
//
// Cost is O(H*W*C^2*(2r+1)^2), so Capacity should stay in single digits to
// low tens. Rows are split across goroutines; every slot is summed in a fixed
// order, so results do not depend on the worker count.
func Stencil(center, padded *Buffer, opts StencilOptions) (*Buffer, error) {
	if err := center.check(); err != nil {
		return nil, fmt.Errorf("stencil: center: %w", err)
	}
	if err := opts.Validate(center.Dims); err != nil {
		return nil, fmt.Errorf("stencil: %w", err)
	}
	if err := padded.check(); err != nil {
		return nil, fmt.Errorf("stencil: padded: %w", err)
	}
	pad, err := haloWidth(center, padded)
	if err != nil {
		return nil, fmt.Errorf("stencil: %w", err)
	}
	if pad < opts.Radius {
		return nil, fmt.Errorf("stencil: %w: halo %d narrower than radius %d", ErrShapeMismatch, pad, opts.Radius)
	}

	slots := center.Slots()
	fx := make([]float32, slots)
	fy := make([]float32, slots)

	k := &stencilKernel{center: center, padded: padded, pad: pad, opts: opts}
	workers := workerCount(opts.Workers, center.Height, slots)
	forRows(center.Height, workers, func(r0, r1 int) {
		k.run(r0, r1, fx, fy)
	})

	out := NewBuffer(center.Height, center.Width, center.Capacity, center.Dims)
	l := opts.Layout
	for i := 0; i < slots; i++ {
		slot := out.Flat(i)
		slot[l.ForceX] = fx[i]
		slot[l.ForceY] = fy[i]
	}
	return out, nil
}

// haloWidth returns the pad that produced padded from center.
func haloWidth(center, padded *Buffer) (int, error) {
	dh := padded.Height - center.Height
	dw := padded.Width - center.Width
	if dh < 0 || dh != dw || dh%2 != 0 {
		return 0, fmt.Errorf("%w: padded %dx%d does not wrap %dx%d",
			ErrShapeMismatch, padded.Height, padded.Width, center.Height, center.Width)
	}
	if padded.Capacity != center.Capacity || padded.Dims != center.Dims {
		return 0, fmt.Errorf("%w: padded slots %dx%d, center %dx%d",
			ErrShapeMismatch, padded.Capacity, padded.Dims, center.Capacity, center.Dims)
	}
	return dh / 2, nil
}

type stencilKernel struct {
	center *Buffer
	padded *Buffer
	pad    int
	opts   StencilOptions
}

// run accumulates forces for center rows [r0, r1) into fx and fy.
func (k *stencilKernel) run(r0, r1 int, fx, fy []float32) {
	c := k.center
	rowSlots := c.Width * c.Capacity
	lo, hi := r0*rowSlots, r1*rowSlots
	n := hi - lo

	offX := make([]float32, n)
	offY := make([]float32, n)
	vOffX := blas32.Vector{N: n, Inc: 1, Data: offX}
	vOffY := blas32.Vector{N: n, Inc: 1, Data: offY}
	vAccX := blas32.Vector{N: n, Inc: 1, Data: fx[lo:hi]}
	vAccY := blas32.Vector{N: n, Inc: 1, Data: fy[lo:hi]}

	r := k.opts.Radius
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			win := k.padded.Window(k.pad+dy, k.pad+dx, c.Height, c.Width)
			skipSelf := k.opts.ExcludeSelf && dx == 0 && dy == 0

			i := 0
			for row := r0; row < r1; row++ {
				for col := 0; col < c.Width; col++ {
					k.pairwise(c.Cell(row, col), win.Cell(row, col),
						offX[i:i+c.Capacity], offY[i:i+c.Capacity], skipSelf)
					i += c.Capacity
				}
			}

			blas32.Axpy(1, vOffX, vAccX)
			blas32.Axpy(1, vOffY, vAccY)
		}
	}
}

// pairwise writes, for each center slot, the force summed over every
// neighbor slot of one cell pair.
func (k *stencilKernel) pairwise(center, neighbor, outX, outY []float32, skipSelf bool) {
	l := k.opts.Layout
	d := k.center.Dims
	eps := k.opts.Softening

	for i := range outX {
		ci := center[i*d : (i+1)*d]
		cx, cy := ci[l.PosX], ci[l.PosY]

		var sx, sy float32
		for j := range outX {
			if skipSelf && i == j {
				continue
			}
			nj := neighbor[j*d : (j+1)*d]
			ddx := nj[l.PosX] - cx
			ddy := nj[l.PosY] - cy
			inv := 1 / (ddx*ddx + ddy*ddy + eps)
			m := nj[l.Mass] * inv
			sx += m * ddx
			sy += m * ddy
		}
		outX[i] = sx
		outY[i] = sy
	}
}

// AllFinite reports whether every value in buf is neither NaN nor Inf.
func AllFinite(buf *Buffer) bool {
	for _, v := range buf.Data {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return false
		}
	}
	return true
}
