package sim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas/blas32"

	"github.com/pthm-cable/evolimo/components"
	"github.com/pthm-cable/evolimo/config"
	"github.com/pthm-cable/evolimo/grid"
)

// Dynamics advances agent state by one step: engine forces, then
// semi-implicit Euler with drag, a speed clamp and toroidal wrap.
type Dynamics struct {
	Engine *grid.Engine

	DT       float32
	Gravity  float32 // scale applied to engine forces
	Drag     float32 // velocity decay per second
	MaxSpeed float32 // 0 = unlimited
	WorldW   float32
	WorldH   float32

	onPhase func(phase string)
}

// SetOnPhase registers fn to be called as each phase starts, with the
// engine phases as well as "integrate". Call it before stepping; Step
// itself never touches the engine's settings.
func (d *Dynamics) SetOnPhase(fn func(phase string)) {
	d.onPhase = fn
	d.Engine.OnPhase = fn
}

// NewDynamics builds dynamics from a loaded config.
func NewDynamics(cfg *config.Config) (*Dynamics, error) {
	engine, err := grid.NewEngine(cfg.Derived.Grid, cfg.Derived.Stencil, components.NumStateDims)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	return &Dynamics{
		Engine:   engine,
		DT:       cfg.Derived.DT32,
		Gravity:  float32(cfg.Physics.Gravity),
		Drag:     float32(cfg.Physics.Drag),
		MaxSpeed: float32(cfg.Physics.MaxSpeed),
		WorldW:   cfg.Derived.WorldW32,
		WorldH:   cfg.Derived.WorldH32,
	}, nil
}

// StepResult is the outcome of one Step.
type StepResult struct {
	State     grid.Batch // next state
	Forces    grid.Batch // engine output the state was advanced with
	Scattered *grid.Scattered
}

// Step runs the engine on state and returns the next state. state is not
// modified.
func (d *Dynamics) Step(state grid.Batch) (*StepResult, error) {
	posX := state.Column(nil, components.ChanPosX)
	posY := state.Column(nil, components.ChanPosY)

	res, err := d.Engine.Step(posX, posY, state)
	if err != nil {
		return nil, err
	}

	if d.onPhase != nil {
		d.onPhase("integrate")
	}
	next := grid.NewBatch(state.N, state.Dims)
	copy(next.Data, state.Data)
	d.integrate(next, res.Forces)

	return &StepResult{State: next, Forces: res.Forces, Scattered: res.Scattered}, nil
}

// channel returns a strided view of channel ch across all rows of b.
func channel(b grid.Batch, ch int) blas32.Vector {
	return blas32.Vector{N: b.N, Inc: b.Dims, Data: b.Data[ch:]}
}

// integrate advances state in place using forces.
func (d *Dynamics) integrate(state, forces grid.Batch) {
	if state.N == 0 {
		return
	}
	l := d.Engine.Stencil.Layout
	vx := channel(state, components.ChanVelX)
	vy := channel(state, components.ChanVelY)
	px := channel(state, components.ChanPosX)
	py := channel(state, components.ChanPosY)

	// v += gravity * f * dt
	blas32.Axpy(d.Gravity*d.DT, channel(forces, l.ForceX), vx)
	blas32.Axpy(d.Gravity*d.DT, channel(forces, l.ForceY), vy)

	if d.Drag > 0 {
		damp := float32(math.Exp(-float64(d.Drag * d.DT)))
		blas32.Scal(damp, vx)
		blas32.Scal(damp, vy)
	}

	if d.MaxSpeed > 0 {
		maxSq := d.MaxSpeed * d.MaxSpeed
		for i := 0; i < state.N; i++ {
			row := state.Row(i)
			sq := row[components.ChanVelX]*row[components.ChanVelX] + row[components.ChanVelY]*row[components.ChanVelY]
			if sq > maxSq {
				s := d.MaxSpeed / float32(math.Sqrt(float64(sq)))
				row[components.ChanVelX] *= s
				row[components.ChanVelY] *= s
			}
		}
	}

	// x += v * dt, using the updated velocity
	blas32.Axpy(d.DT, vx, px)
	blas32.Axpy(d.DT, vy, py)

	for i := 0; i < state.N; i++ {
		row := state.Row(i)
		row[components.ChanPosX] = wrap(row[components.ChanPosX], d.WorldW)
		row[components.ChanPosY] = wrap(row[components.ChanPosY], d.WorldH)
	}
}

// wrap maps v into [0, size) on a torus.
func wrap(v, size float32) float32 {
	w := float32(float64(v) - float64(size)*math.Floor(float64(v)/float64(size)))
	if w >= size {
		return 0
	}
	return w
}
