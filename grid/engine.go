package grid

import "fmt"

// Engine runs the full scatter, pad, stencil, gather pipeline. It holds only
// immutable settings; every Step allocates fresh buffers.
type Engine struct {
	Config  Config
	Stencil StencilOptions

	// OnPhase, if set, is called with "scatter", "pad", "stencil" and
	// "gather" as each stage starts.
	OnPhase func(phase string)
}

// NewEngine validates cfg and opts for dims-wide agent state.
func NewEngine(cfg Config, opts StencilOptions, dims int) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Validate(dims); err != nil {
		return nil, err
	}
	return &Engine{Config: cfg, Stencil: opts}, nil
}

// StepResult holds the per-agent forces plus the intermediate buffers of one
// step, for callers that want to inspect occupancy.
type StepResult struct {
	Forces    Batch // per-agent rows, forces in Layout.ForceX/ForceY
	Scattered *Scattered
	Padded    *Buffer
	Field     *Buffer // stencil output
}

// Step bins the agents, computes neighbor forces and maps them back to agent
// order.
func (e *Engine) Step(posX, posY []float32, state Batch) (*StepResult, error) {
	if err := e.Stencil.Validate(state.Dims); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	e.phase("scatter")
	sc, err := Scatter(e.Config, posX, posY, state)
	if err != nil {
		return nil, err
	}
	e.phase("pad")
	padded, err := Pad(sc.Grid, e.Stencil.Radius)
	if err != nil {
		return nil, err
	}
	e.phase("stencil")
	field, err := Stencil(sc.Grid, padded, e.Stencil)
	if err != nil {
		return nil, err
	}
	e.phase("gather")
	forces, err := Gather(field, sc.Index)
	if err != nil {
		return nil, err
	}
	return &StepResult{Forces: forces, Scattered: sc, Padded: padded, Field: field}, nil
}

func (e *Engine) phase(name string) {
	if e.OnPhase != nil {
		e.OnPhase(name)
	}
}
