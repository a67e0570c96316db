// Package sim runs agents stored in an ECS world through the grid engine.
package sim

import (
	"fmt"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/evolimo/components"
	"github.com/pthm-cable/evolimo/grid"
)

// World owns the agent entities.
type World struct {
	world *ecs.World

	entityMapper *ecs.Map4[
		components.Position,
		components.Velocity,
		components.Body,
		components.Agent,
	]
	entityFilter *ecs.Filter4[
		components.Position,
		components.Velocity,
		components.Body,
		components.Agent,
	]
	posMap   *ecs.Map1[components.Position]
	velMap   *ecs.Map1[components.Velocity]
	agentMap *ecs.Map1[components.Agent]

	nextID uint32
	count  int

	// entities in the order of the last Snapshot
	order []ecs.Entity
}

// NewWorld creates an empty world.
func NewWorld() *World {
	world := ecs.NewWorld()
	return &World{
		world: world,
		entityMapper: ecs.NewMap4[
			components.Position,
			components.Velocity,
			components.Body,
			components.Agent,
		](world),
		entityFilter: ecs.NewFilter4[
			components.Position,
			components.Velocity,
			components.Body,
			components.Agent,
		](world),
		posMap:   ecs.NewMap1[components.Position](world),
		velMap:   ecs.NewMap1[components.Velocity](world),
		agentMap: ecs.NewMap1[components.Agent](world),
	}
}

// Spawn adds an agent and returns its entity.
func (w *World) Spawn(pos components.Position, vel components.Velocity, body components.Body) ecs.Entity {
	agent := components.Agent{ID: w.nextID}
	w.nextID++
	w.count++
	return w.entityMapper.NewEntity(&pos, &vel, &body, &agent)
}

// Len returns the number of agents.
func (w *World) Len() int {
	return w.count
}

// Snapshot flattens every agent into a state batch in query order. The
// order is remembered for the next Apply.
func (w *World) Snapshot() grid.Batch {
	state := grid.NewBatch(w.count, components.NumStateDims)
	w.order = w.order[:0]

	i := 0
	query := w.entityFilter.Query()
	for query.Next() {
		pos, vel, body, _ := query.Get()
		components.PackState(state.Row(i), *pos, *vel, *body)
		w.order = append(w.order, query.Entity())
		i++
	}
	return state
}

// Apply writes positions and velocities from state back to the agents, in
// the order of the last Snapshot. Mass is not written back.
func (w *World) Apply(state grid.Batch) error {
	if state.N != len(w.order) || state.Dims != components.NumStateDims {
		return fmt.Errorf("apply: %w: state is %dx%d, world snapshot has %d agents",
			grid.ErrShapeMismatch, state.N, state.Dims, len(w.order))
	}
	for i, e := range w.order {
		pos, vel, _ := components.UnpackState(state.Row(i))
		*w.posMap.Get(e) = pos
		*w.velMap.Get(e) = vel
	}
	return nil
}

// IDs returns agent IDs in the order of the last Snapshot.
func (w *World) IDs() []uint32 {
	ids := make([]uint32, len(w.order))
	for i, e := range w.order {
		ids[i] = w.agentMap.Get(e).ID
	}
	return ids
}
