// Package components defines ECS components for the simulation.
package components

// Position represents an agent's world position on the torus.
type Position struct {
	X, Y float32
}

// Velocity represents an agent's velocity in world units per second.
type Velocity struct {
	X, Y float32
}
