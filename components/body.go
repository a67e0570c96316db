package components

// Body holds physical properties of an agent.
type Body struct {
	Mass float32 // gravitational source strength
}

// Agent identifies an agent independently of its ECS entity handle.
type Agent struct {
	ID uint32
}
