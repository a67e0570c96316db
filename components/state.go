package components

import "github.com/pthm-cable/evolimo/grid"

// Channels of the flat per-agent state vector exchanged with the grid engine
// and written by the recorder.
const (
	ChanPosX = iota
	ChanPosY
	ChanVelX
	ChanVelY
	ChanMass

	NumStateDims
)

// StateLabels names each state channel, in channel order.
var StateLabels = [NumStateDims]string{"pos_x", "pos_y", "vel_x", "vel_y", "mass"}

// StateLayout tells the stencil where positions and mass live and where to
// write forces. Forces land in the velocity channels of the result.
func StateLayout() grid.Layout {
	return grid.Layout{
		PosX:   ChanPosX,
		PosY:   ChanPosY,
		Mass:   ChanMass,
		ForceX: ChanVelX,
		ForceY: ChanVelY,
	}
}

// PackState writes pos, vel and body into a state row.
func PackState(row []float32, pos Position, vel Velocity, body Body) {
	row[ChanPosX] = pos.X
	row[ChanPosY] = pos.Y
	row[ChanVelX] = vel.X
	row[ChanVelY] = vel.Y
	row[ChanMass] = body.Mass
}

// UnpackState reads pos, vel and body back out of a state row.
func UnpackState(row []float32) (Position, Velocity, Body) {
	return Position{X: row[ChanPosX], Y: row[ChanPosY]},
		Velocity{X: row[ChanVelX], Y: row[ChanVelY]},
		Body{Mass: row[ChanMass]}
}
