// Package grid bins agents into a fixed-capacity toroidal grid and computes
// neighbor interactions cell-to-cell instead of agent-to-agent.
//
// Each step runs Scatter -> Pad -> Stencil -> Gather. Every buffer is shaped
// [Height][Width][Capacity][Dims] so the work per cell is fixed and branch-free.
// When more agents land in a (cell, slot) than the grid can hold they are
// averaged into a single center-of-mass entry. This loss is bounded and
// intentional: a variable-length per-cell list would give up the fixed shape
// the stencil depends on.
package grid

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidConfig reports grid geometry or stencil settings that cannot be used.
	ErrInvalidConfig = errors.New("invalid grid config")
	// ErrShapeMismatch reports inputs whose lengths disagree with the declared shapes.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrNonFinite reports NaN, Inf or out-of-range agent positions.
	ErrNonFinite = errors.New("non-finite value")
)

// Config is the immutable grid geometry used for one engine run.
type Config struct {
	Width      int     // cells along x
	Height     int     // cells along y
	Capacity   int     // slots per cell
	CellWidth  float32 // world units per cell along x
	CellHeight float32 // world units per cell along y
}

// Validate checks that every dimension is positive and finite.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: grid size %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity %d", ErrInvalidConfig, c.Capacity)
	}
	if !positiveFinite(c.CellWidth) || !positiveFinite(c.CellHeight) {
		return fmt.Errorf("%w: cell size (%g, %g)", ErrInvalidConfig, c.CellWidth, c.CellHeight)
	}
	return nil
}

// Slots returns the total number of slots, Width*Height*Capacity.
func (c Config) Slots() int {
	return c.Width * c.Height * c.Capacity
}

// WorldSize returns the extent of the torus in world units.
func (c Config) WorldSize() (w, h float32) {
	return float32(c.Width) * c.CellWidth, float32(c.Height) * c.CellHeight
}

// MaxCellCoord bounds |x/CellWidth| and |y/CellHeight|. Beyond it float64
// no longer holds every integer, so the floor is not exact and CellOf loses
// periodicity. Scatter rejects positions outside the range.
const MaxCellCoord = 1 << 53

// CellOf maps a world position to its (gx, gy) cell on the torus.
// Negative positions wrap: x = -0.5*CellWidth lands in column Width-1.
// Positions must satisfy InRange.
func (c Config) CellOf(x, y float32) (gx, gy int) {
	gx = WrapIndex(int(math.Floor(float64(x)/float64(c.CellWidth))), c.Width)
	gy = WrapIndex(int(math.Floor(float64(y)/float64(c.CellHeight))), c.Height)
	return gx, gy
}

// InRange reports whether (x, y) is finite and within MaxCellCoord cells of
// the origin on both axes.
func (c Config) InRange(x, y float32) bool {
	if !finite(x) || !finite(y) {
		return false
	}
	return math.Abs(float64(x)/float64(c.CellWidth)) < MaxCellCoord &&
		math.Abs(float64(y)/float64(c.CellHeight)) < MaxCellCoord
}

// WrapIndex folds i into [0, n) using floor semantics, so -1 maps to n-1.
func WrapIndex(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

func positiveFinite(v float32) bool {
	f := float64(v)
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}
