package grid

import "fmt"

// Pad surrounds buf with a pad-cell halo copied from the opposite edges, so
// that padded cell (pad+h, pad+w) is buf cell (h, w) and every cell outside
// that range is its periodic image. Any pad >= 0 works, including pads wider
// than the grid itself.
//
// Pad(buf, 0) returns buf unchanged. The halo is built once per step and
// shared by every stencil offset.
func Pad(buf *Buffer, pad int) (*Buffer, error) {
	if err := buf.check(); err != nil {
		return nil, fmt.Errorf("pad: %w", err)
	}
	if pad < 0 {
		return nil, fmt.Errorf("pad: %w: negative pad %d", ErrInvalidConfig, pad)
	}
	if pad == 0 {
		return buf, nil
	}

	h, w := buf.Height, buf.Width
	out := NewBuffer(h+2*pad, w+2*pad, buf.Capacity, buf.Dims)
	for i := 0; i < out.Height; i++ {
		srcRow := WrapIndex(i-pad, h)
		for j := 0; j < out.Width; j++ {
			copy(out.Cell(i, j), buf.Cell(srcRow, WrapIndex(j-pad, w)))
		}
	}
	return out, nil
}
