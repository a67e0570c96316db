package grid

import "fmt"

// Gather returns result[i] = buf.Flat(index[i]) for every agent, undoing
// Scatter's binning. Agents that collided in Scatter share an index and so
// receive identical rows.
func Gather(buf *Buffer, index []int) (Batch, error) {
	if err := buf.check(); err != nil {
		return Batch{}, fmt.Errorf("gather: %w", err)
	}
	slots := buf.Slots()
	out := NewBatch(len(index), buf.Dims)
	for i, flat := range index {
		if flat < 0 || flat >= slots {
			return Batch{}, fmt.Errorf("gather: %w: agent %d index %d outside %d slots",
				ErrShapeMismatch, i, flat, slots)
		}
		copy(out.Row(i), buf.Flat(flat))
	}
	return out, nil
}
