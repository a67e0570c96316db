package grid

import "fmt"

// Batch is a dense row-major [N][Dims] block of per-agent state.
type Batch struct {
	N    int
	Dims int
	Data []float32
}

// NewBatch allocates a zeroed batch.
func NewBatch(n, dims int) Batch {
	return Batch{N: n, Dims: dims, Data: make([]float32, n*dims)}
}

// Row returns agent i's state vector. The slice aliases the batch.
func (b Batch) Row(i int) []float32 {
	return b.Data[i*b.Dims : (i+1)*b.Dims]
}

// Column copies channel ch of every agent into dst (grown if needed).
func (b Batch) Column(dst []float32, ch int) []float32 {
	if cap(dst) < b.N {
		dst = make([]float32, b.N)
	}
	dst = dst[:b.N]
	for i := range dst {
		dst[i] = b.Data[i*b.Dims+ch]
	}
	return dst
}

func (b Batch) check() error {
	if b.N < 0 || b.Dims <= 0 {
		return fmt.Errorf("%w: batch %dx%d", ErrShapeMismatch, b.N, b.Dims)
	}
	if len(b.Data) != b.N*b.Dims {
		return fmt.Errorf("%w: batch data has %d values, want %d*%d", ErrShapeMismatch, len(b.Data), b.N, b.Dims)
	}
	return nil
}

// Buffer is a dense [Height][Width][Capacity][Dims] grid of slot vectors.
// An empty slot is all zeros.
type Buffer struct {
	Height   int
	Width    int
	Capacity int
	Dims     int
	Data     []float32
}

// NewBuffer allocates a zeroed buffer.
func NewBuffer(height, width, capacity, dims int) *Buffer {
	return &Buffer{
		Height:   height,
		Width:    width,
		Capacity: capacity,
		Dims:     dims,
		Data:     make([]float32, height*width*capacity*dims),
	}
}

func (b *Buffer) check() error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrShapeMismatch)
	}
	if b.Height <= 0 || b.Width <= 0 || b.Capacity <= 0 || b.Dims <= 0 {
		return fmt.Errorf("%w: buffer %dx%dx%dx%d", ErrShapeMismatch, b.Height, b.Width, b.Capacity, b.Dims)
	}
	if len(b.Data) != b.Slots()*b.Dims {
		return fmt.Errorf("%w: buffer data has %d values, want %d*%d", ErrShapeMismatch, len(b.Data), b.Slots(), b.Dims)
	}
	return nil
}

// Slots returns Height*Width*Capacity.
func (b *Buffer) Slots() int {
	return b.Height * b.Width * b.Capacity
}

// Offset returns the index into Data of slot (h, w, c).
func (b *Buffer) Offset(h, w, c int) int {
	return ((h*b.Width+w)*b.Capacity + c) * b.Dims
}

// Slot returns the vector at (h, w, c). The slice aliases the buffer.
func (b *Buffer) Slot(h, w, c int) []float32 {
	off := b.Offset(h, w, c)
	return b.Data[off : off+b.Dims]
}

// Flat returns the vector at a flat slot index, as produced by Scatter.
func (b *Buffer) Flat(i int) []float32 {
	return b.Data[i*b.Dims : (i+1)*b.Dims]
}

// Cell returns the Capacity*Dims block of cell (h, w).
func (b *Buffer) Cell(h, w int) []float32 {
	off := b.Offset(h, w, 0)
	return b.Data[off : off+b.Capacity*b.Dims]
}

// Window returns a view of height x width cells whose (0, 0) is (offY, offX)
// in b. No data is copied.
func (b *Buffer) Window(offY, offX, height, width int) Window {
	return Window{buf: b, offY: offY, offX: offX, Height: height, Width: width}
}

// Window is a zero-copy rectangular view into a Buffer.
type Window struct {
	buf        *Buffer
	offY, offX int

	Height, Width int
}

// Cell returns the Capacity*Dims block of window cell (h, w).
func (w Window) Cell(h, x int) []float32 {
	return w.buf.Cell(h+w.offY, x+w.offX)
}

// Slot returns the vector at window cell (h, w), slot c.
func (w Window) Slot(h, x, c int) []float32 {
	return w.buf.Slot(h+w.offY, x+w.offX, c)
}
