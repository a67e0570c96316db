package grid

import (
	"errors"
	"testing"
)

// labelled returns an h x w buffer, one slot per cell, whose value is 10*h+w.
func labelled(h, w int) *Buffer {
	b := NewBuffer(h, w, 1, 1)
	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			b.Slot(i, j, 0)[0] = float32(10*i + j)
		}
	}
	return b
}

func TestPadZeroIsIdentity(t *testing.T) {
	buf := labelled(3, 4)
	padded, err := Pad(buf, 0)
	if err != nil {
		t.Fatalf("Pad: %v", err)
	}
	if padded != buf {
		t.Error("Pad(buf, 0) should return buf itself")
	}
}

func TestPadWrapsOppositeEdges(t *testing.T) {
	tests := []struct {
		name string
		h, w int
		pad  int
	}{
		{"pad 1", 3, 4, 1},
		{"pad 2", 4, 5, 2},
		{"pad wider than grid", 2, 2, 3},
		{"single cell", 1, 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := labelled(tt.h, tt.w)
			padded, err := Pad(buf, tt.pad)
			if err != nil {
				t.Fatalf("Pad: %v", err)
			}
			if padded.Height != tt.h+2*tt.pad || padded.Width != tt.w+2*tt.pad {
				t.Fatalf("padded shape %dx%d, want %dx%d",
					padded.Height, padded.Width, tt.h+2*tt.pad, tt.w+2*tt.pad)
			}
			for i := 0; i < padded.Height; i++ {
				for j := 0; j < padded.Width; j++ {
					want := buf.Slot(WrapIndex(i-tt.pad, tt.h), WrapIndex(j-tt.pad, tt.w), 0)[0]
					if got := padded.Slot(i, j, 0)[0]; got != want {
						t.Errorf("padded[%d][%d] = %g, want %g", i, j, got, want)
					}
				}
			}
		})
	}
}

func TestPadInteriorAndCorners(t *testing.T) {
	buf := labelled(3, 4)
	padded, err := Pad(buf, 1)
	if err != nil {
		t.Fatalf("Pad: %v", err)
	}

	// Interior reproduces the original.
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			if got, want := padded.Slot(1+i, 1+j, 0)[0], buf.Slot(i, j, 0)[0]; got != want {
				t.Errorf("interior (%d,%d) = %g, want %g", i, j, got, want)
			}
		}
	}

	// Top-left halo corner is the bottom-right cell.
	if got := padded.Slot(0, 0, 0)[0]; got != 23 {
		t.Errorf("top-left corner = %g, want 23", got)
	}
	// Bottom-right halo corner is the top-left cell.
	if got := padded.Slot(4, 5, 0)[0]; got != 0 {
		t.Errorf("bottom-right corner = %g, want 0", got)
	}
}

func TestPadCopiesWholeSlots(t *testing.T) {
	buf := NewBuffer(2, 2, 3, 4)
	for i := range buf.Data {
		buf.Data[i] = float32(i)
	}
	padded, err := Pad(buf, 1)
	if err != nil {
		t.Fatalf("Pad: %v", err)
	}
	// Padded (0, 0) is buf (1, 1).
	got := padded.Cell(0, 0)
	want := buf.Cell(1, 1)
	for k := range want {
		if got[k] != want[k] {
			t.Fatalf("halo cell value %d = %g, want %g", k, got[k], want[k])
		}
	}
}

func TestPadNegative(t *testing.T) {
	if _, err := Pad(labelled(2, 2), -1); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestPadMalformed(t *testing.T) {
	tests := []struct {
		name string
		buf  *Buffer
		pad  int
	}{
		{"nil", nil, 1},
		{"zero size", &Buffer{Capacity: 1, Dims: 1}, 1},
		{"zero size no pad", &Buffer{Capacity: 1, Dims: 1}, 0},
		{"short data", &Buffer{Height: 2, Width: 2, Capacity: 1, Dims: 2, Data: make([]float32, 3)}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Pad(tt.buf, tt.pad); !errors.Is(err, ErrShapeMismatch) {
				t.Errorf("expected ErrShapeMismatch, got %v", err)
			}
		})
	}
}

func TestWindowIsView(t *testing.T) {
	buf := labelled(3, 3)
	padded, err := Pad(buf, 1)
	if err != nil {
		t.Fatalf("Pad: %v", err)
	}
	win := padded.Window(2, 0, 3, 3) // shifted by dy=+1, dx=-1

	if got, want := win.Slot(0, 0, 0)[0], buf.Slot(1, 2, 0)[0]; got != want {
		t.Errorf("window (0,0) = %g, want %g", got, want)
	}

	win.Slot(0, 1, 0)[0] = 99
	if padded.Slot(2, 1, 0)[0] != 99 {
		t.Error("writing through a window should modify the padded buffer")
	}
}
