package recorder

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/pthm-cable/evolimo/grid"
)

// Reader gives random access to the frames of a recording.
type Reader struct {
	file       *os.File
	header     Header
	bodyOffset int64
	frames     int
}

// Open reads and validates the header of the recording at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening recording: %w", err)
	}
	r, err := newReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func newReader(f *os.File) (*Reader, error) {
	var prefix [8]byte
	if _, err := io.ReadFull(f, prefix[:]); err != nil {
		return nil, fmt.Errorf("reading preamble: %w", err)
	}
	if [4]byte(prefix[:4]) != Magic {
		return nil, ErrBadMagic
	}
	headerLen := int64(binary.LittleEndian.Uint32(prefix[4:]))

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat recording: %w", err)
	}
	bodyOffset := int64(len(prefix)) + headerLen
	if bodyOffset > info.Size() {
		return nil, fmt.Errorf("header length %d exceeds file size %d", headerLen, info.Size())
	}

	headerJSON := make([]byte, headerLen)
	if _, err := io.ReadFull(f, headerJSON); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, fmt.Errorf("decoding header: %w", err)
	}

	frames := 0
	if fb := header.frameBytes(); fb > 0 {
		frames = int((info.Size() - bodyOffset) / fb)
	}

	return &Reader{file: f, header: header, bodyOffset: bodyOffset, frames: frames}, nil
}

// Header returns the decoded header.
func (r *Reader) Header() Header {
	return r.header
}

// FrameCount returns the number of complete frames in the file. A trailing
// partial frame, e.g. from an interrupted run, is ignored.
func (r *Reader) FrameCount() int {
	return r.frames
}

// ReadFrame decodes frame i.
func (r *Reader) ReadFrame(i int) (grid.Batch, error) {
	if i < 0 || i >= r.frames {
		return grid.Batch{}, fmt.Errorf("frame %d out of range [0, %d)", i, r.frames)
	}
	cfg := r.header.Config
	fb := r.header.frameBytes()
	buf := make([]byte, fb)
	if _, err := r.file.ReadAt(buf, r.bodyOffset+int64(i)*fb); err != nil {
		return grid.Batch{}, fmt.Errorf("reading frame %d: %w", i, err)
	}

	out := grid.NewBatch(cfg.NAgents, cfg.StateDims)
	for k := range out.Data {
		out.Data[k] = math.Float32frombits(binary.LittleEndian.Uint32(buf[k*4:]))
	}
	return out, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}
