// Package recorder writes and reads the binary frame container produced by a
// simulation run.
//
// Layout: the 4-byte magic "EVO1", a little-endian uint32 header length, the
// JSON header, then frames of little-endian float32 values in [agent][dim]
// order. The frame count is not stored; readers derive it from the file size.
package recorder

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/pthm-cable/evolimo/grid"
)

// Magic identifies a recording file.
var Magic = [4]byte{'E', 'V', 'O', '1'}

// Version is the header version written by this package.
const Version = 1

// ErrBadMagic is returned when a file does not start with Magic.
var ErrBadMagic = errors.New("recorder: not an EVO1 file")

// Config describes the recorded state tensor.
type Config struct {
	NAgents     int      `json:"n_agents"`
	StateDims   int      `json:"state_dims"`
	StateLabels []string `json:"state_labels"`
	DT          float32  `json:"dt"`
}

// Playback holds playback hints for readers.
type Playback struct {
	TotalFrames  int    `json:"total_frames"` // requested frame budget, 0 = unbounded
	SaveInterval uint64 `json:"save_interval"`
}

// Header is the JSON header following the magic bytes.
type Header struct {
	Version   uint32   `json:"version"`
	Timestamp string   `json:"timestamp"`
	Config    Config   `json:"config"`
	Playback  Playback `json:"playback"`
}

// NewHeader stamps cfg and playback with the current version and time.
func NewHeader(cfg Config, playback Playback) Header {
	return Header{
		Version:   Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Config:    cfg,
		Playback:  playback,
	}
}

// frameBytes is the encoded size of one frame.
func (h Header) frameBytes() int64 {
	return int64(h.Config.NAgents) * int64(h.Config.StateDims) * 4
}

// Writer appends frames to a recording file.
type Writer struct {
	file          *os.File
	w             *bufio.Writer
	header        Header
	bodyOffset    int64
	frameStride   int
	framesWritten uint64
	scratch       []byte
}

// Create truncates path and writes the magic and header.
func Create(path string, header Header) (*Writer, error) {
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("encoding header: %w", err)
	}
	if uint64(len(headerJSON)) > math.MaxUint32 {
		return nil, fmt.Errorf("header too large to encode length: %d bytes", len(headerJSON))
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating recording: %w", err)
	}
	w := bufio.NewWriter(f)

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(headerJSON)))
	for _, chunk := range [][]byte{Magic[:], lenBuf[:], headerJSON} {
		if _, err := w.Write(chunk); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing header: %w", err)
		}
	}

	return &Writer{
		file:        f,
		w:           w,
		header:      header,
		bodyOffset:  int64(len(Magic) + 4 + len(headerJSON)),
		frameStride: header.Config.NAgents * header.Config.StateDims,
	}, nil
}

// WriteFrame appends one state frame. Its shape must match the header.
func (r *Writer) WriteFrame(state grid.Batch) error {
	cfg := r.header.Config
	if state.N != cfg.NAgents || state.Dims != cfg.StateDims || len(state.Data) != r.frameStride {
		return fmt.Errorf("state shape mismatch: expected (%d, %d), got (%d, %d)",
			cfg.NAgents, cfg.StateDims, state.N, state.Dims)
	}
	return r.writeValues(state.Data)
}

func (r *Writer) writeValues(values []float32) error {
	need := len(values) * 4
	if cap(r.scratch) < need {
		r.scratch = make([]byte, need)
	}
	buf := r.scratch[:need]
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	if _, err := r.w.Write(buf); err != nil {
		return fmt.Errorf("writing frame %d: %w", r.framesWritten, err)
	}
	r.framesWritten++
	return nil
}

// Flush pushes buffered frames to the file.
func (r *Writer) Flush() error {
	if err := r.w.Flush(); err != nil {
		return fmt.Errorf("flushing recording: %w", err)
	}
	return nil
}

// Close flushes and closes the file.
func (r *Writer) Close() error {
	flushErr := r.Flush()
	closeErr := r.file.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// FramesWritten returns the number of frames appended so far.
func (r *Writer) FramesWritten() uint64 {
	return r.framesWritten
}

// Header returns the header written at the start of the file.
func (r *Writer) Header() Header {
	return r.header
}

// BodyOffset returns the byte offset of the first frame.
func (r *Writer) BodyOffset() int64 {
	return r.bodyOffset
}
