package layout

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrShortBuffer is returned by Unmarshal when the input is smaller than the record.
var ErrShortBuffer = errors.New("layout: buffer too short")

// encoder writes little-endian fields at increasing offsets.
type encoder struct {
	buf []byte
	off int
}

func newEncoder(size int) *encoder {
	return &encoder{buf: make([]byte, size)}
}

func (e *encoder) u32(v uint32) {
	binary.LittleEndian.PutUint32(e.buf[e.off:], v)
	e.off += 4
}

func (e *encoder) i32(v int32) { e.u32(uint32(v)) }

func (e *encoder) f32(vs ...float32) {
	for _, v := range vs {
		e.u32(math.Float32bits(v))
	}
}

func (e *encoder) bytes() []byte { return e.buf }

// decoder reads little-endian fields at increasing offsets.
type decoder struct {
	buf []byte
	off int
}

func newDecoder(data []byte, size int, record string) (*decoder, error) {
	if len(data) < size {
		return nil, fmt.Errorf("%w: %s needs %d bytes, got %d", ErrShortBuffer, record, size, len(data))
	}
	return &decoder{buf: data}, nil
}

func (d *decoder) u32() uint32 {
	v := binary.LittleEndian.Uint32(d.buf[d.off:])
	d.off += 4
	return v
}

func (d *decoder) i32() int32 { return int32(d.u32()) }

func (d *decoder) f32(out []float32) {
	for i := range out {
		out[i] = math.Float32frombits(d.u32())
	}
}

func (d *decoder) skip(n int) { d.off += n }
