package storage

import (
	"encoding/binary"

	ibin "github.com/robert-malhotra/go-cbvs/internal/binary"
)

// encoder writes a sequence of values, keeping the first error.
type encoder struct {
	w   *ibin.Writer
	buf *ibin.Buffer
	err error
}

func newEncoder(order binary.ByteOrder, capacity int) *encoder {
	buf := ibin.NewBuffer(capacity)
	return &encoder{w: ibin.NewWriter(buf, order), buf: buf}
}

func (e *encoder) u8(v uint8) {
	if e.err == nil {
		e.err = e.w.WriteUint8(v)
	}
}

func (e *encoder) u32(v uint32) {
	if e.err == nil {
		e.err = e.w.WriteUint32(v)
	}
}

func (e *encoder) i32(v int) {
	if e.err == nil {
		e.err = e.w.WriteInt32(int32(v))
	}
}

func (e *encoder) u64(v uint64) {
	if e.err == nil {
		e.err = e.w.WriteUint64(v)
	}
}

func (e *encoder) f32(v float32) {
	if e.err == nil {
		e.err = e.w.WriteFloat32(v)
	}
}

func (e *encoder) f64(v float64) {
	if e.err == nil {
		e.err = e.w.WriteFloat64(v)
	}
}

func (e *encoder) str(s string) {
	if e.err == nil {
		e.err = e.w.WriteString(s)
	}
}

func (e *encoder) raw(b []byte) {
	if e.err == nil {
		e.err = e.w.WriteBytes(b)
	}
}

// sealed appends the checksum of everything written so far.
func (e *encoder) sealed() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.u64(ibin.Checksum(e.buf.Bytes()))
	return e.buf.Bytes(), e.err
}

// decoder reads a sequence of values, keeping the first error.
type decoder struct {
	r   *ibin.Reader
	err error
}

func (d *decoder) u8() uint8 {
	if d.err != nil {
		return 0
	}
	var v uint8
	v, d.err = d.r.ReadUint8()
	return v
}

func (d *decoder) u32() uint32 {
	if d.err != nil {
		return 0
	}
	var v uint32
	v, d.err = d.r.ReadUint32()
	return v
}

func (d *decoder) i32() int {
	if d.err != nil {
		return 0
	}
	var v int32
	v, d.err = d.r.ReadInt32()
	return int(v)
}

func (d *decoder) u64() uint64 {
	if d.err != nil {
		return 0
	}
	var v uint64
	v, d.err = d.r.ReadUint64()
	return v
}

func (d *decoder) f32() float32 {
	if d.err != nil {
		return 0
	}
	var v float32
	v, d.err = d.r.ReadFloat32()
	return v
}

func (d *decoder) f64() float64 {
	if d.err != nil {
		return 0
	}
	var v float64
	v, d.err = d.r.ReadFloat64()
	return v
}

func (d *decoder) str() string {
	if d.err != nil {
		return ""
	}
	var v string
	v, d.err = d.r.ReadString()
	return v
}

func (d *decoder) bytes(n int) []byte {
	if d.err != nil {
		return nil
	}
	var v []byte
	v, d.err = d.r.ReadBytes(n)
	return v
}
