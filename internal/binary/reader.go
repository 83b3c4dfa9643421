// Package binary provides positioned binary I/O for CBVS headers and trace records.
package binary

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// ErrShortRead is returned when fewer bytes than requested are available.
var ErrShortRead = errors.New("short read")

// ErrStringTooLong is returned when a length-prefixed string exceeds MaxStringLen.
var ErrStringTooLong = errors.New("string length exceeds limit")

// MaxStringLen bounds length-prefixed strings so a corrupt length cannot
// trigger a huge allocation.
const MaxStringLen = 1 << 20

// Reader reads fixed-width values from an io.ReaderAt while tracking its own
// position, so several readers can share one file.
type Reader struct {
	r     io.ReaderAt
	order binary.ByteOrder
	pos   int64
}

// NewReader creates a reader at offset 0 using the given byte order.
func NewReader(r io.ReaderAt, order binary.ByteOrder) *Reader {
	if order == nil {
		order = binary.LittleEndian
	}
	return &Reader{r: r, order: order}
}

// At returns a new reader positioned at the given offset.
// The new reader shares the underlying io.ReaderAt but has independent position.
func (r *Reader) At(offset int64) *Reader {
	return &Reader{r: r.r, order: r.order, pos: offset}
}

// WithOrder returns a reader at the same position using another byte order.
func (r *Reader) WithOrder(order binary.ByteOrder) *Reader {
	return &Reader{r: r.r, order: order, pos: r.pos}
}

// Pos returns the current read position.
func (r *Reader) Pos() int64 {
	return r.pos
}

// ReadBytes reads exactly n bytes from the current position.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if err := r.ReadInto(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadInto fills buf from the current position.
func (r *Reader) ReadInto(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	n, err := r.r.ReadAt(buf, r.pos)
	if n == len(buf) {
		r.pos += int64(n)
		return nil
	}
	if err == nil || err == io.EOF {
		return ErrShortRead
	}
	return err
}

// ReadUint8 reads an unsigned 8-bit integer.
func (r *Reader) ReadUint8() (uint8, error) {
	buf, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadUint16 reads an unsigned 16-bit integer.
func (r *Reader) ReadUint16() (uint16, error) {
	buf, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(buf), nil
}

// ReadUint32 reads an unsigned 32-bit integer.
func (r *Reader) ReadUint32() (uint32, error) {
	buf, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(buf), nil
}

// ReadUint64 reads an unsigned 64-bit integer.
func (r *Reader) ReadUint64() (uint64, error) {
	buf, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return r.order.Uint64(buf), nil
}

// ReadInt32 reads a signed 32-bit integer.
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

// ReadInt64 reads a signed 64-bit integer.
func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

// ReadFloat32 reads an IEEE 754 single precision value.
func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	return math.Float32frombits(v), err
}

// ReadFloat64 reads an IEEE 754 double precision value.
func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadString reads a uint32 length-prefixed string.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return "", err
	}
	if n > MaxStringLen {
		return "", ErrStringTooLong
	}
	buf, err := r.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// Skip advances the position by n bytes.
func (r *Reader) Skip(n int64) {
	r.pos += n
}

// Peek reads n bytes without advancing the position.
func (r *Reader) Peek(n int) ([]byte, error) {
	pos := r.pos
	buf, err := r.ReadBytes(n)
	r.pos = pos
	return buf, err
}

// ByteOrder returns the configured byte order.
func (r *Reader) ByteOrder() binary.ByteOrder {
	return r.order
}
