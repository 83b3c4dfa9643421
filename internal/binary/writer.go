package binary

import (
	"encoding/binary"
	"io"
	"math"
)

// Writer writes fixed-width values to an io.WriterAt at its own position.
type Writer struct {
	w     io.WriterAt
	order binary.ByteOrder
	pos   int64
}

// NewWriter creates a writer at offset 0 using the given byte order.
func NewWriter(w io.WriterAt, order binary.ByteOrder) *Writer {
	if order == nil {
		order = binary.LittleEndian
	}
	return &Writer{w: w, order: order}
}

// At returns a new writer positioned at the given offset.
// The new writer shares the underlying io.WriterAt but has independent position.
func (w *Writer) At(offset int64) *Writer {
	return &Writer{w: w.w, order: w.order, pos: offset}
}

// Pos returns the current write position.
func (w *Writer) Pos() int64 {
	return w.pos
}

// WriteBytes writes the given bytes at the current position.
func (w *Writer) WriteBytes(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	n, err := w.w.WriteAt(data, w.pos)
	w.pos += int64(n)
	return err
}

// WriteUint8 writes an unsigned 8-bit integer.
func (w *Writer) WriteUint8(v uint8) error {
	return w.WriteBytes([]byte{v})
}

// WriteUint16 writes an unsigned 16-bit integer.
func (w *Writer) WriteUint16(v uint16) error {
	buf := make([]byte, 2)
	w.order.PutUint16(buf, v)
	return w.WriteBytes(buf)
}

// WriteUint32 writes an unsigned 32-bit integer.
func (w *Writer) WriteUint32(v uint32) error {
	buf := make([]byte, 4)
	w.order.PutUint32(buf, v)
	return w.WriteBytes(buf)
}

// WriteUint64 writes an unsigned 64-bit integer.
func (w *Writer) WriteUint64(v uint64) error {
	buf := make([]byte, 8)
	w.order.PutUint64(buf, v)
	return w.WriteBytes(buf)
}

// WriteInt32 writes a signed 32-bit integer.
func (w *Writer) WriteInt32(v int32) error {
	return w.WriteUint32(uint32(v))
}

// WriteInt64 writes a signed 64-bit integer.
func (w *Writer) WriteInt64(v int64) error {
	return w.WriteUint64(uint64(v))
}

// WriteFloat32 writes an IEEE 754 single precision value.
func (w *Writer) WriteFloat32(v float32) error {
	return w.WriteUint32(math.Float32bits(v))
}

// WriteFloat64 writes an IEEE 754 double precision value.
func (w *Writer) WriteFloat64(v float64) error {
	return w.WriteUint64(math.Float64bits(v))
}

// WriteString writes a uint32 length-prefixed string.
func (w *Writer) WriteString(s string) error {
	if err := w.WriteUint32(uint32(len(s))); err != nil {
		return err
	}
	return w.WriteBytes([]byte(s))
}

// WriteZeros writes n zero bytes.
func (w *Writer) WriteZeros(n int) error {
	if n <= 0 {
		return nil
	}
	return w.WriteBytes(make([]byte, n))
}

// ByteOrder returns the configured byte order.
func (w *Writer) ByteOrder() binary.ByteOrder {
	return w.order
}

// Buffer is a growable in-memory io.WriterAt and io.ReaderAt. Headers and
// trace records are assembled in a Buffer and written to disk in one call.
type Buffer struct {
	data []byte
}

// NewBuffer returns an empty buffer with the given capacity hint.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{data: make([]byte, 0, capacity)}
}

// WriteAt implements io.WriterAt, growing the buffer as needed.
func (b *Buffer) WriteAt(p []byte, off int64) (int, error) {
	end := int(off) + len(p)
	if end > len(b.data) {
		if end > cap(b.data) {
			grown := make([]byte, end, max(end, 2*cap(b.data)))
			copy(grown, b.data)
			b.data = grown
		} else {
			b.data = b.data[:end]
		}
	}
	return copy(b.data[off:], p), nil
}

// ReadAt implements io.ReaderAt.
func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Bytes returns the buffer contents.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len returns the number of bytes written so far.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Reset empties the buffer, keeping its storage.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
}
