package posinfo

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	ibin "github.com/robert-malhotra/go-cbvs/internal/binary"
)

// ErrCorrupt is returned when a persisted CubeData cannot be decoded.
var ErrCorrupt = errors.New("posinfo: corrupt cube data")

const (
	lineHeaderSize = 8  // line number + segment count
	segmentSize    = 12 // start, stop, step
	maxBlobSize    = 1 << 30
)

// MarshalBinary encodes the cube little-endian: line count, then per line the
// line number, segment count and each segment's start, stop and step.
func (c *CubeData) MarshalBinary() ([]byte, error) {
	size := 4
	for _, ld := range c.Lines {
		size += lineHeaderSize + segmentSize*len(ld.Segments)
	}
	buf := ibin.NewBuffer(size)
	w := ibin.NewWriter(buf, binary.LittleEndian)
	if err := w.WriteUint32(uint32(len(c.Lines))); err != nil {
		return nil, err
	}
	for _, ld := range c.Lines {
		if err := w.WriteInt32(int32(ld.Line)); err != nil {
			return nil, err
		}
		if err := w.WriteUint32(uint32(len(ld.Segments))); err != nil {
			return nil, err
		}
		for _, seg := range ld.Segments {
			for _, v := range [3]int{seg.Start, seg.Stop, seg.Step} {
				if err := w.WriteInt32(int32(v)); err != nil {
					return nil, err
				}
			}
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary replaces the cube's lines with those decoded from data.
// Line order is kept as stored.
func (c *CubeData) UnmarshalBinary(data []byte) error {
	r := ibin.NewReader(bytes.NewReader(data), binary.LittleEndian)
	nlines, err := r.ReadUint32()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if int64(nlines)*lineHeaderSize > int64(len(data)) {
		return fmt.Errorf("%w: %d lines in %d bytes", ErrCorrupt, nlines, len(data))
	}
	lines := make([]*LineData, 0, nlines)
	for range nlines {
		nr, err := r.ReadInt32()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		nsegs, err := r.ReadUint32()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if int64(nsegs)*segmentSize > int64(len(data))-r.Pos() {
			return fmt.Errorf("%w: line %d claims %d segments", ErrCorrupt, nr, nsegs)
		}
		ld := &LineData{Line: int(nr), Segments: make([]Segment, nsegs)}
		for i := range ld.Segments {
			var v [3]int32
			for j := range v {
				if v[j], err = r.ReadInt32(); err != nil {
					return fmt.Errorf("%w: %v", ErrCorrupt, err)
				}
			}
			if v[2] == 0 {
				return fmt.Errorf("%w: line %d has a zero step", ErrCorrupt, nr)
			}
			ld.Segments[i] = Segment{Start: int(v[0]), Stop: int(v[1]), Step: int(v[2])}
		}
		lines = append(lines, ld)
	}
	c.Lines = lines
	return nil
}

// WriteTo writes the encoded cube preceded by its uint32 byte length.
func (c *CubeData) WriteTo(w io.Writer) (int64, error) {
	data, err := c.MarshalBinary()
	if err != nil {
		return 0, err
	}
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(data)))
	n, err := w.Write(hdr[:])
	if err != nil {
		return int64(n), err
	}
	m, err := w.Write(data)
	return int64(n + m), err
}

// ReadCubeData reads a cube written by WriteTo.
func ReadCubeData(r io.Reader) (*CubeData, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	size := binary.LittleEndian.Uint32(hdr[:])
	if size > maxBlobSize {
		return nil, fmt.Errorf("%w: blob of %d bytes", ErrCorrupt, size)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	cd := NewCubeData()
	if err := cd.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return cd, nil
}
