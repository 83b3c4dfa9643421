package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"

	ibin "github.com/robert-malhotra/go-cbvs/internal/binary"
	"github.com/robert-malhotra/go-cbvs/posinfo"
)

// Trailer closes a file: the positions stored in it, in storage order.
type Trailer struct {
	Geometry     *posinfo.CubeData
	TracesPerPos int
	NrRecords    uint64

	// Regular, Inl and Crl summarize Geometry.
	Regular bool
	Inl     posinfo.Segment
	Crl     posinfo.Segment
}

// NewTrailer summarizes cd.
func NewTrailer(cd *posinfo.CubeData, tracesPerPos int, nrRecords uint64) Trailer {
	t := Trailer{Geometry: cd, TracesPerPos: tracesPerPos, NrRecords: nrRecords}
	t.Inl, _ = cd.InlRange()
	t.Crl, _ = cd.CrlRange()
	t.Regular = cd.IsFullyRectAndReg()
	return t
}

// MarshalTrailer encodes t followed by its checksum.
func MarshalTrailer(t Trailer, order binary.ByteOrder) ([]byte, error) {
	blob, err := t.Geometry.MarshalBinary()
	if err != nil {
		return nil, err
	}
	e := newEncoder(order, 64+len(blob))
	e.u8(boolByte(t.Regular))
	for _, s := range []posinfo.Segment{t.Inl, t.Crl} {
		e.i32(s.Start)
		e.i32(s.Stop)
		e.i32(s.Step)
	}
	e.u32(uint32(t.TracesPerPos))
	e.u64(t.NrRecords)
	e.u32(uint32(len(blob)))
	e.raw(blob)
	return e.sealed()
}

// UnmarshalTrailer decodes and verifies an encoded trailer.
func UnmarshalTrailer(data []byte, order binary.ByteOrder) (Trailer, error) {
	var t Trailer
	if len(data) < 8 || !ibin.VerifyChecksum(data[:len(data)-8], order.Uint64(data[len(data)-8:])) {
		return t, fmt.Errorf("%w: trailer checksum mismatch", ErrCorrupt)
	}
	d := &decoder{r: ibin.NewReader(bytes.NewReader(data[:len(data)-8]), order)}
	t.Regular = d.u8() != 0
	for _, s := range []*posinfo.Segment{&t.Inl, &t.Crl} {
		s.Start = d.i32()
		s.Stop = d.i32()
		s.Step = d.i32()
	}
	t.TracesPerPos = int(d.u32())
	t.NrRecords = d.u64()
	blob := d.bytes(int(d.u32()))
	if d.err != nil {
		return t, fmt.Errorf("%w: trailer: %v", ErrCorrupt, d.err)
	}
	t.Geometry = posinfo.NewCubeData()
	if err := t.Geometry.UnmarshalBinary(blob); err != nil {
		return t, fmt.Errorf("%w: trailer geometry: %v", ErrCorrupt, err)
	}
	if t.TracesPerPos < 1 || uint64(t.Geometry.TotalSize()*t.TracesPerPos) != t.NrRecords {
		return t, fmt.Errorf("%w: %d records for %d positions", ErrCorrupt, t.NrRecords, t.Geometry.TotalSize())
	}
	return t, nil
}
