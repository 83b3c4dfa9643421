package storage

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/robert-malhotra/go-cbvs/internal/layout"
)

// RecordHeader is the per-trace part of a record.
type RecordHeader struct {
	Line   int
	Trace  int
	Filler bool

	X, Y    float64
	Offset  float32
	Azimuth float32
	RefNr   float32
	Pick    float32
}

func putRecordHeader(dst []byte, h *RecordHeader, aux layout.AuxMask, order binary.ByteOrder) {
	order.PutUint32(dst[0:], uint32(int32(h.Line)))
	order.PutUint32(dst[4:], uint32(int32(h.Trace)))
	dst[8] = 0
	if h.Filler {
		dst[8] = layout.FlagFiller
	}
	off := 9
	if aux&layout.AuxCoord != 0 {
		order.PutUint64(dst[off:], math.Float64bits(h.X))
		order.PutUint64(dst[off+8:], math.Float64bits(h.Y))
		off += 16
	}
	for _, f := range auxScalars(h) {
		if aux&f.mask != 0 {
			order.PutUint32(dst[off:], math.Float32bits(*f.v))
			off += 4
		}
	}
}

func parseRecordHeader(src []byte, h *RecordHeader, aux layout.AuxMask, order binary.ByteOrder) {
	h.Line = int(int32(order.Uint32(src[0:])))
	h.Trace = int(int32(order.Uint32(src[4:])))
	h.Filler = src[8]&layout.FlagFiller != 0
	off := 9
	if aux&layout.AuxCoord != 0 {
		h.X = math.Float64frombits(order.Uint64(src[off:]))
		h.Y = math.Float64frombits(order.Uint64(src[off+8:]))
		off += 16
	}
	for _, f := range auxScalars(h) {
		if aux&f.mask != 0 {
			*f.v = math.Float32frombits(order.Uint32(src[off:]))
			off += 4
		}
	}
}

type auxScalar struct {
	mask layout.AuxMask
	v    *float32
}

func auxScalars(h *RecordHeader) [4]auxScalar {
	return [4]auxScalar{
		{layout.AuxOffset, &h.Offset},
		{layout.AuxAzimuth, &h.Azimuth},
		{layout.AuxRefNr, &h.RefNr},
		{layout.AuxPick, &h.Pick},
	}
}

func (h *RecordHeader) checkPosition(line, trace int) error {
	if h.Line != line || h.Trace != trace {
		return fmt.Errorf("%w: record holds %d/%d, expected %d/%d", ErrCorrupt, h.Line, h.Trace, line, trace)
	}
	return nil
}
