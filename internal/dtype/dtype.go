package dtype

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Kind is an on-disk sample type.
type Kind uint8

const (
	Int8 Kind = iota + 1
	Int16
	Int32
	Float32
	Float64
)

// Size returns the number of bytes one sample of kind k occupies.
func (k Kind) Size() int {
	switch k {
	case Int8:
		return 1
	case Int16:
		return 2
	case Int32, Float32:
		return 4
	case Float64:
		return 8
	}
	return 0
}

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	return k.Size() > 0
}

func (k Kind) String() string {
	switch k {
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Encode writes src into dst as samples of kind k. dst must hold at least
// len(src)*k.Size() bytes.
func Encode(dst []byte, src []float32, k Kind, order binary.ByteOrder) error {
	size := k.Size()
	if size == 0 {
		return fmt.Errorf("dtype: unsupported kind %v", k)
	}
	if len(dst) < len(src)*size {
		return fmt.Errorf("dtype: buffer of %d bytes too small for %d %v samples", len(dst), len(src), k)
	}
	switch k {
	case Int8:
		for i, v := range src {
			dst[i] = byte(int8(clampRound(v, math.MinInt8, math.MaxInt8)))
		}
	case Int16:
		for i, v := range src {
			order.PutUint16(dst[i*2:], uint16(int16(clampRound(v, math.MinInt16, math.MaxInt16))))
		}
	case Int32:
		for i, v := range src {
			order.PutUint32(dst[i*4:], uint32(int32(clampRound(v, math.MinInt32, math.MaxInt32))))
		}
	case Float32:
		for i, v := range src {
			order.PutUint32(dst[i*4:], math.Float32bits(v))
		}
	case Float64:
		for i, v := range src {
			order.PutUint64(dst[i*8:], math.Float64bits(float64(v)))
		}
	}
	return nil
}

// Decode reads len(dst) samples of kind k from src.
func Decode(dst []float32, src []byte, k Kind, order binary.ByteOrder) error {
	size := k.Size()
	if size == 0 {
		return fmt.Errorf("dtype: unsupported kind %v", k)
	}
	if len(src) < len(dst)*size {
		return fmt.Errorf("dtype: %d bytes too short for %d %v samples", len(src), len(dst), k)
	}
	switch k {
	case Int8:
		for i := range dst {
			dst[i] = float32(int8(src[i]))
		}
	case Int16:
		for i := range dst {
			dst[i] = float32(int16(order.Uint16(src[i*2:])))
		}
	case Int32:
		for i := range dst {
			dst[i] = float32(int32(order.Uint32(src[i*4:])))
		}
	case Float32:
		for i := range dst {
			dst[i] = math.Float32frombits(order.Uint32(src[i*4:]))
		}
	case Float64:
		for i := range dst {
			dst[i] = float32(math.Float64frombits(order.Uint64(src[i*8:])))
		}
	}
	return nil
}

func clampRound(v float32, lo, hi float64) float64 {
	f := float64(v)
	if math.IsNaN(f) {
		return 0
	}
	f = math.Round(f)
	if f < lo {
		return lo
	}
	if f > hi {
		return hi
	}
	return f
}
