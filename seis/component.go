package seis

import (
	"fmt"
	"strings"
)

// SampleType is the on-disk representation of one sample.
type SampleType uint8

const (
	Int8 SampleType = iota + 1
	Int16
	Int32
	Float32
	Float64
)

// Size returns the sample width in bytes.
func (t SampleType) Size() int {
	switch t {
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

func (t SampleType) String() string {
	switch t {
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
	return fmt.Sprintf("SampleType(%d)", uint8(t))
}

// ParseSampleType parses the names produced by SampleType.String.
func ParseSampleType(s string) (SampleType, error) {
	for t := Int8; t <= Float64; t++ {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: sample type %q", ErrConfiguration, s)
}

// DataChar is a sample type plus its byte order.
type DataChar struct {
	Type      SampleType
	BigEndian bool
}

// DefaultDataChar is little-endian float32.
var DefaultDataChar = DataChar{Type: Float32}

// Role is the meaning of a component's values.
type Role uint8

const (
	RoleAmplitude Role = iota
	RoleDip
	RoleAzimuth
	RoleFrequency
	RoleOther
)

func (r Role) String() string {
	switch r {
	case RoleAmplitude:
		return "amplitude"
	case RoleDip:
		return "dip"
	case RoleAzimuth:
		return "azimuth"
	case RoleFrequency:
		return "frequency"
	}
	return "other"
}

// ComponentDescriptor describes one component of a dataset.
type ComponentDescriptor struct {
	Name     string
	DataChar DataChar
	Role     Role
}

// DefaultComponentName is the name given to unnamed components.
func DefaultComponentName(idx int) string {
	return fmt.Sprintf("Component %d", idx+1)
}

// DefaultComponents returns n float32 amplitude components with default names.
func DefaultComponents(n int) []ComponentDescriptor {
	comps := make([]ComponentDescriptor, n)
	for i := range comps {
		comps[i] = ComponentDescriptor{Name: DefaultComponentName(i), DataChar: DefaultDataChar}
	}
	return comps
}

// ComponentIndex returns the index of the component named name, or -1.
// Names compare case-insensitively.
func ComponentIndex(comps []ComponentDescriptor, name string) int {
	for i, c := range comps {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}
