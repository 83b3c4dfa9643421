package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// BrickSpec requests vertical bricking: SamplesPerSlab samples per file, but
// never more than MaxSlabs files. The zero value means trace-major storage.
type BrickSpec struct {
	SamplesPerSlab int
	MaxSlabs       int
}

// IsVertical reports whether the spec asks for more than one slab.
func (b BrickSpec) IsVertical() bool {
	return b.SamplesPerSlab > 0
}

// String formats the spec as an option string, "H`<samples>`<max slabs>".
func (b BrickSpec) String() string {
	if !b.IsVertical() {
		return ""
	}
	return fmt.Sprintf("H`%d`%d", b.SamplesPerSlab, b.MaxSlabs)
}

// ParseBrickSpec parses the option string produced by String. An empty string
// yields the trace-major zero spec.
func ParseBrickSpec(s string) (BrickSpec, error) {
	if s == "" {
		return BrickSpec{}, nil
	}
	parts := strings.Split(s, "`")
	if parts[0] != "H" || len(parts) < 2 || len(parts) > 3 {
		return BrickSpec{}, fmt.Errorf("layout: invalid brick spec %q", s)
	}
	var b BrickSpec
	var err error
	if b.SamplesPerSlab, err = strconv.Atoi(parts[1]); err != nil || b.SamplesPerSlab < 1 {
		return BrickSpec{}, fmt.Errorf("layout: invalid samples per slab in %q", s)
	}
	if len(parts) == 3 {
		if b.MaxSlabs, err = strconv.Atoi(parts[2]); err != nil || b.MaxSlabs < 0 {
			return BrickSpec{}, fmt.Errorf("layout: invalid max slabs in %q", s)
		}
	}
	return b, nil
}

// Slab is a run of N samples starting at sample index First.
type Slab struct {
	First int
	N     int
}

// Last returns the index of the slab's last sample.
func (s Slab) Last() int {
	return s.First + s.N - 1
}

// Overlaps reports whether the slab shares a sample with first..last.
func (s Slab) Overlaps(first, last int) bool {
	return s.First <= last && s.Last() >= first
}

// Slabs partitions nrSamples samples according to spec. Trace-major specs
// yield a single slab. When SamplesPerSlab would need more than MaxSlabs
// slabs the slab size grows to fit.
func Slabs(nrSamples int, spec BrickSpec) []Slab {
	if nrSamples < 1 {
		return nil
	}
	size := nrSamples
	if spec.IsVertical() {
		size = spec.SamplesPerSlab
		if spec.MaxSlabs > 0 && ceilDiv(nrSamples, size) > spec.MaxSlabs {
			size = ceilDiv(nrSamples, spec.MaxSlabs)
		}
	}
	slabs := make([]Slab, 0, ceilDiv(nrSamples, size))
	for first := 0; first < nrSamples; first += size {
		slabs = append(slabs, Slab{First: first, N: min(size, nrSamples-first)})
	}
	return slabs
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
