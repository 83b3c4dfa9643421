package posinfo

import "fmt"

// BinID identifies a trace position. For 3D data Inl and Crl are the inline
// and crossline numbers; for 2D data Inl is the line key and Crl the trace
// number.
type BinID struct {
	Inl int
	Crl int
}

// String formats the position as "inl/crl".
func (b BinID) String() string {
	return fmt.Sprintf("%d/%d", b.Inl, b.Crl)
}

// Segment is an evenly stepped run of numbers from Start to Stop inclusive.
// Stop-Start is a multiple of Step. A negative Step describes a descending run.
type Segment struct {
	Start int
	Stop  int
	Step  int
}

// NewSegment returns a segment whose Stop is snapped onto the Start+n*Step grid.
func NewSegment(start, stop, step int) Segment {
	if step == 0 {
		return Segment{Start: start, Stop: start, Step: 1}
	}
	n := (stop - start) / step
	if n < 0 {
		n = 0
	}
	return Segment{Start: start, Stop: start + n*step, Step: step}
}

// Size returns the number of positions in the segment.
func (s Segment) Size() int {
	if s.Step == 0 {
		if s.Start == s.Stop {
			return 1
		}
		return 0
	}
	n := (s.Stop-s.Start)/s.Step + 1
	if n < 0 {
		return 0
	}
	return n
}

// AtIndex returns the i-th position of the segment.
func (s Segment) AtIndex(i int) int {
	return s.Start + i*s.Step
}

// IndexOf returns the index of v in the segment, or -1 when v is not one of
// its positions.
func (s Segment) IndexOf(v int) int {
	d := v - s.Start
	if s.Step == 0 {
		if d == 0 {
			return 0
		}
		return -1
	}
	if d%s.Step != 0 {
		return -1
	}
	i := d / s.Step
	if i < 0 || i >= s.Size() {
		return -1
	}
	return i
}

// Includes reports whether v is one of the segment's positions.
func (s Segment) Includes(v int) bool {
	return s.IndexOf(v) >= 0
}

// Min returns the smallest position.
func (s Segment) Min() int {
	return min(s.Start, s.Stop)
}

// Max returns the largest position.
func (s Segment) Max() int {
	return max(s.Start, s.Stop)
}

// Ascending returns the same positions ordered low to high with a positive step.
func (s Segment) Ascending() Segment {
	step := s.Step
	if step < 0 {
		step = -step
	}
	if step == 0 {
		step = 1
	}
	return Segment{Start: s.Min(), Stop: s.Max(), Step: step}
}

// String formats the segment as "[start-stop,step]".
func (s Segment) String() string {
	return fmt.Sprintf("[%d-%d,%d]", s.Start, s.Stop, s.Step)
}

// intersect returns the positions common to a and b as one segment.
// Both inputs must be ascending. The result steps by lcm(a.Step, b.Step).
func intersect(a, b Segment) (Segment, bool) {
	lo := max(a.Start, b.Start)
	hi := min(a.Stop, b.Stop)
	if lo > hi {
		return Segment{}, false
	}
	l := lcm(a.Step, b.Step)

	first := a.Start
	if lo > a.Start {
		first = a.Start + ((lo-a.Start+a.Step-1)/a.Step)*a.Step
	}
	found := false
	for k := 0; k < l/a.Step; k++ {
		x := first + k*a.Step
		if x > hi {
			break
		}
		if b.Includes(x) {
			first = x
			found = true
			break
		}
	}
	if !found {
		return Segment{}, false
	}
	last := first + ((hi-first)/l)*l
	return Segment{Start: first, Stop: last, Step: l}, true
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}

func lcm(a, b int) int {
	return a / gcd(a, b) * b
}

// HorSampling is a rectangular, regularly sampled inline/crossline range.
type HorSampling struct {
	Inl Segment
	Crl Segment
}

// NewHorSampling creates a range from corner positions and steps.
func NewHorSampling(start, stop, step BinID) HorSampling {
	return HorSampling{
		Inl: orient(start.Inl, stop.Inl, step.Inl, false),
		Crl: orient(start.Crl, stop.Crl, step.Crl, false),
	}
}

// Includes reports whether bid lies on the grid inside the range.
func (h HorSampling) Includes(bid BinID) bool {
	return h.Inl.Includes(bid.Inl) && h.Crl.Includes(bid.Crl)
}

// TotalSize returns the number of positions in the range.
func (h HorSampling) TotalSize() int {
	return h.Inl.Size() * h.Crl.Size()
}
