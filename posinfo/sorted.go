package posinfo

import "slices"

// SortedCubeData is a CubeData whose lines are kept sorted by line number.
type SortedCubeData struct {
	CubeData
}

// NewSortedCubeData returns an empty sorted cube.
func NewSortedCubeData() *SortedCubeData {
	return &SortedCubeData{CubeData{sorted: true}}
}

// Sorted returns a sorted deep copy of c.
func Sorted(c *CubeData) *SortedCubeData {
	s := &SortedCubeData{*c.Clone()}
	s.sorted = true
	slices.SortStableFunc(s.Lines, func(a, b *LineData) int { return a.Line - b.Line })
	return s
}

// Cube returns the underlying CubeData. Lines added through it stay sorted.
func (s *SortedCubeData) Cube() *CubeData {
	return &s.CubeData
}

// Clone returns a deep copy.
func (s *SortedCubeData) Clone() *SortedCubeData {
	return &SortedCubeData{*s.CubeData.Clone()}
}
