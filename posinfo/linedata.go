package posinfo

import (
	"math"
	"slices"
	"sort"
)

// LineData holds the crossline (or trace number) segments present on one line.
type LineData struct {
	Line     int
	Segments []Segment
}

// NewLineData returns an empty line.
func NewLineData(line int) *LineData {
	return &LineData{Line: line}
}

// Size returns the number of positions on the line.
func (ld *LineData) Size() int {
	n := 0
	for _, seg := range ld.Segments {
		n += seg.Size()
	}
	return n
}

// ascending reports whether the segments run low to high.
func (ld *LineData) ascending() bool {
	n := len(ld.Segments)
	if n < 2 {
		return n == 0 || ld.Segments[0].Step >= 0
	}
	return ld.Segments[0].Min() <= ld.Segments[n-1].Min()
}

// SegmentOf returns the index of the segment containing crl, or -1.
// Segments are binary searched, which relies on them being sorted.
func (ld *LineData) SegmentOf(crl int) int {
	segs := ld.Segments
	n := len(segs)
	var idx int
	if ld.ascending() {
		idx = sort.Search(n, func(i int) bool { return segs[i].Max() >= crl })
	} else {
		idx = sort.Search(n, func(i int) bool { return segs[i].Min() <= crl })
	}
	if idx < n && segs[idx].Includes(crl) {
		return idx
	}
	return -1
}

// Includes reports whether crl is present on the line.
func (ld *LineData) Includes(crl int) bool {
	return ld.SegmentOf(crl) >= 0
}

// Range returns the lowest and highest crossline on the line. Both are 0 for
// an empty line.
func (ld *LineData) Range() (lo, hi int) {
	if len(ld.Segments) == 0 {
		return 0, 0
	}
	lo, hi = math.MaxInt, math.MinInt
	for _, seg := range ld.Segments {
		lo = min(lo, seg.Min())
		hi = max(hi, seg.Max())
	}
	return lo, hi
}

// NearestSegment returns the index of the segment containing x or, when x
// falls in a gap, the segment closest to it. Returns -1 for an empty line.
func (ld *LineData) NearestSegment(x float64) int {
	best, bestDist := -1, math.Inf(1)
	for i, seg := range ld.Segments {
		lo, hi := float64(seg.Min()), float64(seg.Max())
		var dist float64
		switch {
		case x < lo:
			dist = lo - x
		case x > hi:
			dist = x - hi
		}
		if dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}

// IsSorted reports whether the segments are ordered, non-overlapping and
// consistently stepped.
func (ld *LineData) IsSorted() bool {
	asc := ld.ascending()
	for i, seg := range ld.Segments {
		if seg.Size() < 1 {
			return false
		}
		if seg.Size() > 1 && (seg.Step > 0) != asc {
			return false
		}
		if i == 0 {
			continue
		}
		prev := ld.Segments[i-1]
		if asc && prev.Max() >= seg.Min() {
			return false
		}
		if !asc && prev.Min() <= seg.Max() {
			return false
		}
	}
	return true
}

// Positions returns every position on the line in ascending order.
func (ld *LineData) Positions() []int {
	out := make([]int, 0, ld.Size())
	for _, seg := range ld.Segments {
		for i, n := 0, seg.Size(); i < n; i++ {
			out = append(out, seg.AtIndex(i))
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Merge replaces the line's positions with the union (union=true) or the
// intersection (union=false) of its positions and other's. Runs sharing a
// step are coalesced; runs with different steps stay separate segments.
// The result keeps the line's orientation, or other's when the line is empty.
func (ld *LineData) Merge(other *LineData, union bool) {
	desc := !ld.ascending()
	if len(ld.Segments) == 0 {
		desc = !other.ascending()
	}
	a, b := ld.Positions(), other.Positions()
	var merged []int
	if union {
		merged = make([]int, 0, len(a)+len(b))
		i, j := 0, 0
		for i < len(a) || j < len(b) {
			switch {
			case j >= len(b) || (i < len(a) && a[i] < b[j]):
				merged = append(merged, a[i])
				i++
			case i >= len(a) || b[j] < a[i]:
				merged = append(merged, b[j])
				j++
			default:
				merged = append(merged, a[i])
				i++
				j++
			}
		}
	} else {
		i, j := 0, 0
		for i < len(a) && j < len(b) {
			switch {
			case a[i] < b[j]:
				i++
			case b[j] < a[i]:
				j++
			default:
				merged = append(merged, a[i])
				i++
				j++
			}
		}
	}
	ld.Segments = segmentize(merged)
	if desc {
		reverseSegments(ld.Segments)
	}
}

// reverseSegments turns ascending segments into the same positions in
// descending order.
func reverseSegments(segs []Segment) {
	slices.Reverse(segs)
	for i, seg := range segs {
		if seg.Start != seg.Stop {
			segs[i] = Segment{Start: seg.Stop, Stop: seg.Start, Step: -seg.Step}
		}
	}
}

// segmentize groups ascending positions into maximal evenly stepped runs.
func segmentize(pos []int) []Segment {
	var segs []Segment
	for i := 0; i < len(pos); {
		seg := Segment{Start: pos[i], Stop: pos[i], Step: 1}
		j := i + 1
		if j < len(pos) {
			seg.Step = pos[j] - pos[i]
			for j < len(pos) && pos[j]-seg.Stop == seg.Step {
				seg.Stop = pos[j]
				j++
			}
		}
		segs = append(segs, seg)
		i = j
	}
	return segs
}

// Clone returns a deep copy.
func (ld *LineData) Clone() *LineData {
	return &LineData{Line: ld.Line, Segments: slices.Clone(ld.Segments)}
}

// limitTo keeps only the positions inside crl.
func (ld *LineData) limitTo(crl Segment) {
	crl = crl.Ascending()
	asc := ld.ascending()
	out := ld.Segments[:0:0]
	for _, seg := range ld.Segments {
		res, ok := intersect(seg.Ascending(), crl)
		if !ok {
			continue
		}
		if !asc && res.Start != res.Stop {
			res = Segment{Start: res.Stop, Stop: res.Start, Step: -res.Step}
		}
		out = append(out, res)
	}
	ld.Segments = out
}
