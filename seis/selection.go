package seis

import (
	"math"

	"github.com/robert-malhotra/go-cbvs/posinfo"
	"github.com/robert-malhotra/go-cbvs/survey"
)

// Result is the outcome of testing one position against a Selection.
type Result uint8

const (
	// Accept selects the position.
	Accept Result = iota
	// SkipPosition rejects this position only.
	SkipPosition
	// SkipRestOfLine rejects this and every later position on the same line.
	SkipRestOfLine
)

func (r Result) String() string {
	switch r {
	case Accept:
		return "accept"
	case SkipPosition:
		return "skip-position"
	}
	return "skip-line"
}

// SelType identifies the Selection variant.
type SelType uint8

const (
	SelAll SelType = iota
	SelRange
	SelPolygon
	SelTable
	SelLines
)

// Selection decides which positions a read returns.
type Selection interface {
	Type() SelType
	Test(posinfo.BinID) Result
	// Box returns a rectangle containing every accepted position.
	Box() (posinfo.HorSampling, bool)
	ZRange() (survey.ZRange, bool)
	IsAll() bool
}

// AllPositions accepts everything.
type AllPositions struct{}

func (AllPositions) Type() SelType                    { return SelAll }
func (AllPositions) Test(posinfo.BinID) Result        { return Accept }
func (AllPositions) Box() (posinfo.HorSampling, bool) { return posinfo.HorSampling{}, false }
func (AllPositions) ZRange() (survey.ZRange, bool)    { return survey.ZRange{}, false }
func (AllPositions) IsAll() bool                      { return true }

// RangeBox selects a rectangular inline/crossline range, optionally limited
// in Z.
type RangeBox struct {
	HS posinfo.HorSampling
	Z  *survey.ZRange
}

// NewRangeBox returns a box selection without a Z limit.
func NewRangeBox(start, stop, step posinfo.BinID) *RangeBox {
	return &RangeBox{HS: posinfo.NewHorSampling(start, stop, step)}
}

func (s *RangeBox) Type() SelType { return SelRange }

func (s *RangeBox) Test(bid posinfo.BinID) Result {
	if !s.HS.Inl.Includes(bid.Inl) {
		return SkipRestOfLine
	}
	if !s.HS.Crl.Includes(bid.Crl) {
		return SkipPosition
	}
	return Accept
}

func (s *RangeBox) Box() (posinfo.HorSampling, bool) { return s.HS, true }
func (s *RangeBox) ZRange() (survey.ZRange, bool)    { return zOf(s.Z) }
func (s *RangeBox) IsAll() bool                      { return false }

// Vertex is a polygon corner in inline/crossline space.
type Vertex struct {
	Inl float64
	Crl float64
}

// Polygon selects the positions inside or on a closed polygon.
type Polygon struct {
	Vertices []Vertex
	Z        *survey.ZRange
}

func (s *Polygon) Type() SelType { return SelPolygon }

func (s *Polygon) Test(bid posinfo.BinID) Result {
	if len(s.Vertices) == 0 {
		return SkipRestOfLine
	}
	lo, hi := s.extent()
	x := float64(bid.Inl)
	if x < lo.Inl || x > hi.Inl {
		return SkipRestOfLine
	}
	if inPolygon(s.Vertices, Vertex{Inl: x, Crl: float64(bid.Crl)}) {
		return Accept
	}
	return SkipPosition
}

func (s *Polygon) extent() (lo, hi Vertex) {
	lo = Vertex{math.Inf(1), math.Inf(1)}
	hi = Vertex{math.Inf(-1), math.Inf(-1)}
	for _, v := range s.Vertices {
		lo = Vertex{min(lo.Inl, v.Inl), min(lo.Crl, v.Crl)}
		hi = Vertex{max(hi.Inl, v.Inl), max(hi.Crl, v.Crl)}
	}
	return lo, hi
}

func (s *Polygon) Box() (posinfo.HorSampling, bool) {
	if len(s.Vertices) == 0 {
		return posinfo.HorSampling{}, false
	}
	lo, hi := s.extent()
	return posinfo.NewHorSampling(
		posinfo.BinID{Inl: int(math.Ceil(lo.Inl)), Crl: int(math.Ceil(lo.Crl))},
		posinfo.BinID{Inl: int(math.Floor(hi.Inl)), Crl: int(math.Floor(hi.Crl))},
		posinfo.BinID{Inl: 1, Crl: 1},
	), true
}

func (s *Polygon) ZRange() (survey.ZRange, bool) { return zOf(s.Z) }
func (s *Polygon) IsAll() bool                   { return false }

// inPolygon is an even-odd ray cast that also counts points on an edge as
// inside.
func inPolygon(poly []Vertex, p Vertex) bool {
	inside := false
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if onSegment(a, b, p) {
			return true
		}
		if (a.Crl > p.Crl) != (b.Crl > p.Crl) {
			x := a.Inl + (p.Crl-a.Crl)*(b.Inl-a.Inl)/(b.Crl-a.Crl)
			if p.Inl < x {
				inside = !inside
			}
		}
	}
	return inside
}

func onSegment(a, b, p Vertex) bool {
	cross := (b.Inl-a.Inl)*(p.Crl-a.Crl) - (b.Crl-a.Crl)*(p.Inl-a.Inl)
	if math.Abs(cross) > 1e-9 {
		return false
	}
	return p.Inl >= min(a.Inl, b.Inl) && p.Inl <= max(a.Inl, b.Inl) &&
		p.Crl >= min(a.Crl, b.Crl) && p.Crl <= max(a.Crl, b.Crl)
}

// Table selects an explicit set of positions, each with an optional Z range.
// A zero ZRange means the full trace.
type Table struct {
	Positions map[posinfo.BinID]survey.ZRange
	lines     map[int]struct{}
}

// NewTable returns an empty table selection.
func NewTable() *Table {
	return &Table{Positions: make(map[posinfo.BinID]survey.ZRange), lines: make(map[int]struct{})}
}

// Add selects bid with the given Z range.
func (s *Table) Add(bid posinfo.BinID, z survey.ZRange) {
	s.Positions[bid] = z
	s.lines[bid.Inl] = struct{}{}
}

func (s *Table) Type() SelType { return SelTable }

func (s *Table) Test(bid posinfo.BinID) Result {
	if _, ok := s.Positions[bid]; ok {
		return Accept
	}
	if _, ok := s.lines[bid.Inl]; ok {
		return SkipPosition
	}
	return SkipRestOfLine
}

func (s *Table) Box() (posinfo.HorSampling, bool) {
	if len(s.Positions) == 0 {
		return posinfo.HorSampling{}, false
	}
	lo := posinfo.BinID{Inl: math.MaxInt, Crl: math.MaxInt}
	hi := posinfo.BinID{Inl: math.MinInt, Crl: math.MinInt}
	for bid := range s.Positions {
		lo = posinfo.BinID{Inl: min(lo.Inl, bid.Inl), Crl: min(lo.Crl, bid.Crl)}
		hi = posinfo.BinID{Inl: max(hi.Inl, bid.Inl), Crl: max(hi.Crl, bid.Crl)}
	}
	return posinfo.NewHorSampling(lo, hi, posinfo.BinID{Inl: 1, Crl: 1}), true
}

// ZRange returns the union of the per-position ranges.
func (s *Table) ZRange() (survey.ZRange, bool) {
	var out survey.ZRange
	found := false
	for _, z := range s.Positions {
		if z == (survey.ZRange{}) {
			return survey.ZRange{}, false
		}
		if !found {
			out, found = z, true
			continue
		}
		out.Start = min(out.Start, z.Start)
		out.Stop = max(out.Stop, z.Stop)
	}
	return out, found
}

func (s *Table) IsAll() bool { return false }

// LineSubset selects a trace number range on one 2D line. A zero Trc step
// selects every trace of the line.
type LineSubset struct {
	GeomID int
	Trc    posinfo.Segment
	Z      *survey.ZRange
}

func (s *LineSubset) Type() SelType { return SelLines }

func (s *LineSubset) Test(bid posinfo.BinID) Result {
	if bid.Inl != s.GeomID {
		return SkipRestOfLine
	}
	if s.Trc.Step != 0 && !s.Trc.Includes(bid.Crl) {
		return SkipPosition
	}
	return Accept
}

func (s *LineSubset) Box() (posinfo.HorSampling, bool) {
	if s.Trc.Step == 0 {
		return posinfo.HorSampling{}, false
	}
	return posinfo.HorSampling{
		Inl: posinfo.Segment{Start: s.GeomID, Stop: s.GeomID, Step: 1},
		Crl: s.Trc.Ascending(),
	}, true
}

func (s *LineSubset) ZRange() (survey.ZRange, bool) { return zOf(s.Z) }
func (s *LineSubset) IsAll() bool                   { return false }

func zOf(z *survey.ZRange) (survey.ZRange, bool) {
	if z == nil {
		return survey.ZRange{}, false
	}
	return *z, true
}
