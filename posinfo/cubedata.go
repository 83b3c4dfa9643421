package posinfo

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

// ErrZeroStep is returned by Generate when a step is zero.
var ErrZeroStep = errors.New("posinfo: zero step")

// ErrInvalid is wrapped by Validate failures.
var ErrInvalid = errors.New("posinfo: invalid cube data")

// Pos is a cursor into a CubeData: line index, segment index within the
// line, and step index within the segment.
type Pos struct {
	Line   int
	Seg    int
	Sample int
}

// ToPreStart puts the cursor before the first position.
func (p *Pos) ToPreStart() { p.Line, p.Seg, p.Sample = 0, 0, -1 }

// ToStart puts the cursor on the first position.
func (p *Pos) ToStart() { p.Line, p.Seg, p.Sample = 0, 0, 0 }

// IsValid reports whether all three indices are non-negative.
func (p Pos) IsValid() bool { return p.Line >= 0 && p.Seg >= 0 && p.Sample >= 0 }

// CubeData is the set of lines present in a dataset, kept in insertion order.
// No two lines share a line number.
type CubeData struct {
	Lines  []*LineData
	sorted bool
}

// NewCubeData returns an empty, unsorted cube.
func NewCubeData() *CubeData {
	return &CubeData{}
}

// Size returns the number of lines.
func (c *CubeData) Size() int {
	return len(c.Lines)
}

// IsEmpty reports whether the cube holds no lines.
func (c *CubeData) IsEmpty() bool {
	return len(c.Lines) == 0
}

// TotalSize returns the number of positions.
func (c *CubeData) TotalSize() int {
	n := 0
	for _, ld := range c.Lines {
		n += ld.Size()
	}
	return n
}

// TotalSizeInside returns the number of positions inside hs.
func (c *CubeData) TotalSizeInside(hs HorSampling) int {
	n := 0
	for _, ld := range c.Lines {
		if !hs.Inl.Includes(ld.Line) {
			continue
		}
		lc := ld.Clone()
		lc.limitTo(hs.Crl)
		n += lc.Size()
	}
	return n
}

// IndexOf returns the index of the line with the given number. When the
// line is absent found is false and idx is where it would be inserted.
// Unsorted cubes scan linearly; sorted cubes binary search.
func (c *CubeData) IndexOf(line int) (idx int, found bool) {
	if c.sorted {
		idx = sort.Search(len(c.Lines), func(i int) bool { return c.Lines[i].Line >= line })
		return idx, idx < len(c.Lines) && c.Lines[idx].Line == line
	}
	for i, ld := range c.Lines {
		if ld.Line == line {
			return i, true
		}
	}
	return len(c.Lines), false
}

// Line returns the line with the given number, or nil.
func (c *CubeData) Line(line int) *LineData {
	if idx, ok := c.IndexOf(line); ok {
		return c.Lines[idx]
	}
	return nil
}

// Add inserts ld. A line number already present is merged into the
// existing line as a union.
func (c *CubeData) Add(ld *LineData) {
	idx, found := c.IndexOf(ld.Line)
	if found {
		c.Lines[idx].Merge(ld, true)
		return
	}
	c.Lines = slices.Insert(c.Lines, idx, ld)
}

// Remove drops the line with the given number.
func (c *CubeData) Remove(line int) bool {
	idx, found := c.IndexOf(line)
	if !found {
		return false
	}
	c.Lines = slices.Delete(c.Lines, idx, idx+1)
	return true
}

// Clear removes all lines.
func (c *CubeData) Clear() {
	c.Lines = nil
}

// Clone returns a deep copy.
func (c *CubeData) Clone() *CubeData {
	out := &CubeData{Lines: make([]*LineData, len(c.Lines)), sorted: c.sorted}
	for i, ld := range c.Lines {
		out.Lines[i] = ld.Clone()
	}
	return out
}

// Includes reports whether bid is present.
func (c *CubeData) Includes(bid BinID) bool {
	ld := c.Line(bid.Inl)
	return ld != nil && ld.Includes(bid.Crl)
}

// Ranges returns the inline and crossline extents as (min, max) pairs.
func (c *CubeData) Ranges() (inl, crl [2]int) {
	for i, ld := range c.Lines {
		lo, hi := ld.Range()
		if i == 0 {
			inl = [2]int{ld.Line, ld.Line}
			crl = [2]int{lo, hi}
			continue
		}
		inl = [2]int{min(inl[0], ld.Line), max(inl[1], ld.Line)}
		crl = [2]int{min(crl[0], lo), max(crl[1], hi)}
	}
	return inl, crl
}

// InlRange returns the ascending inline range and whether the lines are
// exactly the positions of that range.
func (c *CubeData) InlRange() (Segment, bool) {
	if len(c.Lines) == 0 {
		return Segment{Step: 1}, false
	}
	nrs := make([]int, len(c.Lines))
	for i, ld := range c.Lines {
		nrs[i] = ld.Line
	}
	slices.Sort(nrs)
	seg := Segment{Start: nrs[0], Stop: nrs[len(nrs)-1], Step: 1}
	if len(nrs) == 1 {
		return seg, true
	}
	step := 0
	for i := 1; i < len(nrs); i++ {
		d := nrs[i] - nrs[i-1]
		if step == 0 || d < step {
			step = d
		}
	}
	seg.Step = step
	regular := true
	for i := 1; i < len(nrs); i++ {
		if nrs[i]-nrs[i-1] != step {
			regular = false
			break
		}
	}
	return seg, regular
}

// CrlRange returns the ascending crossline range over all lines and whether
// every line holds exactly that one range.
func (c *CubeData) CrlRange() (Segment, bool) {
	if len(c.Lines) == 0 {
		return Segment{Step: 1}, false
	}
	_, crl := c.Ranges()
	seg := Segment{Start: crl[0], Stop: crl[1], Step: 0}
	regular := true
	var ref Segment
	for i, ld := range c.Lines {
		if len(ld.Segments) != 1 {
			regular = false
		}
		for _, s := range ld.Segments {
			a := s.Ascending()
			if a.Size() > 1 && (seg.Step == 0 || a.Step < seg.Step) {
				seg.Step = a.Step
			}
		}
		if len(ld.Segments) == 0 {
			continue
		}
		if i == 0 {
			ref = ld.Segments[0].Ascending()
		} else if ld.Segments[0].Ascending() != ref {
			regular = false
		}
	}
	if seg.Step == 0 {
		seg.Step = 1
	}
	return seg, regular
}

// IsFullyRectAndReg reports whether the cube is exactly a rectangular range.
func (c *CubeData) IsFullyRectAndReg() bool {
	_, inlReg := c.InlRange()
	_, crlReg := c.CrlRange()
	return inlReg && crlReg
}

// HaveInlStepInfo reports whether there is more than one line.
func (c *CubeData) HaveInlStepInfo() bool {
	return len(c.Lines) > 1
}

// HaveCrlStepInfo reports whether any segment holds more than one position.
func (c *CubeData) HaveCrlStepInfo() bool {
	for _, ld := range c.Lines {
		for _, seg := range ld.Segments {
			if seg.Size() > 1 {
				return true
			}
		}
	}
	return false
}

// IsCrlReversed reports whether crosslines are stored in descending order.
func (c *CubeData) IsCrlReversed() bool {
	for _, ld := range c.Lines {
		for _, seg := range ld.Segments {
			if seg.Size() > 1 {
				return seg.Step < 0
			}
		}
	}
	return false
}

// IsInlReversed reports whether lines are stored in descending order.
func (c *CubeData) IsInlReversed() bool {
	return len(c.Lines) > 1 && c.Lines[0].Line > c.Lines[len(c.Lines)-1].Line
}

// IsValid reports whether pos addresses an existing position.
func (c *CubeData) IsValid(pos Pos) bool {
	if !pos.IsValid() || pos.Line >= len(c.Lines) {
		return false
	}
	segs := c.Lines[pos.Line].Segments
	return pos.Seg < len(segs) && pos.Sample < segs[pos.Seg].Size()
}

// ToNext advances pos to the next position and reports whether there is
// one. An invalid pos is treated as before-start.
func (c *CubeData) ToNext(pos *Pos) bool {
	if !pos.IsValid() {
		pos.ToPreStart()
	}
	pos.Sample++
	return c.settle(pos)
}

// ToNextLine moves pos to the first position of the next non-empty line.
func (c *CubeData) ToNextLine(pos *Pos) bool {
	if !pos.IsValid() {
		pos.ToStart()
		return c.settle(pos)
	}
	pos.Line++
	pos.Seg, pos.Sample = 0, 0
	return c.settle(pos)
}

// settle moves pos forward past exhausted segments and empty lines.
func (c *CubeData) settle(pos *Pos) bool {
	for pos.Line < len(c.Lines) {
		segs := c.Lines[pos.Line].Segments
		for pos.Seg < len(segs) {
			if pos.Sample < segs[pos.Seg].Size() {
				return true
			}
			pos.Seg++
			pos.Sample = 0
		}
		pos.Line++
		pos.Seg, pos.Sample = 0, 0
	}
	return false
}

// BinID returns the position pos points at. pos must be valid.
func (c *CubeData) BinID(pos Pos) BinID {
	ld := c.Lines[pos.Line]
	return BinID{Inl: ld.Line, Crl: ld.Segments[pos.Seg].AtIndex(pos.Sample)}
}

// PosOf returns the cursor for bid; the result is invalid when bid is absent.
func (c *CubeData) PosOf(bid BinID) Pos {
	idx, found := c.IndexOf(bid.Inl)
	if !found {
		return Pos{-1, -1, -1}
	}
	ld := c.Lines[idx]
	seg := ld.SegmentOf(bid.Crl)
	if seg < 0 {
		return Pos{idx, -1, -1}
	}
	return Pos{idx, seg, ld.Segments[seg].IndexOf(bid.Crl)}
}

// GlobalIndex returns the 0-based index of pos in iteration order.
func (c *CubeData) GlobalIndex(pos Pos) int {
	n := 0
	for i := 0; i < pos.Line; i++ {
		n += c.Lines[i].Size()
	}
	segs := c.Lines[pos.Line].Segments
	for i := 0; i < pos.Seg; i++ {
		n += segs[i].Size()
	}
	return n + pos.Sample
}

// LimitTo keeps only the positions inside hs. Lines left empty are dropped.
func (c *CubeData) LimitTo(hs HorSampling) {
	out := c.Lines[:0]
	for _, ld := range c.Lines {
		if !hs.Inl.Includes(ld.Line) {
			continue
		}
		ld.limitTo(hs.Crl)
		if len(ld.Segments) > 0 {
			out = append(out, ld)
		}
	}
	clear(c.Lines[len(out):])
	c.Lines = out
}

// Merge replaces the cube with the union (union=true) or intersection
// (union=false) of its positions and other's.
func (c *CubeData) Merge(other *CubeData, union bool) {
	if !union {
		out := c.Lines[:0]
		for _, ld := range c.Lines {
			if o := other.Line(ld.Line); o != nil {
				ld.Merge(o, false)
				if len(ld.Segments) > 0 {
					out = append(out, ld)
				}
			}
		}
		clear(c.Lines[len(out):])
		c.Lines = out
		return
	}
	for _, o := range other.Lines {
		if ld := c.Line(o.Line); ld != nil {
			ld.Merge(o, true)
			continue
		}
		c.Add(o.Clone())
	}
}

// Generate replaces the contents with the rectangular range start..stop.
// Unless allowReversed is set, descending ranges are normalized to
// ascending with positive steps.
func (c *CubeData) Generate(start, stop, step BinID, allowReversed bool) error {
	if step.Inl == 0 || step.Crl == 0 {
		return ErrZeroStep
	}
	inl := orient(start.Inl, stop.Inl, step.Inl, allowReversed)
	crl := orient(start.Crl, stop.Crl, step.Crl, allowReversed)

	c.Lines = make([]*LineData, 0, inl.Size())
	for i, n := 0, inl.Size(); i < n; i++ {
		c.Lines = append(c.Lines, &LineData{Line: inl.AtIndex(i), Segments: []Segment{crl}})
	}
	if c.sorted {
		slices.SortFunc(c.Lines, func(a, b *LineData) int { return a.Line - b.Line })
	}
	return nil
}

func orient(start, stop, step int, allowReversed bool) Segment {
	if step < 0 {
		step = -step
	}
	if !allowReversed || start <= stop {
		return NewSegment(min(start, stop), max(start, stop), step)
	}
	return NewSegment(start, stop, -step)
}

// Validate checks the structural invariants: unique line numbers (sorted for
// a SortedCubeData) and sorted, non-overlapping segments on every line.
func (c *CubeData) Validate() error {
	seen := make(map[int]struct{}, len(c.Lines))
	for i, ld := range c.Lines {
		if _, dup := seen[ld.Line]; dup {
			return fmt.Errorf("%w: line %d present twice", ErrInvalid, ld.Line)
		}
		seen[ld.Line] = struct{}{}
		if c.sorted && i > 0 && c.Lines[i-1].Line > ld.Line {
			return fmt.Errorf("%w: line %d out of order", ErrInvalid, ld.Line)
		}
		for _, seg := range ld.Segments {
			if seg.Step == 0 || (seg.Stop-seg.Start)%seg.Step != 0 || seg.Size() < 1 {
				return fmt.Errorf("%w: line %d has malformed segment %v", ErrInvalid, ld.Line, seg)
			}
		}
		if !ld.IsSorted() {
			return fmt.Errorf("%w: line %d has unsorted or overlapping segments", ErrInvalid, ld.Line)
		}
	}
	return nil
}

// SamePositions reports whether both cubes hold exactly the same positions,
// regardless of line order and segmentation.
func (c *CubeData) SamePositions(other *CubeData) bool {
	if c.TotalSize() != other.TotalSize() {
		return false
	}
	for _, ld := range c.Lines {
		o := other.Line(ld.Line)
		if o == nil {
			if ld.Size() == 0 {
				continue
			}
			return false
		}
		if !slices.Equal(ld.Positions(), o.Positions()) {
			return false
		}
	}
	return true
}

// Equal reports whether both cubes have the same lines in the same order
// with identical segmentation.
func (c *CubeData) Equal(other *CubeData) bool {
	return slices.EqualFunc(c.Lines, other.Lines, func(a, b *LineData) bool {
		return a.Line == b.Line && slices.Equal(a.Segments, b.Segments)
	})
}
