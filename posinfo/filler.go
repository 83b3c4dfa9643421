package posinfo

// Filler builds a CubeData from positions added in ascending (line, crl)
// order. Out-of-order input is not detected here; see the package docs.
type Filler struct {
	cd   *CubeData
	ld   *LineData
	seg  Segment
	open bool
}

// NewFiller returns a filler appending to cd.
func NewFiller(cd *CubeData) *Filler {
	return &Filler{cd: cd}
}

// Add appends bid.
func (f *Filler) Add(bid BinID) {
	if f.ld == nil || f.ld.Line != bid.Inl {
		f.finishLine()
		f.ld = &LineData{Line: bid.Inl}
		f.cd.Lines = append(f.cd.Lines, f.ld)
	}
	switch {
	case !f.open:
		f.seg = Segment{Start: bid.Crl, Stop: bid.Crl, Step: 1}
		f.open = true
	case f.seg.Start == f.seg.Stop && bid.Crl > f.seg.Stop:
		f.seg.Step = bid.Crl - f.seg.Stop
		f.seg.Stop = bid.Crl
	case bid.Crl-f.seg.Stop == f.seg.Step:
		f.seg.Stop = bid.Crl
	default:
		f.ld.Segments = append(f.ld.Segments, f.seg)
		f.seg = Segment{Start: bid.Crl, Stop: bid.Crl, Step: 1}
	}
}

// Finish flushes the pending segment. The filler may be reused afterwards.
func (f *Filler) Finish() {
	f.finishLine()
	f.ld = nil
}

func (f *Filler) finishLine() {
	if f.ld != nil && f.open {
		f.ld.Segments = append(f.ld.Segments, f.seg)
	}
	f.open = false
}
