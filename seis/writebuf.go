package seis

import (
	"cmp"
	"slices"

	"github.com/robert-malhotra/go-cbvs/posinfo"
)

// prepareBlock turns the buffered traces into the sequence to encode.
func (t *Translator) prepareBlock(traces []*Trace) []*Trace {
	if !t.opts.enforceRegular {
		return traces
	}
	slices.SortStableFunc(traces, func(a, b *Trace) int {
		return cmp.Or(
			cmp.Compare(a.Header.Pos.Inl, b.Header.Pos.Inl),
			cmp.Compare(a.Header.Pos.Crl, b.Header.Pos.Crl),
		)
	})
	if t.info.IsPrestack {
		return traces
	}
	traces = t.dedup(traces)
	if !t.regularizing() {
		return traces
	}

	line := traces[0].Header.Pos.Inl
	var out []*Trace
	for _, l := range t.missingLines(line) {
		out = append(out, t.fillerLine(l)...)
	}
	return append(out, t.fillLine(line, traces)...)
}

// dedup keeps one trace per position: the last one written, or with
// stacking the running mean of all of them.
func (t *Translator) dedup(traces []*Trace) []*Trace {
	out := traces[:0]
	n := 0
	for _, tr := range traces {
		if len(out) == 0 || out[len(out)-1].Header.Pos != tr.Header.Pos {
			out = append(out, tr)
			n = 1
			continue
		}
		n++
		prev := out[len(out)-1]
		if t.opts.stack {
			w := 1 / float32(n)
			for c, comp := range tr.Data {
				acc := prev.Data[c]
				for i, v := range comp {
					acc[i] += (v - acc[i]) * w
				}
			}
			prev.Header = tr.Header
			continue
		}
		out[len(out)-1] = tr
	}
	clear(traces[len(out):])
	return out
}

// fillLine merges traces of one line with fillers for the declared
// crosslines they lack. traces must be sorted by crossline.
func (t *Translator) fillLine(line int, traces []*Trace) []*Trace {
	crl := t.declared.Crl.Ascending()
	out := make([]*Trace, 0, max(len(traces), crl.Size()))
	i := 0
	for k, n := 0, crl.Size(); k < n; k++ {
		c := crl.AtIndex(k)
		for i < len(traces) && traces[i].Header.Pos.Crl < c {
			out = append(out, traces[i])
			i++
		}
		if i < len(traces) && traces[i].Header.Pos.Crl == c {
			out = append(out, traces[i])
			i++
			continue
		}
		out = append(out, t.filler(posinfo.BinID{Inl: line, Crl: c}))
	}
	return append(out, traces[i:]...)
}

// fillerLine returns fillers for every declared crossline of line.
func (t *Translator) fillerLine(line int) []*Trace {
	return t.fillLine(line, nil)
}

// declaredLines returns the declared inlines in write order.
func (t *Translator) declaredLines() []int {
	inl := t.declared.Inl.Ascending()
	lines := make([]int, inl.Size())
	for k := range lines {
		lines[k] = inl.AtIndex(k)
	}
	if t.direction() < 0 {
		slices.Reverse(lines)
	}
	return lines
}

// missingLines returns the declared inlines that come before line in write
// order and have not been written: from the declared start on the first
// block, otherwise strictly between the last written line and line.
func (t *Translator) missingLines(line int) []int {
	dir := t.direction()
	var out []int
	for _, l := range t.declaredLines() {
		if dir*(l-line) >= 0 {
			break
		}
		if !t.hasLast || dir*(l-t.lastLine) > 0 {
			out = append(out, l)
		}
	}
	return out
}

// nextDeclaredLine returns the first declared inline after line in write
// order.
func (t *Translator) nextDeclaredLine(line int) (int, bool) {
	dir := t.direction()
	for _, l := range t.declaredLines() {
		if dir*(l-line) > 0 {
			return l, true
		}
	}
	return 0, false
}

func (t *Translator) filler(bid posinfo.BinID) *Trace {
	tr := NewTrace(len(t.wcomps), t.wnrSamples)
	tr.Header.Pos = bid
	tr.Header.Coord = t.Transform().Apply(bid)
	tr.Header.Sampling = t.wsampling
	tr.Header.Filler = true
	return tr
}
