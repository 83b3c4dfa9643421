package seis

import (
	"fmt"
	"math"

	"github.com/robert-malhotra/go-cbvs/posinfo"
	"github.com/robert-malhotra/go-cbvs/survey"
)

// SamplingData is the Z of the first sample and the sample interval.
type SamplingData struct {
	Start float64
	Step  float64
}

// Z returns the Z value of sample index i.
func (s SamplingData) Z(i int) float64 {
	return s.Start + float64(i)*s.Step
}

// Index returns the fractional sample index of z.
func (s SamplingData) Index(z float64) float64 {
	if s.Step == 0 {
		return 0
	}
	return (z - s.Start) / s.Step
}

// ZRange returns the Z range covered by n samples.
func (s SamplingData) ZRange(n int) survey.ZRange {
	return survey.ZRange{Start: s.Start, Stop: s.Z(n - 1), Step: s.Step}
}

// SampleRange is an inclusive range of sample indices.
type SampleRange struct {
	First int
	Last  int
}

// Len returns the number of samples in the range.
func (r SampleRange) Len() int {
	if r.Last < r.First {
		return 0
	}
	return r.Last - r.First + 1
}

// FullRange returns the range covering n samples.
func FullRange(n int) SampleRange {
	return SampleRange{First: 0, Last: n - 1}
}

// SnapRange intersects the requested Z range with the n stored samples and
// snaps both ends to the nearest stored sample. It never extrapolates. A
// request that misses the stored range returns ErrNoRelevantData.
func SnapRange(sd SamplingData, n int, req survey.ZRange) (SampleRange, error) {
	if n < 1 {
		return SampleRange{}, ErrNoRelevantData
	}
	lo, hi := min(req.Start, req.Stop), max(req.Start, req.Stop)
	first := math.Round(sd.Index(lo))
	last := math.Round(sd.Index(hi))
	if sd.Step < 0 {
		first, last = last, first
	}
	if last < 0 || first > float64(n-1) {
		return SampleRange{}, fmt.Errorf("%w: z range %g-%g outside stored %g-%g",
			ErrNoRelevantData, lo, hi, sd.Start, sd.Z(n-1))
	}
	return SampleRange{
		First: int(max(first, 0)),
		Last:  int(min(last, float64(n-1))),
	}, nil
}

// TraceHeader is the per-trace metadata.
type TraceHeader struct {
	// Pos is the inline/crossline, or for 2D data the line key and trace number.
	Pos      posinfo.BinID
	Coord    survey.Coord
	Sampling SamplingData

	Offset  float32
	Azimuth float32
	RefNr   float32
	Pick    float32

	// SeqNr counts traces in read or write order, starting at 1.
	SeqNr int

	// Filler marks a trace synthesized during regularization.
	Filler bool
}

// Trace is a header plus samples, indexed [component][sample].
type Trace struct {
	Header TraceHeader
	Data   [][]float32
}

// NewTrace allocates a zeroed trace.
func NewTrace(nrComps, nrSamples int) *Trace {
	buf := make([]float32, nrComps*nrSamples)
	data := make([][]float32, nrComps)
	for i := range data {
		data[i] = buf[i*nrSamples : (i+1)*nrSamples : (i+1)*nrSamples]
	}
	return &Trace{Data: data}
}

// NrComponents returns the number of components.
func (t *Trace) NrComponents() int {
	return len(t.Data)
}

// NrSamples returns the number of samples per component.
func (t *Trace) NrSamples() int {
	if len(t.Data) == 0 {
		return 0
	}
	return len(t.Data[0])
}

// Clone returns a deep copy.
func (t *Trace) Clone() *Trace {
	out := NewTrace(t.NrComponents(), t.NrSamples())
	out.Header = t.Header
	for i, comp := range t.Data {
		copy(out.Data[i], comp)
	}
	return out
}

// Zero sets every sample to zero.
func (t *Trace) Zero() {
	for _, comp := range t.Data {
		clear(comp)
	}
}
