package layout

// AuxMask selects the optional per-trace scalars stored in a record.
type AuxMask uint8

const (
	AuxCoord   AuxMask = 1 << iota // x, y as float64
	AuxOffset                      // float32
	AuxAzimuth                     // float32
	AuxRefNr                       // float32
	AuxPick                        // float32
)

// FlagFiller marks a synthesized trace in a record's flags byte.
const FlagFiller = 1

// fixedHeaderSize covers line, trace number and flags.
const fixedHeaderSize = 4 + 4 + 1

// Size returns the number of bytes the selected scalars occupy.
func (m AuxMask) Size() int {
	n := 0
	if m&AuxCoord != 0 {
		n += 16
	}
	for _, f := range []AuxMask{AuxOffset, AuxAzimuth, AuxRefNr, AuxPick} {
		if m&f != 0 {
			n += 4
		}
	}
	return n
}

// Record describes the fixed-size trace record of one file.
type Record struct {
	Aux AuxMask

	// SampleSizes holds the on-disk sample size of each component.
	SampleSizes []int

	// SlabSamples is the number of samples per component stored in the file.
	SlabSamples int
}

// HeaderSize returns the size of the record header, auxiliary scalars included.
func (r Record) HeaderSize() int {
	return fixedHeaderSize + r.Aux.Size()
}

// Size returns the total record size.
func (r Record) Size() int {
	n := r.HeaderSize()
	for _, s := range r.SampleSizes {
		n += s * r.SlabSamples
	}
	return n
}

// ComponentOffset returns the offset of component c's first sample within
// the record.
func (r Record) ComponentOffset(c int) int {
	off := r.HeaderSize()
	for _, s := range r.SampleSizes[:c] {
		off += s * r.SlabSamples
	}
	return off
}

// SampleRange returns the byte offset within the record and the length of
// n samples of component c starting at slab-relative sample index first.
func (r Record) SampleRange(c, first, n int) (off, length int) {
	size := r.SampleSizes[c]
	return r.ComponentOffset(c) + first*size, n * size
}
