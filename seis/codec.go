package seis

import (
	"fmt"
	"sort"
	"sync"

	"github.com/robert-malhotra/go-cbvs/posinfo"
	"github.com/robert-malhotra/go-cbvs/survey"
)

// Conn identifies the storage a codec opens.
type Conn struct {
	Path       string
	Is2D       bool
	IsPrestack bool
}

// ConnFor returns the connection for a resolved dataset.
func ConnFor(ds survey.Dataset) Conn {
	return Conn{Path: ds.Path, Is2D: ds.Is2D, IsPrestack: ds.IsPrestack}
}

// StorageInfo is what a codec knows about a dataset: parsed from the header
// when reading, supplied by the translator when writing.
type StorageInfo struct {
	Components []ComponentDescriptor
	Sampling   SamplingData
	NrSamples  int

	// Geometry lists the stored positions in storage order. When writing it
	// is nil; the codec builds it from the traces it receives.
	Geometry *posinfo.CubeData

	// TracesPerPos is the number of traces at each position. It is above 1
	// only for pre-stack data.
	TracesPerPos int

	Is2D       bool
	IsPrestack bool

	// Transform is the dataset's own inline/crossline to XY transform, or nil
	// when the survey transform applies.
	Transform *survey.Transform

	Text  string
	SeqNr int
}

// ZRange returns the stored Z range.
func (si *StorageInfo) ZRange() survey.ZRange {
	return si.Sampling.ZRange(si.NrSamples)
}

// Codec is the format-specific half of a Translator. A codec instance serves
// a single read or a single write life-cycle.
type Codec interface {
	// ParseHeader opens conn for reading. Failures wrap ErrBadConnection or
	// ErrCorruptHeader (or ErrCorruptDataset for incomplete multi-file data).
	ParseHeader(conn Conn) (*StorageInfo, error)

	// Prune restricts reading to the stored parts that intersect hs and the
	// sample range, returning how many parts survive. Zero survivors is not
	// an error.
	Prune(hs posinfo.HorSampling, samples SampleRange) (int, error)

	// ReadHeader fills hdr for trace nr at position bid.
	ReadHeader(bid posinfo.BinID, nr int, hdr *TraceHeader) error

	// DecodeTrace decodes the given components and samples of trace nr at
	// bid into dst, whose Data must be len(comps) x samples.Len().
	DecodeTrace(bid posinfo.BinID, nr int, comps []int, samples SampleRange, dst *Trace) error

	// StartWrite creates the storage for conn.
	StartWrite(conn Conn, info *StorageInfo) error

	// EncodeTrace appends one trace.
	EncodeTrace(tr *Trace) error

	// EnsureConsistency commits the traces encoded since the last call. It
	// must be called after every written block.
	EnsureConsistency() error

	// Finalize completes a write.
	Finalize() error

	Close() error
}

// LineSeeker is implemented by codecs that can move to the start of a line
// without stepping through the positions in between.
type LineSeeker interface {
	SeekLine(line int) error
}

// TransformProvider is implemented by codecs that carry their own
// inline/crossline to XY transform.
type TransformProvider interface {
	Transform() (survey.Transform, bool)
}

// Format names a codec implementation.
type Format struct {
	Name string
	New  func() Codec
}

// FormatRegistry maps format names to codec constructors. Build one at
// startup and pass it to whatever opens datasets.
type FormatRegistry struct {
	mu      sync.RWMutex
	formats map[string]Format
}

// NewFormatRegistry returns a registry holding formats.
func NewFormatRegistry(formats ...Format) (*FormatRegistry, error) {
	r := &FormatRegistry{formats: make(map[string]Format)}
	for _, f := range formats {
		if err := r.Register(f); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds f. Names must be unique.
func (r *FormatRegistry) Register(f Format) error {
	if f.Name == "" || f.New == nil {
		return fmt.Errorf("%w: format needs a name and a constructor", ErrConfiguration)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.formats[f.Name]; dup {
		return fmt.Errorf("%w: format %q registered twice", ErrConfiguration, f.Name)
	}
	r.formats[f.Name] = f
	return nil
}

// Lookup returns the format registered under name.
func (r *FormatRegistry) Lookup(name string) (Format, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.formats[name]
	if !ok {
		return Format{}, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
	return f, nil
}

// Names returns the registered names in sorted order.
func (r *FormatRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.formats))
	for name := range r.formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
