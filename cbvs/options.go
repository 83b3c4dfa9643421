package cbvs

import (
	"encoding/binary"

	"github.com/rs/zerolog"

	"github.com/robert-malhotra/go-cbvs/internal/layout"
	"github.com/robert-malhotra/go-cbvs/internal/log"
)

// BrickSpec requests vertical bricking: SamplesPerSlab samples per file,
// but never more than MaxSlabs files. The zero value stores whole traces.
type BrickSpec = layout.BrickSpec

// ParseBrickSpec parses a brick spec string such as "H`64`8".
func ParseBrickSpec(s string) (BrickSpec, error) {
	return layout.ParseBrickSpec(s)
}

// AuxField selects optional per-trace header values stored with each trace.
type AuxField = layout.AuxMask

const (
	AuxCoord   = layout.AuxCoord
	AuxOffset  = layout.AuxOffset
	AuxAzimuth = layout.AuxAzimuth
	AuxRefNr   = layout.AuxRefNr
	AuxPick    = layout.AuxPick
)

// Option configures the codec.
type Option func(*options)

type options struct {
	logger      *log.Logger
	brick       BrickSpec
	maxFileSize int64
	directory   bool
	order       binary.ByteOrder
	aux         AuxField
	auxSet      bool
}

func defaultOptions() *options {
	return &options{
		logger: log.Nop(),
		order:  binary.LittleEndian,
	}
}

func buildOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// auxFor returns the header values stored by default: coordinates always,
// offset and azimuth for pre-stack data.
func (o *options) auxFor(prestack bool) AuxField {
	if o.auxSet {
		return o.aux
	}
	if prestack {
		return AuxCoord | AuxOffset | AuxAzimuth
	}
	return AuxCoord
}

// WithLogger sets the logger for file-level events.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = log.FromZerolog(l)
	}
}

// WithBricks stores written datasets as vertical bricks.
func WithBricks(b BrickSpec) Option {
	return func(o *options) {
		o.brick = b
	}
}

// WithMaxFileSize starts a new sibling file at the next inline once a file
// holds n bytes. Zero, the default, never splits. Vertically bricked
// datasets are not split by size.
func WithMaxFileSize(n int64) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxFileSize = n
		}
	}
}

// WithDirectory writes every file of a dataset into a directory named after
// it, however few files there are.
func WithDirectory(on bool) Option {
	return func(o *options) {
		o.directory = on
	}
}

// WithByteOrder sets the byte order of file structures and record headers.
func WithByteOrder(order binary.ByteOrder) Option {
	return func(o *options) {
		if order != nil {
			o.order = order
		}
	}
}

// WithAuxFields selects the header values stored with each written trace.
func WithAuxFields(f AuxField) Option {
	return func(o *options) {
		o.aux, o.auxSet = f, true
	}
}
