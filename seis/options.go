package seis

import (
	"github.com/rs/zerolog"

	"github.com/robert-malhotra/go-cbvs/internal/log"
	"github.com/robert-malhotra/go-cbvs/posinfo"
	"github.com/robert-malhotra/go-cbvs/survey"
)

// DefaultFormat is the format used when neither the dataset nor the caller
// names one.
const DefaultFormat = "CBVS"

// Default2DWindow is the number of 2D traces buffered per block.
const Default2DWindow = 100

// Option configures a Translator, Reader or Writer.
type Option func(*options)

type options struct {
	logger   *log.Logger
	geometry survey.Geometry
	declared *posinfo.HorSampling
	format   string

	// reading
	wanted []string
	z      *survey.ZRange

	// writing
	components     []ComponentDescriptor
	dataChar       DataChar
	transform      *survey.Transform
	text           string
	enforceRegular bool
	regularize     bool
	stack          bool
	window2D       int
}

func defaultOptions() *options {
	return &options{
		logger:         log.Nop(),
		format:         DefaultFormat,
		dataChar:       DefaultDataChar,
		enforceRegular: true,
		window2D:       Default2DWindow,
	}
}

func buildOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger for life-cycle events.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = log.FromZerolog(l)
	}
}

// WithGeometry sets the survey geometry. Its transform is used when the
// dataset carries none, and its ranges are the declared write range unless
// WithDeclaredRange overrides them.
func WithGeometry(g survey.Geometry) Option {
	return func(o *options) {
		o.geometry = g
	}
}

// WithDeclaredRange sets the rectangular range regularization fills.
func WithDeclaredRange(hs posinfo.HorSampling) Option {
	return func(o *options) {
		o.declared = &hs
	}
}

// WithFormat selects the format for datasets that do not name one.
func WithFormat(name string) Option {
	return func(o *options) {
		o.format = name
	}
}

// WithComponents selects components by name when reading.
func WithComponents(names ...string) Option {
	return func(o *options) {
		o.wanted = names
	}
}

// WithZRange limits reading to a Z range. It takes precedence over the
// selection's own Z range.
func WithZRange(z survey.ZRange) Option {
	return func(o *options) {
		o.z = &z
	}
}

// WithOutputComponents describes the components of written traces. Without
// it components get default names and the WithDataChar sample type.
func WithOutputComponents(comps ...ComponentDescriptor) Option {
	return func(o *options) {
		o.components = comps
	}
}

// WithDataChar sets the on-disk sample type for unnamed output components.
func WithDataChar(dc DataChar) Option {
	return func(o *options) {
		o.dataChar = dc
	}
}

// WithTransform stores t in written datasets, for data whose positions the
// survey transform does not describe.
func WithTransform(t survey.Transform) Option {
	return func(o *options) {
		o.transform = &t
	}
}

// WithText sets the annotation stored with written datasets.
func WithText(text string) Option {
	return func(o *options) {
		o.text = text
	}
}

// WithEnforceRegularWrite sorts and de-duplicates each block before it is
// written. On by default.
func WithEnforceRegularWrite(on bool) Option {
	return func(o *options) {
		o.enforceRegular = on
	}
}

// WithRegularize fills every position of the declared range that received
// no trace with a zero-valued filler trace. Off by default.
func WithRegularize(on bool) Option {
	return func(o *options) {
		o.regularize = on
	}
}

// WithStackDuplicates averages traces written to the same position instead
// of keeping the last one.
func WithStackDuplicates(on bool) Option {
	return func(o *options) {
		o.stack = on
	}
}

// With2DWindow sets the number of 2D traces buffered per block.
func With2DWindow(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.window2D = n
		}
	}
}
