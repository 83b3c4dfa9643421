package survey

import (
	"errors"
	"math"

	"github.com/robert-malhotra/go-cbvs/posinfo"
)

// ErrUnknownSurvey is returned when a geometry is requested for a survey
// that has not been defined.
var ErrUnknownSurvey = errors.New("survey: unknown survey")

// Range is an inclusive, evenly stepped integer range as written in
// catalog files.
type Range struct {
	Start int `yaml:"start"`
	Stop  int `yaml:"stop"`
	Step  int `yaml:"step"`
}

// ZRange is a vertical (time or depth) range.
type ZRange struct {
	Start float64 `yaml:"start"`
	Stop  float64 `yaml:"stop"`
	Step  float64 `yaml:"step"`
}

// NrSamples returns the number of steps from Start to Stop, inclusive.
func (z ZRange) NrSamples() int {
	if z.Step <= 0 {
		return 0
	}
	return int(math.Round((z.Stop-z.Start)/z.Step)) + 1
}

// Includes reports whether v lies between Start and Stop, with a tolerance
// of a hundredth of a step.
func (z ZRange) Includes(v float64) bool {
	eps := math.Abs(z.Step) / 100
	lo, hi := min(z.Start, z.Stop), max(z.Start, z.Stop)
	return v >= lo-eps && v <= hi+eps
}

// Geometry is the read-only survey description the trace store falls back on.
type Geometry interface {
	Transform() Transform
	Ranges() posinfo.HorSampling
	ZRange() ZRange
}

// GeometrySource looks up a geometry by survey name.
type GeometrySource interface {
	Geometry(name string) (Geometry, error)
}

// Survey is a static Geometry.
type Survey struct {
	Name string    `yaml:"-"`
	Inl  Range     `yaml:"inl"`
	Crl  Range     `yaml:"crl"`
	Z    ZRange    `yaml:"z"`
	XY   Transform `yaml:"transform"`
}

// Transform implements Geometry.
func (s *Survey) Transform() Transform { return s.XY }

// ZRange implements Geometry.
func (s *Survey) ZRange() ZRange { return s.Z }

// Ranges implements Geometry.
func (s *Survey) Ranges() posinfo.HorSampling {
	return posinfo.NewHorSampling(
		posinfo.BinID{Inl: s.Inl.Start, Crl: s.Crl.Start},
		posinfo.BinID{Inl: s.Inl.Stop, Crl: s.Crl.Stop},
		posinfo.BinID{Inl: s.Inl.Step, Crl: s.Crl.Step},
	)
}
