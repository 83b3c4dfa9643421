package survey

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/robert-malhotra/go-cbvs/posinfo"
)

// ErrDegenerate is returned when a transform cannot be solved or inverted.
var ErrDegenerate = errors.New("survey: degenerate transform")

// Coord is a world XY location.
type Coord struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Transform maps inline/crossline numbers to XY:
//
//	x = X[0] + X[1]*inl + X[2]*crl
//	y = Y[0] + Y[1]*inl + Y[2]*crl
type Transform struct {
	X [3]float64 `yaml:"x"`
	Y [3]float64 `yaml:"y"`
}

// IsZero reports whether t is the zero transform.
func (t Transform) IsZero() bool {
	return t == Transform{}
}

// IsValid reports whether t can be inverted.
func (t Transform) IsValid() bool {
	return math.Abs(t.det()) > 1e-12
}

func (t Transform) det() float64 {
	return t.X[1]*t.Y[2] - t.X[2]*t.Y[1]
}

// Apply returns the XY location of bid.
func (t Transform) Apply(bid posinfo.BinID) Coord {
	return t.ApplyF(float64(bid.Inl), float64(bid.Crl))
}

// ApplyF returns the XY location of a fractional inline/crossline.
func (t Transform) ApplyF(inl, crl float64) Coord {
	return Coord{
		X: t.X[0] + t.X[1]*inl + t.X[2]*crl,
		Y: t.Y[0] + t.Y[1]*inl + t.Y[2]*crl,
	}
}

// Inverse returns the fractional inline/crossline of c.
func (t Transform) Inverse(c Coord) (inl, crl float64, err error) {
	if !t.IsValid() {
		return 0, 0, ErrDegenerate
	}
	a := mat.NewDense(2, 2, []float64{
		t.X[1], t.X[2],
		t.Y[1], t.Y[2],
	})
	b := mat.NewVecDense(2, []float64{c.X - t.X[0], c.Y - t.Y[0]})
	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}
	return x.AtVec(0), x.AtVec(1), nil
}

// Nearest returns the position closest to c, snapped to the grid of hs when
// hs has a step.
func (t Transform) Nearest(c Coord, hs posinfo.HorSampling) (posinfo.BinID, error) {
	inl, crl, err := t.Inverse(c)
	if err != nil {
		return posinfo.BinID{}, err
	}
	return posinfo.BinID{Inl: snap(inl, hs.Inl), Crl: snap(crl, hs.Crl)}, nil
}

func snap(v float64, seg posinfo.Segment) int {
	if seg.Step == 0 {
		return int(math.Round(v))
	}
	i := math.Round((v - float64(seg.Start)) / float64(seg.Step))
	return seg.Start + int(i)*seg.Step
}

// SolveTransform fits the transform through three non-collinear positions and
// their XY locations.
func SolveTransform(bids [3]posinfo.BinID, coords [3]Coord) (Transform, error) {
	a := mat.NewDense(3, 3, nil)
	bx := mat.NewVecDense(3, nil)
	by := mat.NewVecDense(3, nil)
	for i := range 3 {
		a.SetRow(i, []float64{1, float64(bids[i].Inl), float64(bids[i].Crl)})
		bx.SetVec(i, coords[i].X)
		by.SetVec(i, coords[i].Y)
	}
	if math.Abs(mat.Det(a)) < 1e-12 {
		return Transform{}, fmt.Errorf("%w: positions are collinear", ErrDegenerate)
	}

	var qr mat.QR
	qr.Factorize(a)
	var t Transform
	for _, solve := range []struct {
		dst *[3]float64
		b   *mat.VecDense
	}{{&t.X, bx}, {&t.Y, by}} {
		var x mat.VecDense
		if err := qr.SolveVecTo(&x, false, solve.b); err != nil {
			return Transform{}, fmt.Errorf("%w: %v", ErrDegenerate, err)
		}
		for i := range 3 {
			solve.dst[i] = x.AtVec(i)
		}
	}
	return t, nil
}
