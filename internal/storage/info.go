package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"

	ibin "github.com/robert-malhotra/go-cbvs/internal/binary"
	"github.com/robert-malhotra/go-cbvs/internal/dtype"
	"github.com/robert-malhotra/go-cbvs/internal/layout"
	"github.com/robert-malhotra/go-cbvs/survey"
)

// Component describes one stored component.
type Component struct {
	Name      string
	Kind      dtype.Kind
	BigEndian bool
	Role      uint8
}

// Order returns the byte order of the component's samples.
func (c Component) Order() binary.ByteOrder {
	if c.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Info is the dataset description repeated in every sibling file.
type Info struct {
	Components []Component
	ZStart     float64
	ZStep      float64
	NrSamples  int
	Aux        layout.AuxMask
	Brick      layout.BrickSpec

	// Transform is the dataset's own inline/crossline to XY transform.
	Transform *survey.Transform

	Text  string
	SeqNr int
}

// SampleSizes returns the on-disk sample size of each component.
func (info *Info) SampleSizes() []int {
	sizes := make([]int, len(info.Components))
	for i, c := range info.Components {
		sizes[i] = c.Kind.Size()
	}
	return sizes
}

// Record returns the record layout of a file holding slabSamples samples.
func (info *Info) Record(slabSamples int) layout.Record {
	return layout.Record{Aux: info.Aux, SampleSizes: info.SampleSizes(), SlabSamples: slabSamples}
}

// Validate checks that the info describes something storable.
func (info *Info) Validate() error {
	if info.NrSamples < 1 {
		return fmt.Errorf("%w: no samples", ErrCorrupt)
	}
	if len(info.Components) == 0 {
		return fmt.Errorf("%w: no components", ErrCorrupt)
	}
	for _, c := range info.Components {
		if !c.Kind.IsValid() {
			return fmt.Errorf("%w: component %q has sample kind %d", ErrCorrupt, c.Name, c.Kind)
		}
	}
	return nil
}

// MarshalInfo encodes info followed by its checksum.
func MarshalInfo(info *Info, order binary.ByteOrder) ([]byte, error) {
	e := newEncoder(order, 256)
	e.u32(uint32(len(info.Components)))
	for _, c := range info.Components {
		e.str(c.Name)
		e.u8(uint8(c.Kind))
		e.u8(boolByte(c.BigEndian))
		e.u8(c.Role)
	}
	e.f64(info.ZStart)
	e.f64(info.ZStep)
	e.u32(uint32(info.NrSamples))
	e.u8(uint8(info.Aux))
	e.u32(uint32(info.Brick.SamplesPerSlab))
	e.u32(uint32(info.Brick.MaxSlabs))
	if info.Transform != nil {
		e.u8(1)
		for _, v := range append(info.Transform.X[:], info.Transform.Y[:]...) {
			e.f64(v)
		}
	} else {
		e.u8(0)
	}
	e.str(info.Text)
	e.u32(uint32(info.SeqNr))
	return e.sealed()
}

// UnmarshalInfo decodes and verifies an encoded info block.
func UnmarshalInfo(data []byte, order binary.ByteOrder) (*Info, error) {
	if len(data) < 8 || !ibin.VerifyChecksum(data[:len(data)-8], order.Uint64(data[len(data)-8:])) {
		return nil, fmt.Errorf("%w: info checksum mismatch", ErrCorrupt)
	}
	d := &decoder{r: ibin.NewReader(bytes.NewReader(data[:len(data)-8]), order)}
	info := &Info{}
	n := d.u32()
	if int(n) > len(data) {
		return nil, fmt.Errorf("%w: %d components", ErrCorrupt, n)
	}
	for range n {
		var c Component
		c.Name = d.str()
		c.Kind = dtype.Kind(d.u8())
		c.BigEndian = d.u8() != 0
		c.Role = d.u8()
		info.Components = append(info.Components, c)
	}
	info.ZStart = d.f64()
	info.ZStep = d.f64()
	info.NrSamples = int(d.u32())
	info.Aux = layout.AuxMask(d.u8())
	info.Brick.SamplesPerSlab = int(d.u32())
	info.Brick.MaxSlabs = int(d.u32())
	if d.u8() != 0 {
		var t survey.Transform
		for i := range t.X {
			t.X[i] = d.f64()
		}
		for i := range t.Y {
			t.Y[i] = d.f64()
		}
		info.Transform = &t
	}
	info.Text = d.str()
	info.SeqNr = int(d.u32())
	if d.err != nil {
		return nil, fmt.Errorf("%w: info block: %v", ErrCorrupt, d.err)
	}
	if err := info.Validate(); err != nil {
		return nil, err
	}
	return info, nil
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
