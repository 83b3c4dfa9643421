package cbvs

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/robert-malhotra/go-cbvs/internal/dtype"
	"github.com/robert-malhotra/go-cbvs/internal/log"
	"github.com/robert-malhotra/go-cbvs/internal/storage"
	"github.com/robert-malhotra/go-cbvs/internal/superblock"
	"github.com/robert-malhotra/go-cbvs/posinfo"
	"github.com/robert-malhotra/go-cbvs/seis"
	"github.com/robert-malhotra/go-cbvs/survey"
)

// Name is the format name CBVS registers under.
const Name = seis.DefaultFormat

// Format returns the CBVS format for a seis.FormatRegistry.
func Format(opts ...Option) seis.Format {
	return seis.Format{
		Name: Name,
		New:  func() seis.Codec { return NewCodec(opts...) },
	}
}

// Codec reads or writes one CBVS dataset.
type Codec struct {
	opts *options
	log  *log.Logger
	path string

	rm   *storage.ReadManager
	wm   *storage.WriteManager
	info *storage.Info
	hdr  storage.RecordHeader
}

var (
	_ seis.Codec             = (*Codec)(nil)
	_ seis.LineSeeker        = (*Codec)(nil)
	_ seis.TransformProvider = (*Codec)(nil)
)

// NewCodec returns a codec for a single read or write.
func NewCodec(opts ...Option) *Codec {
	o := buildOptions(opts)
	return &Codec{opts: o, log: o.logger}
}

// ParseHeader opens every file of the dataset at conn.Path.
func (c *Codec) ParseHeader(conn seis.Conn) (*seis.StorageInfo, error) {
	if c.rm != nil || c.wm != nil {
		return nil, fmt.Errorf("%w: codec already open", seis.ErrWrongState)
	}
	c.path = conn.Path
	rm, err := storage.OpenDataset(conn.Path, c.log)
	if err != nil {
		return nil, c.wrap("open", err)
	}
	c.rm, c.info = rm, rm.Info()

	pre := rm.Preamble()
	si := &seis.StorageInfo{
		Components:   componentsFromStorage(c.info.Components),
		Sampling:     seis.SamplingData{Start: c.info.ZStart, Step: c.info.ZStep},
		NrSamples:    c.info.NrSamples,
		Geometry:     rm.Geometry().Clone(),
		TracesPerPos: rm.TracesPerPos(),
		Is2D:         pre.Has(superblock.Flag2D),
		IsPrestack:   pre.Has(superblock.FlagPrestack),
		Text:         c.info.Text,
		SeqNr:        c.info.SeqNr,
	}
	if c.info.Transform != nil {
		t := *c.info.Transform
		si.Transform = &t
	}
	if conn.Is2D != si.Is2D || conn.IsPrestack != si.IsPrestack {
		c.log.Warn("dataset kind differs from connection", "path", conn.Path,
			"2d", si.Is2D, "prestack", si.IsPrestack)
	}
	return si, nil
}

// Prune skips files outside hs or samples.
func (c *Codec) Prune(hs posinfo.HorSampling, samples seis.SampleRange) (int, error) {
	if c.rm == nil {
		return 0, fmt.Errorf("%w: Prune before ParseHeader", seis.ErrWrongState)
	}
	return c.rm.Prune(hs, samples.First, samples.Last), nil
}

// SeekLine moves to the file holding line.
func (c *Codec) SeekLine(line int) error {
	if c.rm == nil {
		return fmt.Errorf("%w: SeekLine before ParseHeader", seis.ErrWrongState)
	}
	return c.wrap("seek", c.rm.SeekLine(line))
}

// Transform returns the transform stored with the dataset.
func (c *Codec) Transform() (survey.Transform, bool) {
	if c.info == nil || c.info.Transform == nil {
		return survey.Transform{}, false
	}
	return *c.info.Transform, true
}

// ReadHeader reads the stored header of trace nr at bid.
func (c *Codec) ReadHeader(bid posinfo.BinID, nr int, hdr *seis.TraceHeader) error {
	if c.rm == nil {
		return fmt.Errorf("%w: ReadHeader before ParseHeader", seis.ErrWrongState)
	}
	if err := c.rm.ReadHeader(bid, nr, &c.hdr); err != nil {
		return c.wrap("read header", err)
	}
	*hdr = seis.TraceHeader{
		Pos:      posinfo.BinID{Inl: c.hdr.Line, Crl: c.hdr.Trace},
		Coord:    survey.Coord{X: c.hdr.X, Y: c.hdr.Y},
		Sampling: seis.SamplingData{Start: c.info.ZStart, Step: c.info.ZStep},
		Offset:   c.hdr.Offset,
		Azimuth:  c.hdr.Azimuth,
		RefNr:    c.hdr.RefNr,
		Pick:     c.hdr.Pick,
		Filler:   c.hdr.Filler,
	}
	return nil
}

// DecodeTrace decodes the selected components and samples of trace nr at bid.
func (c *Codec) DecodeTrace(bid posinfo.BinID, nr int, comps []int, samples seis.SampleRange, dst *seis.Trace) error {
	if c.rm == nil {
		return fmt.Errorf("%w: DecodeTrace before ParseHeader", seis.ErrWrongState)
	}
	if len(dst.Data) < len(comps) {
		return fmt.Errorf("%w: %d components requested, trace holds %d", seis.ErrConfiguration, len(comps), len(dst.Data))
	}
	return c.wrap("read samples", c.rm.ReadSamples(bid, nr, comps, samples.First, samples.Last, dst.Data))
}

// StartWrite creates the first file (or slab files) of the dataset.
func (c *Codec) StartWrite(conn seis.Conn, info *seis.StorageInfo) error {
	if c.rm != nil || c.wm != nil {
		return fmt.Errorf("%w: codec already open", seis.ErrWrongState)
	}
	c.path = conn.Path
	comps, err := componentsToStorage(info.Components)
	if err != nil {
		return err
	}
	c.info = &storage.Info{
		Components: comps,
		ZStart:     info.Sampling.Start,
		ZStep:      info.Sampling.Step,
		NrSamples:  info.NrSamples,
		Aux:        c.opts.auxFor(conn.IsPrestack),
		Brick:      c.opts.brick,
		Text:       info.Text,
		SeqNr:      info.SeqNr,
	}
	if info.Transform != nil && !info.Transform.IsZero() {
		t := *info.Transform
		c.info.Transform = &t
	}
	wm, err := storage.NewWriteManager(storage.WriteOptions{
		Path:        conn.Path,
		Info:        c.info,
		Order:       c.opts.order,
		Is2D:        conn.Is2D,
		Prestack:    conn.IsPrestack,
		MaxFileSize: c.opts.maxFileSize,
		Directory:   c.opts.directory,
		Logger:      c.log,
	})
	if err != nil {
		return c.wrap("create", err)
	}
	c.wm = wm
	return nil
}

// EncodeTrace buffers one trace for the next EnsureConsistency.
func (c *Codec) EncodeTrace(tr *seis.Trace) error {
	if c.wm == nil {
		return fmt.Errorf("%w: EncodeTrace before StartWrite", seis.ErrWrongState)
	}
	h := storage.RecordHeader{
		Line:    tr.Header.Pos.Inl,
		Trace:   tr.Header.Pos.Crl,
		Filler:  tr.Header.Filler,
		X:       tr.Header.Coord.X,
		Y:       tr.Header.Coord.Y,
		Offset:  tr.Header.Offset,
		Azimuth: tr.Header.Azimuth,
		RefNr:   tr.Header.RefNr,
		Pick:    tr.Header.Pick,
	}
	return c.wrap("write", c.wm.Put(&h, tr.Data))
}

// EnsureConsistency writes the buffered traces and commits their positions.
func (c *Codec) EnsureConsistency() error {
	if c.wm == nil {
		return fmt.Errorf("%w: EnsureConsistency before StartWrite", seis.ErrWrongState)
	}
	return c.wrap("commit", c.wm.EnsureConsistency())
}

// Finalize writes the trailers and the file count of every file.
func (c *Codec) Finalize() error {
	if c.wm == nil {
		return fmt.Errorf("%w: Finalize before StartWrite", seis.ErrWrongState)
	}
	if err := c.wm.Finalize(); err != nil {
		return c.wrap("finalize", err)
	}
	c.log.Debug("cbvs dataset finalized", "path", c.path, "files", c.wm.Files(), "id", c.wm.DatasetID().String())
	return nil
}

// Close releases the files. An unfinalized write is abandoned.
func (c *Codec) Close() error {
	var err error
	switch {
	case c.rm != nil:
		err = c.rm.Close()
		c.rm = nil
	case c.wm != nil:
		err = c.wm.Close()
		c.wm = nil
	}
	return c.wrap("close", err)
}

// wrap classifies a storage error for seis callers.
func (c *Codec) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var class error
	switch {
	case errors.Is(err, storage.ErrPruned):
		return fmt.Errorf("%w: %w", seis.ErrNoRelevantData, err)
	case errors.Is(err, storage.ErrMissingSibling):
		class = seis.ErrMissingSiblingFile
	case errors.Is(err, storage.ErrClosed):
		class = seis.ErrWrongState
	case errors.Is(err, storage.ErrOrder), errors.Is(err, storage.ErrLayout):
		class = seis.ErrConfiguration
	case errors.Is(err, superblock.ErrNotCBVS), errors.Is(err, superblock.ErrUnsupportedVersion),
		errors.Is(err, superblock.ErrChecksum), errors.Is(err, superblock.ErrInvalidPreamble):
		class = seis.ErrCorruptHeader
	case op == "open" && errors.Is(err, storage.ErrCorrupt):
		class = seis.ErrCorruptHeader
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		class = seis.ErrBadConnection
	default:
		class = seis.ErrCorruptDataset
	}
	return &seis.CodecError{Op: op, Path: c.path, Err: fmt.Errorf("%w: %w", class, err)}
}

func componentsFromStorage(in []storage.Component) []seis.ComponentDescriptor {
	out := make([]seis.ComponentDescriptor, len(in))
	for i, c := range in {
		out[i] = seis.ComponentDescriptor{
			Name:     c.Name,
			DataChar: seis.DataChar{Type: sampleTypes[c.Kind], BigEndian: c.BigEndian},
			Role:     seis.Role(c.Role),
		}
		if out[i].Name == "" {
			out[i].Name = seis.DefaultComponentName(i)
		}
	}
	return out
}

func componentsToStorage(in []seis.ComponentDescriptor) ([]storage.Component, error) {
	out := make([]storage.Component, len(in))
	for i, c := range in {
		kind, ok := kinds[c.DataChar.Type]
		if !ok {
			return nil, fmt.Errorf("%w: component %q has sample type %v", seis.ErrConfiguration, c.Name, c.DataChar.Type)
		}
		out[i] = storage.Component{Name: c.Name, Kind: kind, BigEndian: c.DataChar.BigEndian, Role: uint8(c.Role)}
	}
	return out, nil
}

var kinds = map[seis.SampleType]dtype.Kind{
	seis.Int8:    dtype.Int8,
	seis.Int16:   dtype.Int16,
	seis.Int32:   dtype.Int32,
	seis.Float32: dtype.Float32,
	seis.Float64: dtype.Float64,
}

var sampleTypes = map[dtype.Kind]seis.SampleType{
	dtype.Int8:    seis.Int8,
	dtype.Int16:   seis.Int16,
	dtype.Int32:   seis.Int32,
	dtype.Float32: seis.Float32,
	dtype.Float64: seis.Float64,
}
