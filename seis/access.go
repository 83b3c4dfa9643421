package seis

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-cbvs/posinfo"
	"github.com/robert-malhotra/go-cbvs/survey"
)

// Reader reads the traces of one dataset in storage order.
type Reader struct {
	ds  survey.Dataset
	tr  *Translator
	buf *Trace
}

// OpenRead resolves id, opens it with the codec registered for its format
// and commits sel (nil selects everything). WithComponents and WithZRange
// narrow what is returned.
func OpenRead(reg *FormatRegistry, resolver survey.Resolver, id string, sel Selection, opts ...Option) (*Reader, error) {
	ds, tr, err := open(reg, resolver, id, opts)
	if err != nil {
		return nil, err
	}
	if err := tr.InitRead(ConnFor(ds)); err != nil {
		return nil, err
	}
	if err := tr.CommitSelections(sel, tr.opts.wanted, tr.opts.z); err != nil && !errors.Is(err, ErrNoRelevantData) {
		_ = tr.Close()
		return nil, err
	}
	return &Reader{ds: ds, tr: tr}, nil
}

func open(reg *FormatRegistry, resolver survey.Resolver, id string, opts []Option) (survey.Dataset, *Translator, error) {
	ds, err := resolver.Resolve(id)
	if err != nil {
		return ds, nil, fmt.Errorf("%w: %w", ErrBadConnection, err)
	}
	o := buildOptions(opts)
	name := ds.Format
	if name == "" {
		name = o.format
	}
	f, err := reg.Lookup(name)
	if err != nil {
		return ds, nil, err
	}
	return ds, NewTranslator(f.New(), opts...), nil
}

// Dataset returns what the dataset id resolved to.
func (r *Reader) Dataset() survey.Dataset { return r.ds }

// Info returns the dataset summary.
func (r *Reader) Info() PacketInfo { return r.tr.PacketInfo() }

// Components returns the components ReadSamples returns.
func (r *Reader) Components() []ComponentDescriptor { return r.tr.Components() }

// Translator exposes the underlying translator.
func (r *Reader) Translator() *Translator { return r.tr }

// NextHeader moves to the next selected trace. It returns ErrEndOfData
// after the last one.
func (r *Reader) NextHeader() (*TraceHeader, error) {
	return r.tr.ReadInfo()
}

// ReadSamples decodes the trace NextHeader moved to. The returned trace is
// reused by the next call.
func (r *Reader) ReadSamples() (*Trace, error) {
	if r.buf == nil {
		r.buf = NewTrace(len(r.tr.comps), r.tr.samples.Len())
	}
	if err := r.tr.ReadDataInto(r.buf); err != nil {
		return nil, err
	}
	return r.buf, nil
}

// TraceAt reads the trace at bid, which must be one of the positions the
// selection kept.
func (r *Reader) TraceAt(bid posinfo.BinID) (*Trace, error) {
	if _, err := r.tr.GoTo(bid); err != nil {
		return nil, err
	}
	return r.ReadSamples()
}

// Close releases the dataset.
func (r *Reader) Close() error {
	return r.tr.Close()
}

// Writer writes the traces of one dataset. Traces of one inline are
// expected together; 2D traces in trace number order.
type Writer struct {
	ds     survey.Dataset
	tr     *Translator
	conn   Conn
	closed bool
}

// OpenWrite resolves id and prepares a writer with the codec registered for
// its format. comps describes the written components and may be nil. geom,
// when not nil, supplies the survey transform and the range regularization
// fills. Storage is created by the first Write.
func OpenWrite(reg *FormatRegistry, resolver survey.Resolver, id string, comps []ComponentDescriptor, geom survey.Geometry, opts ...Option) (*Writer, error) {
	if len(comps) > 0 {
		opts = append(opts, WithOutputComponents(comps...))
	}
	if geom != nil {
		opts = append([]Option{WithGeometry(geom)}, opts...)
	}
	ds, tr, err := open(reg, resolver, id, opts)
	if err != nil {
		return nil, err
	}
	return &Writer{ds: ds, tr: tr, conn: ConnFor(ds)}, nil
}

// Dataset returns what the dataset id resolved to.
func (w *Writer) Dataset() survey.Dataset { return w.ds }

// Write appends tr. The first trace fixes sampling and component count.
func (w *Writer) Write(tr *Trace) error {
	if w.closed {
		return fmt.Errorf("%w: writer is closed", ErrWrongState)
	}
	if w.tr.State() == StateClosed {
		if err := w.tr.InitWrite(w.conn, tr); err != nil {
			return err
		}
	}
	return w.tr.Write(tr)
}

// Written returns the number of traces stored so far, fillers included.
func (w *Writer) Written() int { return w.tr.Written() }

// Close flushes buffered traces and completes the dataset. A writer that
// never received a trace creates nothing. After a failed Close the call can
// be retried.
func (w *Writer) Close() error {
	if err := w.tr.Close(); err != nil {
		return err
	}
	w.closed = true
	return nil
}
