package storage

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/robert-malhotra/go-cbvs/internal/dtype"
	"github.com/robert-malhotra/go-cbvs/internal/layout"
	"github.com/robert-malhotra/go-cbvs/internal/log"
	"github.com/robert-malhotra/go-cbvs/internal/superblock"
	"github.com/robert-malhotra/go-cbvs/posinfo"
)

// WriteOptions configures a WriteManager.
type WriteOptions struct {
	Path     string
	Info     *Info
	Order    binary.ByteOrder
	Is2D     bool
	Prestack bool

	// MaxFileSize starts a new sibling file at the next line once a
	// trace-major file reaches this many bytes. Zero disables splitting.
	MaxFileSize int64

	// Directory forces the directory layout.
	Directory bool

	Logger *log.Logger
}

// orderState tracks the last position handed to Put.
type orderState struct {
	hasLine bool
	line    int
	crl     int
	dir     int
	count   int
}

// WriteManager writes a dataset. Traces are buffered in memory until
// EnsureConsistency, which writes them to the current files and commits
// their positions to the file geometry. Traces put after the last
// EnsureConsistency are lost unless Finalize is called.
type WriteManager struct {
	opts     WriteOptions
	log      *log.Logger
	id       uuid.UUID
	info     []byte
	slabs    []layout.Slab
	recs     []layout.Record
	vertical bool
	dir      bool

	files  []*FileWriter
	done   []string
	fileNr int
	cd     *posinfo.CubeData

	inflight  [][]byte
	sent      []int
	pending   []posinfo.BinID
	nrPending int

	order        orderState
	lines        map[int]struct{}
	tracesPerPos int
	needSplit    bool

	err    error
	closed bool
}

// NewWriteManager creates the first file (or, for vertical bricks, every
// slab file) of a dataset.
func NewWriteManager(opts WriteOptions) (*WriteManager, error) {
	if err := opts.Info.Validate(); err != nil {
		return nil, err
	}
	if opts.Order == nil {
		opts.Order = binary.LittleEndian
	}
	w := &WriteManager{
		opts:  opts,
		log:   opts.Logger,
		id:    uuid.New(),
		slabs: layout.Slabs(opts.Info.NrSamples, opts.Info.Brick),
		lines: make(map[int]struct{}),
	}
	if w.log == nil {
		w.log = log.Nop()
	}
	w.vertical = len(w.slabs) > 1
	w.dir = UseDirLayout(len(w.slabs), opts.Directory)
	for _, s := range w.slabs {
		w.recs = append(w.recs, opts.Info.Record(s.N))
	}
	w.inflight = make([][]byte, len(w.slabs))
	w.sent = make([]int, len(w.slabs))
	if !opts.Prestack {
		w.tracesPerPos = 1
	}

	var err error
	if w.info, err = MarshalInfo(opts.Info, opts.Order); err != nil {
		return nil, err
	}
	if w.dir {
		if err := os.MkdirAll(opts.Path, 0o755); err != nil {
			return nil, err
		}
	}
	if err := w.openFiles(); err != nil {
		return nil, err
	}
	w.log.Debug("write started", "path", opts.Path, "slabs", len(w.slabs), "directory", w.dir)
	return w, nil
}

// DatasetID returns the id shared by the dataset's files.
func (w *WriteManager) DatasetID() uuid.UUID { return w.id }

// Files returns the number of files created so far.
func (w *WriteManager) Files() int { return w.fileNr + len(w.files) }

func (w *WriteManager) flags() uint16 {
	var f uint16
	if w.opts.Is2D {
		f |= superblock.Flag2D
	}
	if w.opts.Prestack {
		f |= superblock.FlagPrestack
	}
	if w.vertical {
		f |= superblock.FlagVertical
	}
	return f
}

func (w *WriteManager) openFiles() error {
	w.files = w.files[:0]
	for i, s := range w.slabs {
		pre := superblock.Preamble{
			ByteOrder:   w.opts.Order,
			Flags:       w.flags(),
			DatasetID:   w.id,
			FileNr:      uint32(w.fileNr + i),
			SlabFirst:   uint32(s.First),
			SlabSamples: uint32(s.N),
		}
		fw, err := CreateFile(SiblingPath(w.opts.Path, w.fileNr+i, w.dir), pre, w.info)
		if err != nil {
			for _, open := range w.files {
				open.Abort()
			}
			return err
		}
		w.files = append(w.files, fw)
	}
	w.cd = posinfo.NewCubeData()
	return nil
}

// Put buffers one trace. Lines must not reappear once left; crosslines
// within a line must run in one direction. Positions repeat only in
// pre-stack data, where every position holds the same number of traces.
func (w *WriteManager) Put(h *RecordHeader, data [][]float32) error {
	if w.closed {
		return ErrClosed
	}
	if w.err != nil {
		return w.err
	}
	comps := w.opts.Info.Components
	if len(data) != len(comps) {
		return fmt.Errorf("%w: %d components, expected %d", ErrLayout, len(data), len(comps))
	}
	for _, d := range data {
		if len(d) != w.opts.Info.NrSamples {
			return fmt.Errorf("%w: %d samples, expected %d", ErrLayout, len(d), w.opts.Info.NrSamples)
		}
	}
	next, tpp, err := w.advance(h.Line, h.Trace)
	if err != nil {
		return err
	}

	for s, slab := range w.slabs {
		rec := w.recs[s]
		start := len(w.inflight[s])
		buf := append(w.inflight[s], make([]byte, rec.Size())...)
		dst := buf[start:]
		putRecordHeader(dst, h, rec.Aux, w.opts.Order)
		for c, comp := range comps {
			off, n := rec.SampleRange(c, 0, slab.N)
			if err := dtype.Encode(dst[off:off+n], data[c][slab.First:slab.First+slab.N], comp.Kind, comp.Order()); err != nil {
				for k := 0; k <= s; k++ {
					w.inflight[k] = w.inflight[k][:w.nrPending*w.recs[k].Size()]
				}
				return err
			}
		}
		w.inflight[s] = buf
	}

	bid := posinfo.BinID{Inl: h.Line, Crl: h.Trace}
	if n := len(w.pending); n == 0 || w.pending[n-1] != bid {
		w.pending = append(w.pending, bid)
	}
	w.nrPending++
	if w.order.hasLine && w.order.line != h.Line {
		w.lines[w.order.line] = struct{}{}
	}
	w.order, w.tracesPerPos = next, tpp
	return nil
}

// advance validates the next position against the order rules.
func (w *WriteManager) advance(line, crl int) (orderState, int, error) {
	s, tpp := w.order, w.tracesPerPos
	endPosition := func() error {
		if !w.opts.Prestack {
			return nil
		}
		if tpp == 0 {
			tpp = s.count
			return nil
		}
		if s.count != tpp {
			return fmt.Errorf("%w: %d traces at %d/%d, expected %d", ErrOrder, s.count, s.line, s.crl, tpp)
		}
		return nil
	}

	if !s.hasLine || line != s.line {
		if _, done := w.lines[line]; done {
			return s, tpp, fmt.Errorf("%w: line %d written before", ErrOrder, line)
		}
		if s.hasLine {
			if err := endPosition(); err != nil {
				return s, tpp, err
			}
		}
		return orderState{hasLine: true, line: line, crl: crl, count: 1}, tpp, nil
	}

	d := crl - s.crl
	switch {
	case d == 0:
		if !w.opts.Prestack {
			return s, tpp, fmt.Errorf("%w: duplicate position %d/%d", ErrOrder, line, crl)
		}
		s.count++
		if tpp > 0 && s.count > tpp {
			return s, tpp, fmt.Errorf("%w: more than %d traces at %d/%d", ErrOrder, tpp, line, crl)
		}
		return s, tpp, nil
	case s.dir != 0 && sign(d) != s.dir:
		return s, tpp, fmt.Errorf("%w: crossline %d breaks the order of line %d", ErrOrder, crl, line)
	}
	if err := endPosition(); err != nil {
		return s, tpp, err
	}
	s.dir, s.crl, s.count = sign(d), crl, 1
	return s, tpp, nil
}

func sign(v int) int {
	if v < 0 {
		return -1
	}
	return 1
}

// EnsureConsistency writes the buffered traces to the current files and
// commits their positions. When the current file has outgrown MaxFileSize
// and the buffered traces start a new line, they go to a new sibling file.
//
// A failed write leaves the traces buffered; calling EnsureConsistency
// again writes them to the files that did not take them yet.
func (w *WriteManager) EnsureConsistency() error {
	if w.closed {
		return ErrClosed
	}
	if w.err != nil {
		return w.err
	}
	return w.commit()
}

func (w *WriteManager) commit() error {
	if len(w.pending) == 0 {
		return nil
	}
	if w.needSplit && w.cd.Size() > 0 && w.pending[0].Inl != w.cd.Lines[len(w.cd.Lines)-1].Line {
		if err := w.rotate(); err != nil {
			w.err = err
			return err
		}
	}
	for s, fw := range w.files {
		size := w.recs[s].Size()
		if err := fw.WriteRecords(w.inflight[s][w.sent[s]*size:], w.nrPending-w.sent[s]); err != nil {
			w.log.Warn("commit interrupted", "path", fw.Path(), "records", w.nrPending, "error", err.Error())
			return err
		}
		w.sent[s] = w.nrPending
	}
	for s := range w.files {
		w.inflight[s] = w.inflight[s][:0]
		w.sent[s] = 0
	}
	for _, bid := range w.pending {
		appendPosition(w.cd, bid)
	}
	w.pending = w.pending[:0]
	w.nrPending = 0

	if !w.vertical && w.opts.MaxFileSize > 0 && w.files[0].Size() >= w.opts.MaxFileSize {
		w.needSplit = true
	}
	return nil
}

// appendPosition adds bid after the last position of cd.
func appendPosition(cd *posinfo.CubeData, bid posinfo.BinID) {
	n := len(cd.Lines)
	if n == 0 || cd.Lines[n-1].Line != bid.Inl {
		cd.Lines = append(cd.Lines, &posinfo.LineData{Line: bid.Inl})
		n++
	}
	ld := cd.Lines[n-1]
	k := len(ld.Segments)
	if k == 0 {
		ld.Segments = append(ld.Segments, posinfo.Segment{Start: bid.Crl, Stop: bid.Crl, Step: 1})
		return
	}
	s := &ld.Segments[k-1]
	switch {
	case bid.Crl == s.Stop:
	case s.Start == s.Stop:
		s.Step = bid.Crl - s.Stop
		s.Stop = bid.Crl
	case bid.Crl-s.Stop == s.Step:
		s.Stop = bid.Crl
	default:
		ld.Segments = append(ld.Segments, posinfo.Segment{Start: bid.Crl, Stop: bid.Crl, Step: 1})
	}
}

func (w *WriteManager) trailer() ([]byte, error) {
	tpp := max(w.tracesPerPos, 1)
	return MarshalTrailer(NewTrailer(w.cd, tpp, w.files[0].Records()), w.opts.Order)
}

func (w *WriteManager) finishFiles(fileCount int) error {
	trailer, err := w.trailer()
	if err != nil {
		return err
	}
	for i, fw := range w.files {
		if err := fw.Finish(trailer, fileCount); err != nil {
			for _, rest := range w.files[i+1:] {
				rest.Abort()
			}
			return err
		}
	}
	return nil
}

func (w *WriteManager) rotate() error {
	if err := w.finishFiles(0); err != nil {
		return err
	}
	for _, fw := range w.files {
		w.done = append(w.done, fw.Path())
	}
	w.log.Info("file split", "path", w.files[0].Path(), "bytes", w.files[0].Size(),
		"lines", w.cd.Size(), "next", w.fileNr+len(w.files))
	w.fileNr += len(w.files)
	w.needSplit = false
	return w.openFiles()
}

// Finalize commits buffered traces, writes every trailer and records the
// final file count in all files.
func (w *WriteManager) Finalize() error {
	if w.closed {
		return ErrClosed
	}
	if w.err != nil {
		return w.err
	}
	if len(w.pending) > 0 {
		if err := w.EnsureConsistency(); err != nil {
			return err
		}
	}
	if w.opts.Prestack && w.order.hasLine {
		switch {
		case w.tracesPerPos == 0:
			w.tracesPerPos = w.order.count
		case w.order.count != w.tracesPerPos:
			return fmt.Errorf("%w: %d traces at %d/%d, expected %d", ErrOrder,
				w.order.count, w.order.line, w.order.crl, w.tracesPerPos)
		}
	}

	total := w.Files()
	w.closed = true
	if err := w.finishFiles(total); err != nil {
		return err
	}
	for _, path := range w.done {
		if err := PatchFileCount(path, total); err != nil {
			return err
		}
	}
	w.log.Debug("write finalized", "path", w.opts.Path, "files", total)
	return nil
}

// Close abandons an unfinalized write. The files written so far stay
// unfinalized and cannot be read.
func (w *WriteManager) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	var first error
	for _, fw := range w.files {
		if err := fw.Abort(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
