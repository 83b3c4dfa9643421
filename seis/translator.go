package seis

import (
	"errors"
	"fmt"
	"slices"

	"github.com/robert-malhotra/go-cbvs/internal/log"
	"github.com/robert-malhotra/go-cbvs/posinfo"
	"github.com/robert-malhotra/go-cbvs/survey"
)

// State is the life-cycle state of a Translator.
type State uint8

const (
	StateClosed State = iota
	StateReadInitialized
	StatePositioned
	StateExhausted
	StateWriteInitialized
	StateAccumulating
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateReadInitialized:
		return "read-initialized"
	case StatePositioned:
		return "positioned"
	case StateExhausted:
		return "exhausted"
	case StateWriteInitialized:
		return "write-initialized"
	case StateAccumulating:
		return "accumulating"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

func (s State) reading() bool {
	return s == StateReadInitialized || s == StatePositioned || s == StateExhausted
}

func (s State) writing() bool {
	return s == StateWriteInitialized || s == StateAccumulating
}

// PacketInfo summarizes a dataset opened for reading.
type PacketInfo struct {
	Inl, Crl               posinfo.Segment
	InlRegular, CrlRegular bool
	InlReversed            bool
	CrlReversed            bool
	Z                      survey.ZRange
	Geometry               *posinfo.CubeData
	NrPositions            int
	TracesPerPos           int
	Text                   string
	Warnings               []string
}

// Translator runs the read and write life-cycles of one dataset on top of a
// format-specific Codec. It is not safe for concurrent use.
type Translator struct {
	codec Codec
	opts  *options
	log   *log.Logger
	state State
	conn  Conn
	info  *StorageInfo

	packet PacketInfo

	// reading
	sel       Selection
	index     *posinfo.CubeData
	pos       posinfo.Pos
	nr        int
	comps     []int
	samples   SampleRange
	committed bool
	visited   int
	seqNr     int
	hdr       TraceHeader
	hdrValid  bool
	dataRead  bool

	// writing
	wcomps          []ComponentDescriptor
	wsampling       SamplingData
	wnrSamples      int
	declared        *posinfo.HorSampling
	block           writeBlock
	hasLast         bool
	lastLine        int
	lineDir         int
	written         int
	needConsistency bool
	tailFilled      bool
}

// NewTranslator returns a closed translator driving c.
func NewTranslator(c Codec, opts ...Option) *Translator {
	o := buildOptions(opts)
	return &Translator{codec: c, opts: o, log: o.logger}
}

// State returns the current life-cycle state.
func (t *Translator) State() State { return t.state }

// Info returns the storage description, or nil when closed.
func (t *Translator) Info() *StorageInfo { return t.info }

// Visited returns the number of index positions examined while reading.
func (t *Translator) Visited() int { return t.visited }

// Written returns the number of traces handed to the codec, fillers included.
func (t *Translator) Written() int { return t.written }

// PacketInfo returns the summary of the dataset opened for reading.
func (t *Translator) PacketInfo() PacketInfo { return t.packet }

func (t *Translator) wrongState(op string) error {
	return fmt.Errorf("%w: %s in state %v", ErrWrongState, op, t.state)
}

// InitRead opens conn and parses its header. On failure the translator stays
// closed.
func (t *Translator) InitRead(conn Conn) error {
	if t.state != StateClosed {
		return t.wrongState("InitRead")
	}
	info, err := t.codec.ParseHeader(conn)
	if err == nil {
		err = validateInfo(info)
	}
	if err != nil {
		_ = t.codec.Close()
		return err
	}
	if info.TracesPerPos < 1 {
		info.TracesPerPos = 1
	}

	t.conn = conn
	t.info = info
	t.index = info.Geometry
	t.sel = AllPositions{}
	t.comps = make([]int, len(info.Components))
	for i := range t.comps {
		t.comps[i] = i
	}
	t.samples = FullRange(info.NrSamples)
	t.committed = false
	t.visited, t.seqNr, t.nr = 0, 0, 0
	t.hdrValid, t.dataRead = false, false
	t.pos.ToPreStart()
	t.packet = packetInfo(info)
	t.state = StateReadInitialized

	t.log.Debug("opened for read", "path", conn.Path, "positions", t.packet.NrPositions,
		"components", len(info.Components), "samples", info.NrSamples)
	return nil
}

func validateInfo(info *StorageInfo) error {
	switch {
	case info == nil:
		return fmt.Errorf("%w: codec returned no header", ErrCorruptHeader)
	case info.NrSamples < 1:
		return fmt.Errorf("%w: no samples per trace", ErrCorruptHeader)
	case len(info.Components) == 0:
		return fmt.Errorf("%w: no components", ErrCorruptHeader)
	case info.Geometry == nil:
		return fmt.Errorf("%w: no geometry", ErrCorruptHeader)
	}
	return nil
}

func packetInfo(info *StorageInfo) PacketInfo {
	cd := info.Geometry
	p := PacketInfo{
		Z:            info.ZRange(),
		Geometry:     cd,
		NrPositions:  cd.TotalSize(),
		TracesPerPos: info.TracesPerPos,
		Text:         info.Text,
		InlReversed:  cd.IsInlReversed(),
		CrlReversed:  cd.IsCrlReversed(),
	}
	p.Inl, p.InlRegular = cd.InlRange()
	p.Crl, p.CrlRegular = cd.CrlRange()
	if !cd.IsFullyRectAndReg() {
		p.Warnings = append(p.Warnings, "irregular geometry")
	}
	return p
}

// CommitSelections fixes what later reads return: the positions accepted by
// sel, the components named in wanted (all when empty) and the Z range z
// (the selection's own, or everything, when nil). It must be called before
// the first read; reading without it commits everything.
//
// The requested Z range is snapped to the stored sample grid. When the
// stored geometry is irregular, or sel is a RangeBox, the position index is
// pruned up front so reads never visit positions outside the selection.
func (t *Translator) CommitSelections(sel Selection, wanted []string, z *survey.ZRange) error {
	if t.state != StateReadInitialized || t.visited > 0 {
		return t.wrongState("CommitSelections")
	}
	if sel == nil {
		sel = AllPositions{}
	}
	if t.info.Is2D && sel.Type() == SelTable {
		// 2D positions on disk are trace numbers, not map positions.
		sel = AllPositions{}
	}

	comps, err := t.matchComponents(wanted)
	if err != nil {
		return err
	}

	samples := FullRange(t.info.NrSamples)
	req, hasZ := sel.ZRange()
	if z != nil {
		req, hasZ = *z, true
	}
	if hasZ {
		if samples, err = SnapRange(t.info.Sampling, t.info.NrSamples, req); err != nil {
			t.state = StateExhausted
			return err
		}
	}

	index := t.info.Geometry
	box, hasBox := sel.Box()
	if hasBox && (sel.Type() == SelRange || !t.packet.InlRegular || !t.packet.CrlRegular) {
		index = index.Clone()
		index.LimitTo(box)
	}
	if !hasBox {
		box = fullBox(t.info.Geometry)
	}
	survivors, err := t.codec.Prune(box, samples)
	if err != nil {
		return err
	}

	t.sel, t.comps, t.samples, t.index = sel, comps, samples, index
	t.committed = true
	t.log.Debug("selection committed", "selection", sel.Type(), "components", len(comps),
		"first_sample", samples.First, "last_sample", samples.Last,
		"positions", index.TotalSize(), "survivors", survivors)

	if survivors == 0 || index.IsEmpty() {
		t.state = StateExhausted
		return ErrNoRelevantData
	}
	return nil
}

func (t *Translator) matchComponents(wanted []string) ([]int, error) {
	if len(wanted) == 0 {
		return slices.Clone(t.comps), nil
	}
	var comps []int
	for _, name := range wanted {
		idx := ComponentIndex(t.info.Components, name)
		if idx >= 0 && !slices.Contains(comps, idx) {
			comps = append(comps, idx)
		}
	}
	if len(comps) == 0 {
		return nil, fmt.Errorf("%w: none of %q present", ErrNoMatchingComponents, wanted)
	}
	return comps, nil
}

func fullBox(cd *posinfo.CubeData) posinfo.HorSampling {
	inl, crl := cd.Ranges()
	return posinfo.NewHorSampling(
		posinfo.BinID{Inl: inl[0], Crl: crl[0]},
		posinfo.BinID{Inl: inl[1], Crl: crl[1]},
		posinfo.BinID{Inl: 1, Crl: 1},
	)
}

// Components returns the descriptors of the components reads return.
func (t *Translator) Components() []ComponentDescriptor {
	if t.info == nil {
		return nil
	}
	out := make([]ComponentDescriptor, len(t.comps))
	for i, c := range t.comps {
		out[i] = t.info.Components[c]
	}
	return out
}

// SampleRange returns the sample indices reads return.
func (t *Translator) SampleRange() SampleRange { return t.samples }

// Transform returns the inline/crossline to XY transform of the open
// dataset: the codec's own when it has one, otherwise the survey's.
func (t *Translator) Transform() survey.Transform {
	if tp, ok := t.codec.(TransformProvider); ok {
		if tr, ok := tp.Transform(); ok {
			return tr
		}
	}
	if t.info != nil && t.info.Transform != nil {
		return *t.info.Transform
	}
	if t.opts.transform != nil {
		return *t.opts.transform
	}
	if t.opts.geometry != nil {
		return t.opts.geometry.Transform()
	}
	return survey.Transform{}
}

func (t *Translator) ensureCommitted() error {
	if t.committed {
		return nil
	}
	return t.CommitSelections(nil, t.opts.wanted, t.opts.z)
}

// ReadInfo moves to the next selected trace and returns its header.
// ErrEndOfData ends the iteration. After any other error the cursor stays on
// the last trace read successfully, so the call can be retried.
func (t *Translator) ReadInfo() (*TraceHeader, error) {
	switch {
	case t.state == StateExhausted:
		return nil, ErrEndOfData
	case !t.state.reading():
		return nil, t.wrongState("ReadInfo")
	}
	if err := t.ensureCommitted(); err != nil {
		return nil, err
	}

	pos, nr, visited := t.pos, t.nr, t.visited
	bid, ok, err := t.advance()
	if err == nil && ok {
		err = t.loadHeader(bid)
	}
	if err != nil {
		t.pos, t.nr, t.visited = pos, nr, visited
		return nil, err
	}
	if !ok {
		t.state = StateExhausted
		return nil, ErrEndOfData
	}
	t.state = StatePositioned
	hdr := t.hdr
	return &hdr, nil
}

func (t *Translator) loadHeader(bid posinfo.BinID) error {
	var hdr TraceHeader
	if err := t.codec.ReadHeader(bid, t.nr, &hdr); err != nil {
		return err
	}
	hdr.Pos = bid
	hdr.Sampling.Start = t.info.Sampling.Z(t.samples.First)
	hdr.Sampling.Step = t.info.Sampling.Step
	if hdr.Coord == (survey.Coord{}) {
		hdr.Coord = t.Transform().Apply(bid)
	}
	t.seqNr++
	hdr.SeqNr = t.seqNr
	t.hdr = hdr
	t.hdrValid = true
	t.dataRead = false
	return nil
}

// advance moves the cursor to the next accepted trace.
func (t *Translator) advance() (posinfo.BinID, bool, error) {
	if t.state == StatePositioned && t.nr+1 < t.info.TracesPerPos {
		t.nr++
		return t.index.BinID(t.pos), true, nil
	}
	t.nr = 0
	if !t.index.ToNext(&t.pos) {
		return posinfo.BinID{}, false, nil
	}
	for {
		t.visited++
		bid := t.index.BinID(t.pos)
		switch t.sel.Test(bid) {
		case Accept:
			return bid, true, nil
		case SkipPosition:
			if !t.index.ToNext(&t.pos) {
				return posinfo.BinID{}, false, nil
			}
		case SkipRestOfLine:
			ok, err := t.skipLine(bid.Inl)
			if err != nil || !ok {
				return posinfo.BinID{}, false, err
			}
		}
	}
}

// skipLine leaves the cursor on the first position after line. Lines the
// codec pruned away are skipped as well.
func (t *Translator) skipLine(line int) (bool, error) {
	if seeker, ok := t.codec.(LineSeeker); ok {
		for t.index.ToNextLine(&t.pos) {
			err := seeker.SeekLine(t.index.BinID(t.pos).Inl)
			if !errors.Is(err, ErrNoRelevantData) {
				return err == nil, err
			}
		}
		return false, nil
	}
	for t.index.ToNext(&t.pos) {
		if t.index.BinID(t.pos).Inl != line {
			return true, nil
		}
		t.visited++
	}
	return false, nil
}

// Skip moves past n selected traces without reading them.
func (t *Translator) Skip(n int) error {
	switch {
	case t.state == StateExhausted:
		return ErrEndOfData
	case !t.state.reading():
		return t.wrongState("Skip")
	}
	if err := t.ensureCommitted(); err != nil {
		return err
	}
	for range n {
		_, ok, err := t.advance()
		if err != nil {
			return err
		}
		if !ok {
			t.state = StateExhausted
			return ErrEndOfData
		}
		t.state = StatePositioned
		t.hdrValid = false
	}
	return nil
}

// ReadData returns the selected components and samples of the current
// trace, moving to the next trace first when none has been positioned yet.
func (t *Translator) ReadData() (*Trace, error) {
	if t.state == StateReadInitialized {
		if _, err := t.ReadInfo(); err != nil {
			return nil, err
		}
	}
	tr := NewTrace(len(t.comps), t.samples.Len())
	if err := t.ReadDataInto(tr); err != nil {
		return nil, err
	}
	return tr, nil
}

// ReadDataInto decodes the current trace into tr, which must have the
// selected number of components and samples.
func (t *Translator) ReadDataInto(tr *Trace) error {
	switch {
	case t.state == StateExhausted:
		return ErrEndOfData
	case t.state != StatePositioned:
		return t.wrongState("ReadDataInto")
	}
	if tr.NrComponents() != len(t.comps) || tr.NrSamples() != t.samples.Len() {
		return fmt.Errorf("%w: buffer is %dx%d, selection is %dx%d", ErrConfiguration,
			tr.NrComponents(), tr.NrSamples(), len(t.comps), t.samples.Len())
	}
	bid := t.index.BinID(t.pos)
	if !t.hdrValid {
		if err := t.loadHeader(bid); err != nil {
			return err
		}
	}
	if err := t.codec.DecodeTrace(bid, t.nr, t.comps, t.samples, tr); err != nil {
		return err
	}
	tr.Header = t.hdr
	t.dataRead = true
	return nil
}

// GoTo positions the cursor on bid and reads its header. The selection
// test is not applied, but positions pruned away by CommitSelections
// return ErrNoRelevantData.
func (t *Translator) GoTo(bid posinfo.BinID) (*TraceHeader, error) {
	if !t.state.reading() {
		return nil, t.wrongState("GoTo")
	}
	if err := t.ensureCommitted(); err != nil {
		return nil, err
	}
	pos := t.index.PosOf(bid)
	if !t.index.IsValid(pos) {
		return nil, fmt.Errorf("%w: position %v", ErrNoRelevantData, bid)
	}
	prevPos, prevNr := t.pos, t.nr
	t.pos, t.nr = pos, 0
	if err := t.loadHeader(bid); err != nil {
		t.pos, t.nr = prevPos, prevNr
		return nil, err
	}
	t.state = StatePositioned
	hdr := t.hdr
	return &hdr, nil
}

// Close ends the current life-cycle. Writing flushes the buffered block and
// finalizes the dataset; if the flush fails the translator stays open so
// Close can be retried. Closing a closed translator is a no-op.
func (t *Translator) Close() error {
	switch {
	case t.state == StateClosed:
		return nil
	case t.state.reading():
		t.state = StateClosed
		t.log.Debug("closed read", "path", t.conn.Path, "visited", t.visited)
		return t.codec.Close()
	}
	return t.closeWrite()
}
