package seis

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/robert-malhotra/go-cbvs/posinfo"
	"github.com/robert-malhotra/go-cbvs/survey"
)

var errInjected = errors.New("injected failure")

type traceKey struct {
	bid posinfo.BinID
	nr  int
}

type memDataset struct {
	info   StorageInfo
	traces map[traceKey]*Trace
}

// memStore keeps finalized datasets by path.
type memStore struct {
	mu   sync.Mutex
	sets map[string]*memDataset
}

func newMemStore() *memStore {
	return &memStore{sets: make(map[string]*memDataset)}
}

// put stores traces, which must be grouped by line with crosslines ascending.
func (s *memStore) put(path string, traces []*Trace, sd SamplingData) *memDataset {
	ds := &memDataset{traces: make(map[traceKey]*Trace)}
	cd := posinfo.NewCubeData()
	f := posinfo.NewFiller(cd)
	perPos := 0
	var prev *posinfo.BinID
	nr := 0
	for _, tr := range traces {
		bid := tr.Header.Pos
		if prev != nil && *prev == bid {
			nr++
		} else {
			f.Add(bid)
			nr = 0
		}
		prev = &bid
		perPos = max(perPos, nr+1)
		ds.traces[traceKey{bid, nr}] = tr.Clone()
	}
	f.Finish()
	nc, ns := 0, 0
	if len(traces) > 0 {
		nc, ns = traces[0].NrComponents(), traces[0].NrSamples()
	}
	ds.info = StorageInfo{
		Components:   DefaultComponents(nc),
		Sampling:     sd,
		NrSamples:    ns,
		Geometry:     cd,
		TracesPerPos: perPos,
	}
	s.mu.Lock()
	s.sets[path] = ds
	s.mu.Unlock()
	return ds
}

func (s *memStore) get(path string) *memDataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets[path]
}

// memCodec is an in-memory Codec.
type memCodec struct {
	store *memStore
	set   *memDataset
	conn  Conn
	info  *StorageInfo

	pending   []*Trace
	committed []*Trace

	failAt       int
	failEnsure   bool
	failFinalize bool

	ensures  int
	decodes  int
	pruneBox posinfo.HorSampling
	closed   bool
}

func newMemCodec(store *memStore) *memCodec {
	return &memCodec{store: store}
}

func (c *memCodec) ParseHeader(conn Conn) (*StorageInfo, error) {
	set := c.store.get(conn.Path)
	if set == nil {
		return nil, fmt.Errorf("%w: %s", ErrBadConnection, conn.Path)
	}
	c.set, c.conn = set, conn
	info := set.info
	info.Geometry = set.info.Geometry.Clone()
	info.Is2D, info.IsPrestack = conn.Is2D, conn.IsPrestack
	return &info, nil
}

func (c *memCodec) Prune(hs posinfo.HorSampling, _ SampleRange) (int, error) {
	c.pruneBox = hs
	return c.set.info.Geometry.TotalSizeInside(hs), nil
}

func (c *memCodec) trace(bid posinfo.BinID, nr int) (*Trace, error) {
	tr, ok := c.set.traces[traceKey{bid, nr}]
	if !ok {
		return nil, fmt.Errorf("%w: no trace at %v", ErrCorruptDataset, bid)
	}
	return tr, nil
}

func (c *memCodec) ReadHeader(bid posinfo.BinID, nr int, hdr *TraceHeader) error {
	tr, err := c.trace(bid, nr)
	if err != nil {
		return err
	}
	*hdr = tr.Header
	return nil
}

func (c *memCodec) DecodeTrace(bid posinfo.BinID, nr int, comps []int, samples SampleRange, dst *Trace) error {
	tr, err := c.trace(bid, nr)
	if err != nil {
		return err
	}
	c.decodes++
	for i, comp := range comps {
		copy(dst.Data[i], tr.Data[comp][samples.First:samples.Last+1])
	}
	return nil
}

func (c *memCodec) StartWrite(conn Conn, info *StorageInfo) error {
	c.conn = conn
	c.info = info
	return nil
}

func (c *memCodec) EncodeTrace(tr *Trace) error {
	if c.failAt > 0 && len(c.committed)+len(c.pending)+1 == c.failAt {
		c.failAt = 0
		return errInjected
	}
	c.pending = append(c.pending, tr.Clone())
	return nil
}

func (c *memCodec) EnsureConsistency() error {
	if c.failEnsure {
		c.failEnsure = false
		return errInjected
	}
	c.ensures++
	c.committed = append(c.committed, c.pending...)
	c.pending = nil
	return nil
}

func (c *memCodec) Finalize() error {
	if c.failFinalize {
		c.failFinalize = false
		return errInjected
	}
	set := c.store.put(c.conn.Path, c.committed, c.info.Sampling)
	set.info.Components = c.info.Components
	set.info.Transform = c.info.Transform
	set.info.Text = c.info.Text
	return nil
}

func (c *memCodec) Close() error {
	c.closed = true
	return nil
}

// seekingCodec records line seeks.
type seekingCodec struct {
	*memCodec
	seeks  []int
	pruned []int
}

func (c *seekingCodec) SeekLine(line int) error {
	c.seeks = append(c.seeks, line)
	if slices.Contains(c.pruned, line) {
		return fmt.Errorf("%w: line %d", ErrNoRelevantData, line)
	}
	return nil
}

// transformCodec carries its own transform.
type transformCodec struct {
	*memCodec
	xy survey.Transform
}

func (c *transformCodec) Transform() (survey.Transform, bool) { return c.xy, true }

// synthTrace returns a trace whose samples encode its position, component
// and sample index.
func synthTrace(bid posinfo.BinID, nc, ns int) *Trace {
	tr := NewTrace(nc, ns)
	tr.Header.Pos = bid
	tr.Header.Sampling = SamplingData{Start: 0, Step: 0.004}
	for c := range nc {
		for s := range ns {
			tr.Data[c][s] = float32(bid.Inl*10000 + bid.Crl*100 + c*10 + s)
		}
	}
	return tr
}

func gridTraces(inl, crl posinfo.Segment, nc, ns int) []*Trace {
	var out []*Trace
	for i := range inl.Size() {
		for j := range crl.Size() {
			bid := posinfo.BinID{Inl: inl.AtIndex(i), Crl: crl.AtIndex(j)}
			out = append(out, synthTrace(bid, nc, ns))
		}
	}
	return out
}

func cubeTraces(cd *posinfo.CubeData, nc, ns int) []*Trace {
	var out []*Trace
	it := posinfo.NewIterator(cd)
	for bid, ok := it.Next(); ok; bid, ok = it.Next() {
		out = append(out, synthTrace(bid, nc, ns))
	}
	return out
}

func seg(start, stop, step int) posinfo.Segment {
	return posinfo.Segment{Start: start, Stop: stop, Step: step}
}

// readAll reads every remaining trace.
func readAll(tr *Translator) ([]*Trace, error) {
	var out []*Trace
	for {
		if _, err := tr.ReadInfo(); err != nil {
			if errors.Is(err, ErrEndOfData) {
				return out, nil
			}
			return out, err
		}
		trc, err := tr.ReadData()
		if err != nil {
			return out, err
		}
		out = append(out, trc)
	}
}
