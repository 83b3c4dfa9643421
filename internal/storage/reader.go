package storage

import (
	"bytes"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/robert-malhotra/go-cbvs/internal/dtype"
	"github.com/robert-malhotra/go-cbvs/internal/log"
	"github.com/robert-malhotra/go-cbvs/internal/superblock"
	"github.com/robert-malhotra/go-cbvs/posinfo"
)

// openParallel bounds the number of sibling files opened at once.
const openParallel = 8

// part is a group of files holding the same positions: one trace-major file,
// or every slab file of a vertically bricked dataset.
type part struct {
	files   []*FileReader
	cd      *posinfo.CubeData
	lineIdx map[int]int
	lineOff []int
	active  bool
}

func newPart(files []*FileReader) *part {
	p := &part{files: files, cd: files[0].Trailer.Geometry, active: true}
	p.lineIdx = make(map[int]int, len(p.cd.Lines))
	p.lineOff = make([]int, len(p.cd.Lines))
	off := 0
	for i, ld := range p.cd.Lines {
		p.lineIdx[ld.Line] = i
		p.lineOff[i] = off
		off += ld.Size()
	}
	return p
}

// positionIndex returns the storage index of bid within the part.
func (p *part) positionIndex(bid posinfo.BinID) (int, bool) {
	li, ok := p.lineIdx[bid.Inl]
	if !ok {
		return 0, false
	}
	ld := p.cd.Lines[li]
	s := ld.SegmentOf(bid.Crl)
	if s < 0 {
		return 0, false
	}
	idx := p.lineOff[li]
	for _, seg := range ld.Segments[:s] {
		idx += seg.Size()
	}
	return idx + ld.Segments[s].IndexOf(bid.Crl), true
}

// ReadManager reads a dataset written by WriteManager.
type ReadManager struct {
	path     string
	log      *log.Logger
	files    []*FileReader
	parts    []*part
	lineFile map[int]int
	geometry *posinfo.CubeData
	cur      int

	slabActive []bool
	buf        []byte
}

// OpenDataset opens every file of the dataset at path. File 0 gives the
// file count; the other files are opened concurrently and must carry the
// same dataset id and info block, with file numbers in sequence.
func OpenDataset(path string, logger *log.Logger) (*ReadManager, error) {
	if logger == nil {
		logger = log.Nop()
	}
	dir := IsDirLayout(path)
	first, err := OpenFile(SiblingPath(path, 0, dir))
	if err != nil {
		return nil, err
	}
	n := int(first.Pre.FileCount)
	if n < 1 {
		first.Close()
		return nil, fmt.Errorf("%w: %s has no file count", ErrNotFinalized, path)
	}

	files := make([]*FileReader, n)
	files[0] = first
	var g errgroup.Group
	g.SetLimit(openParallel)
	for i := 1; i < n; i++ {
		g.Go(func() error {
			p := SiblingPath(path, i, dir)
			fr, err := OpenFile(p)
			if isNotExist(err) {
				return fmt.Errorf("%w: %s", ErrMissingSibling, p)
			}
			if err != nil {
				return err
			}
			files[i] = fr
			return nil
		})
	}
	err = g.Wait()
	if err == nil {
		err = checkSiblings(files)
	}
	if err != nil {
		closeAll(files)
		return nil, err
	}

	r := &ReadManager{path: path, log: logger, files: files, lineFile: make(map[int]int)}
	if first.Pre.Has(superblock.FlagVertical) {
		r.parts = []*part{newPart(files)}
	} else {
		for _, fr := range files {
			r.parts = append(r.parts, newPart([]*FileReader{fr}))
		}
	}
	r.geometry = posinfo.NewCubeData()
	for i, p := range r.parts {
		for _, ld := range p.cd.Lines {
			if _, dup := r.lineFile[ld.Line]; dup {
				closeAll(files)
				return nil, fmt.Errorf("%w: line %d stored in two files", ErrCorrupt, ld.Line)
			}
			r.lineFile[ld.Line] = i
			r.geometry.Lines = append(r.geometry.Lines, ld.Clone())
		}
	}
	r.slabActive = make([]bool, len(r.parts[0].files))
	for i := range r.slabActive {
		r.slabActive[i] = true
	}
	logger.Debug("dataset opened", "path", path, "files", n, "directory", dir,
		"positions", r.geometry.TotalSize())
	return r, nil
}

func checkSiblings(files []*FileReader) error {
	first := files[0]
	vertical := first.Pre.Has(superblock.FlagVertical)
	next := 0
	for i, fr := range files {
		switch {
		case fr.Pre.DatasetID != first.Pre.DatasetID:
			return fmt.Errorf("%w: %s has dataset id %v, expected %v", ErrSiblingMismatch, fr.Path, fr.Pre.DatasetID, first.Pre.DatasetID)
		case int(fr.Pre.FileNr) != i:
			return fmt.Errorf("%w: %s is file %d, expected %d", ErrSiblingMismatch, fr.Path, fr.Pre.FileNr, i)
		case !bytes.Equal(fr.InfoRaw, first.InfoRaw):
			return fmt.Errorf("%w: %s has a different info block", ErrSiblingMismatch, fr.Path)
		case fr.Pre.Flags != first.Pre.Flags:
			return fmt.Errorf("%w: %s has different flags", ErrSiblingMismatch, fr.Path)
		case fr.Trailer.TracesPerPos != first.Trailer.TracesPerPos:
			return fmt.Errorf("%w: %s has %d traces per position", ErrSiblingMismatch, fr.Path, fr.Trailer.TracesPerPos)
		}
		if !vertical {
			if fr.Pre.SlabFirst != 0 || int(fr.Pre.SlabSamples) != fr.Info.NrSamples {
				return fmt.Errorf("%w: %s is not trace-major", ErrCorrupt, fr.Path)
			}
			continue
		}
		if int(fr.Pre.SlabFirst) != next || !fr.Trailer.Geometry.Equal(first.Trailer.Geometry) {
			return fmt.Errorf("%w: %s does not continue the slab sequence", ErrCorrupt, fr.Path)
		}
		next += int(fr.Pre.SlabSamples)
	}
	if vertical && next != first.Info.NrSamples {
		return fmt.Errorf("%w: slabs cover %d of %d samples", ErrCorrupt, next, first.Info.NrSamples)
	}
	return nil
}

func closeAll(files []*FileReader) {
	for _, fr := range files {
		if fr != nil {
			fr.Close()
		}
	}
}

// Info returns the dataset description.
func (r *ReadManager) Info() *Info { return r.files[0].Info }

// Preamble returns the preamble of file 0.
func (r *ReadManager) Preamble() *superblock.Preamble { return r.files[0].Pre }

// Geometry returns every stored position in storage order.
func (r *ReadManager) Geometry() *posinfo.CubeData { return r.geometry }

// TracesPerPos returns the number of traces at each position.
func (r *ReadManager) TracesPerPos() int { return r.files[0].Trailer.TracesPerPos }

// Files returns the number of files in the dataset.
func (r *ReadManager) Files() int { return len(r.files) }

// Prune marks the files that cannot hold positions inside hs or samples in
// first..last as skipped, and returns how many files remain.
func (r *ReadManager) Prune(hs posinfo.HorSampling, first, last int) int {
	slabs := 0
	for i, fr := range r.parts[0].files {
		r.slabActive[i] = overlaps(fr, first, last)
		if r.slabActive[i] {
			slabs++
		}
	}
	survivors := 0
	for _, p := range r.parts {
		p.active = p.cd.TotalSizeInside(hs) > 0
		if p.active {
			survivors += slabs
		}
	}
	r.log.Debug("pruned", "path", r.path, "files", len(r.files), "survivors", survivors)
	return survivors
}

func overlaps(fr *FileReader, first, last int) bool {
	lo := int(fr.Pre.SlabFirst)
	hi := lo + int(fr.Pre.SlabSamples) - 1
	return lo <= last && hi >= first
}

// SeekLine makes the file holding line the current one.
func (r *ReadManager) SeekLine(line int) error {
	pi, ok := r.lineFile[line]
	if !ok {
		return fmt.Errorf("%w: line %d", ErrUnknownPosition, line)
	}
	if !r.parts[pi].active {
		return fmt.Errorf("%w: line %d", ErrPruned, line)
	}
	r.cur = pi
	return nil
}

func (r *ReadManager) locate(bid posinfo.BinID, nr int) (*part, int, error) {
	p := r.parts[r.cur]
	idx, ok := p.positionIndex(bid)
	if !ok {
		pi, found := r.lineFile[bid.Inl]
		if !found {
			return nil, 0, fmt.Errorf("%w: %v", ErrUnknownPosition, bid)
		}
		p = r.parts[pi]
		if idx, ok = p.positionIndex(bid); !ok {
			return nil, 0, fmt.Errorf("%w: %v", ErrUnknownPosition, bid)
		}
		r.cur = pi
	}
	if !p.active {
		return nil, 0, fmt.Errorf("%w: %v", ErrPruned, bid)
	}
	tpp := r.TracesPerPos()
	if nr < 0 || nr >= tpp {
		return nil, 0, fmt.Errorf("%w: trace %d at %v", ErrUnknownPosition, nr, bid)
	}
	return p, idx*tpp + nr, nil
}

// ReadHeader reads the header of trace nr at bid.
func (r *ReadManager) ReadHeader(bid posinfo.BinID, nr int, h *RecordHeader) error {
	p, idx, err := r.locate(bid, nr)
	if err != nil {
		return err
	}
	if err := p.files[0].ReadHeader(idx, h); err != nil {
		return err
	}
	return h.checkPosition(bid.Inl, bid.Crl)
}

// ReadSamples decodes samples first..last of the given components of trace
// nr at bid into dst, one slice per component.
func (r *ReadManager) ReadSamples(bid posinfo.BinID, nr int, comps []int, first, last int, dst [][]float32) error {
	p, idx, err := r.locate(bid, nr)
	if err != nil {
		return err
	}
	info := r.Info()
	if first < 0 || last >= info.NrSamples || last < first {
		return fmt.Errorf("%w: samples %d-%d of %d", ErrLayout, first, last, info.NrSamples)
	}
	for s, fr := range p.files {
		if !overlaps(fr, first, last) {
			continue
		}
		if !r.slabActive[s] {
			return fmt.Errorf("%w: slab %d", ErrPruned, s)
		}
		slabFirst := int(fr.Pre.SlabFirst)
		lo := max(first, slabFirst)
		hi := min(last, slabFirst+int(fr.Pre.SlabSamples)-1)
		for i, c := range comps {
			if c < 0 || c >= len(info.Components) {
				return fmt.Errorf("%w: component %d", ErrLayout, c)
			}
			comp := info.Components[c]
			r.buf, err = fr.ReadSamples(idx, c, lo-slabFirst, hi-lo+1, r.buf)
			if err != nil {
				return err
			}
			if err := dtype.Decode(dst[i][lo-first:hi-first+1], r.buf, comp.Kind, comp.Order()); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every file.
func (r *ReadManager) Close() error {
	var errs []error
	for _, fr := range r.files {
		if err := fr.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
