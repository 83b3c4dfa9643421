package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/robert-malhotra/go-cbvs/internal/dtype"
	"github.com/robert-malhotra/go-cbvs/internal/layout"
	"github.com/robert-malhotra/go-cbvs/internal/superblock"
	"github.com/robert-malhotra/go-cbvs/posinfo"
)

func testInfo(nrSamples int) *Info {
	return &Info{
		Components: []Component{
			{Name: "amplitude", Kind: dtype.Float32},
			{Name: "quality", Kind: dtype.Int16, BigEndian: true},
		},
		ZStep:     0.004,
		NrSamples: nrSamples,
		Aux:       layout.AuxCoord | layout.AuxOffset,
	}
}

func sampleValue(c, inl, crl, s int) float32 {
	if c == 0 {
		return float32(inl*1000 + crl*10 + s)
	}
	return float32(crl - s)
}

func traceData(info *Info, inl, crl int) [][]float32 {
	data := make([][]float32, len(info.Components))
	for c := range data {
		data[c] = make([]float32, info.NrSamples)
		for s := range data[c] {
			data[c][s] = sampleValue(c, inl, crl, s)
		}
	}
	return data
}

func put(t *testing.T, w *WriteManager, inl, crl int) {
	t.Helper()
	h := &RecordHeader{Line: inl, Trace: crl, X: float64(inl) * 25, Y: float64(crl) * 12.5}
	if err := w.Put(h, traceData(w.opts.Info, inl, crl)); err != nil {
		t.Fatalf("Put(%d, %d): %v", inl, crl, err)
	}
}

// writeLines writes every crossline of crls on each line, committing after
// each line.
func writeLines(t *testing.T, opts WriteOptions, lines, crls []int) {
	t.Helper()
	w, err := NewWriteManager(opts)
	if err != nil {
		t.Fatalf("NewWriteManager: %v", err)
	}
	for _, inl := range lines {
		for _, crl := range crls {
			put(t, w, inl, crl)
		}
		if err := w.EnsureConsistency(); err != nil {
			t.Fatalf("EnsureConsistency: %v", err)
		}
	}
	if err := w.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
}

func openDataset(t *testing.T, path string) *ReadManager {
	t.Helper()
	r, err := OpenDataset(path, nil)
	if err != nil {
		t.Fatalf("OpenDataset: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func checkTrace(t *testing.T, r *ReadManager, inl, crl, first, last int) {
	t.Helper()
	bid := posinfo.BinID{Inl: inl, Crl: crl}
	var h RecordHeader
	if err := r.ReadHeader(bid, 0, &h); err != nil {
		t.Fatalf("ReadHeader(%v): %v", bid, err)
	}
	if h.X != float64(inl)*25 || h.Y != float64(crl)*12.5 {
		t.Errorf("%v: coordinate %v,%v", bid, h.X, h.Y)
	}
	n := last - first + 1
	dst := [][]float32{make([]float32, n), make([]float32, n)}
	if err := r.ReadSamples(bid, 0, []int{1, 0}, first, last, dst); err != nil {
		t.Fatalf("ReadSamples(%v): %v", bid, err)
	}
	for i := range n {
		if got, want := dst[0][i], sampleValue(1, inl, crl, first+i); got != want {
			t.Errorf("%v quality[%d] = %v, want %v", bid, first+i, got, want)
		}
		if got, want := dst[1][i], sampleValue(0, inl, crl, first+i); got != want {
			t.Errorf("%v amplitude[%d] = %v, want %v", bid, first+i, got, want)
		}
	}
}

func TestDatasetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cube.cbvs")
	writeLines(t, WriteOptions{Path: path, Info: testInfo(12)}, []int{1, 2, 3}, []int{10, 12, 14})

	r := openDataset(t, path)
	if r.Files() != 1 || r.TracesPerPos() != 1 {
		t.Fatalf("files = %d, traces per position = %d", r.Files(), r.TracesPerPos())
	}
	if r.Geometry().TotalSize() != 9 || !r.Geometry().IsFullyRectAndReg() {
		t.Errorf("geometry = %v", r.Geometry().Lines)
	}
	if r.Info().NrSamples != 12 || r.Info().Components[1].Name != "quality" {
		t.Errorf("info = %+v", r.Info())
	}
	checkTrace(t, r, 2, 12, 0, 11)
	checkTrace(t, r, 3, 14, 4, 6)

	var h RecordHeader
	if err := r.ReadHeader(posinfo.BinID{Inl: 2, Crl: 11}, 0, &h); !errors.Is(err, ErrUnknownPosition) {
		t.Errorf("expected ErrUnknownPosition, got %v", err)
	}
	if err := r.ReadHeader(posinfo.BinID{Inl: 2, Crl: 12}, 1, &h); !errors.Is(err, ErrUnknownPosition) {
		t.Errorf("expected ErrUnknownPosition for trace 1, got %v", err)
	}
}

func TestDescendingCrosslines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "desc.cbvs")
	writeLines(t, WriteOptions{Path: path, Info: testInfo(4)}, []int{7, 5}, []int{30, 29, 28})

	r := openDataset(t, path)
	ld := r.Geometry().Lines[0]
	if ld.Line != 7 || len(ld.Segments) != 1 || ld.Segments[0] != (posinfo.Segment{Start: 30, Stop: 28, Step: -1}) {
		t.Errorf("line = %+v", ld)
	}
	checkTrace(t, r, 5, 29, 0, 3)
}

func TestSizeSplit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "split.cbvs")
	writeLines(t, WriteOptions{Path: path, Info: testInfo(8), MaxFileSize: 1}, []int{1, 2, 3, 4}, []int{1, 2, 3})

	for i := range 4 {
		if _, err := os.Stat(SiblingPath(path, i, false)); err != nil {
			t.Errorf("sibling %d: %v", i, err)
		}
	}
	r := openDataset(t, path)
	if r.Files() != 4 || r.Geometry().Size() != 4 {
		t.Fatalf("files = %d, lines = %d", r.Files(), r.Geometry().Size())
	}
	checkTrace(t, r, 3, 2, 0, 7)
	checkTrace(t, r, 1, 3, 0, 7)

	hs := posinfo.NewHorSampling(posinfo.BinID{Inl: 3, Crl: 1}, posinfo.BinID{Inl: 3, Crl: 3}, posinfo.BinID{Inl: 1, Crl: 1})
	if n := r.Prune(hs, 0, 7); n != 1 {
		t.Errorf("Prune kept %d files, want 1", n)
	}
	if err := r.SeekLine(1); !errors.Is(err, ErrPruned) {
		t.Errorf("expected ErrPruned, got %v", err)
	}
	var h RecordHeader
	if err := r.ReadHeader(posinfo.BinID{Inl: 2, Crl: 1}, 0, &h); !errors.Is(err, ErrPruned) {
		t.Errorf("expected ErrPruned, got %v", err)
	}
	if err := r.SeekLine(3); err != nil {
		t.Fatal(err)
	}
	checkTrace(t, r, 3, 1, 2, 5)
}

func TestSplitKeepsLinesWhole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lines.cbvs")
	w, err := NewWriteManager(WriteOptions{Path: path, Info: testInfo(4), MaxFileSize: 1})
	if err != nil {
		t.Fatal(err)
	}
	for _, inl := range []int{1, 2} {
		for crl := 1; crl <= 3; crl++ {
			put(t, w, inl, crl)
			if err := w.EnsureConsistency(); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := w.Finalize(); err != nil {
		t.Fatal(err)
	}

	for i := range 2 {
		fr, err := OpenFile(SiblingPath(path, i, false))
		if err != nil {
			t.Fatal(err)
		}
		g := fr.Trailer.Geometry
		if g.Size() != 1 || g.Lines[0].Line != i+1 || g.TotalSize() != 3 {
			t.Errorf("file %d holds %v", i, g.Lines)
		}
		if fr.Pre.FileCount != 2 || int(fr.Pre.FileNr) != i {
			t.Errorf("file %d: number %d of %d", i, fr.Pre.FileNr, fr.Pre.FileCount)
		}
		fr.Close()
	}
}

func TestVerticalBricks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bricked.cbvs")
	info := testInfo(10)
	info.Brick = layout.BrickSpec{SamplesPerSlab: 4}
	writeLines(t, WriteOptions{Path: path, Info: info}, []int{1, 2}, []int{5, 6})

	r := openDataset(t, path)
	if r.Files() != 3 {
		t.Fatalf("files = %d, want 3 slabs", r.Files())
	}
	checkTrace(t, r, 2, 6, 0, 9)
	checkTrace(t, r, 1, 5, 3, 8)

	all := posinfo.NewHorSampling(posinfo.BinID{Inl: 1, Crl: 5}, posinfo.BinID{Inl: 2, Crl: 6}, posinfo.BinID{Inl: 1, Crl: 1})
	if n := r.Prune(all, 5, 6); n != 1 {
		t.Errorf("Prune kept %d slab files, want 1", n)
	}
	checkTrace(t, r, 1, 6, 5, 6)
	dst := [][]float32{make([]float32, 10)}
	if err := r.ReadSamples(posinfo.BinID{Inl: 1, Crl: 6}, 0, []int{0}, 0, 9, dst); !errors.Is(err, ErrPruned) {
		t.Errorf("expected ErrPruned, got %v", err)
	}
}

func TestDirectoryLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dir.cbvs")
	writeLines(t, WriteOptions{Path: path, Info: testInfo(5), Directory: true, MaxFileSize: 1}, []int{1, 2}, []int{1})

	if !IsDirLayout(path) {
		t.Fatal("expected a directory")
	}
	if _, err := os.Stat(filepath.Join(path, "dir.cbvs.1")); err != nil {
		t.Fatal(err)
	}
	r := openDataset(t, path)
	if r.Files() != 2 {
		t.Errorf("files = %d", r.Files())
	}
	checkTrace(t, r, 2, 1, 0, 4)
}

func TestPrestack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gathers.cbvs")
	w, err := NewWriteManager(WriteOptions{Path: path, Info: testInfo(3), Prestack: true})
	if err != nil {
		t.Fatal(err)
	}
	for crl := 1; crl <= 2; crl++ {
		for _, off := range []float32{100, 200, 300} {
			h := &RecordHeader{Line: 1, Trace: crl, Offset: off}
			if err := w.Put(h, traceData(w.opts.Info, 1, crl)); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := w.Finalize(); err != nil {
		t.Fatal(err)
	}

	r := openDataset(t, path)
	if r.TracesPerPos() != 3 || r.Geometry().TotalSize() != 2 {
		t.Fatalf("traces per position = %d, positions = %d", r.TracesPerPos(), r.Geometry().TotalSize())
	}
	if !r.Preamble().Has(superblock.FlagPrestack) {
		t.Error("prestack flag not set")
	}
	var h RecordHeader
	if err := r.ReadHeader(posinfo.BinID{Inl: 1, Crl: 2}, 2, &h); err != nil {
		t.Fatal(err)
	}
	if h.Offset != 300 {
		t.Errorf("offset = %v, want 300", h.Offset)
	}
}

func TestWriteOrderErrors(t *testing.T) {
	tests := []struct {
		name     string
		prestack bool
		bids     [][2]int
	}{
		{"line revisited", false, [][2]int{{1, 1}, {2, 1}, {1, 2}}},
		{"duplicate", false, [][2]int{{1, 1}, {1, 1}}},
		{"direction change", false, [][2]int{{1, 1}, {1, 3}, {1, 2}}},
		{"too many traces", true, [][2]int{{1, 1}, {1, 1}, {1, 2}, {1, 2}, {1, 2}}},
		{"too few traces", true, [][2]int{{1, 1}, {1, 1}, {1, 2}, {1, 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "order.cbvs")
			w, err := NewWriteManager(WriteOptions{Path: path, Info: testInfo(2), Prestack: tt.prestack})
			if err != nil {
				t.Fatal(err)
			}
			defer w.Close()
			last := len(tt.bids) - 1
			for i, b := range tt.bids {
				err := w.Put(&RecordHeader{Line: b[0], Trace: b[1]}, traceData(w.opts.Info, b[0], b[1]))
				if i < last && err != nil {
					t.Fatalf("Put %d: %v", i, err)
				}
				if i == last && !errors.Is(err, ErrOrder) {
					t.Fatalf("expected ErrOrder, got %v", err)
				}
			}
		})
	}
}

func TestWriteLayoutError(t *testing.T) {
	w, err := NewWriteManager(WriteOptions{Path: filepath.Join(t.TempDir(), "x.cbvs"), Info: testInfo(4)})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Put(&RecordHeader{Line: 1, Trace: 1}, [][]float32{make([]float32, 4)}); !errors.Is(err, ErrLayout) {
		t.Errorf("expected ErrLayout, got %v", err)
	}
	if err := w.Put(&RecordHeader{Line: 1, Trace: 1}, [][]float32{make([]float32, 3), make([]float32, 3)}); !errors.Is(err, ErrLayout) {
		t.Errorf("expected ErrLayout, got %v", err)
	}
}

func TestUnfinalizedDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.cbvs")
	w, err := NewWriteManager(WriteOptions{Path: path, Info: testInfo(4)})
	if err != nil {
		t.Fatal(err)
	}
	put(t, w, 1, 1)
	if err := w.EnsureConsistency(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Put(&RecordHeader{Line: 1, Trace: 2}, traceData(w.opts.Info, 1, 2)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if _, err := OpenDataset(path, nil); !errors.Is(err, ErrNotFinalized) {
		t.Errorf("expected ErrNotFinalized, got %v", err)
	}
}

func TestMissingSibling(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gap.cbvs")
	writeLines(t, WriteOptions{Path: path, Info: testInfo(4), MaxFileSize: 1}, []int{1, 2, 3}, []int{1})
	if err := os.Remove(SiblingPath(path, 1, false)); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenDataset(path, nil); !errors.Is(err, ErrMissingSibling) {
		t.Errorf("expected ErrMissingSibling, got %v", err)
	}
}

func TestForeignSibling(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.cbvs"), filepath.Join(dir, "b.cbvs")
	for _, p := range []string{a, b} {
		writeLines(t, WriteOptions{Path: p, Info: testInfo(4), MaxFileSize: 1}, []int{1, 2}, []int{1})
	}
	data, err := os.ReadFile(SiblingPath(b, 1, false))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(SiblingPath(a, 1, false), data, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenDataset(a, nil); !errors.Is(err, ErrSiblingMismatch) {
		t.Errorf("expected ErrSiblingMismatch, got %v", err)
	}
}

var errDiskFull = errors.New("disk full")

type failingWriterAt struct{}

func (failingWriterAt) WriteAt([]byte, int64) (int, error) { return 0, errDiskFull }

func TestCommitResumesAfterWriteFailure(t *testing.T) {
	tests := []struct {
		name   string
		brick  layout.BrickSpec
		broken int
	}{
		{"trace major", layout.BrickSpec{}, 0},
		{"second slab", layout.BrickSpec{SamplesPerSlab: 4}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "retry.cbvs")
			info := testInfo(10)
			info.Brick = tt.brick
			w, err := NewWriteManager(WriteOptions{Path: path, Info: info})
			if err != nil {
				t.Fatalf("NewWriteManager: %v", err)
			}
			put(t, w, 1, 5)
			put(t, w, 1, 6)
			if err := w.EnsureConsistency(); err != nil {
				t.Fatalf("EnsureConsistency: %v", err)
			}

			fw := w.files[tt.broken]
			fw.out = failingWriterAt{}
			put(t, w, 2, 5)
			put(t, w, 2, 6)
			for range 2 {
				if err := w.EnsureConsistency(); !errors.Is(err, errDiskFull) {
					t.Fatalf("expected errDiskFull, got %v", err)
				}
			}

			put(t, w, 3, 5)
			put(t, w, 3, 6)
			fw.out = fw.f
			if err := w.EnsureConsistency(); err != nil {
				t.Fatalf("EnsureConsistency after recovery: %v", err)
			}
			if err := w.Finalize(); err != nil {
				t.Fatalf("Finalize: %v", err)
			}

			r := openDataset(t, path)
			if n := r.Geometry().TotalSize(); n != 6 {
				t.Fatalf("positions = %d, want 6", n)
			}
			for _, inl := range []int{1, 2, 3} {
				for _, crl := range []int{5, 6} {
					checkTrace(t, r, inl, crl, 0, 9)
				}
			}
		})
	}
}
