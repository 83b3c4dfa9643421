package seis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-cbvs/posinfo"
	"github.com/robert-malhotra/go-cbvs/survey"
)

func writeAll(t *testing.T, codec *memCodec, conn Conn, traces []*Trace, opts ...Option) *Translator {
	t.Helper()
	tr := NewTranslator(codec, opts...)
	require.NoError(t, tr.InitWrite(conn, traces[0]))
	assert.Equal(t, StateWriteInitialized, tr.State())
	for _, trc := range traces {
		require.NoError(t, tr.Write(trc))
	}
	assert.Equal(t, StateAccumulating, tr.State())
	require.NoError(t, tr.Close())
	assert.Equal(t, StateClosed, tr.State())
	return tr
}

func readBack(t *testing.T, store *memStore, conn Conn) []*Trace {
	t.Helper()
	tr := NewTranslator(newMemCodec(store))
	require.NoError(t, tr.InitRead(conn))
	got, err := readAll(tr)
	require.NoError(t, err)
	require.NoError(t, tr.Close())
	return got
}

func at(inl, crl int) posinfo.BinID { return posinfo.BinID{Inl: inl, Crl: crl} }

func TestInitWriteValidation(t *testing.T) {
	tr := NewTranslator(newMemCodec(newMemStore()))
	assert.ErrorIs(t, tr.Write(synthTrace(at(1, 1), 1, 2)), ErrWrongState)
	assert.ErrorIs(t, tr.InitWrite(Conn{Path: "x"}, NewTrace(1, 0)), ErrConfiguration)
	assert.Equal(t, StateClosed, tr.State())

	require.NoError(t, tr.InitWrite(Conn{Path: "x"}, synthTrace(at(1, 1), 2, 3)))
	assert.ErrorIs(t, tr.Write(synthTrace(at(1, 1), 2, 4)), ErrConfiguration)
	assert.ErrorIs(t, tr.Write(synthTrace(at(1, 1), 1, 3)), ErrConfiguration)
	assert.ErrorIs(t, tr.InitRead(Conn{Path: "x"}), ErrWrongState)
}

func TestWriteComponents(t *testing.T) {
	store := newMemStore()
	codec := newMemCodec(store)
	comps := []ComponentDescriptor{{Name: "Dip", DataChar: DataChar{Type: Int16}, Role: RoleDip}}
	writeAll(t, codec, Conn{Path: "c"}, []*Trace{synthTrace(at(1, 1), 1, 2)},
		WithOutputComponents(comps...), WithText("dip volume"))
	assert.Equal(t, comps, codec.info.Components)
	assert.Equal(t, "dip volume", codec.info.Text)

	codec = newMemCodec(store)
	writeAll(t, codec, Conn{Path: "d"}, []*Trace{synthTrace(at(1, 1), 2, 2)},
		WithDataChar(DataChar{Type: Int8}))
	require.Len(t, codec.info.Components, 2)
	assert.Equal(t, "Component 2", codec.info.Components[1].Name)
	assert.Equal(t, Int8, codec.info.Components[1].DataChar.Type)
}

func TestWriteSortsAndKeepsLastDuplicate(t *testing.T) {
	store := newMemStore()
	first := synthTrace(at(1, 1), 1, 3)
	last := synthTrace(at(1, 1), 1, 3)
	last.Data[0][0] = -1
	traces := []*Trace{
		synthTrace(at(1, 3), 1, 3), first, synthTrace(at(1, 2), 1, 3), last,
		synthTrace(at(2, 2), 1, 3), synthTrace(at(2, 1), 1, 3),
	}
	codec := newMemCodec(store)
	tr := writeAll(t, codec, Conn{Path: "dup"}, traces)
	assert.Equal(t, 5, tr.Written())
	assert.Equal(t, 2, codec.ensures)

	got := readBack(t, store, Conn{Path: "dup"})
	require.Len(t, got, 5)
	want := []posinfo.BinID{at(1, 1), at(1, 2), at(1, 3), at(2, 1), at(2, 2)}
	for i, trc := range got {
		assert.Equal(t, want[i], trc.Header.Pos)
	}
	assert.Equal(t, last.Data, got[0].Data)
}

func TestWriteStacksDuplicates(t *testing.T) {
	store := newMemStore()
	var traces []*Trace
	for _, v := range []float32{1, 2, 6} {
		trc := NewTrace(1, 2)
		trc.Header.Pos = at(5, 5)
		trc.Data[0][0], trc.Data[0][1] = v, 2*v
		traces = append(traces, trc)
	}
	writeAll(t, newMemCodec(store), Conn{Path: "stack"}, traces, WithStackDuplicates(true))

	got := readBack(t, store, Conn{Path: "stack"})
	require.Len(t, got, 1)
	assert.InDelta(t, 3, got[0].Data[0][0], 1e-6)
	assert.InDelta(t, 6, got[0].Data[0][1], 1e-6)
}

func TestWritePrestackKeepsDuplicates(t *testing.T) {
	store := newMemStore()
	var traces []*Trace
	for _, crl := range []int{2, 1, 2, 1} {
		traces = append(traces, synthTrace(at(1, crl), 1, 2))
	}
	traces[2].Header.Offset = 200
	conn := Conn{Path: "pre", IsPrestack: true}
	writeAll(t, newMemCodec(store), conn, traces, WithRegularize(true),
		WithDeclaredRange(posinfo.NewHorSampling(at(1, 1), at(3, 3), at(1, 1))))

	got := readBack(t, store, conn)
	require.Len(t, got, 4)
	assert.Equal(t, at(1, 1), got[0].Header.Pos)
	assert.Equal(t, at(1, 1), got[1].Header.Pos)
	assert.Equal(t, at(1, 2), got[2].Header.Pos)
	assert.Equal(t, at(1, 2), got[3].Header.Pos)
	assert.Equal(t, float32(200), got[3].Header.Offset)
}

func TestWriteRegularize(t *testing.T) {
	declared := posinfo.NewHorSampling(at(1, 1), at(3, 4), at(1, 1))
	xy := survey.Transform{X: [3]float64{100, 10, 0}, Y: [3]float64{0, 0, 10}}

	cases := []struct {
		name    string
		written []posinfo.BinID
	}{
		{"middle line", []posinfo.BinID{at(2, 2), at(2, 3)}},
		{"gap between lines", []posinfo.BinID{at(1, 4), at(3, 1)}},
		{"complete", []posinfo.BinID{at(1, 1), at(1, 2), at(1, 3), at(1, 4), at(2, 1), at(2, 2),
			at(2, 3), at(2, 4), at(3, 1), at(3, 2), at(3, 3), at(3, 4)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			written := make(map[posinfo.BinID]*Trace)
			var traces []*Trace
			for _, bid := range tc.written {
				trc := synthTrace(bid, 2, 3)
				written[bid] = trc
				traces = append(traces, trc)
			}
			tr := writeAll(t, newMemCodec(store), Conn{Path: "reg"}, traces,
				WithRegularize(true), WithDeclaredRange(declared), WithTransform(xy))
			assert.Equal(t, 12, tr.Written())

			got := readBack(t, store, Conn{Path: "reg"})
			require.Len(t, got, declared.TotalSize())
			fillers := 0
			for i, trc := range got {
				bid := at(1+i/4, 1+i%4)
				require.Equal(t, bid, trc.Header.Pos)
				if src, ok := written[bid]; ok {
					assert.False(t, trc.Header.Filler)
					assert.Equal(t, src.Data, trc.Data)
					continue
				}
				fillers++
				assert.True(t, trc.Header.Filler)
				assert.Equal(t, xy.Apply(bid), trc.Header.Coord)
				assert.Equal(t, [][]float32{{0, 0, 0}, {0, 0, 0}}, trc.Data)
			}
			assert.Equal(t, 12-len(tc.written), fillers)
		})
	}

	t.Run("off", func(t *testing.T) {
		store := newMemStore()
		traces := []*Trace{synthTrace(at(2, 2), 1, 3), synthTrace(at(2, 3), 1, 3)}
		writeAll(t, newMemCodec(store), Conn{Path: "reg"}, traces, WithDeclaredRange(declared))
		assert.Len(t, readBack(t, store, Conn{Path: "reg"}), 2)
	})
}

func TestWriteRegularizeDescending(t *testing.T) {
	declared := posinfo.NewHorSampling(at(1, 1), at(3, 4), at(1, 1))
	cases := []struct {
		name    string
		written []posinfo.BinID
	}{
		{"all lines", []posinfo.BinID{at(3, 2), at(3, 3), at(2, 4), at(1, 1)}},
		{"gap between lines", []posinfo.BinID{at(3, 2), at(1, 1)}},
		{"tail", []posinfo.BinID{at(3, 2), at(2, 2)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			written := make(map[posinfo.BinID]bool)
			var traces []*Trace
			for _, bid := range tc.written {
				written[bid] = true
				traces = append(traces, synthTrace(bid, 1, 3))
			}
			writeAll(t, newMemCodec(store), Conn{Path: "desc"}, traces,
				WithRegularize(true), WithDeclaredRange(declared))

			got := readBack(t, store, Conn{Path: "desc"})
			require.Len(t, got, declared.TotalSize())
			for i, trc := range got {
				bid := at(3-i/4, 1+i%4)
				require.Equal(t, bid, trc.Header.Pos)
				assert.Equal(t, !written[bid], trc.Header.Filler, "%v", bid)
			}
		})
	}
}

func TestPartialFlushResumes(t *testing.T) {
	store := newMemStore()
	codec := newMemCodec(store)
	codec.failAt = 3

	tr := NewTranslator(codec)
	traces := gridTraces(seg(1, 1, 1), seg(1, 4, 1), 1, 2)
	require.NoError(t, tr.InitWrite(Conn{Path: "pf"}, traces[0]))
	for _, trc := range traces {
		require.NoError(t, tr.Write(trc))
	}

	assert.ErrorIs(t, tr.Flush(), errInjected)
	assert.Equal(t, 2, tr.Written())
	assert.Len(t, codec.pending, 2)
	assert.Zero(t, codec.ensures)
	assert.Equal(t, StateAccumulating, tr.State())

	require.NoError(t, tr.Flush())
	assert.Equal(t, 4, tr.Written())
	assert.Equal(t, 1, codec.ensures)
	require.NoError(t, tr.Close())

	got := readBack(t, store, Conn{Path: "pf"})
	require.Len(t, got, 4)
	for i, trc := range got {
		assert.Equal(t, traces[i].Header.Pos, trc.Header.Pos)
		assert.Equal(t, traces[i].Data, trc.Data)
	}
}

func TestPartialFlushOnLineChange(t *testing.T) {
	store := newMemStore()
	codec := newMemCodec(store)
	codec.failAt = 2

	tr := NewTranslator(codec)
	traces := gridTraces(seg(1, 2, 1), seg(1, 2, 1), 1, 2)
	require.NoError(t, tr.InitWrite(Conn{Path: "pf"}, traces[0]))
	require.NoError(t, tr.Write(traces[0]))
	require.NoError(t, tr.Write(traces[1]))
	assert.ErrorIs(t, tr.Write(traces[2]), errInjected)

	// The failed trace was not buffered; the remainder of line 1 is.
	require.NoError(t, tr.Write(traces[2]))
	require.NoError(t, tr.Write(traces[3]))
	require.NoError(t, tr.Close())
	assert.Len(t, readBack(t, store, Conn{Path: "pf"}), 4)
}

func TestEnsureConsistencyFailureIsRetried(t *testing.T) {
	store := newMemStore()
	codec := newMemCodec(store)
	codec.failEnsure = true

	tr := NewTranslator(codec)
	traces := gridTraces(seg(1, 2, 1), seg(1, 2, 1), 1, 2)
	require.NoError(t, tr.InitWrite(Conn{Path: "ec"}, traces[0]))
	require.NoError(t, tr.Write(traces[0]))
	require.NoError(t, tr.Write(traces[1]))
	assert.ErrorIs(t, tr.Write(traces[2]), errInjected)
	require.NoError(t, tr.Write(traces[2]))
	require.NoError(t, tr.Write(traces[3]))
	require.NoError(t, tr.Close())
	assert.Equal(t, 2, codec.ensures)
	assert.Len(t, readBack(t, store, Conn{Path: "ec"}), 4)
}

func TestCloseRetriesAfterFailure(t *testing.T) {
	store := newMemStore()
	codec := newMemCodec(store)
	codec.failFinalize = true

	tr := NewTranslator(codec)
	trc := synthTrace(at(1, 1), 1, 2)
	require.NoError(t, tr.InitWrite(Conn{Path: "cl"}, trc))
	require.NoError(t, tr.Write(trc))

	assert.ErrorIs(t, tr.Close(), errInjected)
	assert.Equal(t, StateAccumulating, tr.State())
	assert.False(t, codec.closed)

	require.NoError(t, tr.Close())
	assert.Equal(t, StateClosed, tr.State())
	assert.True(t, codec.closed)
	assert.Len(t, readBack(t, store, Conn{Path: "cl"}), 1)
}

func TestWrite2DWindow(t *testing.T) {
	store := newMemStore()
	codec := newMemCodec(store)
	conn := Conn{Path: "line", Is2D: true}
	traces := gridTraces(seg(4, 4, 1), seg(1, 7, 1), 1, 2)
	writeAll(t, codec, conn, traces, With2DWindow(3))
	assert.Equal(t, 3, codec.ensures)
	assert.Len(t, readBack(t, store, conn), 7)

	t.Run("line change", func(t *testing.T) {
		store := newMemStore()
		codec := newMemCodec(store)
		traces := gridTraces(seg(4, 5, 1), seg(1, 2, 1), 1, 2)
		writeAll(t, codec, conn, traces, With2DWindow(100))
		assert.Equal(t, 2, codec.ensures)
		assert.Len(t, readBack(t, store, conn), 4)
	})
}
