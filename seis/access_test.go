package seis

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/robert-malhotra/go-cbvs/survey"
)

func memRegistry(t *testing.T, store *memStore) *FormatRegistry {
	t.Helper()
	reg, err := NewFormatRegistry(Format{Name: "MEM", New: func() Codec { return newMemCodec(store) }})
	require.NoError(t, err)
	return reg
}

func TestFormatRegistry(t *testing.T) {
	reg := memRegistry(t, newMemStore())
	require.NoError(t, reg.Register(Format{Name: "ALT", New: func() Codec { return nil }}))
	assert.Equal(t, []string{"ALT", "MEM"}, reg.Names())

	err := reg.Register(Format{Name: "MEM", New: func() Codec { return nil }})
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.ErrorIs(t, reg.Register(Format{Name: "X"}), ErrConfiguration)

	_, err = reg.Lookup("SEGY")
	assert.ErrorIs(t, err, ErrUnknownFormat)
	assert.ErrorIs(t, err, ErrConfiguration)

	f, err := reg.Lookup("MEM")
	require.NoError(t, err)
	assert.Equal(t, "MEM", f.Name)
}

func TestOpenWriteThenRead(t *testing.T) {
	store := newMemStore()
	reg := memRegistry(t, store)
	srv := &survey.Survey{
		Inl: survey.Range{Start: 1, Stop: 3, Step: 1},
		Crl: survey.Range{Start: 1, Stop: 3, Step: 1},
	}

	w, err := OpenWrite(reg, survey.PathResolver{}, "cube", nil, srv, WithFormat("MEM"))
	require.NoError(t, err)
	traces := gridTraces(seg(1, 3, 1), seg(1, 3, 1), 3, 5)
	for _, trc := range traces {
		require.NoError(t, w.Write(trc))
	}
	require.NoError(t, w.Close())
	assert.Equal(t, 9, w.Written())
	assert.ErrorIs(t, w.Write(traces[0]), ErrWrongState)

	sel := NewRangeBox(at(2, 1), at(2, 3), at(1, 1))
	r, err := OpenRead(reg, survey.PathResolver{}, "cube", sel, WithFormat("MEM"))
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, "cube", r.Dataset().ID)
	assert.Equal(t, 9, r.Info().NrPositions)

	var got []*Trace
	for {
		hdr, err := r.NextHeader()
		if errors.Is(err, ErrEndOfData) {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, 2, hdr.Pos.Inl)
		trc, err := r.ReadSamples()
		require.NoError(t, err)
		got = append(got, trc.Clone())
	}
	require.Len(t, got, 3)
	for i, trc := range got {
		src := traces[3+i]
		assert.Equal(t, src.Header.Pos, trc.Header.Pos)
		assert.Equal(t, src.Data, trc.Data)
	}

	trc, err := r.TraceAt(at(2, 2))
	require.NoError(t, err)
	assert.Equal(t, traces[4].Data, trc.Data)

	_, err = r.TraceAt(at(3, 3))
	assert.ErrorIs(t, err, ErrNoRelevantData)
}

func TestOpenReadErrors(t *testing.T) {
	store := newMemStore()
	reg := memRegistry(t, store)

	_, err := OpenRead(reg, survey.PathResolver{}, "nothing", nil, WithFormat("MEM"))
	assert.ErrorIs(t, err, ErrBadConnection)

	_, err = OpenRead(reg, survey.PathResolver{}, "nothing", nil)
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = OpenRead(reg, survey.NewCatalog(t.TempDir()), "unknown", nil, WithFormat("MEM"))
	assert.ErrorIs(t, err, ErrBadConnection)
	assert.ErrorIs(t, err, survey.ErrUnknownDataset)

	store.put("cube", gridTraces(seg(1, 2, 1), seg(1, 2, 1), 1, 2), testSampling)
	_, err = OpenRead(reg, survey.PathResolver{}, "cube", nil, WithFormat("MEM"), WithComponents("dip"))
	assert.ErrorIs(t, err, ErrNoMatchingComponents)

	// A selection that misses everything opens, then reads nothing.
	sel := NewRangeBox(at(50, 1), at(60, 2), at(1, 1))
	r, err := OpenRead(reg, survey.PathResolver{}, "cube", sel, WithFormat("MEM"))
	require.NoError(t, err)
	_, err = r.NextHeader()
	assert.ErrorIs(t, err, ErrEndOfData)
	assert.NoError(t, r.Close())
}

func TestReaderCache(t *testing.T) {
	store := newMemStore()
	reg := memRegistry(t, store)
	store.put("cube", gridTraces(seg(1, 3, 1), seg(1, 3, 1), 1, 4), testSampling)

	var opens atomic.Int32
	cache := NewReaderCache(func() (*Reader, error) {
		opens.Add(1)
		return OpenRead(reg, survey.PathResolver{}, "cube", nil, WithFormat("MEM"))
	})

	const workers = 8
	var g errgroup.Group
	for w := range workers {
		g.Go(func() error {
			r, err := cache.Get(w)
			if err != nil {
				return err
			}
			again, err := cache.Get(w)
			if err != nil {
				return err
			}
			if again != r {
				return errors.New("worker got a different reader")
			}
			n := 0
			for {
				if _, err := r.NextHeader(); err != nil {
					if errors.Is(err, ErrEndOfData) {
						break
					}
					return err
				}
				if _, err := r.ReadSamples(); err != nil {
					return err
				}
				n++
			}
			if n != 9 {
				return errors.New("short read")
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.EqualValues(t, workers, opens.Load())
	assert.Equal(t, workers, cache.Len())

	require.NoError(t, cache.Release(0))
	require.NoError(t, cache.Release(0))
	assert.Equal(t, workers-1, cache.Len())

	require.NoError(t, cache.Close())
	_, err := cache.Get(1)
	assert.ErrorIs(t, err, ErrWrongState)
}

func TestReaderCacheOpenFailure(t *testing.T) {
	cache := NewReaderCache(func() (*Reader, error) { return nil, ErrBadConnection })
	_, err := cache.Get(3)
	assert.ErrorIs(t, err, ErrBadConnection)
	assert.Zero(t, cache.Len())
}

