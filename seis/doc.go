// Package seis reads and writes seismic trace datasets independently of
// their on-disk format.
//
// A [Translator] drives one read or one write of a dataset through a
// format-specific [Codec]. Formats are registered by name in a
// [FormatRegistry]; datasets are located through a [survey.Resolver].
// Most callers use the [Reader] and [Writer] returned by [OpenRead] and
// [OpenWrite]:
//
//	r, err := seis.OpenRead(reg, catalog, "survey/near", seis.NewRangeBox(start, stop, step))
//	if err != nil {
//		return err
//	}
//	defer r.Close()
//	for {
//		hdr, err := r.NextHeader()
//		if errors.Is(err, seis.ErrEndOfData) {
//			break
//		}
//		...
//		trc, err := r.ReadSamples()
//	}
//
// # Writing
//
// Written traces are buffered per inline (or per window of 2D traces). Each
// block is sorted by crossline and reduced to one trace per position before
// it reaches the codec; with [WithRegularize] the positions of the declared
// range that received no trace are written as zero-valued filler traces.
//
// # Concurrency
//
// A Translator, Reader or Writer belongs to one goroutine. Independent
// readers of the same dataset may run concurrently; [ReaderCache] keeps one
// per worker.
package seis
