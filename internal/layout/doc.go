// Package layout computes where trace data lives inside CBVS files.
//
// # Trace Records
//
// Trace data is stored as fixed-size records, so the record of the n-th
// trace of a file starts at DataOffset + n*[Record.Size]. A record holds:
//
//   - Line number and trace (crossline) number, int32 each
//   - A flags byte (bit 0 marks synthesized filler traces)
//   - The auxiliary scalars selected by the file's [AuxMask]
//   - For each component in turn, the samples of the file's slab
//
// Because every component occupies a known byte range, a reader fetches only
// the components and the sample sub-range it was asked for.
//
// # Vertical Bricks
//
// By default a dataset is trace-major: each file holds complete traces. A
// [BrickSpec] instead cuts the sample axis into slabs and writes one file per
// slab, so a horizontal slice touches a single file. See [Slabs].
package layout
