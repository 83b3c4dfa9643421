// Package storage implements the CBVS file set: one or more sibling files
// sharing a dataset id, each made of a preamble, an info block, fixed-size
// trace records and a trailer holding the positions stored in the file.
//
// A dataset is either trace-major, optionally split by size into sibling
// files at line boundaries, or vertically bricked, with one file per sample
// slab. Siblings are named <base>, <base>.1, <base>.2 and so on, either next
// to each other or inside a directory named <base>.
//
// [WriteManager] appends records in line order and rotates to a new sibling
// only between lines. [WriteManager.EnsureConsistency] must follow every
// flushed block: it commits the block's positions to the trailer geometry of
// the file they landed in. [ReadManager] opens every sibling, checks that they
// belong together and merges their geometries; [ReadManager.Prune] narrows it
// to the files and slabs a request can touch.
package storage
