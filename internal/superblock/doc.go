// Package superblock reads and writes the fixed-size preamble at the start of
// every CBVS file.
//
// # File Signature
//
// CBVS files start with the 8-byte signature 0x89 C B V S \r \n 0x1a. The
// trailing control characters catch files mangled by text-mode transfers, the
// same trick PNG and HDF5 use.
//
// # Preamble Contents
//
// The [Preamble] structure contains:
//
//   - Version: format version, currently 1
//   - ByteOrder: byte order of every integer and offset in the file
//   - Flags: 2D, pre-stack and vertical-brick markers
//   - DatasetID: UUID shared by all sibling files of one dataset
//   - FileNr / FileCount: position of this file among its siblings
//   - SlabFirst / SlabSamples: the sample slab stored in this file
//   - InfoOffset / InfoLength: location of the info block
//   - DataOffset: start of the trace records
//   - TrailerOffset / TrailerLength: location of the trailer
//
// The preamble is written with zero counts and offsets when a file is
// created and rewritten in place when the file is finalized. A file whose
// TrailerOffset is still zero was never finalized.
//
// # Checksum
//
// The last 8 bytes hold the xxHash64 of the preceding preamble bytes.
package superblock
