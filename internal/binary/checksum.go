package binary

import "github.com/cespare/xxhash/v2"

// Checksum computes the 64-bit xxHash used to protect CBVS info blocks and
// trailers.
func Checksum(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// VerifyChecksum verifies data against an expected checksum.
func VerifyChecksum(data []byte, expected uint64) bool {
	return Checksum(data) == expected
}
