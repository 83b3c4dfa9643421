package superblock

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	binpkg "github.com/robert-malhotra/go-cbvs/internal/binary"
)

// Signature identifies a CBVS file: 0x89 C B V S \r \n 0x1a
var Signature = []byte{0x89, 'C', 'B', 'V', 'S', '\r', '\n', 0x1a}

// Version is the preamble version written by this package.
const Version = 1

// Size is the encoded preamble size in bytes.
const Size = 8 + 1 + 1 + 2 + 16 + 4*4 + 8*5 + 8

// Errors
var (
	ErrNotCBVS            = errors.New("not a CBVS file: signature not found")
	ErrUnsupportedVersion = errors.New("unsupported preamble version")
	ErrChecksum           = errors.New("preamble checksum mismatch")
	ErrInvalidPreamble    = errors.New("invalid preamble structure")
)

// Flag bits.
const (
	Flag2D uint16 = 1 << iota
	FlagPrestack
	FlagVertical
)

const (
	orderLittle = 0
	orderBig    = 1
)

// Preamble is the fixed header of one CBVS file.
type Preamble struct {
	Version   uint8
	ByteOrder binary.ByteOrder
	Flags     uint16

	// DatasetID is shared by every sibling of a multi-file dataset.
	DatasetID uuid.UUID

	// FileNr is this file's position among its siblings; FileCount is the
	// number of siblings, patched when the dataset is finalized.
	FileNr    uint32
	FileCount uint32

	// SlabFirst and SlabSamples give the sample slab stored in this file.
	// Trace-major files hold every sample in a single slab.
	SlabFirst   uint32
	SlabSamples uint32

	InfoOffset    uint64
	InfoLength    uint64
	DataOffset    uint64
	TrailerOffset uint64
	TrailerLength uint64
}

// Has reports whether flag f is set.
func (p *Preamble) Has(f uint16) bool {
	return p.Flags&f != 0
}

// Finalized reports whether the file's trailer was written.
func (p *Preamble) Finalized() bool {
	return p.TrailerOffset != 0
}

// Write encodes the preamble at offset 0 of w.
func (p *Preamble) Write(w io.WriterAt) error {
	order := p.ByteOrder
	if order == nil {
		order = binary.LittleEndian
	}
	buf := binpkg.NewBuffer(Size)
	bw := binpkg.NewWriter(buf, order)

	if err := bw.WriteBytes(Signature); err != nil {
		return err
	}
	version := p.Version
	if version == 0 {
		version = Version
	}
	orderFlag := uint8(orderLittle)
	if order == binary.BigEndian {
		orderFlag = orderBig
	}
	// The byte order flag is a single byte, readable before the order is known.
	for _, v := range []uint8{version, orderFlag} {
		if err := bw.WriteUint8(v); err != nil {
			return err
		}
	}
	if err := bw.WriteUint16(p.Flags); err != nil {
		return err
	}
	if err := bw.WriteBytes(p.DatasetID[:]); err != nil {
		return err
	}
	for _, v := range []uint32{p.FileNr, p.FileCount, p.SlabFirst, p.SlabSamples} {
		if err := bw.WriteUint32(v); err != nil {
			return err
		}
	}
	for _, v := range []uint64{p.InfoOffset, p.InfoLength, p.DataOffset, p.TrailerOffset, p.TrailerLength} {
		if err := bw.WriteUint64(v); err != nil {
			return err
		}
	}
	if err := bw.WriteUint64(binpkg.Checksum(buf.Bytes())); err != nil {
		return err
	}

	_, err := w.WriteAt(buf.Bytes(), 0)
	return err
}

// Read parses the preamble at offset 0 of r.
func Read(r io.ReaderAt) (*Preamble, error) {
	raw := make([]byte, Size)
	if n, err := r.ReadAt(raw, 0); n < Size {
		if n >= len(Signature) && !bytes.Equal(raw[:len(Signature)], Signature) {
			return nil, ErrNotCBVS
		}
		if err == nil || err == io.EOF {
			return nil, fmt.Errorf("%w: file holds %d bytes", ErrInvalidPreamble, n)
		}
		return nil, err
	}
	if !bytes.Equal(raw[:len(Signature)], Signature) {
		return nil, ErrNotCBVS
	}

	p := &Preamble{Version: raw[8]}
	if p.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, p.Version)
	}
	switch raw[9] {
	case orderLittle:
		p.ByteOrder = binary.LittleEndian
	case orderBig:
		p.ByteOrder = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: byte order flag %d", ErrInvalidPreamble, raw[9])
	}
	if !binpkg.VerifyChecksum(raw[:Size-8], p.ByteOrder.Uint64(raw[Size-8:])) {
		return nil, ErrChecksum
	}

	br := binpkg.NewReader(bytes.NewReader(raw), p.ByteOrder).At(10)
	var err error
	if p.Flags, err = br.ReadUint16(); err != nil {
		return nil, err
	}
	if err := br.ReadInto(p.DatasetID[:]); err != nil {
		return nil, err
	}
	for _, dst := range []*uint32{&p.FileNr, &p.FileCount, &p.SlabFirst, &p.SlabSamples} {
		if *dst, err = br.ReadUint32(); err != nil {
			return nil, err
		}
	}
	for _, dst := range []*uint64{&p.InfoOffset, &p.InfoLength, &p.DataOffset, &p.TrailerOffset, &p.TrailerLength} {
		if *dst, err = br.ReadUint64(); err != nil {
			return nil, err
		}
	}
	return p, nil
}
