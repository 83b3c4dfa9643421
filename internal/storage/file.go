package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/robert-malhotra/go-cbvs/internal/layout"
	"github.com/robert-malhotra/go-cbvs/internal/superblock"
)

// FileWriter appends records to one file of a set. Records are written at
// the current end, which only moves once a write succeeds, so a failed
// write can be repeated.
type FileWriter struct {
	path string
	f    *os.File
	out  io.WriterAt
	pre  superblock.Preamble
	end  int64
	nr   uint64
}

// CreateFile creates path and writes the preamble and info block. pre's
// offsets are filled in.
func CreateFile(path string, pre superblock.Preamble, info []byte) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	pre.InfoOffset = superblock.Size
	pre.InfoLength = uint64(len(info))
	pre.DataOffset = pre.InfoOffset + pre.InfoLength
	pre.TrailerOffset, pre.TrailerLength = 0, 0

	fw := &FileWriter{path: path, f: f, out: f, pre: pre, end: int64(pre.DataOffset)}
	if err := pre.Write(f); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.WriteAt(info, int64(pre.InfoOffset)); err != nil {
		f.Close()
		return nil, err
	}
	return fw, nil
}

// Path returns the file's path.
func (fw *FileWriter) Path() string { return fw.path }

// Size returns the offset the next record goes to.
func (fw *FileWriter) Size() int64 { return fw.end }

// Records returns the number of records written.
func (fw *FileWriter) Records() uint64 { return fw.nr }

// WriteRecords appends n records held in data. On failure nothing is
// counted and the next call writes at the same offset.
func (fw *FileWriter) WriteRecords(data []byte, n int) error {
	if len(data) == 0 {
		return nil
	}
	if _, err := fw.out.WriteAt(data, fw.end); err != nil {
		return fmt.Errorf("write records to %s: %w", fw.path, err)
	}
	fw.end += int64(len(data))
	fw.nr += uint64(n)
	return nil
}

// Finish writes the trailer, patches the preamble and closes the file.
func (fw *FileWriter) Finish(trailer []byte, fileCount int) error {
	if _, err := fw.f.WriteAt(trailer, fw.end); err != nil {
		fw.f.Close()
		return err
	}
	fw.pre.TrailerOffset = uint64(fw.end)
	fw.pre.TrailerLength = uint64(len(trailer))
	fw.pre.FileCount = uint32(fileCount)
	if err := fw.pre.Write(fw.f); err != nil {
		fw.f.Close()
		return err
	}
	return fw.f.Close()
}

// Abort closes the file without finishing it.
func (fw *FileWriter) Abort() error {
	return fw.f.Close()
}

// PatchFileCount rewrites the file count in the preamble of a finished file.
func PatchFileCount(path string, n int) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	pre, err := superblock.Read(f)
	if err != nil {
		f.Close()
		return err
	}
	pre.FileCount = uint32(n)
	if err := pre.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// FileReader reads records from one finished file.
type FileReader struct {
	Path    string
	Pre     *superblock.Preamble
	InfoRaw []byte
	Info    *Info
	Trailer Trailer
	Record  layout.Record

	f       *os.File
	recSize int64
}

// OpenFile opens a finished file and parses its preamble, info block and
// trailer. A missing file returns an error matching fs.ErrNotExist.
func OpenFile(path string) (*FileReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fr, err := parseFile(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return fr, nil
}

func parseFile(f *os.File, path string) (*FileReader, error) {
	pre, err := superblock.Read(f)
	if err != nil {
		return nil, err
	}
	if !pre.Finalized() {
		return nil, fmt.Errorf("%w: %s", ErrNotFinalized, path)
	}
	fr := &FileReader{Path: path, Pre: pre, f: f}

	fr.InfoRaw = make([]byte, pre.InfoLength)
	if _, err := f.ReadAt(fr.InfoRaw, int64(pre.InfoOffset)); err != nil {
		return nil, fmt.Errorf("%w: reading info: %v", ErrCorrupt, err)
	}
	if fr.Info, err = UnmarshalInfo(fr.InfoRaw, pre.ByteOrder); err != nil {
		return nil, err
	}
	raw := make([]byte, pre.TrailerLength)
	if _, err := f.ReadAt(raw, int64(pre.TrailerOffset)); err != nil {
		return nil, fmt.Errorf("%w: reading trailer: %v", ErrCorrupt, err)
	}
	if fr.Trailer, err = UnmarshalTrailer(raw, pre.ByteOrder); err != nil {
		return nil, err
	}

	fr.Record = fr.Info.Record(int(pre.SlabSamples))
	fr.recSize = int64(fr.Record.Size())
	if int64(pre.DataOffset)+int64(fr.Trailer.NrRecords)*fr.recSize != int64(pre.TrailerOffset) {
		return nil, fmt.Errorf("%w: %s: record area does not match %d records", ErrCorrupt, path, fr.Trailer.NrRecords)
	}
	return fr, nil
}

// ByteOrder returns the order of record headers.
func (fr *FileReader) ByteOrder() binary.ByteOrder { return fr.Pre.ByteOrder }

func (fr *FileReader) recordOffset(idx int) int64 {
	return int64(fr.Pre.DataOffset) + int64(idx)*fr.recSize
}

// ReadHeader reads the header of record idx.
func (fr *FileReader) ReadHeader(idx int, h *RecordHeader) error {
	if idx < 0 || uint64(idx) >= fr.Trailer.NrRecords {
		return fmt.Errorf("%w: record %d of %d", ErrUnknownPosition, idx, fr.Trailer.NrRecords)
	}
	buf := make([]byte, fr.Record.HeaderSize())
	if _, err := fr.f.ReadAt(buf, fr.recordOffset(idx)); err != nil {
		return err
	}
	parseRecordHeader(buf, h, fr.Record.Aux, fr.Pre.ByteOrder)
	return nil
}

// ReadSamples reads n samples of component c of record idx, starting at
// slab-relative sample first.
func (fr *FileReader) ReadSamples(idx, c, first, n int, buf []byte) ([]byte, error) {
	off, length := fr.Record.SampleRange(c, first, n)
	buf = growBytes(buf, length)
	if _, err := fr.f.ReadAt(buf, fr.recordOffset(idx)+int64(off)); err != nil {
		return nil, err
	}
	return buf, nil
}

// Close closes the file.
func (fr *FileReader) Close() error {
	return fr.f.Close()
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func growBytes(buf []byte, n int) []byte {
	if cap(buf) < n {
		return make([]byte, n)
	}
	return buf[:n]
}
