package seis

import (
	"errors"
	"fmt"
)

// Error classes. Codecs wrap these so callers can classify with errors.Is.
var (
	ErrBadConnection  = errors.New("cannot open data stream")
	ErrCorruptHeader  = errors.New("corrupt header")
	ErrCorruptDataset = errors.New("corrupt dataset")
	ErrConfiguration  = errors.New("invalid configuration")
	ErrWrongState     = errors.New("operation not valid in current state")

	// ErrMissingSiblingFile is an ErrCorruptDataset.
	ErrMissingSiblingFile = fmt.Errorf("%w: missing sibling file", ErrCorruptDataset)

	// ErrNoMatchingComponents is an ErrConfiguration.
	ErrNoMatchingComponents = fmt.Errorf("%w: no matching components", ErrConfiguration)

	// ErrUnknownFormat is an ErrConfiguration.
	ErrUnknownFormat = fmt.Errorf("%w: unknown format", ErrConfiguration)
)

// ErrEndOfData ends a read loop. It is not a failure.
var ErrEndOfData = errors.New("end of data")

// ErrNoRelevantData reports that a selection intersects nothing stored. It
// is a normal outcome the caller must check for, not a failure.
var ErrNoRelevantData = errors.New("no relevant data")

// CodecError is an I/O failure inside a codec.
type CodecError struct {
	Op   string
	Path string
	Err  error
}

func (e *CodecError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }
