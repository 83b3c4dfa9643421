package storage

import "errors"

var (
	ErrNotFinalized    = errors.New("storage: file was not finalized")
	ErrMissingSibling  = errors.New("storage: missing sibling file")
	ErrSiblingMismatch = errors.New("storage: sibling does not belong to dataset")
	ErrCorrupt         = errors.New("storage: corrupt file")
	ErrOrder           = errors.New("storage: trace out of order")
	ErrPruned          = errors.New("storage: position pruned")
	ErrUnknownPosition = errors.New("storage: position not stored")
	ErrClosed          = errors.New("storage: closed")
	ErrLayout          = errors.New("storage: trace does not match layout")
)
