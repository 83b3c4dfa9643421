package seis

import (
	"errors"
	"sync"
)

// ReaderCache hands each worker its own Reader, opened on first use. The
// cache lock is held only while looking up or creating a reader; the reader
// itself must only be used by the worker it was handed to.
type ReaderCache struct {
	open func() (*Reader, error)

	mu      sync.Mutex
	readers map[int]*Reader
	closed  bool
}

// NewReaderCache returns a cache that opens readers with open.
func NewReaderCache(open func() (*Reader, error)) *ReaderCache {
	return &ReaderCache{open: open, readers: make(map[int]*Reader)}
}

// Get returns worker's reader, opening it when needed.
func (c *ReaderCache) Get(worker int) (*Reader, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrWrongState
	}
	if r, ok := c.readers[worker]; ok {
		return r, nil
	}
	r, err := c.open()
	if err != nil {
		return nil, err
	}
	c.readers[worker] = r
	return r, nil
}

// Release closes and forgets worker's reader.
func (c *ReaderCache) Release(worker int) error {
	c.mu.Lock()
	r, ok := c.readers[worker]
	delete(c.readers, worker)
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return r.Close()
}

// Len returns the number of open readers.
func (c *ReaderCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.readers)
}

// Close closes every reader. Later Get calls fail.
func (c *ReaderCache) Close() error {
	c.mu.Lock()
	readers := c.readers
	c.readers = make(map[int]*Reader)
	c.closed = true
	c.mu.Unlock()

	var errs []error
	for _, r := range readers {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
