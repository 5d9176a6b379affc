package mmap

import (
	"os"
	"sync/atomic"
)

// Mapping is a writable shared mapping of a file (or of anonymous
// memory). It owns the mapped byte slice and is responsible for
// unmapping it.
type Mapping struct {
	data   []byte
	size   int
	path   string
	dax    bool
	closed atomic.Bool
	// unmap is the platform-specific function to unmap the memory.
	unmap func([]byte) error
}

// Map maps the file at path read-write, creating it if necessary and
// growing it to size bytes. On Linux the mapping is established with
// MAP_SYNC when the backing filesystem supports DAX, which IsDAX
// reports.
func Map(path string, size int) (*Mapping, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.Size() < int64(size) {
		if err := f.Truncate(int64(size)); err != nil {
			return nil, err
		}
	}

	data, dax, unmapFunc, err := osMap(f, size)
	if err != nil {
		return nil, err
	}

	return &Mapping{
		data:  data,
		size:  size,
		path:  path,
		dax:   dax,
		unmap: unmapFunc,
	}, nil
}

// MapAnon creates a writable anonymous mapping. Anonymous memory has
// no backing store; it exists so volatile test runs can exercise the
// same call sites as a real PMEM device.
func MapAnon(size int) (*Mapping, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	data, unmapFunc, err := osMapAnon(size)
	if err != nil {
		return nil, err
	}

	return &Mapping{
		data:  data,
		size:  size,
		unmap: unmapFunc,
	}, nil
}

// Close unmaps the memory. It is idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil // Already closed
	}
	if m.unmap != nil && m.data != nil {
		return m.unmap(m.data)
	}
	return nil
}

// Bytes returns the mapped byte slice.
// Warning: The slice is valid only until Close() is called.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Size returns the size of the mapping in bytes.
func (m *Mapping) Size() int {
	return m.size
}

// Path returns the backing file path, empty for anonymous mappings.
func (m *Mapping) Path() string {
	return m.path
}

// IsDAX reports whether the mapping was established with MAP_SYNC,
// meaning userspace cache flushes alone make stores durable.
func (m *Mapping) IsDAX() bool {
	return m.dax
}

// Sync forces the dirty pages covering [off, off+n) to the backing
// store and blocks until they reach media. The range is rounded out to
// page boundaries, so neighbouring bytes may be written as well.
func (m *Mapping) Sync(off, n int) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if off < 0 || n < 0 || off+n > m.size {
		return ErrOutOfBounds
	}
	if n == 0 || m.path == "" {
		return nil // nothing to push for anonymous memory
	}
	return osSync(m.data, off, n)
}

// Advise provides kernel hints for how the memory will be accessed.
func (m *Mapping) Advise(pattern AccessPattern) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if m.data == nil {
		return nil
	}
	return osAdvise(m.data, pattern)
}
