package pmemlog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
	"sync"

	"github.com/pmemkit/pmemkit"
	"github.com/pmemkit/pmemkit/internal/mmap"
)

const (
	// magic identifies a pmemlog file ("pmemlog1", little-endian).
	magic   = uint64(0x31676f6c6d656d70)
	version = uint32(1)

	// headerSize is the log header: magic(8) version(4) reserved(4)
	// tail(8), zero-padded to one cache line.
	headerSize = 64

	// recHdrSize is the per-record header: size(4) crc(4), padded to a
	// cache line so every payload starts 64-byte aligned and large
	// appends can use non-temporal stores.
	recHdrSize = 64

	// recordAlign pads each payload so the next record header is
	// cache-line aligned again.
	recordAlign = 64

	// streamThreshold is the payload size from which the streaming
	// write path pays off over memcpy+flush.
	streamThreshold = 256
)

const (
	offMagic   = 0
	offVersion = 8
	offTail    = 16
)

var (
	// ErrBadMagic is returned when the file is not a pmemlog.
	ErrBadMagic = errors.New("pmemlog: bad magic")
	// ErrBadVersion is returned for an unsupported format version.
	ErrBadVersion = errors.New("pmemlog: unsupported version")
	// ErrCorrupt is returned when a committed record fails its
	// checksum or points outside the committed region.
	ErrCorrupt = errors.New("pmemlog: corrupt record")
	// ErrLogFull is returned when an append does not fit.
	ErrLogFull = errors.New("pmemlog: log is full")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("pmemlog: log is closed")
	// ErrTooLarge is returned for a payload exceeding the record
	// format's 4 GiB limit.
	ErrTooLarge = errors.New("pmemlog: payload too large")
)

// Log is an append-only record log on a persistent mapping.
// Safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	m       *mmap.Mapping
	ops     pmemkit.Ops
	log     *pmemkit.Logger
	tail    int
	records int
	closed  bool
}

// Option configures Create and Open.
type Option func(*config)

type config struct {
	logger *pmemkit.Logger
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *pmemkit.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func newConfig(opts ...Option) config {
	c := config{logger: pmemkit.NoopLogger()}
	for _, fn := range opts {
		fn(&c)
	}
	return c
}

// Create initializes a new log of the given capacity at path,
// truncating any previous content. Durability of all writes goes
// through ops.
func Create(path string, size int, ops pmemkit.Ops, opts ...Option) (*Log, error) {
	if size < headerSize+recHdrSize {
		return nil, fmt.Errorf("pmemlog: capacity %d below minimum %d", size, headerSize+recHdrSize)
	}
	c := newConfig(opts...)

	m, err := mmap.Map(path, size)
	if err != nil {
		return nil, err
	}

	l := &Log{m: m, ops: ops, log: c.logger, tail: headerSize}

	buf := m.Bytes()
	var hdr [headerSize]byte
	binary.LittleEndian.PutUint64(hdr[offMagic:], magic)
	binary.LittleEndian.PutUint32(hdr[offVersion:], version)
	binary.LittleEndian.PutUint64(hdr[offTail:], headerSize)
	ops.Memcpy(buf[:headerSize], hdr[:])

	l.log.Info("log created", "path", path, "capacity", size, "strategy", ops.Name())
	return l, nil
}

// Open maps an existing log at path and recovers its committed state,
// verifying every record checksum up to the tail.
func Open(path string, size int, ops pmemkit.Ops, opts ...Option) (*Log, error) {
	if size < headerSize+recHdrSize {
		return nil, fmt.Errorf("pmemlog: capacity %d below minimum %d", size, headerSize+recHdrSize)
	}
	c := newConfig(opts...)

	m, err := mmap.Map(path, size)
	if err != nil {
		return nil, err
	}

	l := &Log{m: m, ops: ops, log: c.logger}
	if err := l.recover(); err != nil {
		m.Close()
		return nil, err
	}

	l.log.Info("log opened",
		"path", path,
		"records", l.records,
		"committed_bytes", l.tail,
		"strategy", ops.Name(),
	)
	return l, nil
}

// recover validates the header and walks the committed records.
func (l *Log) recover() error {
	buf := l.m.Bytes()
	if binary.LittleEndian.Uint64(buf[offMagic:]) != magic {
		return ErrBadMagic
	}
	if v := binary.LittleEndian.Uint32(buf[offVersion:]); v != version {
		return fmt.Errorf("%w: %d", ErrBadVersion, v)
	}

	tail := binary.LittleEndian.Uint64(buf[offTail:])
	if tail < headerSize || tail > uint64(len(buf)) {
		return fmt.Errorf("%w: tail offset %d out of range", ErrCorrupt, tail)
	}
	l.tail = int(tail)

	off := headerSize
	for off < l.tail {
		if l.tail-off < recHdrSize {
			return fmt.Errorf("%w: truncated record header at offset %d", ErrCorrupt, off)
		}
		size := int(binary.LittleEndian.Uint32(buf[off:]))
		sum := binary.LittleEndian.Uint32(buf[off+4:])

		payload := off + recHdrSize
		if size > l.tail-payload {
			return fmt.Errorf("%w: record at offset %d overruns tail", ErrCorrupt, off)
		}
		if crc32.ChecksumIEEE(buf[payload:payload+size]) != sum {
			return fmt.Errorf("%w: checksum mismatch at offset %d", ErrCorrupt, off)
		}

		l.records++
		off = payload + roundUp(size, recordAlign)
	}
	return nil
}

// Append adds payload as one record and returns once it is durable.
func (l *Log) Append(payload []byte) error {
	if uint64(len(payload)) > math.MaxUint32 {
		return ErrTooLarge
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}

	need := recHdrSize + roundUp(len(payload), recordAlign)
	if l.tail+need > l.m.Size() {
		return fmt.Errorf("%w: %d bytes needed, %d free", ErrLogFull, need, l.m.Size()-l.tail)
	}

	buf := l.m.Bytes()
	off := l.tail

	var hdr [recHdrSize]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(len(payload)))
	binary.LittleEndian.PutUint32(hdr[4:], crc32.ChecksumIEEE(payload))
	l.ops.Memcpy(buf[off:off+recHdrSize], hdr[:])

	l.writePayload(buf[off+recHdrSize:], payload)

	// The record is durable; moving the tail commits it.
	var tb [8]byte
	binary.LittleEndian.PutUint64(tb[:], uint64(off+need))
	l.ops.Memcpy(buf[offTail:offTail+8], tb[:])

	l.tail = off + need
	l.records++
	return nil
}

// writePayload copies payload into the cache-line-aligned dst window
// and makes it durable. Large 4-byte-multiple payloads take the
// non-temporal path when the strategy has one.
func (l *Log) writePayload(dst, payload []byte) {
	if len(payload) == 0 {
		return
	}
	if sw, ok := l.ops.(*pmemkit.WriteBack); ok &&
		len(payload) >= streamThreshold && len(payload)%4 == 0 {
		sw.StreamingWr(dst[:len(payload)], payload)
		sw.Drain()
		return
	}
	l.ops.Memcpy(dst[:len(payload)], payload)
}

// Records returns the number of committed records.
func (l *Log) Records() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.records
}

// CommittedBytes returns the size of the committed region, header
// included.
func (l *Log) CommittedBytes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tail
}

// Capacity returns the total capacity of the log in bytes.
func (l *Log) Capacity() int {
	return l.m.Size()
}

// Replay calls fn for every committed record in append order. The
// payload slice aliases the mapping and is valid only during the
// call.
func (l *Log) Replay(fn func(payload []byte) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}

	buf := l.m.Bytes()
	off := headerSize
	for off < l.tail {
		size := int(binary.LittleEndian.Uint32(buf[off:]))
		payload := off + recHdrSize
		if err := fn(buf[payload : payload+size : payload+size]); err != nil {
			return err
		}
		off = payload + roundUp(size, recordAlign)
	}
	return nil
}

// Reset discards all records. The header tail is rewound and
// persisted; record bytes are left in place and become dead.
func (l *Log) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}

	var tb [8]byte
	binary.LittleEndian.PutUint64(tb[:], headerSize)
	l.ops.Memcpy(l.m.Bytes()[offTail:offTail+8], tb[:])

	l.tail = headerSize
	l.records = 0
	return nil
}

// Close unmaps the log. Appends already returned are durable; there is
// nothing to flush.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.m.Close()
}

func roundUp(n, factor int) int {
	return (n + factor - 1) / factor * factor
}
