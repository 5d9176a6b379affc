package pmemlog

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/pmemkit/pmemkit"
)

// backupMagic precedes the compressed stream so Restore can reject
// arbitrary files before decompressing ("pmlbak1\0").
var backupMagic = [8]byte{'p', 'm', 'l', 'b', 'a', 'k', '1', 0}

// Backup writes the committed region of the log to w as a
// zstd-compressed stream. The log stays usable; appends issued during
// the backup are not included.
func (l *Log) Backup(w io.Writer) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}

	if _, err := w.Write(backupMagic[:]); err != nil {
		return err
	}
	var sz [8]byte
	binary.LittleEndian.PutUint64(sz[:], uint64(l.tail))
	if _, err := w.Write(sz[:]); err != nil {
		return err
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if _, err := zw.Write(l.m.Bytes()[:l.tail]); err != nil {
		zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	l.log.Info("log backed up", "committed_bytes", l.tail, "records", l.records)
	return nil
}

// Restore materializes a backup stream into a new log file at path
// with the given capacity. The restored bytes are persisted through
// ops before Restore returns.
func Restore(path string, size int, r io.Reader, ops pmemkit.Ops, opts ...Option) (*Log, error) {
	var hdr [16]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("pmemlog: reading backup header: %w", err)
	}
	if [8]byte(hdr[:8]) != backupMagic {
		return nil, ErrBadMagic
	}
	committed := binary.LittleEndian.Uint64(hdr[8:])
	if committed < headerSize || committed > uint64(size) {
		return nil, fmt.Errorf("%w: backup of %d bytes does not fit capacity %d", ErrCorrupt, committed, size)
	}

	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	data := make([]byte, committed)
	if _, err := io.ReadFull(zr, data); err != nil {
		return nil, fmt.Errorf("pmemlog: decompressing backup: %w", err)
	}

	// Lay the image down first, then let Open re-run full recovery so
	// a tampered backup is caught by the same checksum walk.
	l, err := Create(path, size, ops, opts...)
	if err != nil {
		return nil, err
	}
	ops.Memcpy(l.m.Bytes()[:committed], data)
	if err := l.Close(); err != nil {
		return nil, err
	}

	return Open(path, size, ops, opts...)
}
