// Package mmap provides writable shared memory mappings for
// persistent-memory files.
//
// # Overview
//
// PMEM is programmed through ordinary loads and stores against a
// mapped file, so every durable structure starts with an mmap. The
// package maps files read-write with MAP_SHARED and, on Linux, probes
// for MAP_SYNC so that DAX-capable filesystems get synchronous page
// faults: with a MAP_SYNC mapping a userspace cache flush alone is
// enough for durability, no msync required.
//
// # Usage
//
//	m, err := mmap.Map("heap.pmem", 1<<20)
//	if err != nil { ... }
//	defer m.Close()
//
//	buf := m.Bytes()      // load/store directly
//	err = m.Sync(0, 4096) // push a dirty range to media
//
// # Thread Safety
//
// A Mapping is safe for concurrent use; Close is idempotent and
// guarded by an atomic flag. Callers must not touch Bytes() after
// Close returns.
package mmap
