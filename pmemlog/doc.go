// Package pmemlog implements an append-only record log on persistent
// memory.
//
// The log lives in a single mapped file. A 64-byte header holds the
// committed tail offset; records follow, each with its own 64-byte
// header (length + CRC32) so payloads start cache-line aligned and can
// take the non-temporal write path. Appends persist the record first
// and the tail second, so a crash between the two leaves the log at
// its previous committed state and recovery never sees a torn record.
//
//	l, err := pmemlog.Create("events.pmem", 1<<20, pmemkit.New())
//	if err != nil { ... }
//	defer l.Close()
//
//	if err := l.Append([]byte("hello")); err != nil { ... }
//
//	err = l.Replay(func(payload []byte) error { ... })
//
// Durability is delegated to the pmemkit.Ops the caller supplies: use
// a cache-flush strategy on DAX mappings, the msync strategy on
// regular file-backed mappings, or the no-op strategy for volatile
// tests.
//
// Backup and Restore move a log between PMEM and ordinary storage as
// a zstd-compressed stream.
package pmemlog
