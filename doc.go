// Package pmemkit implements durability operations for byte-addressable
// persistent memory (PMEM).
//
// PMEM is written with ordinary stores, but a store only becomes
// durable once its cache line has been flushed and the flush has been
// fenced. Which instructions do that cheapest differs across CPU
// generations, so the package exposes one small contract, Ops, with
// four interchangeable strategies behind it:
//
//   - WriteBack: CLWB per cache line + SFENCE, with a non-temporal
//     streaming fast path for bulk copies. The cheapest option where
//     available, since CLWB keeps the line in cache.
//   - FlushOpt: CLFLUSHOPT per cache line + SFENCE. Invalidates the
//     line; no streaming fast path.
//   - Msync: delegates to the OS via msync(MS_SYNC). Page granularity,
//     higher latency, works on any unix and on non-DAX filesystems.
//   - Noop: performs the memory mutation and skips durability
//     entirely. For running the same call sites against volatile
//     memory in tests. Provides no durability guarantee whatsoever.
//
// New picks the best strategy the CPU supports; explicit constructors
// exist for callers that must pin one.
//
//	ops := pmemkit.New()
//	ops.Memset(buf, 0)          // fill, flush, fence
//	copy(buf, record)           // plain stores...
//	ops.Persist(buf)            // ...made durable here
//
// # Failure Model
//
// Invoking a path whose instruction the CPU lacks terminates the
// process with a message naming the missing capability. There is no
// safe fallback once the wrong strategy is in use: continuing would
// hand out durability guarantees the hardware never made. msync
// failures are the one exception - they are reported through the
// configured logger and LastErr, since they can be transient.
//
// # Concurrency
//
// Strategies hold no mutable state and a single instance may be shared
// freely across goroutines. Concurrent operations on overlapping
// ranges carry exactly the usual shared-memory caveats; the package
// adds no locking of its own.
package pmemkit
