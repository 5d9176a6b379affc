// Package cachectl provides the cache-control and non-temporal store
// primitives that back the durability strategies: per-line write-back
// (CLWB), optimized flush (CLFLUSHOPT), eviction (CLFLUSH), store
// fencing (SFENCE) and SIMD streaming copies.
//
// # Dispatch
//
// Kernels are function pointers selected once at package init based on
// the CPU features detected at startup. Hot paths never branch on
// capability: a binary either wired a kernel during init or the kernel
// slot holds a fail-fast stub. This mirrors how instruction selection
// must work for these operations - CLWB and CLFLUSHOPT are undefined on
// CPUs that do not advertise them, so there is no safe mid-call
// fallback.
//
// # Platform Support
//
// amd64 is the only architecture with explicit cache-line flushing and
// non-temporal stores wired in. On every other GOARCH the kernels are
// stubs that log the missing capability and terminate the process;
// callers are expected to select an msync-based or no-op strategy
// there.
//
// # Thread Safety
//
// All state is written during init and read-only afterwards. Every
// exported function is safe for concurrent use.
package cachectl
