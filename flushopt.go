package pmemkit

import (
	"unsafe"

	"github.com/pmemkit/pmemkit/internal/cachectl"
)

// FlushOpt persists with CLFLUSHOPT, the weakly-ordered invalidating
// flush. Unlike CLFLUSH, consecutive CLFLUSHOPTs pipeline; unlike
// CLWB, the line leaves the cache, so re-reads after a flush pay a
// memory round trip. For CPUs that have CLFLUSHOPT but not CLWB.
type FlushOpt struct {
	log       *Logger
	flushLine func(unsafe.Pointer)
	fence     func()
}

// NewFlushOpt constructs the CLFLUSHOPT-based strategy. Fatal if the
// CPU does not advertise CLFLUSHOPT and SFENCE.
func NewFlushOpt(opts ...Option) *FlushOpt {
	o := newOptions(opts...)
	if !cachectl.HasFlushOpt() {
		fatalCapability(o.logger, StrategyFlushOpt.String(), "clflushopt")
	}
	if !cachectl.HasFence() {
		fatalCapability(o.logger, StrategyFlushOpt.String(), "sfence")
	}
	return &FlushOpt{
		log:       o.logger,
		flushLine: cachectl.FlushOptLine,
		fence:     cachectl.Fence,
	}
}

// Name implements Ops.
func (f *FlushOpt) Name() string { return StrategyFlushOpt.String() }

// Persist implements Ops.
func (f *FlushOpt) Persist(buf []byte) {
	f.log.logRange("persist", f.Name(), addrOf(buf), len(buf))
	f.Flush(buf)
	f.Drain()
}

// Flush implements Ops: one CLFLUSHOPT per cache line intersecting
// buf.
func (f *FlushOpt) Flush(buf []byte) {
	flushRange(f.flushLine, buf)
}

// Drain implements Ops: SFENCE.
func (f *FlushOpt) Drain() {
	f.fence()
}

// Memcpy implements Ops.
func (f *FlushOpt) Memcpy(dst, src []byte) {
	f.log.logRange("memcpy", f.Name(), addrOf(dst), min(len(dst), len(src)))
	f.Memmove(dst, src)
}

// Memmove implements Ops.
func (f *FlushOpt) Memmove(dst, src []byte) {
	n := copy(dst, src)
	f.Flush(dst[:n])
	f.Drain()
}

// Memset implements Ops.
func (f *FlushOpt) Memset(buf []byte, c byte) {
	f.log.logRange("memset", f.Name(), addrOf(buf), len(buf))
	memset(buf, c)
	f.Flush(buf)
	f.Drain()
}

// StreamingWr implements Ops. There is no non-temporal fast path for
// this strategy; calling it is a programming error.
func (f *FlushOpt) StreamingWr(dst, src []byte) {
	panic("pmemkit: StreamingWr is unimplemented for the clflushopt strategy")
}
