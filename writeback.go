package pmemkit

import (
	"unsafe"

	"github.com/pmemkit/pmemkit/internal/cachectl"
)

// WriteBack persists with CLWB, which pushes a dirty line to memory
// without evicting it from cache, so a line that is written again soon
// after stays hot. Bulk copies can additionally go through the
// non-temporal streaming path. The preferred strategy wherever the CPU
// advertises CLWB.
type WriteBack struct {
	log       *Logger
	flushLine func(unsafe.Pointer)
	evictLine func(unsafe.Pointer)
	fence     func()
}

// NewWriteBack constructs the CLWB-based strategy. Fatal if the CPU
// does not advertise CLWB and SFENCE: there is no safe fallback once a
// caller has committed to this strategy.
func NewWriteBack(opts ...Option) *WriteBack {
	o := newOptions(opts...)
	if !cachectl.HasWriteBack() {
		fatalCapability(o.logger, StrategyWriteBack.String(), "clwb")
	}
	if !cachectl.HasFence() {
		fatalCapability(o.logger, StrategyWriteBack.String(), "sfence")
	}
	return &WriteBack{
		log:       o.logger,
		flushLine: cachectl.WriteBackLine,
		evictLine: cachectl.EvictLine,
		fence:     cachectl.Fence,
	}
}

// Name implements Ops.
func (w *WriteBack) Name() string { return StrategyWriteBack.String() }

// Persist implements Ops.
func (w *WriteBack) Persist(buf []byte) {
	w.log.logRange("persist", w.Name(), addrOf(buf), len(buf))
	w.Flush(buf)
	w.Drain()
}

// Flush implements Ops: one CLWB per cache line intersecting buf.
func (w *WriteBack) Flush(buf []byte) {
	flushRange(w.flushLine, buf)
}

// Drain implements Ops: SFENCE.
func (w *WriteBack) Drain() {
	w.fence()
}

// Evict pushes every cache line of buf to memory and invalidates it,
// forcing the next read to come from media. Not part of the Ops
// contract; useful when measuring real PMEM read latency.
func (w *WriteBack) Evict(buf []byte) {
	flushRange(w.evictLine, buf)
}

// Memcpy implements Ops.
func (w *WriteBack) Memcpy(dst, src []byte) {
	w.log.logRange("memcpy", w.Name(), addrOf(dst), min(len(dst), len(src)))
	w.Memmove(dst, src)
}

// Memmove implements Ops.
func (w *WriteBack) Memmove(dst, src []byte) {
	n := copy(dst, src)
	w.Flush(dst[:n])
	w.Drain()
}

// Memset implements Ops.
func (w *WriteBack) Memset(buf []byte, c byte) {
	w.log.logRange("memset", w.Name(), addrOf(buf), len(buf))
	memset(buf, c)
	w.Flush(buf)
	w.Drain()
}

// StreamingWr implements Ops using non-temporal stores, chunked
// greedily from the widest SIMD width the CPU supports down to 4
// bytes. The vector stores require an aligned destination, so a
// misaligned head is walked with the alignment-free 4/8-byte stores
// until the wide kernels apply; dst itself may start anywhere. The
// caller must Drain afterwards; the stores bypass cache but still
// reorder in the store buffer.
//
// Lengths that are not a multiple of 4 panic: the narrowest
// non-temporal store moves 4 bytes and a silent 1-3 byte tail would be
// a correctness trap.
func (w *WriteBack) StreamingWr(dst, src []byte) {
	n := len(src)
	if n == 0 {
		return
	}
	if len(dst) < n {
		panic("pmemkit: StreamingWr destination shorter than source")
	}
	if n%4 != 0 {
		panic("pmemkit: StreamingWr length must be a multiple of 4 bytes")
	}
	w.log.logRange("streaming_wr", w.Name(), addrOf(dst), n)
	cachectl.StreamCopy(
		unsafe.Pointer(unsafe.SliceData(dst)),
		unsafe.Pointer(unsafe.SliceData(src)),
		uintptr(n),
	)
}
