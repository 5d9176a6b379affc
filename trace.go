package pmemkit

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// TraceCounts is a snapshot of the operations a TraceOps has seen.
// Each field counts calls made through the wrapper, not the work the
// wrapped strategy performed: a Persist counts once as a persist, with
// no inferred flush or drain, since what Persist does internally
// varies by strategy (msync issues no fence, noop does nothing).
type TraceCounts struct {
	Flushes   uint64
	Drains    uint64
	Persists  uint64
	Memcpys   uint64
	Memmoves  uint64
	Memsets   uint64
	Streaming uint64
}

// TraceOps decorates an Ops with call counting and a record of every
// cache line whose flush was requested. It is how tests assert that a
// strategy touched exactly the lines it should have - and that the
// no-op strategy touched none - and what pmemcheck uses for its flush
// report.
//
// Unlike the strategies it wraps, TraceOps takes a lock per call; keep
// it out of production hot paths.
type TraceOps struct {
	ops Ops

	mu     sync.Mutex
	counts TraceCounts
	lines  *roaring64.Bitmap
}

// NewTraceOps wraps ops with tracing.
func NewTraceOps(ops Ops) *TraceOps {
	return &TraceOps{
		ops:   ops,
		lines: roaring64.New(),
	}
}

// Unwrap returns the decorated Ops.
func (t *TraceOps) Unwrap() Ops { return t.ops }

// Name implements Ops.
func (t *TraceOps) Name() string { return t.ops.Name() }

// Counts returns a snapshot of the call counters.
func (t *TraceOps) Counts() TraceCounts {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts
}

// TouchedLines returns how many distinct cache lines have had a flush
// requested through this wrapper.
func (t *TraceOps) TouchedLines() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lines.GetCardinality()
}

// Reset clears the counters and the touched-line set.
func (t *TraceOps) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts = TraceCounts{}
	t.lines.Clear()
}

// recordLines adds every cache line intersecting buf to the
// touched-line set. Caller holds t.mu.
func (t *TraceOps) recordLines(buf []byte) {
	if len(buf) == 0 {
		return
	}
	first := uint64(addrOf(buf)) / CacheLineSize
	last := uint64(addrOf(buf)+uintptr(len(buf))-1) / CacheLineSize
	t.lines.AddRange(first, last+1)
}

// Persist implements Ops.
func (t *TraceOps) Persist(buf []byte) {
	t.mu.Lock()
	t.counts.Persists++
	t.recordLines(buf)
	t.mu.Unlock()
	t.ops.Persist(buf)
}

// Flush implements Ops.
func (t *TraceOps) Flush(buf []byte) {
	t.mu.Lock()
	t.counts.Flushes++
	t.recordLines(buf)
	t.mu.Unlock()
	t.ops.Flush(buf)
}

// Drain implements Ops.
func (t *TraceOps) Drain() {
	t.mu.Lock()
	t.counts.Drains++
	t.mu.Unlock()
	t.ops.Drain()
}

// Memcpy implements Ops. Only the call is counted; the flush the
// strategy performs internally is part of its own contract and is not
// added to the touched-line set.
func (t *TraceOps) Memcpy(dst, src []byte) {
	t.mu.Lock()
	t.counts.Memcpys++
	t.mu.Unlock()
	t.ops.Memcpy(dst, src)
}

// Memmove implements Ops.
func (t *TraceOps) Memmove(dst, src []byte) {
	t.mu.Lock()
	t.counts.Memmoves++
	t.mu.Unlock()
	t.ops.Memmove(dst, src)
}

// Memset implements Ops.
func (t *TraceOps) Memset(buf []byte, c byte) {
	t.mu.Lock()
	t.counts.Memsets++
	t.mu.Unlock()
	t.ops.Memset(buf, c)
}

// StreamingWr implements Ops.
func (t *TraceOps) StreamingWr(dst, src []byte) {
	t.mu.Lock()
	t.counts.Streaming++
	t.mu.Unlock()
	t.ops.StreamingWr(dst, src)
}
