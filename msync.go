package pmemkit

import "sync/atomic"

// Msync persists by handing the whole range to the OS via
// msync(MS_SYNC). Granularity is a page rather than a cache line and
// the call blocks until the data reaches stable storage, so it is the
// slowest strategy - and the only portable one: it needs no special
// instructions and works on non-DAX filesystems.
//
// Unlike a missing CPU capability, an msync failure can be transient
// (the kernel may be out of memory, the file may have been truncated),
// so failures are reported through the logger and LastErr instead of
// terminating the process.
type Msync struct {
	log *Logger
	err atomic.Pointer[error]
}

// NewMsync constructs the msync-based strategy. Available everywhere.
func NewMsync(opts ...Option) *Msync {
	o := newOptions(opts...)
	return &Msync{log: o.logger}
}

// Name implements Ops.
func (m *Msync) Name() string { return StrategyMsync.String() }

// Persist implements Ops. msync blocks until completion, so no
// separate drain is needed.
func (m *Msync) Persist(buf []byte) {
	m.Flush(buf)
}

// Flush implements Ops: msync(MS_SYNC) over the page-rounded range.
// The caller must ensure buf lies within a mapping; syncing unmapped
// memory is reported as an error.
func (m *Msync) Flush(buf []byte) {
	if len(buf) == 0 {
		return
	}
	m.log.logRange("msync", m.Name(), addrOf(buf), len(buf))
	if err := osMsync(buf); err != nil {
		m.err.Store(&err)
		m.log.Error("msync failed",
			"addr", addrOf(buf),
			"size", len(buf),
			"error", err,
		)
	}
}

// Drain implements Ops. The sync call is already synchronous; nothing
// to order.
func (m *Msync) Drain() {}

// LastErr returns the most recent msync failure, or nil. The value is
// sticky until the next failure overwrites it.
func (m *Msync) LastErr() error {
	if p := m.err.Load(); p != nil {
		return *p
	}
	return nil
}

// Memcpy implements Ops.
func (m *Msync) Memcpy(dst, src []byte) {
	m.log.logRange("memcpy", m.Name(), addrOf(dst), min(len(dst), len(src)))
	m.Memmove(dst, src)
}

// Memmove implements Ops.
func (m *Msync) Memmove(dst, src []byte) {
	n := copy(dst, src)
	m.Flush(dst[:n])
	m.Drain()
}

// Memset implements Ops.
func (m *Msync) Memset(buf []byte, c byte) {
	m.log.logRange("memset", m.Name(), addrOf(buf), len(buf))
	memset(buf, c)
	m.Flush(buf)
	m.Drain()
}

// StreamingWr implements Ops. No non-temporal path exists for this
// strategy; calling it is a programming error.
func (m *Msync) StreamingWr(dst, src []byte) {
	panic("pmemkit: StreamingWr is unimplemented for the msync strategy")
}
