package pmemkit

// Noop performs the requested memory mutations and no durability
// operation whatsoever. It exists so the same call sites can run
// against purely volatile memory, e.g. correctness tests without a
// PMEM device, while keeping the interface uniform.
//
// UNSAFE FOR DURABILITY: nothing written through this strategy is
// guaranteed to survive a crash or power failure.
type Noop struct {
	log *Logger
}

// NewNoop constructs the no-durability strategy.
func NewNoop(opts ...Option) *Noop {
	o := newOptions(opts...)
	return &Noop{log: o.logger}
}

// Name implements Ops.
func (n *Noop) Name() string { return StrategyNoop.String() }

// Persist implements Ops as a no-op.
func (n *Noop) Persist(buf []byte) {}

// Flush implements Ops as a no-op.
func (n *Noop) Flush(buf []byte) {}

// Drain implements Ops as a no-op.
func (n *Noop) Drain() {}

// Memcpy implements Ops: the copy happens, nothing is flushed.
func (n *Noop) Memcpy(dst, src []byte) {
	n.log.logRange("memcpy", n.Name(), addrOf(dst), min(len(dst), len(src)))
	n.Memmove(dst, src)
}

// Memmove implements Ops: the move happens, nothing is flushed.
func (n *Noop) Memmove(dst, src []byte) {
	copy(dst, src)
}

// Memset implements Ops: the fill happens, nothing is flushed.
func (n *Noop) Memset(buf []byte, c byte) {
	n.log.logRange("memset", n.Name(), addrOf(buf), len(buf))
	memset(buf, c)
}

// StreamingWr implements Ops. No non-temporal path exists for this
// strategy; calling it is a programming error.
func (n *Noop) StreamingWr(dst, src []byte) {
	panic("pmemkit: StreamingWr is unimplemented for the noop strategy")
}
