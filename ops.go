package pmemkit

import (
	"os"
	"strings"
	"unsafe"

	"github.com/pmemkit/pmemkit/internal/cachectl"
)

// CacheLineSize is the unit every flush operation works in. Ranges are
// rounded down to this boundary internally; callers never need to
// align anything.
const CacheLineSize = cachectl.CacheLineSize

// ForceEnvVar overrides automatic strategy selection in New, e.g.
// PMEMKIT_FORCE=msync. Read once at first use.
const ForceEnvVar = "PMEMKIT_FORCE"

// Ops is the durability contract. Every mutating operation (Memcpy,
// Memmove, Memset) flushes the exact touched range and drains before
// returning, so the destination is durable when the call completes -
// except on the Noop strategy, which deliberately skips all of that.
//
// Ranges are plain byte slices; the caller guarantees the memory stays
// mapped and writable for the duration of the call.
type Ops interface {
	// Persist makes previously written bytes in buf durable.
	// Equivalent to Flush followed by Drain.
	Persist(buf []byte)

	// Flush issues a cache write-back or invalidate for every cache
	// line intersecting buf, without ordering against later stores.
	Flush(buf []byte)

	// Drain orders all flushes issued before the call ahead of any
	// store issued after it.
	Drain()

	// Memcpy copies src into dst, then flushes and drains dst.
	Memcpy(dst, src []byte)

	// Memmove is Memcpy with move semantics: correct when dst and src
	// overlap.
	Memmove(dst, src []byte)

	// Memset fills buf with c, then flushes and drains.
	Memset(buf []byte, c byte)

	// StreamingWr copies src into dst using non-temporal stores that
	// bypass the cache. It does NOT flush or drain: non-temporal
	// stores still sit in the store buffer, so callers must Drain
	// before relying on ordering or durability. Only the WriteBack
	// strategy implements it; every other strategy panics. The length
	// must be a multiple of 4 bytes. The destination may start at any
	// address: misaligned heads are copied with narrow stores until
	// the wide aligned kernels apply.
	StreamingWr(dst, src []byte)

	// Name identifies the strategy, e.g. "clwb" or "msync".
	Name() string
}

// Strategy selects a concrete Ops implementation.
type Strategy uint8

const (
	// StrategyAuto picks the best supported strategy at construction.
	StrategyAuto Strategy = iota
	// StrategyWriteBack flushes with CLWB.
	StrategyWriteBack
	// StrategyFlushOpt flushes with CLFLUSHOPT.
	StrategyFlushOpt
	// StrategyMsync flushes through the OS with msync(MS_SYNC).
	StrategyMsync
	// StrategyNoop mutates memory without any durability operation.
	StrategyNoop
)

// String returns the instruction-flavored name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyAuto:
		return "auto"
	case StrategyWriteBack:
		return "clwb"
	case StrategyFlushOpt:
		return "clflushopt"
	case StrategyMsync:
		return "msync"
	case StrategyNoop:
		return "noop"
	default:
		return "unknown"
	}
}

// ParseStrategy parses a strategy name as used by String and the
// PMEMKIT_FORCE environment variable.
func ParseStrategy(s string) (Strategy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto":
		return StrategyAuto, true
	case "clwb", "writeback":
		return StrategyWriteBack, true
	case "clflushopt", "flushopt":
		return StrategyFlushOpt, true
	case "msync", "sync":
		return StrategyMsync, true
	case "noop", "nopersist":
		return StrategyNoop, true
	default:
		return StrategyAuto, false
	}
}

// Available reports whether the strategy can run on this CPU and OS.
func (s Strategy) Available() bool {
	switch s {
	case StrategyAuto, StrategyMsync, StrategyNoop:
		return true
	case StrategyWriteBack:
		return cachectl.HasWriteBack() && cachectl.HasFence()
	case StrategyFlushOpt:
		return cachectl.HasFlushOpt() && cachectl.HasFence()
	default:
		return false
	}
}

// Best returns the most efficient strategy the CPU supports:
// WriteBack, then FlushOpt, then Msync.
func Best() Strategy {
	if StrategyWriteBack.Available() {
		return StrategyWriteBack
	}
	if StrategyFlushOpt.Available() {
		return StrategyFlushOpt
	}
	return StrategyMsync
}

// New constructs the Ops implementation for the best available
// strategy. PMEMKIT_FORCE overrides the choice when it names an
// available strategy; an unknown or unavailable value falls back to
// detection with a warning.
func New(opts ...Option) Ops {
	o := newOptions(opts...)

	s := o.strategy
	if s == StrategyAuto {
		if forced, ok := forcedStrategy(o.logger); ok {
			s = forced
		}
	}
	if s == StrategyAuto {
		s = Best()
	}

	switch s {
	case StrategyWriteBack:
		return NewWriteBack(opts...)
	case StrategyFlushOpt:
		return NewFlushOpt(opts...)
	case StrategyNoop:
		return NewNoop(opts...)
	default:
		return NewMsync(opts...)
	}
}

func forcedStrategy(log *Logger) (Strategy, bool) {
	val := os.Getenv(ForceEnvVar)
	if val == "" {
		return StrategyAuto, false
	}
	s, ok := ParseStrategy(val)
	if !ok {
		log.Warn("ignoring unknown strategy override", "var", ForceEnvVar, "value", val)
		return StrategyAuto, false
	}
	if !s.Available() {
		log.Warn("ignoring unavailable strategy override", "var", ForceEnvVar, "strategy", s.String())
		return StrategyAuto, false
	}
	return s, s != StrategyAuto
}

// fatalCapability terminates the process over a missing hardware
// capability. Continuing would silently void durability guarantees.
func fatalCapability(log *Logger, strategy, capability string) {
	log.Error("strategy requires an unavailable hardware capability",
		"strategy", strategy,
		"capability", capability,
	)
	os.Exit(1)
}

// flushRange invokes line once per cache line intersecting buf,
// starting at the line containing the first byte and ending at the one
// containing the last, partial lines included.
func flushRange(line func(unsafe.Pointer), buf []byte) {
	if len(buf) == 0 {
		return
	}
	base := unsafe.Pointer(unsafe.SliceData(buf))
	head := uintptr(base) & (CacheLineSize - 1)
	start := unsafe.Add(base, -int(head))
	lines := (head + uintptr(len(buf)) + CacheLineSize - 1) / CacheLineSize
	for i := uintptr(0); i < lines; i++ {
		line(unsafe.Add(start, i*CacheLineSize))
	}
}

// addrOf returns the start address of buf for diagnostics.
func addrOf(buf []byte) uintptr {
	if cap(buf) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
}

// memset fills buf with c. The Go compiler lowers this loop to a bulk
// memclr/memset.
func memset(buf []byte, c byte) {
	for i := range buf {
		buf[i] = c
	}
}

var (
	_ Ops = (*WriteBack)(nil)
	_ Ops = (*FlushOpt)(nil)
	_ Ops = (*Msync)(nil)
	_ Ops = (*Noop)(nil)
	_ Ops = (*TraceOps)(nil)
)
