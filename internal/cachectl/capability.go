package cachectl

import (
	"log/slog"
	"os"
	"runtime"
)

// CPU feature flags, set by platform-specific init and read-only
// afterwards. No mutex needed: Go guarantees init() runs before any
// other code in the package.
var (
	hasCLWB       bool // cache-line write-back without invalidate
	hasCLFLUSHOPT bool // optimized invalidating flush
	hasSFENCE     bool // store fence (SSE2 baseline on amd64)
	hasAVX        bool // 32-byte non-temporal stores
	hasAVX512F    bool // 64/128/256-byte non-temporal stores
)

// HasWriteBack reports whether CLWB is available.
func HasWriteBack() bool { return hasCLWB }

// HasFlushOpt reports whether CLFLUSHOPT is available.
func HasFlushOpt() bool { return hasCLFLUSHOPT }

// HasFence reports whether a store fence instruction is available.
func HasFence() bool { return hasSFENCE }

// HasAVX reports whether 32-byte streaming stores are available.
func HasAVX() bool { return hasAVX }

// HasAVX512 reports whether 64-byte and wider streaming stores are
// available.
func HasAVX512() bool { return hasAVX512F }

// fatalCapability reports a missing hardware capability and terminates
// the process. Durability operations have no safe software fallback:
// continuing would let callers believe their writes are persistent.
func fatalCapability(name string) {
	slog.Error("required hardware capability is unavailable",
		"capability", name,
		"goarch", runtime.GOARCH,
	)
	os.Exit(1)
}
