package cachectl

import (
	"unsafe"
)

// CacheLineSize is the flush granularity of the cache-control
// instructions. Fixed at 64 bytes on every supported target.
const CacheLineSize = 64

// Kernel slots. Platform-specific init overrides these with real
// instruction wrappers; the defaults terminate the process so a
// miswired build can never silently skip a durability operation.
var (
	kernelWriteBack = func(unsafe.Pointer) { fatalCapability("clwb") }
	kernelFlushOpt  = func(unsafe.Pointer) { fatalCapability("clflushopt") }
	kernelEvict     = func(unsafe.Pointer) { fatalCapability("clflush") }
	kernelFence     = func() { fatalCapability("sfence") }
)

// WriteBackLine writes the cache line containing p back to memory
// without invalidating it (CLWB).
func WriteBackLine(p unsafe.Pointer) { kernelWriteBack(p) }

// FlushOptLine flushes and invalidates the cache line containing p
// using the pipelining-friendly encoding (CLFLUSHOPT).
func FlushOptLine(p unsafe.Pointer) { kernelFlushOpt(p) }

// EvictLine flushes and invalidates the cache line containing p
// (CLFLUSH). Unlike FlushOptLine it is ordered against other flushes
// and available on every amd64 CPU.
func EvictLine(p unsafe.Pointer) { kernelEvict(p) }

// Fence issues a store fence (SFENCE): every flush and store issued
// before the call completes before any store issued after it.
func Fence() { kernelFence() }

// streamKernel couples a non-temporal copy routine with the number of
// bytes it transfers per invocation and the destination alignment its
// store instruction demands. Kernels load the source unaligned, so
// only the destination address is constrained.
type streamKernel struct {
	width uintptr
	align uintptr
	copy  func(dst, src unsafe.Pointer)
}

// streamKernels holds the available non-temporal copy widths in
// descending order. Populated by platform init; empty when the target
// has no streaming stores.
var streamKernels []streamKernel

// StreamWidths reports the non-temporal copy widths available on this
// CPU, largest first. Empty when streaming stores are unsupported.
func StreamWidths() []uintptr {
	widths := make([]uintptr, len(streamKernels))
	for i, k := range streamKernels {
		widths[i] = k.width
	}
	return widths
}

// StreamCopy copies n bytes from src to dst using non-temporal stores,
// chunking the transfer greedily with the widest available kernel
// whose destination-alignment requirement the current address meets.
// The SSE2 MOVNTI kernels carry no alignment requirement, so a
// destination at any address is handled: narrow stores walk the head
// until the wider aligned kernels apply. The stores bypass the cache
// hierarchy but are still subject to store-buffer reordering; callers
// must issue Fence before relying on ordering or durability.
//
// n must be a multiple of 4: the narrowest non-temporal store moves
// 4 bytes, so a 1-3 byte residual cannot be expressed. Passing an
// unaligned length panics rather than truncating silently.
func StreamCopy(dst, src unsafe.Pointer, n uintptr) {
	if len(streamKernels) == 0 {
		fatalCapability("non-temporal stores")
	}
	streamCopy(streamKernels, dst, src, n)
}

func streamCopy(kernels []streamKernel, dst, src unsafe.Pointer, n uintptr) {
	if n%4 != 0 {
		panic("cachectl: StreamCopy length must be a multiple of 4 bytes")
	}

	var off uintptr
	for n > 0 {
		fit := false
		for _, k := range kernels {
			if n < k.width {
				continue
			}
			if k.align > 1 && (uintptr(dst)+off)%k.align != 0 {
				continue
			}
			k.copy(unsafe.Add(dst, off), unsafe.Add(src, off))
			off += k.width
			n -= k.width
			fit = true
			break
		}
		if !fit {
			// Unreachable with the built-in kernel table: the
			// narrowest kernel is 4 bytes, alignment-free, and n is
			// a multiple of 4.
			panic("cachectl: no streaming kernel fits remaining bytes")
		}
	}
}
