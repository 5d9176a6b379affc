//go:build amd64

package cachectl

import "unsafe"

// initKernels wires the assembly kernels into the dispatch slots.
// Called from the platform init after feature detection.
func initKernels() {
	if hasCLWB {
		kernelWriteBack = clwb
	}
	if hasCLFLUSHOPT {
		kernelFlushOpt = clflushopt
	}
	kernelEvict = clflush
	kernelFence = sfence

	// Non-temporal copy widths, widest first. The 16/8/4-byte SSE2
	// kernels are always present on amd64. MOVNTDQ and VMOVNTDQ fault
	// on misaligned destinations, so each vector kernel carries the
	// alignment its store needs; the 512-bit kernels store in 64-byte
	// chunks and need 64. MOVNTI has no alignment requirement.
	if hasAVX512F {
		streamKernels = append(streamKernels,
			streamKernel{256, 64, streamCopy256},
			streamKernel{128, 64, streamCopy128},
			streamKernel{64, 64, streamCopy64},
		)
	}
	if hasAVX {
		streamKernels = append(streamKernels, streamKernel{32, 32, streamCopy32})
	}
	// MOVNTI tolerates any alignment; the 8-byte kernel still asks for
	// 8 so a destination at 4 mod 8 takes one 4-byte store first and
	// the walk keeps climbing toward the vector widths.
	streamKernels = append(streamKernels,
		streamKernel{16, 16, streamCopy16},
		streamKernel{8, 8, streamCopy8},
		streamKernel{4, 1, streamCopy4},
	)
}

// cpuid executes the CPUID instruction with the given leaf and
// sub-leaf.
func cpuid(leaf, subleaf uint32) (eax, ebx, ecx, edx uint32)

//go:noescape
func clwb(p unsafe.Pointer)

//go:noescape
func clflushopt(p unsafe.Pointer)

//go:noescape
func clflush(p unsafe.Pointer)

func sfence()

//go:noescape
func streamCopy4(dst, src unsafe.Pointer)

//go:noescape
func streamCopy8(dst, src unsafe.Pointer)

//go:noescape
func streamCopy16(dst, src unsafe.Pointer)

//go:noescape
func streamCopy32(dst, src unsafe.Pointer)

//go:noescape
func streamCopy64(dst, src unsafe.Pointer)

//go:noescape
func streamCopy128(dst, src unsafe.Pointer)

//go:noescape
func streamCopy256(dst, src unsafe.Pointer)
