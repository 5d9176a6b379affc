//go:build amd64

package cachectl

import "golang.org/x/sys/cpu"

// CPUID leaf 7, sub-leaf 0, EBX feature bits.
const (
	leaf7CLFLUSHOPT = 1 << 23
	leaf7CLWB       = 1 << 24
)

func init() {
	_, ebx, _, _ := cpuid(7, 0)
	hasCLFLUSHOPT = ebx&leaf7CLFLUSHOPT != 0
	hasCLWB = ebx&leaf7CLWB != 0

	// SFENCE, CLFLUSH, MOVNTI and MOVNTDQ are part of the SSE2
	// baseline every amd64 CPU carries.
	hasSFENCE = true

	hasAVX = cpu.X86.HasAVX
	hasAVX512F = cpu.X86.HasAVX512F

	initKernels()
}
