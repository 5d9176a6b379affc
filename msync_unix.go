//go:build unix

package pmemkit

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// osMsync syncs the pages covering buf with MS_SYNC. msync demands a
// page-aligned start address, so the range is grown outward to page
// boundaries; the extra bytes belong to the same mapping by
// definition.
func osMsync(buf []byte) error {
	page := uintptr(os.Getpagesize())
	base := unsafe.Pointer(unsafe.SliceData(buf))
	head := uintptr(base) & (page - 1)
	start := unsafe.Add(base, -int(head))
	n := (head + uintptr(len(buf)) + page - 1) &^ (page - 1)
	return unix.Msync(unsafe.Slice((*byte)(start), n), unix.MS_SYNC)
}
