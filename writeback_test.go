package pmemkit

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

// countingWriteBack returns a WriteBack whose line and fence kernels
// only count invocations.
func countingWriteBack() (*WriteBack, *int, *int) {
	var lines, fences int
	w := &WriteBack{
		log:       NoopLogger(),
		flushLine: func(unsafe.Pointer) { lines++ },
		evictLine: func(unsafe.Pointer) { lines++ },
		fence:     func() { fences++ },
	}
	return w, &lines, &fences
}

// alignedSlice carves a cache-line-aligned window of n bytes out of a
// fresh allocation so line-count expectations are exact.
func alignedSlice(n int) []byte {
	raw := make([]byte, n+CacheLineSize)
	off := 0
	if rem := addrOf(raw) % CacheLineSize; rem != 0 {
		off = CacheLineSize - int(rem)
	}
	return raw[off : off+n]
}

func TestWriteBack_FlushTouchesEveryLine(t *testing.T) {
	tests := []struct {
		name      string
		off, size int
		wantLines int
	}{
		{"single byte", 0, 1, 1},
		{"exactly one line", 0, 64, 1},
		{"one line plus one byte", 0, 65, 2},
		{"k lines plus partial", 0, 4*64 + 17, 5},
		{"unaligned start within one line", 60, 3, 1},
		{"unaligned start crossing a boundary", 60, 8, 2},
		{"unaligned start spanning k lines", 10, 3 * 64, 4},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, lines, _ := countingWriteBack()
			buf := alignedSlice(1024)

			w.Flush(buf[tc.off : tc.off+tc.size])
			assert.Equal(t, tc.wantLines, *lines)
		})
	}
}

func TestWriteBack_FlushEmptyRange(t *testing.T) {
	w, lines, _ := countingWriteBack()
	w.Flush(nil)
	w.Flush([]byte{})
	assert.Zero(t, *lines)
}

func TestWriteBack_PersistFlushesThenFences(t *testing.T) {
	w, lines, fences := countingWriteBack()
	buf := alignedSlice(256)

	w.Persist(buf)
	assert.Equal(t, 4, *lines)
	assert.Equal(t, 1, *fences)
}

func TestWriteBack_MutatingOpsFlushAndDrain(t *testing.T) {
	w, lines, fences := countingWriteBack()
	buf := alignedSlice(128)

	w.Memset(buf, 'x')
	assert.Equal(t, 2, *lines, "memset must flush the whole range")
	assert.Equal(t, 1, *fences, "memset must drain")

	src := alignedSlice(128)
	w.Memcpy(buf, src)
	assert.Equal(t, 4, *lines, "memcpy must flush the destination")
	assert.Equal(t, 2, *fences)
}

func TestWriteBack_EvictCoversRange(t *testing.T) {
	w, lines, fences := countingWriteBack()
	buf := alignedSlice(3 * 64)

	w.Evict(buf)
	assert.Equal(t, 3, *lines)
	assert.Zero(t, *fences, "evict does not imply a drain")
}

func TestNoop_MutatesWithoutDurabilitySideEffects(t *testing.T) {
	// Noop must never reach the flush kernels: on architectures
	// without cache-control support those kernels terminate the
	// process, so completing this test at all is part of the
	// assertion.
	n := NewNoop(WithLogger(NoopLogger()))

	buf := make([]byte, 1024)
	n.Memset(buf, 'c')
	assert.Equal(t, byte('c'), buf[0])
	assert.Equal(t, byte('c'), buf[1023])

	dst := make([]byte, 1024)
	n.Memcpy(dst, buf)
	assert.Equal(t, buf, dst)

	// Durability calls are pure no-ops; the content stays put.
	n.Flush(buf)
	n.Persist(buf)
	n.Drain()
	assert.Equal(t, byte('c'), buf[0])
	assert.Equal(t, byte('c'), buf[1023])
}
