package pmemkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTraceOps_CountsAndLines(t *testing.T) {
	tr := NewTraceOps(NewNoop(WithLogger(NoopLogger())))
	buf := alignedSlice(4*64 + 17)

	tr.Flush(buf)
	tr.Drain()
	tr.Persist(buf)

	c := tr.Counts()
	assert.Equal(t, uint64(1), c.Flushes, "persist is not double-counted as a flush")
	assert.Equal(t, uint64(1), c.Drains, "persist is not double-counted as a drain")
	assert.Equal(t, uint64(1), c.Persists)

	// 4 full lines plus a partial fifth.
	assert.Equal(t, uint64(5), tr.TouchedLines())
}

func TestTraceOps_DisjointRangesAccumulate(t *testing.T) {
	tr := NewTraceOps(NewNoop(WithLogger(NoopLogger())))
	buf := alignedSlice(1024)

	tr.Flush(buf[:64])
	tr.Flush(buf[256:320])
	tr.Flush(buf[:64]) // same line again, no new entry

	assert.Equal(t, uint64(3), tr.Counts().Flushes)
	assert.Equal(t, uint64(2), tr.TouchedLines())
}

func TestTraceOps_MutationsForwarded(t *testing.T) {
	tr := NewTraceOps(NewNoop(WithLogger(NoopLogger())))

	src := make([]byte, 128)
	dst := make([]byte, 128)
	tr.Memset(src, 'z')
	tr.Memcpy(dst, src)
	tr.Memmove(dst[1:], dst[:127])

	assert.Equal(t, byte('z'), dst[127])

	c := tr.Counts()
	assert.Equal(t, uint64(1), c.Memsets)
	assert.Equal(t, uint64(1), c.Memcpys)
	// Memcpy delegates to Memmove inside the strategy, below the
	// wrapper; only the explicit Memmove call is counted.
	assert.Equal(t, uint64(1), c.Memmoves)

	// The noop strategy issued no durability calls on its own.
	assert.Zero(t, c.Flushes)
	assert.Zero(t, c.Drains)
	assert.Zero(t, c.Persists)
	assert.Zero(t, tr.TouchedLines())
}

func TestTraceOps_PersistCountersStayHonest(t *testing.T) {
	// The noop strategy's Persist performs no flush and no drain;
	// the wrapper must not report ones that never happened.
	tr := NewTraceOps(NewNoop(WithLogger(NoopLogger())))
	buf := alignedSlice(64)

	tr.Persist(buf)

	c := tr.Counts()
	assert.Equal(t, uint64(1), c.Persists)
	assert.Zero(t, c.Flushes)
	assert.Zero(t, c.Drains)
	assert.Equal(t, uint64(1), tr.TouchedLines(), "persist still records the requested lines")
}

func TestTraceOps_Reset(t *testing.T) {
	tr := NewTraceOps(NewNoop(WithLogger(NoopLogger())))
	tr.Flush(make([]byte, 64))
	tr.Reset()

	assert.Equal(t, TraceCounts{}, tr.Counts())
	assert.Zero(t, tr.TouchedLines())
}

func TestTraceOps_Unwrap(t *testing.T) {
	inner := NewNoop(WithLogger(NoopLogger()))
	tr := NewTraceOps(inner)
	assert.Same(t, inner, tr.Unwrap())
	assert.Equal(t, inner.Name(), tr.Name())
}
