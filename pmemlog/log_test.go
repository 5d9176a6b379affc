package pmemlog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmemkit/pmemkit"
	"github.com/pmemkit/pmemkit/internal/mmap"
)

func testOps() pmemkit.Ops {
	return pmemkit.NewMsync(pmemkit.WithLogger(pmemkit.NoopLogger()))
}

func createTestLog(t *testing.T, size int) (*Log, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.pmemlog")
	l, err := Create(path, size, testOps())
	if errors.Is(err, mmap.ErrUnsupported) {
		t.Skipf("mmap unavailable: %v", err)
	}
	require.NoError(t, err)
	return l, path
}

func TestLog_AppendReplayReopen(t *testing.T) {
	l, path := createTestLog(t, 1<<20)

	payloads := [][]byte{
		[]byte("alpha"),
		[]byte("bravo charlie"),
		{},
		make([]byte, 300), // crosses the streaming threshold on clwb
	}
	for i := range payloads[3] {
		payloads[3][i] = byte(i)
	}

	for _, p := range payloads {
		require.NoError(t, l.Append(p))
	}
	assert.Equal(t, len(payloads), l.Records())

	var got [][]byte
	require.NoError(t, l.Replay(func(p []byte) error {
		got = append(got, append([]byte(nil), p...))
		return nil
	}))
	require.Len(t, got, len(payloads))
	for i, p := range payloads {
		if len(p) == 0 {
			assert.Empty(t, got[i])
			continue
		}
		assert.Equal(t, p, got[i], "record %d", i)
	}

	committed := l.CommittedBytes()
	require.NoError(t, l.Close())

	// Recovery must see the identical state.
	l2, err := Open(path, 1<<20, testOps())
	require.NoError(t, err)
	defer l2.Close()

	assert.Equal(t, len(payloads), l2.Records())
	assert.Equal(t, committed, l2.CommittedBytes())
}

func TestLog_ReplayStops(t *testing.T) {
	l, _ := createTestLog(t, 1<<16)
	defer l.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Append([]byte{byte(i)}))
	}

	boom := errors.New("boom")
	seen := 0
	err := l.Replay(func([]byte) error {
		seen++
		if seen == 3 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, seen)
}

func TestLog_Full(t *testing.T) {
	l, _ := createTestLog(t, 4096)
	defer l.Close()

	// Each record occupies at least two cache lines; 4096-byte
	// capacity minus the header fits 31.
	var err error
	appended := 0
	for {
		err = l.Append([]byte("x"))
		if err != nil {
			break
		}
		appended++
	}
	assert.ErrorIs(t, err, ErrLogFull)
	assert.Equal(t, 31, appended)

	// The log stays usable for replay after a failed append.
	require.NoError(t, l.Replay(func([]byte) error { return nil }))
}

func TestLog_Reset(t *testing.T) {
	l, path := createTestLog(t, 1<<16)

	require.NoError(t, l.Append([]byte("gone")))
	require.NoError(t, l.Reset())
	assert.Zero(t, l.Records())

	require.NoError(t, l.Close())

	l2, err := Open(path, 1<<16, testOps())
	require.NoError(t, err)
	defer l2.Close()
	assert.Zero(t, l2.Records())
}

func TestLog_ClosedOperations(t *testing.T) {
	l, _ := createTestLog(t, 1<<16)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close(), "close is idempotent")

	assert.ErrorIs(t, l.Append([]byte("x")), ErrClosed)
	assert.ErrorIs(t, l.Reset(), ErrClosed)
	assert.ErrorIs(t, l.Replay(func([]byte) error { return nil }), ErrClosed)
}

func TestOpen_RejectsCorruption(t *testing.T) {
	l, path := createTestLog(t, 1<<16)
	require.NoError(t, l.Append([]byte("checksummed payload")))
	require.NoError(t, l.Close())

	// Flip one payload byte on disk.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[headerSize+recHdrSize] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	_, err = Open(path, 1<<16, testOps())
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestOpen_RejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-log")
	require.NoError(t, os.WriteFile(path, make([]byte, 4096), 0o600))

	_, err := Open(path, 4096, testOps())
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestOpen_RejectsBogusTail(t *testing.T) {
	l, path := createTestLog(t, 1<<16)
	require.NoError(t, l.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	// Tail pointing past the mapping.
	raw[offTail] = 0xFF
	raw[offTail+1] = 0xFF
	raw[offTail+2] = 0xFF
	raw[offTail+3] = 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	_, err = Open(path, 1<<16, testOps())
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestCreate_MinimumCapacity(t *testing.T) {
	_, err := Create(filepath.Join(t.TempDir(), "tiny"), 64, testOps())
	assert.Error(t, err)
}

func TestLog_StreamingPath(t *testing.T) {
	if !pmemkit.StrategyWriteBack.Available() {
		t.Skip("clwb not supported on this CPU")
	}

	path := filepath.Join(t.TempDir(), "stream.pmemlog")
	l, err := Create(path, 1<<20, pmemkit.NewWriteBack(pmemkit.WithLogger(pmemkit.NoopLogger())))
	require.NoError(t, err)
	defer l.Close()

	// Multiple of 4 and >= the streaming threshold: takes the
	// non-temporal path.
	big := make([]byte, 4096)
	for i := range big {
		big[i] = byte(i * 31)
	}
	require.NoError(t, l.Append(big))

	// Not a multiple of 4: must fall back to memcpy.
	odd := make([]byte, 301)
	for i := range odd {
		odd[i] = byte(i)
	}
	require.NoError(t, l.Append(odd))

	var got [][]byte
	require.NoError(t, l.Replay(func(p []byte) error {
		got = append(got, append([]byte(nil), p...))
		return nil
	}))
	require.Len(t, got, 2)
	assert.Equal(t, big, got[0])
	assert.Equal(t, odd, got[1])
}
