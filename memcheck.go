package pmemkit

import (
	"context"
	"encoding/binary"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// checkInterval is how many words each scrub goroutine reads between
// cancellation checks.
const checkInterval = 1 << 16

// Check scrubs buf for memory errors: it writes 0xFF to every byte
// through ops (so the pattern is persisted on PMEM) and reads the
// range back in parallel, counting 8-byte words that do not read all
// ones. A non-zero count on real hardware points at a failing device.
//
// WARNING: the buffer's previous contents are destroyed.
//
// The read-back is sharded across GOMAXPROCS goroutines and honors ctx
// cancellation; on cancellation the count covers only the words
// scanned so far.
func Check(ctx context.Context, ops Ops, buf []byte) (uint64, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	ops.Memset(buf, 0xFF)

	words := len(buf) / 8
	shards := runtime.GOMAXPROCS(0)
	if shards > words {
		shards = 1
	}
	per := (words + shards - 1) / shards

	var bad atomic.Uint64
	g, ctx := errgroup.WithContext(ctx)

	for s := 0; s < shards; s++ {
		lo := s * per
		hi := min(lo+per, words)
		g.Go(func() error {
			for w := lo; w < hi; w++ {
				if (w-lo)%checkInterval == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				if binary.LittleEndian.Uint64(buf[w*8:]) != ^uint64(0) {
					bad.Add(1)
				}
			}
			return nil
		})
	}

	err := g.Wait()

	// Tail bytes that do not fill a word.
	for i := words * 8; i < len(buf); i++ {
		if buf[i] != 0xFF {
			bad.Add(1)
		}
	}

	return bad.Load(), err
}
