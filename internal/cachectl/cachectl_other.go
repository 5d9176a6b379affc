//go:build !amd64

package cachectl

// No cache-control or non-temporal store instructions are wired on
// this architecture. The kernel slots keep their fail-fast defaults
// and the streaming kernel table stays empty; callers should fall back
// to an msync-based or no-op strategy.
