//go:build !unix

package pmemkit

import "errors"

func osMsync(_ []byte) error {
	return errors.New("pmemkit: msync is not supported on this platform")
}
