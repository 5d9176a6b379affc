//go:build !unix

package mmap

import "os"

func osMap(_ *os.File, _ int) ([]byte, bool, func([]byte) error, error) {
	return nil, false, nil, ErrUnsupported
}

func osMapAnon(_ int) ([]byte, func([]byte) error, error) {
	return nil, nil, ErrUnsupported
}

func osSync(_ []byte, _, _ int) error {
	return ErrUnsupported
}

func osAdvise(_ []byte, _ AccessPattern) error {
	return ErrUnsupported
}
