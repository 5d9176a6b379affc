//go:build unix && !linux

package mmap

import (
	"os"

	"golang.org/x/sys/unix"
)

// MAP_SYNC is Linux-only; other unix targets get a plain shared
// mapping and rely on msync for durability.

func osMap(f *os.File, size int) ([]byte, bool, func([]byte) error, error) {
	prot := unix.PROT_READ | unix.PROT_WRITE

	data, err := unix.Mmap(int(f.Fd()), 0, size, prot, unix.MAP_SHARED)
	if err != nil {
		return nil, false, nil, err
	}
	return data, false, unix.Munmap, nil
}

func osMapAnon(size int) ([]byte, func([]byte) error, error) {
	prot := unix.PROT_READ | unix.PROT_WRITE
	flags := unix.MAP_ANON | unix.MAP_PRIVATE

	data, err := unix.Mmap(-1, 0, size, prot, flags)
	if err != nil {
		return nil, nil, err
	}
	return data, unix.Munmap, nil
}

func osSync(data []byte, off, n int) error {
	page := os.Getpagesize()
	start := off &^ (page - 1)
	end := off + n
	if end > len(data) {
		end = len(data)
	}
	return unix.Msync(data[start:end], unix.MS_SYNC)
}

func osAdvise(data []byte, pattern AccessPattern) error {
	if len(data) == 0 {
		return nil
	}

	var advice int
	switch pattern {
	case AccessSequential:
		advice = unix.MADV_SEQUENTIAL
	case AccessRandom:
		advice = unix.MADV_RANDOM
	case AccessWillNeed:
		advice = unix.MADV_WILLNEED
	case AccessDontNeed:
		advice = unix.MADV_DONTNEED
	default:
		advice = unix.MADV_NORMAL
	}

	err := unix.Madvise(data, advice)
	if err == unix.EINVAL {
		return nil
	}
	return err
}
