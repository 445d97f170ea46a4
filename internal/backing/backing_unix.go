//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package backing

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

type osSource struct{}

// Alloc maps size bytes of private anonymous memory. The kernel hands the
// pages back zeroed.
func (osSource) Alloc(size int) ([]byte, error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "mmap %d", size)
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrapf(err, "mmap %d bytes", size)
	}
	return data, nil
}

// Release unmaps a buffer from Alloc.
func (osSource) Release(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	err := unix.Munmap(b)
	if errors.Is(err, unix.EINVAL) {
		// Treat double-unmap as no-op for callers.
		return nil
	}
	return err
}
