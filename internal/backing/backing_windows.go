//go:build windows

package backing

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/windows"
)

type osSource struct{}

// Alloc commits size bytes of read/write memory with VirtualAlloc. Committed
// pages are zero-filled by the system.
func (osSource) Alloc(size int) ([]byte, error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "VirtualAlloc %d", size)
	}
	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, errors.Wrapf(err, "VirtualAlloc %d bytes", size)
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

// Release frees a buffer from Alloc.
func (osSource) Release(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return windows.VirtualFree(uintptr(unsafe.Pointer(&b[0])), 0, windows.MEM_RELEASE)
}
