//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly) && !windows

package backing

// osSource allocates from the Go heap when anonymous mappings are not available.
type osSource struct{ heapSource }
