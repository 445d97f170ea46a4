// Package buf contains endian-safe word access and bounds helpers for arena buffers.
package buf

import "encoding/binary"

// I64LE reads a little-endian int64 from b. Returns 0 when b is too short.
func I64LE(b []byte) int64 {
	if len(b) < 8 {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(b))
}

// PutI64LE writes v into b in little-endian order. It is a no-op when b is too short.
func PutI64LE(b []byte, v int64) {
	if len(b) < 8 {
		return
	}
	binary.LittleEndian.PutUint64(b, uint64(v))
}
