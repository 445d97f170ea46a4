package format

import "github.com/joshuapare/poolkit/internal/buf"

// Header is a decoded segment header.
type Header struct {
	Size      int  // total segment size including the header
	Allocated bool // negative on-buffer encoding
}

// ReadHeader decodes the header at off. ok is false when the header does not
// fit in data or does not describe a plausible segment (zero, misaligned, or
// running past the end of data).
func ReadHeader(data []byte, off int) (Header, bool) {
	word, ok := buf.Slice(data, off, HeaderSize)
	if !ok {
		return Header{}, false
	}
	raw := buf.I64LE(word)
	h := Header{Size: int(raw)}
	if raw < 0 {
		h = Header{Size: int(-raw), Allocated: true}
	}
	if h.Size < MinSegmentSize || !IsAligned(h.Size) || !buf.Has(data, off, h.Size) {
		return Header{}, false
	}
	return h, true
}

// WriteFree stamps a free segment header of size bytes at off.
func WriteFree(data []byte, off, size int) {
	buf.PutI64LE(data[off:], int64(size))
}

// WriteAllocated stamps an allocated segment header of size bytes at off.
func WriteAllocated(data []byte, off, size int) {
	buf.PutI64LE(data[off:], -int64(size))
}
