// Package format defines the in-buffer layout shared by the poolkit allocators:
// the address type, alignment rules, and the signed size header that precedes
// every segment. Keeping it separate from the allocators lets tests and
// diagnostics decode a raw buffer without going through an allocator.
package format

const (
	// WordSize is the pointer size on the platforms poolkit targets. Headers are
	// one word and every segment is a multiple of one word.
	WordSize = 8

	// HeaderSize is the number of bytes used by the size header preceding every
	// segment (free or allocated).
	HeaderSize = WordSize

	// Alignment is the required alignment of segment sizes and payload addresses.
	Alignment = WordSize

	// AlignmentMask is the bitmask used for aligning to Alignment (Alignment - 1).
	AlignmentMask = Alignment - 1

	// MinSegmentSize is the smallest legal segment: a header plus one word.
	// A split remainder smaller than this is absorbed into the allocation.
	MinSegmentSize = HeaderSize + WordSize

	// MaxSegmentSize bounds a single segment so that a size header never
	// overflows its signed encoding.
	MaxSegmentSize = 1<<62 - Alignment
)

// Addr is the offset of a payload inside an arena buffer.
//
// A payload always starts one header past its segment, so a valid Addr is
// never zero and NoAddr can double as "nothing allocated".
type Addr int

// NoAddr is the zero Addr; it never names a payload.
const NoAddr Addr = 0

// Segment returns the offset of the segment header that owns a.
func (a Addr) Segment() int {
	return int(a) - HeaderSize
}

// PayloadOf returns the payload address of the segment starting at off.
func PayloadOf(off int) Addr {
	return Addr(off + HeaderSize)
}
