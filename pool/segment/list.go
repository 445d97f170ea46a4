package segment

import (
	"iter"
	"slices"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/poolkit/internal/format"
)

// Hole is a free segment: Off is the offset of its header, Size covers the
// header and the free bytes after it.
type Hole struct {
	Off  int
	Size int
}

// End returns the offset one past the hole.
func (h Hole) End() int { return h.Off + h.Size }

// Stats holds counters for testing and instrumentation.
type Stats struct {
	AllocCalls       int // Allocate calls that returned an address
	NoFit            int // Allocate calls that found no hole
	ReleaseCalls     int // Release calls that freed a segment
	Rejected         int // Release calls refused with ErrForeignAddress
	SplitCount       int // holes split into allocation + remainder
	CoalesceForward  int // merges with the following hole
	CoalesceBackward int // merges with the preceding hole
}

// List is a first-fit, coalescing free list over a single buffer.
type List struct {
	data  []byte
	holes []Hole // address order, never byte-adjacent
	free  int    // sum of hole sizes
	live  int    // allocated segments
	stats Stats
}

// New formats data as a single hole and returns a List managing it. The
// buffer length must be a multiple of format.Alignment and at least
// format.MinSegmentSize.
func New(data []byte) (*List, error) {
	n := len(data)
	if n < format.MinSegmentSize || !format.IsAligned(n) || n > format.MaxSegmentSize {
		return nil, errors.Wrapf(ErrBufferTooSmall, "buffer of %d bytes", n)
	}
	format.WriteFree(data, 0, n)
	return &List{
		data:  data,
		holes: []Hole{{Off: 0, Size: n}},
		free:  n,
	}, nil
}

// Allocate reserves a segment able to hold n payload bytes and returns the
// payload address. The request is rounded up to format.Alignment and the header
// added; the first hole in address order that fits is used. ok is false when
// n is not positive or no hole fits. The list never grows itself.
func (l *List) Allocate(n int) (format.Addr, bool) {
	need := format.SegmentSize(n)
	if need == 0 || need > format.MaxSegmentSize {
		return format.NoAddr, false
	}
	for i := range l.holes {
		if l.holes[i].Size >= need {
			l.stats.AllocCalls++
			return l.take(i, need), true
		}
	}
	l.stats.NoFit++
	return format.NoAddr, false
}

// AllocateIn places a segment of exactly size bytes (header included) at the
// front of the hole starting at off. It refuses, returning false, when no hole
// starts at off or when the leftover would be too small to stand as a hole,
// so the placement never turns free bytes into padding.
func (l *List) AllocateIn(off, size int) (format.Addr, bool) {
	i := sort.Search(len(l.holes), func(i int) bool { return l.holes[i].Off >= off })
	if i == len(l.holes) || l.holes[i].Off != off || !Fits(size, l.holes[i].Size) {
		return format.NoAddr, false
	}
	l.stats.AllocCalls++
	return l.take(i, size), true
}

// Fits reports whether a segment of size bytes can be placed in a hole of
// holeSize bytes with nothing absorbed: the hole is an exact match or the
// remainder is a legal segment.
func Fits(size, holeSize int) bool {
	if size < format.MinSegmentSize || !format.IsAligned(size) {
		return false
	}
	return size == holeSize || size+format.MinSegmentSize <= holeSize
}

// take carves need bytes from the front of holes[i].
func (l *List) take(i, need int) format.Addr {
	h := l.holes[i]
	size := h.Size
	if rem := h.Size - need; rem >= format.MinSegmentSize {
		l.stats.SplitCount++
		l.holes[i] = Hole{Off: h.Off + need, Size: rem}
		format.WriteFree(l.data, h.Off+need, rem)
		size = need
	} else {
		l.holes = slices.Delete(l.holes, i, i+1)
	}
	format.WriteAllocated(l.data, h.Off, size)
	l.free -= size
	l.live++
	return format.PayloadOf(h.Off)
}

// Release frees the segment owning a and coalesces it with byte-adjacent
// holes. An address that does not name an allocated segment returns
// ErrForeignAddress and leaves the list untouched; this includes addresses
// inside a payload whose bytes happen to look like a header.
func (l *List) Release(a format.Addr) error {
	off, hdr, err := l.allocated(a)
	if err != nil {
		l.stats.Rejected++
		return err
	}

	// first hole strictly after the segment
	i := sort.Search(len(l.holes), func(i int) bool { return l.holes[i].Off > off })
	end := off + hdr.Size
	if i > 0 && l.holes[i-1].End() > off || i < len(l.holes) && l.holes[i].Off < end {
		l.stats.Rejected++
		return errors.Wrapf(ErrForeignAddress, "addr %d overlaps a hole", a)
	}
	if !l.boundary(off, i) {
		l.stats.Rejected++
		return errors.Wrapf(ErrForeignAddress, "addr %d is not a segment start", a)
	}

	mergePrev := i > 0 && l.holes[i-1].End() == off
	mergeNext := i < len(l.holes) && l.holes[i].Off == end

	switch {
	case mergePrev && mergeNext:
		l.stats.CoalesceBackward++
		l.stats.CoalesceForward++
		prev := &l.holes[i-1]
		prev.Size += hdr.Size + l.holes[i].Size
		l.clearHeader(off)
		l.clearHeader(end)
		l.holes = slices.Delete(l.holes, i, i+1)
		format.WriteFree(l.data, prev.Off, prev.Size)
	case mergePrev:
		l.stats.CoalesceBackward++
		prev := &l.holes[i-1]
		prev.Size += hdr.Size
		l.clearHeader(off)
		format.WriteFree(l.data, prev.Off, prev.Size)
	case mergeNext:
		l.stats.CoalesceForward++
		l.clearHeader(end)
		l.holes[i] = Hole{Off: off, Size: hdr.Size + l.holes[i].Size}
		format.WriteFree(l.data, off, l.holes[i].Size)
	default:
		l.holes = slices.Insert(l.holes, i, Hole{Off: off, Size: hdr.Size})
		format.WriteFree(l.data, off, hdr.Size)
	}

	l.free += hdr.Size
	l.live--
	l.stats.ReleaseCalls++
	return nil
}

// boundary reports whether off starts a segment by walking headers from the
// end of the hole below it; i is the index of the first hole after off. The
// walk covers only the allocated run containing off.
func (l *List) boundary(off, i int) bool {
	pos := 0
	if i > 0 {
		pos = l.holes[i-1].End()
	}
	for pos < off {
		hdr, ok := format.ReadHeader(l.data, pos)
		if !ok {
			return false
		}
		pos += hdr.Size
	}
	return pos == off
}

// clearHeader zeroes a header that became interior to a merged hole, so a
// stale address into it can never decode as a segment again.
func (l *List) clearHeader(off int) {
	clear(l.data[off : off+format.HeaderSize])
}

// allocated decodes the header behind a and checks that it is an allocated segment.
func (l *List) allocated(a format.Addr) (int, format.Header, error) {
	off := a.Segment()
	if off < 0 || !format.IsAligned(off) {
		return 0, format.Header{}, errors.Wrapf(ErrForeignAddress, "addr %d", a)
	}
	hdr, ok := format.ReadHeader(l.data, off)
	if !ok || !hdr.Allocated {
		return 0, format.Header{}, errors.Wrapf(ErrForeignAddress, "addr %d has no allocated header", a)
	}
	return off, hdr, nil
}

// Split carves the allocated segment at a into count consecutive allocated
// segments. The first count-1 are exactly pieceSize bytes (header included);
// the last takes whatever remains, which must be at least pieceSize.
// The returned addresses are in address order and a is the first of them.
func (l *List) Split(a format.Addr, pieceSize, count int) ([]format.Addr, error) {
	off, hdr, err := l.allocated(a)
	if err != nil {
		return nil, err
	}
	if count < 1 || pieceSize < format.MinSegmentSize || !format.IsAligned(pieceSize) {
		return nil, errors.Wrapf(ErrInvalidSplit, "count=%d pieceSize=%d", count, pieceSize)
	}
	if pieceSize > hdr.Size/count {
		return nil, errors.Wrapf(ErrInvalidSplit, "%d x %d bytes exceeds segment of %d", count, pieceSize, hdr.Size)
	}

	addrs := make([]format.Addr, count)
	for k := range count {
		size := pieceSize
		if k == count-1 {
			size = hdr.Size - (count-1)*pieceSize
		}
		format.WriteAllocated(l.data, off, size)
		addrs[k] = format.PayloadOf(off)
		off += size
	}
	l.live += count - 1
	return addrs, nil
}

// ObjectSize returns the payload capacity of the segment at a, or 0 when a
// does not name an allocated segment. The capacity may exceed the requested
// size by alignment and absorbed remainders.
func (l *List) ObjectSize(a format.Addr) int {
	if size := l.SegmentSize(a); size > 0 {
		return size - format.HeaderSize
	}
	return 0
}

// SegmentSize returns the whole segment size at a (header included), or 0.
func (l *List) SegmentSize(a format.Addr) int {
	_, hdr, err := l.allocated(a)
	if err != nil {
		return 0
	}
	return hdr.Size
}

// Payload returns the payload bytes of the segment at a, or nil. The slice
// aliases the buffer and its capacity ends at the segment boundary.
func (l *List) Payload(a format.Addr) []byte {
	off, hdr, err := l.allocated(a)
	if err != nil {
		return nil
	}
	end := off + hdr.Size
	return l.data[int(a):end:end]
}

// NextHole returns the first hole whose header is at or after from. Passing
// the End of a previously returned hole continues the walk; the walk is
// finite and may be restarted from any earlier hole.
func (l *List) NextHole(from int) (Hole, bool) {
	i := sort.Search(len(l.holes), func(i int) bool { return l.holes[i].Off >= from })
	if i == len(l.holes) {
		return Hole{}, false
	}
	return l.holes[i], true
}

// Holes iterates holes in address order. The sequence is driven by NextHole,
// so it tolerates allocations and releases made by the loop body.
func (l *List) Holes() iter.Seq[Hole] {
	return func(yield func(Hole) bool) {
		for h, ok := l.NextHole(0); ok; h, ok = l.NextHole(h.End()) {
			if !yield(h) {
				return
			}
		}
	}
}

// Walk visits every segment in physical order until fn returns false. It stops
// early, returning ErrCorrupt, when a header cannot be decoded.
func (l *List) Walk(fn func(off int, hdr format.Header) bool) error {
	for off := 0; off < len(l.data); {
		hdr, ok := format.ReadHeader(l.data, off)
		if !ok {
			return errors.Wrapf(ErrCorrupt, "undecodable header at %d", off)
		}
		if !fn(off, hdr) {
			return nil
		}
		off += hdr.Size
	}
	return nil
}

// Validate cross-checks the physical layout against the hole list:
// every byte belongs to exactly one segment, every free segment is listed,
// no two holes are adjacent, and the cached totals agree.
func (l *List) Validate() error {
	var (
		off, idx, free, live int
		prevFree             bool
		problem              string
	)
	err := l.Walk(func(o int, hdr format.Header) bool {
		switch {
		case hdr.Allocated:
			live++
			prevFree = false
		case prevFree:
			problem = "adjacent holes"
		case idx >= len(l.holes) || l.holes[idx] != (Hole{Off: o, Size: hdr.Size}):
			problem = "unlisted hole"
		default:
			idx++
			free += hdr.Size
			prevFree = true
		}
		if problem != "" {
			off = o
			return false
		}
		off = o + hdr.Size
		return true
	})
	switch {
	case err != nil:
		return err
	case problem != "":
		return errors.Wrapf(ErrCorrupt, "%s at %d", problem, off)
	case off != len(l.data):
		return errors.Wrapf(ErrCorrupt, "segments cover %d of %d bytes", off, len(l.data))
	case idx != len(l.holes):
		return errors.Wrapf(ErrCorrupt, "hole list has %d entries, buffer has %d", len(l.holes), idx)
	case free != l.free:
		return errors.Wrapf(ErrCorrupt, "free bytes %d, cached %d", free, l.free)
	case live != l.live:
		return errors.Wrapf(ErrCorrupt, "live segments %d, cached %d", live, l.live)
	}
	return nil
}

// Capacity returns the size of the managed buffer.
func (l *List) Capacity() int { return len(l.data) }

// FreeBytes returns the sum of all hole sizes, headers included.
func (l *List) FreeBytes() int { return l.free }

// UsedBytes returns the sum of all allocated segment sizes, headers included.
func (l *List) UsedBytes() int { return len(l.data) - l.free }

// HoleCount returns the number of holes.
func (l *List) HoleCount() int { return len(l.holes) }

// Live returns the number of allocated segments.
func (l *List) Live() int { return l.live }

// LargestHole returns the size of the largest hole, or 0 when full.
func (l *List) LargestHole() int {
	largest := 0
	for _, h := range l.holes {
		largest = max(largest, h.Size)
	}
	return largest
}

// Bytes returns the managed buffer.
func (l *List) Bytes() []byte { return l.data }

// Stats returns a copy of the list counters.
func (l *List) Stats() Stats { return l.stats }
