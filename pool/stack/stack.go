// Package stack implements a LIFO pool: a bump pointer over one buffer where
// only the most recent allocation can be freed.
//
// Each allocation is followed by one word holding the allocation's start
// offset, so freeing the top block restores the previous top without any
// other bookkeeping:
//
//	| block 0 | start 0 | block 1 | start 1 | ... free ... |
//	                                        ^ top
//
// Pools never move or grow. They are not thread-safe.
package stack

import (
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/poolkit/internal/backing"
	"github.com/joshuapare/poolkit/internal/buf"
	"github.com/joshuapare/poolkit/internal/format"
	"github.com/joshuapare/poolkit/internal/logger"
)

var (
	// ErrOutOfMemory indicates the request does not fit above the top.
	ErrOutOfMemory = errors.New("stack: out of memory")

	// ErrEmpty indicates a free on an empty pool.
	ErrEmpty = errors.New("stack: pool is empty")

	// ErrOutOfOrder indicates a free of something other than the top block.
	ErrOutOfOrder = errors.New("stack: free out of order")

	// ErrInvalidSize indicates a non-positive request.
	ErrInvalidSize = errors.New("stack: invalid size")
)

// DefaultSize is used when New is given a non-positive size.
const DefaultSize = 1 << 20

// TrailerSize is the per-allocation overhead.
const TrailerSize = format.WordSize

// Pool is a LIFO allocator.
type Pool struct {
	src   backing.Source
	data  []byte
	top   int // offset of the first free byte
	depth int // live allocations
	peak  int // high-water mark of top
}

// New allocates a size-byte stack from src. size is rounded up to
// format.Alignment; a non-positive size uses DefaultSize.
func New(size int, src backing.Source) (*Pool, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if src == nil {
		src = backing.OS
	}
	data, err := src.Alloc(format.Align8(size))
	if err != nil {
		return nil, errors.Wrap(err, "stack: backing allocation")
	}
	return &Pool{src: src, data: data}, nil
}

// Alloc pushes a block of n bytes, rounded up to format.Alignment, and
// returns its offset and bytes.
func (p *Pool) Alloc(n int) (int, []byte, error) {
	if n <= 0 {
		return 0, nil, errors.Wrapf(ErrInvalidSize, "alloc %d", n)
	}
	// n is bounded by the free space before rounding, so Align8 cannot overflow.
	free := len(p.data) - p.top
	size := format.Align8(min(n, free))
	if n > free || size+TrailerSize > free {
		logger.Debug("stack pool exhausted", "request", n, "used", p.top, "capacity", len(p.data))
		return 0, nil, errors.Wrapf(ErrOutOfMemory, "alloc %d with %d of %d bytes free", n, free, len(p.data))
	}

	off := p.top
	end := off + size
	buf.PutI64LE(p.data[end:], int64(off))
	p.top = end + TrailerSize
	p.depth++
	p.peak = max(p.peak, p.top)
	return off, p.data[off:end:end], nil
}

// Free pops the block at off, which must be the top block.
func (p *Pool) Free(off int) error {
	start, err := p.topStart()
	if err != nil {
		return err
	}
	if off != start {
		return errors.Wrapf(ErrOutOfOrder, "free %d, top block starts at %d", off, start)
	}
	p.pop(start)
	return nil
}

// Pop frees the top block, whatever it is.
func (p *Pool) Pop() error {
	start, err := p.topStart()
	if err != nil {
		return err
	}
	p.pop(start)
	return nil
}

func (p *Pool) pop(start int) {
	p.top = start
	p.depth--
}

// topStart reads the start offset stored in the trailer below the top.
func (p *Pool) topStart() (int, error) {
	if p.depth == 0 {
		return 0, ErrEmpty
	}
	return int(buf.I64LE(p.data[p.top-TrailerSize:])), nil
}

// TopSize returns the size of the top block, or 0 when empty.
func (p *Pool) TopSize() int {
	start, err := p.topStart()
	if err != nil {
		return 0
	}
	return p.top - TrailerSize - start
}

// Used returns the bytes in use, trailers included.
func (p *Pool) Used() int { return p.top }

// Capacity returns the size of the buffer.
func (p *Pool) Capacity() int { return len(p.data) }

// Depth returns the number of live allocations.
func (p *Pool) Depth() int { return p.depth }

// Peak returns the highest Used value seen.
func (p *Pool) Peak() int { return p.peak }

// Occupancy returns Used as a percentage of Capacity.
func (p *Pool) Occupancy() float64 {
	if len(p.data) == 0 {
		return 0
	}
	return 100 * float64(p.top) / float64(len(p.data))
}

// Reset pops everything.
func (p *Pool) Reset() {
	p.top, p.depth = 0, 0
}

// Close releases the backing buffer.
func (p *Pool) Close() error {
	if p.data == nil {
		return nil
	}
	data := p.data
	p.data = nil
	p.Reset()
	return p.src.Release(data)
}
