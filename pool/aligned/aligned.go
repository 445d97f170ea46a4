// Package aligned implements a fixed-block pool: one backing buffer cut into
// equal blocks, with requests served as runs of consecutive blocks.
//
// Occupancy is tracked per block. The first block of an allocated run holds
// the run length; the rest of the run is marked as continuation. A cursor
// remembers the lowest block that may be free so most allocations start
// scanning close to where the last one ended.
//
// Pools never move or grow. They are not thread-safe.
package aligned

import (
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/poolkit/internal/backing"
	"github.com/joshuapare/poolkit/internal/buf"
	"github.com/joshuapare/poolkit/internal/format"
	"github.com/joshuapare/poolkit/internal/logger"
)

var (
	// ErrOutOfMemory indicates no run of free blocks is long enough.
	ErrOutOfMemory = errors.New("aligned: out of memory")

	// ErrForeignAddress indicates Free was given an offset that does not start a run.
	ErrForeignAddress = errors.New("aligned: foreign address")

	// ErrInvalidSize indicates a non-positive block size, block count or request.
	ErrInvalidSize = errors.New("aligned: invalid size")
)

// MinBlockSize is the smallest block a pool will use.
const MinBlockSize = format.WordSize

const continuation = -1

// Pool is a fixed-block allocator.
type Pool struct {
	src        backing.Source
	data       []byte
	state      []int32 // run length at run start, continuation inside a run, 0 when free
	blockSize  int
	blockCount int
	cursor     int // no free block below this index
	used       int // allocated blocks
	runs       int // allocated runs
}

// New allocates blockCount blocks of blockSize bytes from src. blockSize is
// rounded up to format.Alignment and to at least MinBlockSize.
func New(blockSize, blockCount int, src backing.Source) (*Pool, error) {
	if blockSize <= 0 || blockCount <= 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "%d blocks of %d bytes", blockCount, blockSize)
	}
	blockSize = max(format.Align8(blockSize), MinBlockSize)
	total, ok := buf.MulOverflowSafe(blockSize, blockCount)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidSize, "%d blocks of %d bytes overflows", blockCount, blockSize)
	}
	if src == nil {
		src = backing.OS
	}
	data, err := src.Alloc(total)
	if err != nil {
		return nil, errors.Wrap(err, "aligned: backing allocation")
	}
	return &Pool{
		src:        src,
		data:       data,
		state:      make([]int32, blockCount),
		blockSize:  blockSize,
		blockCount: blockCount,
	}, nil
}

// Alloc reserves enough consecutive blocks for n bytes and returns the
// offset of the first block and the run's bytes.
func (p *Pool) Alloc(n int) (int, []byte, error) {
	if n <= 0 {
		return 0, nil, errors.Wrapf(ErrInvalidSize, "alloc %d", n)
	}
	blocks := n / p.blockSize
	if n%p.blockSize != 0 {
		blocks++
	}
	if blocks > p.blockCount {
		return 0, nil, errors.Wrapf(ErrOutOfMemory, "%d bytes exceeds %d blocks of %d bytes", n, p.blockCount, p.blockSize)
	}
	idx, ok := p.findRun(blocks)
	if !ok {
		logger.Debug("aligned pool exhausted", "request", n, "blocks", blocks, "used", p.used, "count", p.blockCount)
		return 0, nil, errors.Wrapf(ErrOutOfMemory, "%d blocks of %d bytes", blocks, p.blockSize)
	}

	p.state[idx] = int32(blocks)
	for i := idx + 1; i < idx+blocks; i++ {
		p.state[i] = continuation
	}
	p.used += blocks
	p.runs++
	if idx == p.cursor {
		p.cursor = p.nextFree(idx + blocks)
	}

	off := idx * p.blockSize
	end := off + blocks*p.blockSize
	return off, p.data[off:end:end], nil
}

// findRun returns the first index at or after the cursor that starts n free blocks.
func (p *Pool) findRun(n int) (int, bool) {
	for start := p.nextFree(p.cursor); start+n <= p.blockCount; {
		run := 0
		for run < n && p.state[start+run] == 0 {
			run++
		}
		if run == n {
			return start, true
		}
		start = p.nextFree(start + run)
	}
	return 0, false
}

// nextFree skips allocated runs from idx and returns the first free index,
// or blockCount.
func (p *Pool) nextFree(idx int) int {
	for idx < p.blockCount && p.state[idx] != 0 {
		if p.state[idx] > 0 {
			idx += int(p.state[idx])
		} else {
			idx++
		}
	}
	return idx
}

// Free releases the run starting at off.
func (p *Pool) Free(off int) error {
	idx, ok := p.runStart(off)
	if !ok {
		return errors.Wrapf(ErrForeignAddress, "offset %d", off)
	}
	blocks := int(p.state[idx])
	clear(p.state[idx : idx+blocks])
	p.used -= blocks
	p.runs--
	p.cursor = min(p.cursor, idx)
	return nil
}

func (p *Pool) runStart(off int) (int, bool) {
	if off < 0 || off >= len(p.data) || off%p.blockSize != 0 {
		return 0, false
	}
	idx := off / p.blockSize
	return idx, p.state[idx] > 0
}

// Owns reports whether off starts an allocated run in this pool.
func (p *Pool) Owns(off int) bool {
	_, ok := p.runStart(off)
	return ok
}

// Bytes returns the bytes of the run starting at off, or nil.
func (p *Pool) Bytes(off int) []byte {
	idx, ok := p.runStart(off)
	if !ok {
		return nil
	}
	end := off + int(p.state[idx])*p.blockSize
	return p.data[off:end:end]
}

// BlockSize returns the block size in bytes.
func (p *Pool) BlockSize() int { return p.blockSize }

// BlockCount returns the number of blocks.
func (p *Pool) BlockCount() int { return p.blockCount }

// Used returns the number of allocated blocks.
func (p *Pool) Used() int { return p.used }

// Runs returns the number of live allocations.
func (p *Pool) Runs() int { return p.runs }

// Occupancy returns allocated blocks as a percentage of all blocks.
func (p *Pool) Occupancy() float64 {
	if p.blockCount == 0 {
		return 0
	}
	return 100 * float64(p.used) / float64(p.blockCount)
}

// Reset frees every run at once.
func (p *Pool) Reset() {
	clear(p.state)
	p.used, p.runs, p.cursor = 0, 0, 0
}

// Close releases the backing buffer.
func (p *Pool) Close() error {
	if p.data == nil {
		return nil
	}
	data := p.data
	p.data, p.state = nil, nil
	p.used, p.runs, p.cursor, p.blockCount = 0, 0, 0, 0
	return p.src.Release(data)
}
