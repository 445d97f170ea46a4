package arena

import (
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/poolkit/internal/backing"
	"github.com/joshuapare/poolkit/internal/format"
	"github.com/joshuapare/poolkit/internal/logger"
	"github.com/joshuapare/poolkit/pool/segment"
)

// Directory enumerates every live object in an arena and accepts new
// addresses for them. Grow and Compact use it to find what to move and to
// publish where it went.
type Directory interface {
	// Len returns the number of live entries.
	Len() int
	// Range calls fn for each entry until fn returns false. fn must not
	// mutate the directory.
	Range(fn func(id uint64, addr format.Addr) bool)
	// Relocate records that the object named id now lives at addr.
	Relocate(id uint64, addr format.Addr) error
}

// Stats holds arena counters.
type Stats struct {
	Allocations int // successful Allocate calls
	Frees       int // successful Free calls
	FastPath    int // allocations served without grow or compact
	SlowPath    int // allocations that needed grow or compact
	NoFit       int // allocations that failed after recovery
	Grows       int
	GrowBytes   int // capacity added by grows
	Compactions int
	Moved       int // objects relocated by compaction
	MovedBytes  int // payload bytes copied by grow and compact
	PeakUsed    int // high-water mark of Used
}

// Arena is a growable heap over one backing buffer.
type Arena struct {
	cfg   Config
	src   backing.Source
	buf   []byte
	list  *segment.List
	dir   Directory
	stats Stats
}

// New returns an uninitialized arena. Call Init before allocating.
func New(cfg Config) *Arena {
	return &Arena{cfg: cfg, src: cfg.source()}
}

// Init performs the one-time backing allocation. size is rounded up to
// format.Alignment. On failure the arena stays uninitialized.
func (a *Arena) Init(size int) error {
	if a.list != nil {
		return ErrAlreadyInitialized
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	size = format.Align8(size)
	if size < format.MinSegmentSize || size > a.cfg.MaxSize {
		return errors.Wrapf(ErrInvalidSize, "init %d (max %d)", size, a.cfg.MaxSize)
	}

	buf, err := a.src.Alloc(size)
	if err != nil {
		return errors.Wrapf(ErrBackingAllocationFailed, "init %d bytes: %v", size, err)
	}
	list, err := segment.New(buf)
	if err != nil {
		_ = a.src.Release(buf)
		return err
	}
	a.buf, a.list = buf, list
	logger.Debug("arena init", "capacity", size)
	return nil
}

// Attach registers the directory used by Grow and Compact. Passing nil
// detaches; an arena without a directory can only relocate when empty.
func (a *Arena) Attach(dir Directory) {
	a.dir = dir
}

// Allocate reserves n payload bytes and returns the payload address.
//
// When the free list has no fitting hole the arena grows if the projected
// usage still fits under Config.MaxSize, then falls back to one compaction
// and a single retry. ErrNoFit is returned when all of that fails.
func (a *Arena) Allocate(n int) (format.Addr, error) {
	if a.list == nil {
		return format.NoAddr, ErrNotInitialized
	}
	need := format.SegmentSize(n)
	if need == 0 || need > a.cfg.MaxSize {
		return format.NoAddr, errors.Wrapf(ErrInvalidSize, "allocate %d", n)
	}

	if addr, ok := a.list.Allocate(n); ok {
		a.stats.FastPath++
		a.allocated()
		return addr, nil
	}
	a.stats.SlowPath++

	var cause error
	if a.list.UsedBytes()+need <= a.cfg.MaxSize {
		cause = a.Grow(n)
		if cause == nil {
			if addr, ok := a.list.Allocate(n); ok {
				a.allocated()
				return addr, nil
			}
		}
	} else {
		cause = errors.Wrapf(ErrCapacityExceeded, "used %d + %d > max %d", a.list.UsedBytes(), need, a.cfg.MaxSize)
	}

	if _, err := a.Compact(); err != nil {
		cause = err
	} else if addr, ok := a.list.Allocate(n); ok {
		a.allocated()
		return addr, nil
	}

	a.stats.NoFit++
	logger.Debug("arena no fit", "request", n, "capacity", len(a.buf), "used", a.list.UsedBytes(), "cause", cause)
	if cause != nil {
		return format.NoAddr, errors.Wrapf(ErrNoFit, "allocate %d: %v", n, cause)
	}
	return format.NoAddr, errors.Wrapf(ErrNoFit, "allocate %d", n)
}

func (a *Arena) allocated() {
	a.stats.Allocations++
	a.stats.PeakUsed = max(a.stats.PeakUsed, a.list.UsedBytes())
}

// Free releases the object at addr. Addresses outside the buffer, already
// free, or pointing inside another object return ErrForeignAddress and
// change nothing.
func (a *Arena) Free(addr format.Addr) error {
	if a.list == nil {
		return ErrNotInitialized
	}
	if addr.Segment() < 0 || int(addr) >= len(a.buf) {
		return errors.Wrapf(ErrForeignAddress, "addr %d outside [0, %d)", addr, len(a.buf))
	}
	if err := a.list.Release(addr); err != nil {
		return err
	}
	a.stats.Frees++
	return nil
}

// Payload returns the bytes of the object at addr, or nil. The slice is
// valid until the next call that may grow or compact.
func (a *Arena) Payload(addr format.Addr) []byte {
	if a.list == nil {
		return nil
	}
	return a.list.Payload(addr)
}

// Split carves the object at addr into count objects of pieceSize segment
// bytes each, the last taking any slack.
func (a *Arena) Split(addr format.Addr, pieceSize, count int) ([]format.Addr, error) {
	if a.list == nil {
		return nil, ErrNotInitialized
	}
	return a.list.Split(addr, pieceSize, count)
}

// ObjectSize returns the payload capacity at addr, or 0.
func (a *Arena) ObjectSize(addr format.Addr) int {
	if a.list == nil {
		return 0
	}
	return a.list.ObjectSize(addr)
}

// Capacity returns the size of the current buffer.
func (a *Arena) Capacity() int { return len(a.buf) }

// Used returns the bytes held by live segments, headers included.
func (a *Arena) Used() int {
	if a.list == nil {
		return 0
	}
	return a.list.UsedBytes()
}

// Live returns the number of live objects.
func (a *Arena) Live() int {
	if a.list == nil {
		return 0
	}
	return a.list.Live()
}

// Initialized reports whether Init has succeeded and Close has not been called.
func (a *Arena) Initialized() bool { return a.list != nil }

// Config returns the arena configuration.
func (a *Arena) Config() Config { return a.cfg }

// Stats returns a copy of the arena counters.
func (a *Arena) Stats() Stats { return a.stats }

// Validate checks the free list and, when a directory is attached, that it
// accounts for every live object.
func (a *Arena) Validate() error {
	if a.list == nil {
		return ErrNotInitialized
	}
	if err := a.list.Validate(); err != nil {
		return err
	}
	if a.dir == nil {
		return nil
	}
	return a.checkDirectory()
}

// Close releases the backing buffer. Safe to call more than once.
func (a *Arena) Close() error {
	if a.list == nil {
		return nil
	}
	buf := a.buf
	a.buf, a.list = nil, nil
	logger.Debug("arena close", "capacity", len(buf))
	return a.src.Release(buf)
}
