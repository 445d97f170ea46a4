package handle

import (
	"io"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/poolkit/internal/buf"
	"github.com/joshuapare/poolkit/internal/format"
	"github.com/joshuapare/poolkit/internal/logger"
	"github.com/joshuapare/poolkit/pool/arena"
)

// Heap combines an arena with the table that names its objects.
type Heap struct {
	arena *arena.Arena
	table *Table
}

// New creates and initializes an arena from cfg and attaches a fresh table.
// A zero cfg.InitialSize falls back to the default initial size, capped at
// cfg.MaxSize.
func New(cfg arena.Config) (*Heap, error) {
	size := cfg.InitialSize
	if size == 0 {
		size = min(arena.DefaultConfig.InitialSize, cfg.MaxSize)
	}
	a := arena.New(cfg)
	if err := a.Init(size); err != nil {
		return nil, err
	}
	t := NewTable()
	a.Attach(t)
	return &Heap{arena: a, table: t}, nil
}

// Allocate reserves count objects of size payload bytes each and returns the
// first of count consecutive identifiers. The objects come from one block
// split into independent segments, so each can later move on its own; only
// ReleaseN relies on the identifiers being consecutive.
func (h *Heap) Allocate(size, count int) (ID, error) {
	if count <= 0 {
		return InvalidID, errors.Wrapf(ErrInvalidCount, "count %d", count)
	}
	piece := format.SegmentSize(size)
	if piece == 0 {
		return InvalidID, errors.Wrapf(arena.ErrInvalidSize, "size %d", size)
	}
	total, ok := buf.MulOverflowSafe(piece, count)
	if !ok || total > format.MaxSegmentSize {
		return InvalidID, errors.Wrapf(arena.ErrInvalidSize, "%d x %d bytes", count, size)
	}

	block, err := h.arena.Allocate(total - format.HeaderSize)
	if err != nil {
		return InvalidID, err
	}
	addrs, err := h.arena.Split(block, piece, count)
	if err != nil {
		_ = h.arena.Free(block)
		return InvalidID, err
	}

	first := InvalidID
	for _, addr := range addrs {
		id := h.table.Mint()
		if err := h.table.Insert(id, addr); err != nil {
			return InvalidID, err
		}
		if first == InvalidID {
			first = id
		}
	}
	logger.Debug("heap allocate", "size", size, "count", count, "first", first)
	return first, nil
}

// Release frees the object named id. An unknown id returns
// ErrUnknownIdentifier and changes nothing.
func (h *Heap) Release(id ID) error {
	addr, ok := h.table.Get(id)
	if !ok {
		logger.Warn("heap release of unknown id", "id", id)
		return errors.Wrapf(ErrUnknownIdentifier, "release %d", id)
	}
	if err := h.arena.Free(addr); err != nil {
		return err
	}
	return h.table.Erase(id)
}

// ReleaseN frees the count objects named id, id+1, ... id+count-1. If any of
// them is unknown nothing is released.
func (h *Heap) ReleaseN(id ID, count int) error {
	if count <= 0 {
		return errors.Wrapf(ErrInvalidCount, "count %d", count)
	}
	for i := range count {
		if !h.table.Contains(id + ID(i)) {
			logger.Warn("heap release of unknown id", "id", id+ID(i), "first", id, "count", count)
			return errors.Wrapf(ErrUnknownIdentifier, "release %d of %d..%d", id+ID(i), id, id+ID(count-1))
		}
	}
	for i := range count {
		if err := h.Release(id + ID(i)); err != nil {
			return err
		}
	}
	return nil
}

// Bytes returns the payload of id, or nil when id is unknown. The slice is at
// least as long as the size requested at allocation and is valid until the
// next call that may allocate or compact.
func (h *Heap) Bytes(id ID) []byte {
	addr, ok := h.table.Get(id)
	if !ok {
		return nil
	}
	return h.arena.Payload(addr)
}

// Size returns the payload capacity of id, or 0 when id is unknown.
func (h *Heap) Size(id ID) int {
	addr, ok := h.table.Get(id)
	if !ok {
		return 0
	}
	return h.arena.ObjectSize(addr)
}

// Read copies the payload of id into p.
func (h *Heap) Read(id ID, p []byte) (int, error) {
	b := h.Bytes(id)
	if b == nil {
		return 0, errors.Wrapf(ErrUnknownIdentifier, "read %d", id)
	}
	return copy(p, b), nil
}

// Write copies p into the payload of id. If p is longer than the payload the
// prefix that fits is written and io.ErrShortWrite returned.
func (h *Heap) Write(id ID, p []byte) (int, error) {
	b := h.Bytes(id)
	if b == nil {
		return 0, errors.Wrapf(ErrUnknownIdentifier, "write %d", id)
	}
	n := copy(b, p)
	if n < len(p) {
		return n, errors.Wrapf(io.ErrShortWrite, "write %d: %d of %d bytes", id, n, len(p))
	}
	return n, nil
}

// Contains reports whether id names a live object.
func (h *Heap) Contains(id ID) bool { return h.table.Contains(id) }

// Len returns the number of live objects.
func (h *Heap) Len() int { return h.table.Len() }

// Compact defragments the arena. Identifiers stay valid; addresses and slices
// obtained earlier do not.
func (h *Heap) Compact() (arena.CompactStats, error) {
	return h.arena.Compact()
}

// Validate checks the arena free list and that the table covers every object.
func (h *Heap) Validate() error { return h.arena.Validate() }

// Report returns the arena occupancy report.
func (h *Heap) Report() arena.Report { return h.arena.Report() }

// Arena returns the underlying arena.
func (h *Heap) Arena() *arena.Arena { return h.arena }

// Table returns the identifier table.
func (h *Heap) Table() *Table { return h.table }

// Close releases the arena buffer. Every identifier becomes unusable.
func (h *Heap) Close() error {
	return h.arena.Close()
}
