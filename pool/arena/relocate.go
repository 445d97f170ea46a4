package arena

import (
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/poolkit/internal/format"
	"github.com/joshuapare/poolkit/internal/logger"
	"github.com/joshuapare/poolkit/pool/segment"
)

// move is one pending relocation.
type move struct {
	id   uint64
	from format.Addr
	to   format.Addr
}

// CompactStats describes one Compact pass.
type CompactStats struct {
	Moved         int // objects relocated
	MovedBytes    int // payload bytes copied
	HolesBefore   int
	HolesAfter    int
	LargestBefore int // largest hole before the pass, header included
	LargestAfter  int
}

// entries snapshots the directory and checks that it names every live
// object exactly once. Relocating with an incomplete directory would leave
// the untracked addresses pointing at bytes that moved.
func (a *Arena) entries() ([]move, error) {
	live := a.list.Live()
	if a.dir == nil {
		if live == 0 {
			return nil, nil
		}
		return nil, errors.Wrapf(ErrUnrelocatable, "%d live objects, no directory attached", live)
	}
	if n := a.dir.Len(); n != live {
		return nil, errors.Wrapf(ErrUnrelocatable, "directory has %d entries, arena has %d live objects", n, live)
	}

	var (
		moves = make([]move, 0, live)
		seen  = make(map[format.Addr]struct{}, live)
		bad   error
	)
	a.dir.Range(func(id uint64, addr format.Addr) bool {
		if a.list.SegmentSize(addr) == 0 {
			bad = errors.Wrapf(ErrUnrelocatable, "entry %d at %d is not a live object", id, addr)
			return false
		}
		if _, dup := seen[addr]; dup {
			bad = errors.Wrapf(ErrUnrelocatable, "entry %d shares address %d", id, addr)
			return false
		}
		seen[addr] = struct{}{}
		moves = append(moves, move{id: id, from: addr})
		return true
	})
	if bad != nil {
		return nil, bad
	}
	return moves, nil
}

// nextCapacity scales the current capacity by the growth factor until it
// covers target, clamped to the aligned MaxSize. The result is always larger
// than the current capacity.
func (a *Arena) nextCapacity(target int) (int, error) {
	cur := len(a.buf)
	limit := a.cfg.MaxSize &^ format.AlignmentMask
	if target > limit || cur >= limit {
		return 0, errors.Wrapf(ErrCapacityExceeded, "need %d, capacity %d, max %d", target, cur, limit)
	}

	next := cur
	for next == cur || next < target {
		grown := format.Align8(int(float64(next) * a.cfg.GrowthFactor))
		if grown <= next {
			grown = next + format.Alignment
		}
		if grown >= limit {
			next = limit
			break
		}
		next = grown
	}
	return next, nil
}

// Grow replaces the buffer with a larger one able to hold every live object
// plus a new object of n payload bytes. Live objects are copied in directory
// order and their new addresses published before the old buffer is released.
// On any failure the old buffer and every address stay as they were.
func (a *Arena) Grow(n int) error {
	if a.list == nil {
		return ErrNotInitialized
	}
	need := format.SegmentSize(n)
	if need == 0 {
		return errors.Wrapf(ErrInvalidSize, "grow %d", n)
	}
	newCap, err := a.nextCapacity(a.list.UsedBytes() + need)
	if err != nil {
		return err
	}
	moves, err := a.entries()
	if err != nil {
		return err
	}

	buf, err := a.src.Alloc(newCap)
	if err != nil {
		return errors.Wrapf(ErrBackingAllocationFailed, "grow to %d bytes: %v", newCap, err)
	}
	list, err := segment.New(buf)
	if err != nil {
		_ = a.src.Release(buf)
		return err
	}

	copied := 0
	for i := range moves {
		m := &moves[i]
		size := a.list.ObjectSize(m.from)
		to, ok := list.Allocate(size)
		if !ok {
			_ = a.src.Release(buf)
			return errors.Wrapf(segment.ErrCorrupt, "grow: object %d (%d bytes) did not fit in %d", m.id, size, newCap)
		}
		copy(list.Payload(to), a.list.Payload(m.from))
		m.to = to
		copied += size
	}
	if err := a.publish(moves); err != nil {
		_ = a.src.Release(buf)
		return err
	}

	old := a.buf
	a.buf, a.list = buf, list
	a.stats.Grows++
	a.stats.GrowBytes += newCap - len(old)
	a.stats.MovedBytes += copied
	logger.Debug("arena grow", "from", len(old), "to", newCap, "request", n, "moved", len(moves), "bytes", copied)

	if err := a.src.Release(old); err != nil {
		logger.Warn("arena grow: releasing old buffer", "capacity", len(old), "error", err)
	}
	return nil
}

// publish hands every new address to the directory. If the directory refuses
// one, the entries already updated are pointed back at their old addresses.
func (a *Arena) publish(moves []move) error {
	for i, m := range moves {
		if err := a.dir.Relocate(m.id, m.to); err != nil {
			for _, done := range moves[:i] {
				_ = a.dir.Relocate(done.id, done.from)
			}
			return errors.Wrapf(err, "relocating entry %d", m.id)
		}
	}
	return nil
}

// Compact moves live objects downward into holes. For each hole in address
// order it picks the first directory entry above the hole whose segment fits,
// moves it, and rescans from the same position; when nothing fits it moves
// on to the next hole. The pass is single and best effort: it never loses
// free bytes or live data but makes no promise about the final layout.
func (a *Arena) Compact() (CompactStats, error) {
	var cs CompactStats
	if a.list == nil {
		return cs, ErrNotInitialized
	}
	cs.HolesBefore, cs.LargestBefore = a.list.HoleCount(), a.list.LargestHole()
	if _, err := a.entries(); err != nil {
		return cs, err
	}

	for h, ok := a.list.NextHole(0); ok; {
		m, found := a.candidate(h)
		if !found {
			h, ok = a.list.NextHole(h.End())
			continue
		}
		size, err := a.relocate(m, h)
		if err != nil {
			return cs, err
		}
		cs.Moved++
		cs.MovedBytes += size
		h, ok = a.list.NextHole(h.Off)
	}

	cs.HolesAfter, cs.LargestAfter = a.list.HoleCount(), a.list.LargestHole()
	a.stats.Compactions++
	a.stats.Moved += cs.Moved
	a.stats.MovedBytes += cs.MovedBytes
	logger.Debug("arena compact", "moved", cs.Moved, "bytes", cs.MovedBytes,
		"holes_before", cs.HolesBefore, "holes_after", cs.HolesAfter)
	return cs, nil
}

// candidate returns the first directory entry located above h whose segment
// fits inside h exactly or with a remainder large enough to stay a hole.
func (a *Arena) candidate(h segment.Hole) (move, bool) {
	if a.dir == nil {
		return move{}, false
	}
	var (
		m     move
		found bool
	)
	a.dir.Range(func(id uint64, addr format.Addr) bool {
		if addr.Segment() > h.Off && segment.Fits(a.list.SegmentSize(addr), h.Size) {
			m, found = move{id: id, from: addr}, true
			return false
		}
		return true
	})
	return m, found
}

// relocate copies one object into the front of h, publishes the new address
// and frees the old segment. It returns the payload bytes copied.
func (a *Arena) relocate(m move, h segment.Hole) (int, error) {
	seg := a.list.SegmentSize(m.from)
	size := seg - format.HeaderSize
	to, ok := a.list.AllocateIn(h.Off, seg)
	if !ok {
		return 0, errors.Wrapf(segment.ErrCorrupt, "compact: hole at %d refused entry %d (%d bytes)", h.Off, m.id, seg)
	}
	copy(a.list.Payload(to), a.list.Payload(m.from))
	if err := a.dir.Relocate(m.id, to); err != nil {
		_ = a.list.Release(to)
		return 0, errors.Wrapf(err, "relocating entry %d", m.id)
	}
	if err := a.list.Release(m.from); err != nil {
		return 0, err
	}
	return size, nil
}

// checkDirectory reports whether the attached directory covers every live object.
func (a *Arena) checkDirectory() error {
	_, err := a.entries()
	return err
}
