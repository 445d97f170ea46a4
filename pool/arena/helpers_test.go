package arena

import (
	"maps"
	"slices"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/poolkit/internal/backing"
	"github.com/joshuapare/poolkit/internal/format"
)

// mapDir is a minimal Directory for tests, ranged in identifier order.
type mapDir struct {
	next   uint64
	m      map[uint64]format.Addr
	refuse uint64 // Relocate fails for this id when non-zero
}

func newMapDir() *mapDir { return &mapDir{m: make(map[uint64]format.Addr)} }

func (d *mapDir) add(a format.Addr) uint64 {
	d.next++
	d.m[d.next] = a
	return d.next
}

func (d *mapDir) Len() int { return len(d.m) }

func (d *mapDir) Range(fn func(uint64, format.Addr) bool) {
	for _, id := range slices.Sorted(maps.Keys(d.m)) {
		if !fn(id, d.m[id]) {
			return
		}
	}
}

func (d *mapDir) Relocate(id uint64, addr format.Addr) error {
	if _, ok := d.m[id]; !ok || id == d.refuse {
		return errors.Newf("refused relocation of %d", id)
	}
	d.m[id] = addr
	return nil
}

// newTestArena returns an initialized arena over a tracked heap source with a
// directory attached. The arena is closed and leak-checked on cleanup.
func newTestArena(t testing.TB, size, maxSize int) (*Arena, *mapDir, *backing.Tracker) {
	t.Helper()
	tr := backing.NewTracker(backing.Heap)
	a := New(Config{MaxSize: maxSize, GrowthFactor: 1.5, Source: tr})
	require.NoError(t, a.Init(size))
	dir := newMapDir()
	a.Attach(dir)
	t.Cleanup(func() {
		require.NoError(t, a.Close())
		require.Zero(t, tr.Outstanding(), "backing buffers leaked")
	})
	return a, dir, tr
}

// put allocates n bytes, fills them with tag and registers them in dir.
func put(t testing.TB, a *Arena, dir *mapDir, n int, tag byte) uint64 {
	t.Helper()
	addr, err := a.Allocate(n)
	require.NoError(t, err)
	fill(a.Payload(addr)[:n], tag)
	return dir.add(addr)
}

func fill(p []byte, v byte) {
	for i := range p {
		p[i] = v
	}
}

// assertTagged checks that the first n bytes of every entry still hold its tag.
func assertTagged(t testing.TB, a *Arena, dir *mapDir, tags map[uint64]byte, n int) {
	t.Helper()
	for id, tag := range tags {
		p := a.Payload(dir.m[id])
		require.NotNil(t, p, "entry %d has no payload", id)
		for i := range n {
			require.Equal(t, tag, p[i], "entry %d byte %d", id, i)
		}
	}
}

// assertConserved checks the free list and that used and free bytes cover the buffer.
func assertConserved(t testing.TB, a *Arena) {
	t.Helper()
	require.NoError(t, a.Validate())
	r := a.Report()
	require.Equal(t, r.Capacity, r.Used+r.Free)
}
