package arena

import (
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/joshuapare/poolkit/internal/backing"
	"github.com/joshuapare/poolkit/internal/format"
)

type tagged struct {
	n   int
	tag byte
}

// TestProperty_RelocationKeepsPayloads mixes allocations, frees, explicit
// compactions and grows, and checks after every step that each directory
// entry still holds its bytes, no two entries overlap, and the buffer is
// conserved.
func TestProperty_RelocationKeepsPayloads(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.IntRange(format.MinSegmentSize, 512).Draw(t, "initial")
		tr := backing.NewTracker(backing.Heap)
		a := New(Config{MaxSize: 8192, GrowthFactor: 1.5, Source: tr})
		require.NoError(t, a.Init(initial))
		dir := newMapDir()
		a.Attach(dir)
		defer func() {
			require.NoError(t, a.Close())
			require.Zero(t, tr.Outstanding())
		}()

		objs := make(map[uint64]tagged)
		var tag byte

		t.Repeat(map[string]func(*rapid.T){
			"allocate": func(t *rapid.T) {
				n := rapid.IntRange(1, 256).Draw(t, "n")
				addr, err := a.Allocate(n)
				if err != nil {
					require.ErrorIs(t, err, ErrNoFit)
					return
				}
				tag++
				fill(a.Payload(addr)[:n], tag)
				objs[dir.add(addr)] = tagged{n: n, tag: tag}
			},
			"free": func(t *rapid.T) {
				if len(objs) == 0 {
					t.Skip("nothing live")
				}
				id := rapid.SampledFrom(slices.Sorted(maps.Keys(objs))).Draw(t, "id")
				require.NoError(t, a.Free(dir.m[id]))
				require.ErrorIs(t, a.Free(dir.m[id]), ErrForeignAddress)
				delete(dir.m, id)
				delete(objs, id)
			},
			"compact": func(t *rapid.T) {
				free := a.Report().Free
				_, err := a.Compact()
				require.NoError(t, err)
				require.Equal(t, free, a.Report().Free, "compaction changed free bytes")
			},
			"grow": func(t *rapid.T) {
				n := rapid.IntRange(1, 1024).Draw(t, "n")
				capBefore := a.Capacity()
				if err := a.Grow(n); err != nil {
					require.ErrorIs(t, err, ErrCapacityExceeded)
					require.Equal(t, capBefore, a.Capacity())
					return
				}
				require.Greater(t, a.Capacity(), capBefore)
			},
			"": func(t *rapid.T) {
				require.NoError(t, a.Validate())
				r := a.Report()
				require.Equal(t, r.Capacity, r.Used+r.Free, "conservation")

				prevEnd := 0
				byAddr := slices.SortedFunc(maps.Keys(objs), func(x, y uint64) int {
					return int(dir.m[x]) - int(dir.m[y])
				})
				for _, id := range byAddr {
					addr, o := dir.m[id], objs[id]
					require.GreaterOrEqual(t, addr.Segment(), prevEnd, "entries overlap")
					p := a.Payload(addr)
					prevEnd = addr.Segment() + format.HeaderSize + len(p)
					for i := range o.n {
						if p[i] != o.tag {
							t.Fatalf("entry %d byte %d: got 0x%x want 0x%x", id, i, p[i], o.tag)
						}
					}
				}
			},
		})
	})
}
