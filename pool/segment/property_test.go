package segment

import (
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/joshuapare/poolkit/internal/format"
)

// TestProperty_AllocReleaseWorkload drives random allocate/release sequences
// and checks after every step that segments conserve the buffer, live payloads
// never overlap, and payload bytes survive neighbouring operations.
func TestProperty_AllocReleaseWorkload(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		size := format.Align8(rapid.IntRange(format.MinSegmentSize, 4096).Draw(t, "size"))
		l, err := New(make([]byte, size))
		require.NoError(t, err)

		live := make(map[format.Addr]byte)
		var tag byte

		t.Repeat(map[string]func(*rapid.T){
			"allocate": func(t *rapid.T) {
				n := rapid.IntRange(1, 300).Draw(t, "n")
				free := l.FreeBytes()
				a, ok := l.Allocate(n)
				if !ok {
					require.Equal(t, free, l.FreeBytes(), "failed allocate must not change the list")
					return
				}
				require.GreaterOrEqual(t, l.ObjectSize(a), n)
				tag++
				fill(l.Payload(a), tag)
				live[a] = tag
			},
			"release": func(t *rapid.T) {
				if len(live) == 0 {
					t.Skip("nothing live")
				}
				a := rapid.SampledFrom(slices.Sorted(maps.Keys(live))).Draw(t, "addr")
				freeBefore, seg := l.FreeBytes(), l.SegmentSize(a)
				require.NoError(t, l.Release(a))
				require.Equal(t, freeBefore+seg, l.FreeBytes())
				delete(live, a)
			},
			"double release": func(t *rapid.T) {
				if len(live) == 0 {
					t.Skip("nothing live")
				}
				a := rapid.SampledFrom(slices.Sorted(maps.Keys(live))).Draw(t, "addr")
				require.NoError(t, l.Release(a))
				delete(live, a)
				require.Error(t, l.Release(a))
			},
			"": func(t *rapid.T) {
				require.NoError(t, l.Validate())
				require.Equal(t, len(live), l.Live())

				used := 0
				prevEnd := 0
				for _, a := range slices.Sorted(maps.Keys(live)) {
					seg := l.SegmentSize(a)
					require.NotZero(t, seg)
					require.GreaterOrEqual(t, a.Segment(), prevEnd, "live segments overlap")
					prevEnd = a.Segment() + seg
					used += seg
					for _, b := range l.Payload(a) {
						if b != live[a] {
							t.Fatalf("payload at %d corrupted: got 0x%x want 0x%x", a, b, live[a])
						}
					}
				}
				require.Equal(t, l.Capacity(), used+l.FreeBytes(), "conservation")
			},
		})
	})
}

func fill(p []byte, v byte) {
	for i := range p {
		p[i] = v
	}
}
