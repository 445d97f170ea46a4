package handle

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/poolkit/internal/backing"
	"github.com/joshuapare/poolkit/pool/arena"
)

// newTestHeap returns a heap over a tracked Go-heap source. The heap is
// closed and checked for leaked buffers on cleanup.
func newTestHeap(t testing.TB, initial, maxSize int) (*Heap, *backing.Tracker) {
	t.Helper()
	tr := backing.NewTracker(backing.Heap)
	h, err := New(arena.Config{
		InitialSize:  initial,
		MaxSize:      maxSize,
		GrowthFactor: 1.5,
		Source:       tr,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, h.Close())
		require.Zero(t, tr.Outstanding(), "backing buffers leaked")
	})
	return h, tr
}

// mustAllocate allocates count objects of size bytes, filling each with its
// own tag, and returns the first identifier.
func mustAllocate(t testing.TB, h *Heap, size, count int, tag byte) ID {
	t.Helper()
	id, err := h.Allocate(size, count)
	require.NoError(t, err)
	for i := range count {
		_, err := h.Write(id+ID(i), bytes.Repeat([]byte{tag + byte(i)}, size))
		require.NoError(t, err)
	}
	return id
}

// assertContent checks that the first len(want) bytes of id equal want.
func assertContent(t testing.TB, h *Heap, id ID, want []byte) {
	t.Helper()
	got := h.Bytes(id)
	require.NotNil(t, got, "id %d not live", id)
	require.GreaterOrEqual(t, len(got), len(want))
	require.Equal(t, want, got[:len(want)], "id %d", id)
}

// assertHealthy runs the arena validation and the conservation check.
func assertHealthy(t testing.TB, h *Heap) {
	t.Helper()
	require.NoError(t, h.Validate())
	r := h.Report()
	require.Equal(t, r.Capacity, r.Used+r.Free, "conservation")
	require.Equal(t, h.Len(), r.Live)
}
