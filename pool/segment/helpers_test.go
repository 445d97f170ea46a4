package segment

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/poolkit/internal/format"
)

// newTestList returns a List over a fresh heap buffer of size bytes.
func newTestList(t testing.TB, size int) *List {
	t.Helper()
	l, err := New(make([]byte, size))
	require.NoError(t, err)
	return l
}

// assertInvariants checks the physical layout and the conservation rule.
func assertInvariants(t testing.TB, l *List) {
	t.Helper()
	require.NoError(t, l.Validate())

	used := 0
	require.NoError(t, l.Walk(func(_ int, hdr format.Header) bool {
		if hdr.Allocated {
			used += hdr.Size
		}
		return true
	}))
	require.Equal(t, l.Capacity(), used+l.FreeBytes(), "allocated + free must cover the buffer")
	require.Equal(t, used, l.UsedBytes())
}

// holes collects the current hole list.
func holes(l *List) []Hole {
	var out []Hole
	for h := range l.Holes() {
		out = append(out, h)
	}
	return out
}

// mustAlloc allocates n bytes or fails the test.
func mustAlloc(t testing.TB, l *List, n int) format.Addr {
	t.Helper()
	a, ok := l.Allocate(n)
	require.True(t, ok, "Allocate(%d) found no fit", n)
	return a
}
