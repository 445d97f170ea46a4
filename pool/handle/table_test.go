package handle

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/poolkit/internal/format"
	"github.com/joshuapare/poolkit/internal/logger"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := logger.L
	logger.L = slog.New(slog.NewTextHandler(&buf, nil))
	t.Cleanup(func() { logger.L = prev })
	return &buf
}

func TestTable_MintIsMonotonic(t *testing.T) {
	tbl := NewTable()
	assert.Equal(t, InvalidID, tbl.Last())

	a := tbl.Mint()
	require.NoError(t, tbl.Insert(a, 8))
	require.NoError(t, tbl.Erase(a))
	require.Zero(t, tbl.Len())

	// draining the table must not recycle identifiers
	b := tbl.Mint()
	assert.Equal(t, ID(1), a)
	assert.Greater(t, b, a)
	assert.Equal(t, b, tbl.Last())
}

func TestTable_InsertDuplicate(t *testing.T) {
	log := captureLog(t)
	tbl := NewTable()
	id := tbl.Mint()
	require.NoError(t, tbl.Insert(id, 8))

	err := tbl.Insert(id, 64)
	require.ErrorIs(t, err, ErrDuplicateIdentifier)

	addr, ok := tbl.Get(id)
	require.True(t, ok)
	assert.Equal(t, format.Addr(8), addr, "failed insert must not overwrite")
	assert.Contains(t, log.String(), "level=WARN")
	assert.Contains(t, log.String(), "duplicate insert")
}

func TestTable_InvalidID(t *testing.T) {
	tbl := NewTable()
	require.ErrorIs(t, tbl.Insert(InvalidID, 8), ErrUnknownIdentifier)
	assert.Zero(t, tbl.Len())
}

func TestTable_UnknownIdentifier(t *testing.T) {
	log := captureLog(t)
	tbl := NewTable()

	require.ErrorIs(t, tbl.Erase(7), ErrUnknownIdentifier)
	require.ErrorIs(t, tbl.Replace(7, 16), ErrUnknownIdentifier)
	require.ErrorIs(t, tbl.Relocate(7, 16), ErrUnknownIdentifier)
	_, ok := tbl.Get(7)
	assert.False(t, ok)
	assert.Zero(t, tbl.Len())
	assert.Contains(t, log.String(), "erase of unknown id")
	assert.Contains(t, log.String(), "replace of unknown id")
}

func TestTable_Replace(t *testing.T) {
	tbl := NewTable()
	id := tbl.Mint()
	require.NoError(t, tbl.Insert(id, 8))
	require.NoError(t, tbl.Replace(id, 40))

	addr, ok := tbl.Get(id)
	require.True(t, ok)
	assert.Equal(t, format.Addr(40), addr)
	assert.Equal(t, 1, tbl.Len())
}

func TestTable_OrderedIteration(t *testing.T) {
	tbl := NewTable()
	for _, id := range []ID{5, 1, 3} {
		require.NoError(t, tbl.Insert(id, format.Addr(id*8)))
	}

	var ids []ID
	for id, addr := range tbl.All() {
		assert.Equal(t, format.Addr(id*8), addr)
		ids = append(ids, id)
	}
	assert.Equal(t, []ID{1, 3, 5}, ids)

	var first []uint64
	tbl.Range(func(id uint64, _ format.Addr) bool {
		first = append(first, id)
		return len(first) < 2
	})
	assert.Equal(t, []uint64{1, 3}, first)
}
