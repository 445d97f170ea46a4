package handle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandle_SurvivesGrow(t *testing.T) {
	h, _ := newTestHeap(t, 32, 4096)
	r, err := h.NewHandle(8)
	require.NoError(t, err)
	copy(r.Bytes(), "survivor")

	_, err = h.Allocate(64, 4)
	require.NoError(t, err)
	require.Equal(t, 1, h.Arena().Stats().Grows)

	assert.True(t, r.Valid())
	assert.Equal(t, "survivor", string(r.Bytes()[:8]))
}

func TestHandle_CopiesShareObject(t *testing.T) {
	h, _ := newTestHeap(t, 256, 256)
	r, err := h.NewHandle(8)
	require.NoError(t, err)

	alias := h.Handle(r.ID())
	copy(alias.Bytes(), "shared!!")
	assert.Equal(t, "shared!!", string(r.Bytes()[:8]))

	require.NoError(t, r.Release())
	assert.False(t, alias.Valid())
	assert.Nil(t, alias.Bytes())
	require.ErrorIs(t, alias.Release(), ErrUnknownIdentifier)
}

func TestHandle_Take(t *testing.T) {
	h, _ := newTestHeap(t, 256, 256)
	src, err := h.NewHandle(16)
	require.NoError(t, err)
	id := src.ID()

	dst := src.Take()
	assert.Equal(t, id, dst.ID())
	assert.True(t, dst.Valid())
	assert.Equal(t, 16, dst.Size())

	assert.Equal(t, InvalidID, src.ID())
	assert.False(t, src.Valid())
	assert.Nil(t, src.Bytes())
	assert.Zero(t, src.Size())
	require.ErrorIs(t, src.Release(), ErrUnknownIdentifier)

	require.NoError(t, dst.Release())
	assert.False(t, dst.Valid())
	assert.Zero(t, h.Len())
}

func TestHandle_UnknownID(t *testing.T) {
	h, _ := newTestHeap(t, 256, 256)
	r := h.Handle(42)
	assert.False(t, r.Valid())
	assert.Nil(t, r.Bytes())
}
