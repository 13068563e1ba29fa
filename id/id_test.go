package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullNodeID(t *testing.T) {
	assert.True(t, NullNodeID.IsNull())
	assert.True(t, NodeID{}.IsNull())

	n, err := NewNodeID(0, 0)
	require.NoError(t, err)
	assert.True(t, n.IsNull())
}

func TestNewNodeIDRejectsHalfZero(t *testing.T) {
	_, err := NewNodeID(1, 0)
	assert.Error(t, err)

	_, err = NewNodeID(0, 1)
	assert.Error(t, err)

	n, err := NewNodeID(1, 1)
	require.NoError(t, err)
	assert.False(t, n.IsNull())
}

func TestNodeIDEqual(t *testing.T) {
	a := NodeID{Instance: 1, Index: 2}
	b := NodeID{Instance: 1, Index: 2}
	c := NodeID{Instance: 1, Index: 3}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestNewUUIDIsRandomish(t *testing.T) {
	a, err := NewUUID()
	require.NoError(t, err)
	b, err := NewUUID()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestNowNonZero(t *testing.T) {
	assert.Greater(t, uint64(Now()), uint64(0))
}
