package blob

import (
	"testing"

	"github.com/rcowham/filemesh/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	fileID := id.NodeID{Instance: 1, Index: 2}
	change := id.NodeID{}

	require.NoError(t, Create(dir, fileID, change))
	assert.True(t, Exists(dir, fileID, change))
	require.NoError(t, Create(dir, fileID, change)) // replay: tolerate existing
}

func TestRenameIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	fileID := id.NodeID{Instance: 1, Index: 2}
	oldChange := id.NodeID{}
	newChange := id.NodeID{Instance: 1, Index: 1}

	require.NoError(t, Create(dir, fileID, oldChange))
	require.NoError(t, Rename(dir, fileID, oldChange, newChange))
	assert.True(t, Exists(dir, fileID, newChange))
	assert.False(t, Exists(dir, fileID, oldChange))

	// Replay: source already gone, target already there -> success.
	require.NoError(t, Rename(dir, fileID, oldChange, newChange))
}

func TestRenameNoOpWhenSame(t *testing.T) {
	dir := t.TempDir()
	fileID := id.NodeID{Instance: 1, Index: 2}
	change := id.NodeID{Instance: 1, Index: 1}
	require.NoError(t, Create(dir, fileID, change))
	require.NoError(t, Rename(dir, fileID, change, change))
	assert.True(t, Exists(dir, fileID, change))
}

func TestRemoveIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	fileID := id.NodeID{Instance: 1, Index: 2}
	change := id.NodeID{}
	require.NoError(t, Create(dir, fileID, change))
	require.NoError(t, Remove(dir, fileID, change))
	assert.False(t, Exists(dir, fileID, change))
	require.NoError(t, Remove(dir, fileID, change)) // replay: already gone
}

func TestRenameFailsWhenNeitherExists(t *testing.T) {
	dir := t.TempDir()
	fileID := id.NodeID{Instance: 1, Index: 2}
	oldChange := id.NodeID{}
	newChange := id.NodeID{Instance: 1, Index: 1}
	err := Rename(dir, fileID, oldChange, newChange)
	assert.Error(t, err)
}
