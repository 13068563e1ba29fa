package wal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rcowham/filemesh/codec"
	"github.com/rcowham/filemesh/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopHandlers(t *testing.T) (ApplyHandlers, *[]OpKind) {
	t.Helper()
	var seen []OpKind
	h := ApplyHandlers{
		Create:         func(Create) error { seen = append(seen, OpCreate); return nil },
		SetPermissions: func(SetPermissions) error { seen = append(seen, OpSetPermissions); return nil },
		SetTimestamp:   func(SetTimestamp) error { seen = append(seen, OpSetTimestamp); return nil },
		Delete:         func(Delete) error { seen = append(seen, OpDelete); return nil },
		Move:           func(Move) error { seen = append(seen, OpMove); return nil },
	}
	return h, &seen
}

func TestOpenOnEmptyDirIsANoop(t *testing.T) {
	dir := t.TempDir()
	h, seen := noopHandlers(t)
	tr, err := Open(dir, h, nil, true)
	require.NoError(t, err)
	assert.Empty(t, *seen)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	_ = tr
}

func TestCommitAppliesAndRemovesLogFile(t *testing.T) {
	dir := t.TempDir()
	h, seen := noopHandlers(t)
	tr, err := Open(dir, h, nil, true)
	require.NoError(t, err)

	op := Create{NewFileIndex: 1, Parent: id.NodeID{}, Name: "x", IsFile: false, Permissions: Permissions{CanWrite: true}}
	require.NoError(t, tr.Commit("w0", op))

	assert.Equal(t, []OpKind{OpCreate}, *seen)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOpenReplaysLeftoverLogFile(t *testing.T) {
	dir := t.TempDir()
	op := Create{NewFileIndex: 7, Parent: id.NodeID{}, Name: "x", IsFile: false, Permissions: Permissions{CanWrite: true, CanExecute: true}}
	frame, err := Encode(op)
	require.NoError(t, err)

	f, err := os.Create(filepath.Join(dir, "w0"))
	require.NoError(t, err)
	require.NoError(t, codec.WriteFrame(f, frame))
	require.NoError(t, f.Close())

	h, seen := noopHandlers(t)
	_, err = Open(dir, h, nil, true)
	require.NoError(t, err)

	assert.Equal(t, []OpKind{OpCreate}, *seen)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "recovery must leave the log directory empty")
}

func TestOpenReplaysMultipleLeftoverFiles(t *testing.T) {
	dir := t.TempDir()
	for i, kind := range []Operation{
		Create{NewFileIndex: 1, Name: "a"},
		Delete{File: FileRef{ID: id.NodeID{Instance: 0, Index: 1}}},
	} {
		frame, err := Encode(kind)
		require.NoError(t, err)
		f, err := os.Create(filepath.Join(dir, "w"+string(rune('0'+i))))
		require.NoError(t, err)
		require.NoError(t, codec.WriteFrame(f, frame))
		require.NoError(t, f.Close())
	}

	h, seen := noopHandlers(t)
	_, err := Open(dir, h, nil, true)
	require.NoError(t, err)
	assert.Len(t, *seen, 2)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCommitHandlerErrorLeavesLogFileForRetry(t *testing.T) {
	dir := t.TempDir()
	h, _ := noopHandlers(t)
	h.Create = func(Create) error { return assert.AnError }
	tr, err := Open(dir, h, nil, true)
	require.NoError(t, err)

	err = tr.Commit("w0", Create{Name: "x"})
	assert.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "a failed apply must not silently delete the log record")
}
