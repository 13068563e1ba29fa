package wal

import (
	"testing"

	"github.com/rcowham/filemesh/codec"
	"github.com/rcowham/filemesh/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeCreate(t *testing.T) {
	op := Create{
		NewFileIndex: 7,
		Parent:       id.NodeID{Instance: 0, Index: 0},
		Name:         "x",
		IsFile:       false,
		Permissions:  Permissions{CanWrite: true, CanExecute: true},
	}
	frame, err := Encode(op)
	require.NoError(t, err)
	assert.Equal(t, uint8(OpCreate), frame.Type)

	decoded, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, op, decoded)
}

func TestEncodeDecodeSetPermissions(t *testing.T) {
	op := SetPermissions{
		File:           FileRef{ID: id.NodeID{Instance: 1, Index: 2}, Change: id.NodeID{Instance: 1, Index: 3}},
		NewChangeIndex: 4,
		CanWrite:       true,
		CanExecute:     false,
	}
	frame, err := Encode(op)
	require.NoError(t, err)
	decoded, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, op, decoded)
}

func TestEncodeDecodeSetTimestamp(t *testing.T) {
	op := SetTimestamp{
		File:           FileRef{ID: id.NodeID{Instance: 1, Index: 2}, Change: id.NodeID{Instance: 1, Index: 2}},
		NewChangeIndex: 5,
		NewTimestamp:   id.Timestamp(1700000000),
	}
	frame, err := Encode(op)
	require.NoError(t, err)
	decoded, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, op, decoded)
}

func TestEncodeDecodeDelete(t *testing.T) {
	op := Delete{File: FileRef{ID: id.NodeID{Instance: 1, Index: 2}, Change: id.NodeID{Instance: 1, Index: 2}}, IsFile: true}
	frame, err := Encode(op)
	require.NoError(t, err)
	decoded, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, op, decoded)
}

func TestEncodeDecodeMove(t *testing.T) {
	op := Move{
		File:           FileRef{ID: id.NodeID{Instance: 1, Index: 2}, Change: id.NodeID{Instance: 1, Index: 2}},
		NewChangeIndex: 6,
		NewParent:      id.NodeID{Instance: 0, Index: 1},
		NewName:        "renamed",
	}
	frame, err := Encode(op)
	require.NoError(t, err)
	decoded, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, op, decoded)
}

func TestDecodeUnknownTypeFails(t *testing.T) {
	_, err := Decode(codec.Frame{Version: 0, Type: 250, Body: nil})
	assert.Error(t, err)
}

func TestDecodeTruncatedBodyFails(t *testing.T) {
	frame, err := Encode(Create{Name: "x", Permissions: Permissions{}})
	require.NoError(t, err)
	frame.Body = frame.Body[:len(frame.Body)-1]
	_, err = Decode(frame)
	assert.Error(t, err)
}
