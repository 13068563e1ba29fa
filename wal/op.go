// Package wal implements the write-ahead-logged transactor spec.md §4.5
// describes: every mutation is captured as one framed message, written
// to a per-worker log file, applied, then the file is removed. A
// leftover log file found at startup is proof of a crash mid-operation
// and is replayed the same way.
package wal

import (
	"fmt"

	"github.com/rcowham/filemesh/codec"
	"github.com/rcowham/filemesh/id"
)

// OpKind identifies which of the five operation types a log record
// carries. Values are the dense message-type IDs written to a wal frame's
// Type byte; every wal frame uses version 0.
type OpKind uint8

const (
	OpCreate OpKind = iota
	OpSetPermissions
	OpSetTimestamp
	OpDelete
	OpMove
)

func (k OpKind) String() string {
	switch k {
	case OpCreate:
		return "Create"
	case OpSetPermissions:
		return "SetPermissions"
	case OpSetTimestamp:
		return "SetTimestamp"
	case OpDelete:
		return "Delete"
	case OpMove:
		return "Move"
	default:
		return fmt.Sprintf("OpKind(%d)", uint8(k))
	}
}

// Permissions is wal's own copy of the two-bit permission pair: wal
// must not import schema/share (share depends on wal, not the other
// way), so it carries just enough of the type to serialize a Create
// record.
type Permissions struct {
	CanWrite   bool
	CanExecute bool
}

// FileRef is the minimal "current row identity" spec.md §4.5 says a
// captured operation needs: "the captured file row includes its
// current ID and Change; ... the host instance is implicit."
type FileRef struct {
	ID     id.NodeID
	Change id.NodeID
}

// Operation is implemented by each of the five log record types.
type Operation interface {
	Kind() OpKind
	encode(*codec.Body) error
}

// Create records a brand-new file/directory row.
type Create struct {
	NewFileIndex id.UUID
	Parent       id.NodeID
	Name         string
	IsFile       bool
	Permissions  Permissions
}

func (Create) Kind() OpKind { return OpCreate }

func (op Create) encode(b *codec.Body) error {
	b.WriteUint64(uint64(op.NewFileIndex))
	writeNodeID(b, op.Parent)
	if err := b.WriteString(op.Name); err != nil {
		return err
	}
	b.WriteBool(op.IsFile)
	b.WriteBool(op.Permissions.CanWrite)
	b.WriteBool(op.Permissions.CanExecute)
	return nil
}

func decodeCreate(r *codec.BodyReader) (Create, error) {
	var op Create
	idx, err := r.ReadUint64()
	if err != nil {
		return op, err
	}
	op.NewFileIndex = id.UUID(idx)
	if op.Parent, err = readNodeID(r); err != nil {
		return op, err
	}
	if op.Name, err = r.ReadString(); err != nil {
		return op, err
	}
	if op.IsFile, err = r.ReadBool(); err != nil {
		return op, err
	}
	if op.Permissions.CanWrite, err = r.ReadBool(); err != nil {
		return op, err
	}
	if op.Permissions.CanExecute, err = r.ReadBool(); err != nil {
		return op, err
	}
	return op, nil
}

// SetPermissions updates the two permission bits of an existing row.
type SetPermissions struct {
	File           FileRef
	NewChangeIndex id.UUID
	CanWrite       bool
	CanExecute     bool
}

func (SetPermissions) Kind() OpKind { return OpSetPermissions }

func (op SetPermissions) encode(b *codec.Body) error {
	writeFileRef(b, op.File)
	b.WriteUint64(uint64(op.NewChangeIndex))
	b.WriteBool(op.CanWrite)
	b.WriteBool(op.CanExecute)
	return nil
}

func decodeSetPermissions(r *codec.BodyReader) (SetPermissions, error) {
	var op SetPermissions
	var err error
	if op.File, err = readFileRef(r); err != nil {
		return op, err
	}
	idx, err := r.ReadUint64()
	if err != nil {
		return op, err
	}
	op.NewChangeIndex = id.UUID(idx)
	if op.CanWrite, err = r.ReadBool(); err != nil {
		return op, err
	}
	if op.CanExecute, err = r.ReadBool(); err != nil {
		return op, err
	}
	return op, nil
}

// SetTimestamp updates a row's Modified timestamp.
type SetTimestamp struct {
	File           FileRef
	NewChangeIndex id.UUID
	NewTimestamp   id.Timestamp
}

func (SetTimestamp) Kind() OpKind { return OpSetTimestamp }

func (op SetTimestamp) encode(b *codec.Body) error {
	writeFileRef(b, op.File)
	b.WriteUint64(uint64(op.NewChangeIndex))
	b.WriteUint64(uint64(op.NewTimestamp))
	return nil
}

func decodeSetTimestamp(r *codec.BodyReader) (SetTimestamp, error) {
	var op SetTimestamp
	var err error
	if op.File, err = readFileRef(r); err != nil {
		return op, err
	}
	idx, err := r.ReadUint64()
	if err != nil {
		return op, err
	}
	op.NewChangeIndex = id.UUID(idx)
	ts, err := r.ReadUint64()
	if err != nil {
		return op, err
	}
	op.NewTimestamp = id.Timestamp(ts)
	return op, nil
}

// Delete removes an existing row (and its blob, if it is a file).
// IsFile is captured at commit time, before the row is touched, so
// that replay after a crash (when the row may already be gone) still
// knows whether a blob needs removing.
type Delete struct {
	File   FileRef
	IsFile bool
}

func (Delete) Kind() OpKind { return OpDelete }

func (op Delete) encode(b *codec.Body) error {
	writeFileRef(b, op.File)
	b.WriteBool(op.IsFile)
	return nil
}

func decodeDelete(r *codec.BodyReader) (Delete, error) {
	var op Delete
	var err error
	if op.File, err = readFileRef(r); err != nil {
		return op, err
	}
	if op.IsFile, err = r.ReadBool(); err != nil {
		return op, err
	}
	return op, nil
}

// Move reparents/renames an existing row.
type Move struct {
	File           FileRef
	NewChangeIndex id.UUID
	NewParent      id.NodeID
	NewName        string
}

func (Move) Kind() OpKind { return OpMove }

func (op Move) encode(b *codec.Body) error {
	writeFileRef(b, op.File)
	b.WriteUint64(uint64(op.NewChangeIndex))
	writeNodeID(b, op.NewParent)
	return b.WriteString(op.NewName)
}

func decodeMove(r *codec.BodyReader) (Move, error) {
	var op Move
	var err error
	if op.File, err = readFileRef(r); err != nil {
		return op, err
	}
	idx, err := r.ReadUint64()
	if err != nil {
		return op, err
	}
	op.NewChangeIndex = id.UUID(idx)
	if op.NewParent, err = readNodeID(r); err != nil {
		return op, err
	}
	if op.NewName, err = r.ReadString(); err != nil {
		return op, err
	}
	return op, nil
}

func writeNodeID(b *codec.Body, n id.NodeID) {
	b.WriteUint64(uint64(n.Instance))
	b.WriteUint64(uint64(n.Index))
}

func readNodeID(r *codec.BodyReader) (id.NodeID, error) {
	inst, err := r.ReadUint64()
	if err != nil {
		return id.NodeID{}, err
	}
	idx, err := r.ReadUint64()
	if err != nil {
		return id.NodeID{}, err
	}
	return id.NodeID{Instance: id.Counter(inst), Index: id.UUID(idx)}, nil
}

func writeFileRef(b *codec.Body, f FileRef) {
	writeNodeID(b, f.ID)
	writeNodeID(b, f.Change)
}

func readFileRef(r *codec.BodyReader) (FileRef, error) {
	var f FileRef
	var err error
	if f.ID, err = readNodeID(r); err != nil {
		return f, err
	}
	if f.Change, err = readNodeID(r); err != nil {
		return f, err
	}
	return f, nil
}

// Encode serializes op to a frame body under the wal protocol's single
// version, with op.Kind() as the message type.
func Encode(op Operation) (codec.Frame, error) {
	b := codec.NewBody()
	if err := op.encode(b); err != nil {
		return codec.Frame{}, err
	}
	return codec.Frame{Version: 0, Type: uint8(op.Kind()), Body: b.Bytes()}, nil
}

// Decode reconstructs the Operation carried by frame.
func Decode(frame codec.Frame) (Operation, error) {
	if frame.Version != 0 {
		return nil, fmt.Errorf("wal: unknown protocol version %d", frame.Version)
	}
	r := codec.NewBodyReader(frame.Body)
	switch OpKind(frame.Type) {
	case OpCreate:
		return decodeCreate(r)
	case OpSetPermissions:
		return decodeSetPermissions(r)
	case OpSetTimestamp:
		return decodeSetTimestamp(r)
	case OpDelete:
		return decodeDelete(r)
	case OpMove:
		return decodeMove(r)
	default:
		return nil, fmt.Errorf("wal: unknown operation type %d", frame.Type)
	}
}
