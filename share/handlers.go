package share

import (
	"github.com/rcowham/filemesh/id"
	"github.com/rcowham/filemesh/internal/blob"
	"github.com/rcowham/filemesh/schema"
	"github.com/rcowham/filemesh/wal"
)

// applyHandlers bridges wal's leaf-level Operation types to this
// share's schema and blob directory. wal never imports schema/share
// (spec.md §9), so the translation lives here, on the depending side.
func (s *Share) applyHandlers() wal.ApplyHandlers {
	return wal.ApplyHandlers{
		Create:         s.applyCreate,
		SetPermissions: s.applySetPermissions,
		SetTimestamp:   s.applySetTimestamp,
		Delete:         s.applyDelete,
		Move:           s.applyMove,
	}
}

func (s *Share) applyCreate(op wal.Create) error {
	fileID := id.NodeID{Instance: s.hostInstance, Index: op.NewFileIndex}
	perms := schema.Permissions{CanWrite: op.Permissions.CanWrite, CanExecute: op.Permissions.CanExecute}
	if err := s.schema.Queries.CreateFile(fileID, id.NullNodeID, op.Parent, op.Name, op.IsFile, id.Now(), perms, false); err != nil {
		return err
	}
	if op.IsFile {
		if err := blob.Create(s.blobDir, fileID, id.NullNodeID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Share) applySetPermissions(op wal.SetPermissions) error {
	newChange := id.NodeID{Instance: s.hostInstance, Index: op.NewChangeIndex}
	perms := schema.Permissions{CanWrite: op.CanWrite, CanExecute: op.CanExecute}
	if err := s.schema.Queries.SetPermissions(newChange, perms, op.File.ID, op.File.Change); err != nil {
		return err
	}
	if err := s.recordAncestryAndRenameBlob(op.File, newChange); err != nil {
		return err
	}
	return nil
}

func (s *Share) applySetTimestamp(op wal.SetTimestamp) error {
	newChange := id.NodeID{Instance: s.hostInstance, Index: op.NewChangeIndex}
	if err := s.schema.Queries.SetTimestamp(newChange, op.NewTimestamp, op.File.ID, op.File.Change); err != nil {
		return err
	}
	return s.recordAncestryAndRenameBlob(op.File, newChange)
}

func (s *Share) applyDelete(op wal.Delete) error {
	if err := s.schema.Queries.DeleteFile(op.File.ID, op.File.Change); err != nil {
		return err
	}
	if op.IsFile {
		return blob.Remove(s.blobDir, op.File.ID, op.File.Change)
	}
	return nil
}

func (s *Share) applyMove(op wal.Move) error {
	newChange := id.NodeID{Instance: s.hostInstance, Index: op.NewChangeIndex}
	if err := s.schema.Queries.MoveFile(newChange, op.NewParent, op.NewName, op.File.ID, op.File.Change); err != nil {
		return err
	}
	return s.recordAncestryAndRenameBlob(op.File, newChange)
}

// recordAncestryAndRenameBlob is the tail shared by SetPermissions,
// SetTimestamp, and Move: record the ancestry edge (unless this is the
// row's very first change, per invariant I4) and rename its blob if it
// is a regular file. It re-derives file-ness from the DB by ID, which
// is only safe because none of its three callers remove the row first;
// a future handler that both deletes and wants this tail must capture
// IsFile itself and not reuse this helper, the way Delete's own
// IsFile field avoids the same re-derive-after-removal trap.
func (s *Share) recordAncestryAndRenameBlob(file wal.FileRef, newChange id.NodeID) error {
	if !file.Change.IsNull() {
		if err := s.schema.Queries.CreateChange(newChange, file.Change); err != nil {
			return err
		}
	}
	row, found, err := s.schema.Queries.GetFileByID(file.ID)
	if err != nil {
		return err
	}
	if found && row.IsFile {
		return blob.Rename(s.blobDir, file.ID, file.Change, newChange)
	}
	return nil
}
