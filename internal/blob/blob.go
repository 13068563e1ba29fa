// Package blob manages the host-filesystem files that hold the bodies
// of regular share files. Every operation here is idempotent, since the
// wal package's apply handlers must be safe to run twice during crash
// recovery.
package blob

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rcowham/filemesh/id"
)

// Name returns the blob filename for a file at (fileID, change):
// "<id_inst>-<id_idx>-<change_inst>-<change_idx>".
func Name(fileID, change id.NodeID) string {
	return fmt.Sprintf("%d-%d-%d-%d", fileID.Instance, fileID.Index, change.Instance, change.Index)
}

// Path joins dir and the blob filename for (fileID, change).
func Path(dir string, fileID, change id.NodeID) string {
	return filepath.Join(dir, Name(fileID, change))
}

// Create makes an empty blob at (fileID, change) under dir. Tolerates an
// already-existing target (idempotent under WAL replay).
func Create(dir string, fileID, change id.NodeID) error {
	p := Path(dir, fileID, change)
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil
		}
		return fmt.Errorf("blob: create %s: %w", p, err)
	}
	return f.Close()
}

// Rename moves the blob for fileID from oldChange to newChange.
// Tolerates a missing source when the target already exists (the prior
// attempt completed the rename before a crash) and is a no-op if
// oldChange and newChange name the same file.
func Rename(dir string, fileID, oldChange, newChange id.NodeID) error {
	if oldChange.Equal(newChange) {
		return nil
	}
	oldPath := Path(dir, fileID, oldChange)
	newPath := Path(dir, fileID, newChange)
	if err := os.Rename(oldPath, newPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if _, statErr := os.Stat(newPath); statErr == nil {
				return nil
			}
		}
		return fmt.Errorf("blob: rename %s -> %s: %w", oldPath, newPath, err)
	}
	return nil
}

// Remove deletes the blob for (fileID, change). Tolerates an
// already-missing target.
func Remove(dir string, fileID, change id.NodeID) error {
	p := Path(dir, fileID, change)
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("blob: remove %s: %w", p, err)
	}
	return nil
}

// Exists reports whether the blob for (fileID, change) exists under dir.
func Exists(dir string, fileID, change id.NodeID) bool {
	_, err := os.Stat(Path(dir, fileID, change))
	return err == nil
}
