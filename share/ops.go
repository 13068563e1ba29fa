package share

import (
	"github.com/rcowham/filemesh/id"
	"github.com/rcowham/filemesh/internal/blob"
	"github.com/rcowham/filemesh/internal/errs"
	"github.com/rcowham/filemesh/wal"
)

// Get resolves an absolute path to its row. path must be absolute.
func (s *Share) Get(path string) (File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.resolve(path)
	if err != nil {
		return File{}, err
	}
	return r.asFile(), nil
}

// OpenDirectory resolves path and confirms it names a directory.
func (s *Share) OpenDirectory(path string) (File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.resolve(path)
	if err != nil {
		return File{}, err
	}
	if r.isFile() {
		return File{}, errs.New(errs.Invalid)
	}
	return r.asFile(), nil
}

// GetDirectory lists up to count children of dir starting at from. It
// returns no action error: an out-of-range window simply returns no
// rows. Only a store failure is returned as an error.
func (s *Share) GetDirectory(dir File, from, count int) ([]File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir.ID.IsNull() && dir.IsSplit && dir.Name == splitsName {
		return s.listSplitsRoot(from, count)
	}
	if dir.ID.IsNull() && dir.IsSplit && dir.Name != "" {
		inst, found, err := s.schema.Queries.GetInstanceByFilename(dir.Name)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, nil
		}
		return s.schema.Queries.GetSplitFiles(id.NullNodeID, inst.Index, from, count)
	}

	rows, err := s.schema.Queries.GetFiles(dir.ID, from, count)
	if err != nil {
		return nil, err
	}
	if dir.IsSplit {
		// dir itself is a real split-tree row: its own IDInstance is the
		// split_instance whose overlay continues beneath it.
		splitRows, err := s.schema.Queries.GetSplitFiles(dir.ID, dir.ID.Instance, from, count)
		if err != nil {
			return nil, err
		}
		rows = mergeOverlay(rows, splitRows)
		if count >= 0 && len(rows) > count {
			rows = rows[:count]
		}
	}
	return rows, nil
}

func (s *Share) listSplitsRoot(from, count int) ([]File, error) {
	instances, err := s.schema.Queries.ListInstances()
	if err != nil {
		return nil, err
	}
	var out []File
	for i, inst := range instances {
		if i < from {
			continue
		}
		if len(out) >= count {
			break
		}
		out = append(out, File{
			ID:          id.NullNodeID,
			Parent:      id.NullNodeID,
			Name:        inst.Filename,
			IsFile:      false,
			Permissions: Permissions{CanWrite: false, CanExecute: true},
			IsSplit:     true,
		})
	}
	return out, nil
}

// mergeOverlay returns plain rows with any same-named split row
// substituted in, matching the "split tree overlays the main tree"
// rule used during path resolution.
func mergeOverlay(plain, split []File) []File {
	byName := make(map[string]File, len(split))
	for _, row := range split {
		byName[row.Name] = row
	}
	out := make([]File, 0, len(plain))
	seen := make(map[string]bool, len(plain))
	for _, row := range plain {
		if ov, ok := byName[row.Name]; ok {
			out = append(out, ov)
		} else {
			out = append(out, row)
		}
		seen[row.Name] = true
	}
	for _, row := range split {
		if !seen[row.Name] {
			out = append(out, row)
		}
	}
	return out
}

// Create adds a new row at path, a directory unless isFile is
// set. This is the general-purpose entry point behind the named
// create_directory operation (spec.md §4.6's table), generalized to
// also cover plain file creation (spec.md §8 scenario 6 creates
// IsFile=true rows directly).
func (s *Share) Create(path string, isFile bool, canWrite, canExecute bool) (File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.create(path, isFile, canWrite, canExecute)
}

// CreateDirectory is Create with isFile=false, matching the name
// spec.md §4.6 gives this operation.
func (s *Share) CreateDirectory(path string, canWrite, canExecute bool) (File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.create(path, false, canWrite, canExecute)
}

func (s *Share) create(path string, isFile, canWrite, canExecute bool) (File, error) {
	if underSplits(path) {
		return File{}, errs.New(errs.Illegal)
	}
	parentPath, name, ok := splitParentAndName(path)
	if !ok {
		return File{}, errs.New(errs.Illegal)
	}
	if err := validateName(name, s.cfg); err != nil {
		return File{}, err
	}
	parent, err := s.resolve(parentPath)
	if err != nil {
		return File{}, err
	}
	if parent.isSynthetic {
		return File{}, errs.New(errs.Illegal)
	}
	if parent.row.IsFile {
		return File{}, errs.New(errs.Invalid)
	}
	if _, found, err := s.schema.Queries.GetFile(parent.row.ID, name); err != nil {
		return File{}, err
	} else if found {
		return File{}, errs.New(errs.Exists)
	}

	idx, err := s.allocateFileIndex()
	if err != nil {
		return File{}, err
	}
	op := wal.Create{
		NewFileIndex: idx,
		Parent:       parent.row.ID,
		Name:         name,
		IsFile:       isFile,
		Permissions:  wal.Permissions{CanWrite: canWrite, CanExecute: canExecute},
	}
	if err := s.commit(op); err != nil {
		return File{}, err
	}
	fileID := id.NodeID{Instance: s.hostInstance, Index: idx}
	s.appendLog("create " + path)
	row, _, err := s.schema.Queries.GetFileByID(fileID)
	return row, err
}

// SetPermissions updates the (can_write, can_execute) pair for path.
func (s *Share) SetPermissions(path string, canWrite, canExecute bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.resolve(path)
	if err != nil {
		return err
	}
	if r.isSynthetic {
		return errs.New(errs.Invalid)
	}
	if r.row.IsSplit {
		return errs.New(errs.Restricted)
	}
	idx, err := s.allocateChangeIndex()
	if err != nil {
		return err
	}
	op := wal.SetPermissions{
		File:           wal.FileRef{ID: r.row.ID, Change: r.row.Change},
		NewChangeIndex: idx,
		CanWrite:       canWrite,
		CanExecute:     canExecute,
	}
	if err := s.commit(op); err != nil {
		return err
	}
	s.appendLog("set_permissions " + path)
	return nil
}

// SetTimestamp updates the Modified stamp for path.
func (s *Share) SetTimestamp(path string, ts id.Timestamp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.resolve(path)
	if err != nil {
		return err
	}
	if r.isSynthetic {
		return errs.New(errs.Invalid)
	}
	if r.row.IsSplit {
		return errs.New(errs.Restricted)
	}
	idx, err := s.allocateChangeIndex()
	if err != nil {
		return err
	}
	op := wal.SetTimestamp{
		File:           wal.FileRef{ID: r.row.ID, Change: r.row.Change},
		NewChangeIndex: idx,
		NewTimestamp:   ts,
	}
	if err := s.commit(op); err != nil {
		return err
	}
	s.appendLog("set_timestamp " + path)
	return nil
}

// Delete removes the row at path. Root and anything under /splits may
// never be deleted; a non-empty directory returns Invalid.
func (s *Share) Delete(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	segs, ok := splitPath(path)
	if !ok {
		return errs.New(errs.Invalid)
	}
	if len(segs) == 0 || underSplits(path) {
		return errs.New(errs.Illegal)
	}
	r, err := s.resolve(path)
	if err != nil {
		return err
	}
	if r.row.IsSplit {
		return errs.New(errs.Restricted)
	}
	if !r.row.IsFile {
		children, err := s.schema.Queries.GetFiles(r.row.ID, 0, 1)
		if err != nil {
			return err
		}
		if len(children) > 0 {
			return errs.New(errs.Invalid)
		}
	}
	op := wal.Delete{File: wal.FileRef{ID: r.row.ID, Change: r.row.Change}, IsFile: r.row.IsFile}
	if err := s.commit(op); err != nil {
		return err
	}
	s.appendLog("delete " + path)
	return nil
}

// Move relocates from to to, per spec.md §4.6's destination-kind rules:
// moving onto an existing directory nests under it with the source
// name; moving onto an existing file overwrites it (two logged
// operations: the move, then the deletion of the prior occupant);
// moving onto nothing renames to the destination's own name.
func (s *Share) Move(from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if underSplits(from) || underSplits(to) {
		return errs.New(errs.Illegal)
	}
	fromSegs, ok := splitPath(from)
	if !ok || len(fromSegs) == 0 {
		return errs.New(errs.Illegal)
	}
	toSegs, ok := splitPath(to)
	if !ok || len(toSegs) == 0 {
		return errs.New(errs.Illegal)
	}

	src, err := s.resolve(from)
	if err != nil {
		return err
	}
	if src.row.IsSplit {
		return errs.New(errs.Restricted)
	}

	toParentPath, toName, _ := splitParentAndName(to)
	if err := validateName(toName, s.cfg); err != nil {
		return err
	}

	dst, dstErr := s.resolve(to)
	var newParent id.NodeID
	var newName string
	var overwrite *resolved

	switch {
	case dstErr == nil && !dst.isFile():
		// Destination exists as a directory: nest under it, keeping the
		// source's own name (a no-op if it's already there under that
		// name).
		newParent = dst.row.ID
		newName = src.row.Name
	case dstErr == nil && dst.isFile():
		if dst.row.IsSplit {
			return errs.New(errs.Restricted)
		}
		p, err := s.resolve(toParentPath)
		if err != nil {
			return err
		}
		if p.isSynthetic {
			return errs.New(errs.Illegal)
		}
		newParent, newName = p.row.ID, toName
		overwrite = &dst
	case errs.Is(dstErr, errs.Missing):
		p, err := s.resolve(toParentPath)
		if err != nil {
			return err
		}
		if p.isSynthetic {
			return errs.New(errs.Illegal)
		}
		newParent, newName = p.row.ID, toName
	default:
		return dstErr
	}

	if newParent.Equal(src.row.Parent) && newName == src.row.Name {
		return nil // no-op move
	}

	parentRow, found, err := s.schema.Queries.GetFileByID(newParent)
	if err != nil {
		return err
	}
	if !found || parentRow.IsFile {
		return errs.New(errs.Invalid)
	}

	idx, err := s.allocateChangeIndex()
	if err != nil {
		return err
	}
	op := wal.Move{
		File:           wal.FileRef{ID: src.row.ID, Change: src.row.Change},
		NewChangeIndex: idx,
		NewParent:      newParent,
		NewName:        newName,
	}
	if err := s.commit(op); err != nil {
		return err
	}

	if overwrite != nil {
		delOp := wal.Delete{File: wal.FileRef{ID: overwrite.row.ID, Change: overwrite.row.Change}, IsFile: overwrite.row.IsFile}
		if err := s.commit(delOp); err != nil {
			return err
		}
	}

	s.appendLog("move " + from + " -> " + to)
	return nil
}

// GetRealPath returns the absolute host path of f's blob, for the
// adapter's body-I/O syscalls (spec.md §6's "collaborator surface").
func (s *Share) GetRealPath(f File) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !f.IsFile {
		return "", errs.New(errs.Invalid)
	}
	return blob.Path(s.blobDir, f.ID, f.Change), nil
}
