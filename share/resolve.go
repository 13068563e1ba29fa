package share

import (
	"github.com/rcowham/filemesh/id"
	"github.com/rcowham/filemesh/internal/errs"
	"github.com/rcowham/filemesh/schema"
)

// resolved is the outcome of walking an absolute path. Most paths
// resolve to a real Files row; "/splits" and "/splits/<instance>" are
// synthetic containers with no row of their own (spec.md §4.6: "the
// first segment equals the reserved splits name it enters split
// mode").
type resolved struct {
	row           schema.FileRow
	name          string
	isSynthetic   bool
	splitInstance *id.Counter
}

func (r resolved) isFile() bool {
	return !r.isSynthetic && r.row.IsFile
}

// asFile renders a resolved target as the public File type, synthesizing
// a read-only directory entry for the two synthetic containers.
func (r resolved) asFile() File {
	if !r.isSynthetic {
		return r.row
	}
	return File{
		ID:          id.NullNodeID,
		Parent:      id.NullNodeID,
		Name:        r.name,
		IsFile:      false,
		Modified:    id.Now(),
		Permissions: Permissions{CanWrite: false, CanExecute: true},
		IsSplit:     true,
	}
}

// resolve walks path from the root. Unknown segments fail with Missing;
// a non-final segment that names a file fails with Invalid.
func (s *Share) resolve(path string) (resolved, error) {
	segs, ok := splitPath(path)
	if !ok {
		return resolved{}, errs.New(errs.Invalid)
	}

	rootRow, found, err := s.schema.Queries.GetFileByID(id.NullNodeID)
	if err != nil {
		return resolved{}, err
	}
	if !found {
		return resolved{}, errs.Systemf(nil, "share: root row missing from Files table")
	}
	if len(segs) == 0 {
		return resolved{row: rootRow, name: ""}, nil
	}

	if segs[0] == splitsName {
		return s.resolveSplit(segs)
	}

	parent := rootRow
	for i, seg := range segs {
		row, found, err := s.schema.Queries.GetFile(parent.ID, seg)
		if err != nil {
			return resolved{}, err
		}
		if !found {
			return resolved{}, errs.New(errs.Missing)
		}
		if row.IsFile && i != len(segs)-1 {
			return resolved{}, errs.New(errs.Invalid)
		}
		parent = row
	}
	return resolved{row: parent, name: parent.Name}, nil
}

func (s *Share) resolveSplit(segs []string) (resolved, error) {
	if len(segs) == 1 {
		return resolved{isSynthetic: true, name: splitsName}, nil
	}
	instFilename := segs[1]
	inst, found, err := s.schema.Queries.GetInstanceByFilename(instFilename)
	if err != nil {
		return resolved{}, err
	}
	if !found {
		return resolved{}, errs.New(errs.Missing)
	}
	splitInstance := inst.Index
	if len(segs) == 2 {
		return resolved{isSynthetic: true, name: instFilename, splitInstance: &splitInstance}, nil
	}

	parentID := id.NullNodeID
	var cur schema.FileRow
	for i, seg := range segs[2:] {
		row, found, err := s.schema.Queries.GetSplitFile(parentID, splitInstance, seg)
		if err != nil {
			return resolved{}, err
		}
		if !found {
			// Split tree overlays the main tree for directory segments
			// that haven't diverged yet (spec.md §4.6).
			row, found, err = s.schema.Queries.GetFile(parentID, seg)
			if err != nil {
				return resolved{}, err
			}
		}
		if !found {
			return resolved{}, errs.New(errs.Missing)
		}
		if row.IsFile && i != len(segs[2:])-1 {
			return resolved{}, errs.New(errs.Invalid)
		}
		parentID = row.ID
		cur = row
	}
	return resolved{row: cur, name: cur.Name, splitInstance: &splitInstance}, nil
}
