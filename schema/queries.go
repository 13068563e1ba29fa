package schema

import (
	"database/sql"

	"github.com/rcowham/filemesh/id"
	"github.com/rcowham/filemesh/internal/errs"
	"github.com/rcowham/filemesh/store"
)

// Queries holds one prepared statement per query spec.md §4.4 names,
// plus the instance/stats bookkeeping queries the engine needs but the
// spec doesn't elaborate.
type Queries struct {
	db *store.DB

	begin *store.Stmt
	end   *store.Stmt

	getFileIndex       *store.Stmt
	incrementFileIndex *store.Stmt
	getChangeIndex     *store.Stmt
	incrementChange    *store.Stmt

	getInstanceIndex    *store.Stmt
	insertInstanceAt    *store.Stmt
	insertInstanceNext  *store.Stmt
	getInstanceByFile   *store.Stmt
	listInstances       *store.Stmt

	getFileByID  *store.Stmt
	getFile      *store.Stmt
	getSplitFile *store.Stmt
	getFiles     *store.Stmt
	getSplitFiles *store.Stmt

	createFile      *store.Stmt
	deleteFile      *store.Stmt
	setPermissions  *store.Stmt
	setTimestamp    *store.Stmt
	moveFile        *store.Stmt
	createChange    *store.Stmt
	getChange       *store.Stmt

	getStatsVersion *store.Stmt
	setStatsVersion *store.Stmt

	listAncestry *store.Stmt
}

func prepare(db *store.DB) (*Queries, error) {
	q := &Queries{db: db}
	type binding struct {
		dst   **store.Stmt
		query string
	}
	bindings := []binding{
		{&q.begin, `BEGIN`},
		{&q.end, `COMMIT`},
		{&q.getFileIndex, `SELECT FileIndex FROM Counters`},
		{&q.incrementFileIndex, `UPDATE Counters SET FileIndex = FileIndex + 1`},
		{&q.getChangeIndex, `SELECT ChangeIndex FROM Counters`},
		{&q.incrementChange, `UPDATE Counters SET ChangeIndex = ChangeIndex + 1`},
		{&q.getInstanceIndex, `SELECT Idx FROM Instances WHERE Filename = ?`},
		{&q.insertInstanceAt, `INSERT INTO Instances (Idx, ID, Name, Filename) VALUES (?, ?, ?, ?)`},
		{&q.insertInstanceNext, `INSERT INTO Instances (ID, Name, Filename) VALUES (?, ?, ?)`},
		{&q.getInstanceByFile, `SELECT Idx, ID, Name, Filename FROM Instances WHERE Filename = ?`},
		{&q.listInstances, `SELECT Idx, ID, Name, Filename FROM Instances ORDER BY Idx`},
		{&q.getFileByID, `SELECT IDInstance, IDIndex, ChangeInstance, ChangeIndex, ParentInstance, ParentIndex, Name, IsFile, Modified, Permissions, IsSplit FROM Files WHERE IDInstance = ? AND IDIndex = ?`},
		{&q.getFile, `SELECT IDInstance, IDIndex, ChangeInstance, ChangeIndex, ParentInstance, ParentIndex, Name, IsFile, Modified, Permissions, IsSplit FROM Files WHERE ParentInstance = ? AND ParentIndex = ? AND Name = ? AND IsSplit = 0`},
		{&q.getSplitFile, `SELECT IDInstance, IDIndex, ChangeInstance, ChangeIndex, ParentInstance, ParentIndex, Name, IsFile, Modified, Permissions, IsSplit FROM Files WHERE ParentInstance = ? AND ParentIndex = ? AND Name = ? AND IsSplit = 1 AND IDInstance = ?`},
		{&q.getFiles, `SELECT IDInstance, IDIndex, ChangeInstance, ChangeIndex, ParentInstance, ParentIndex, Name, IsFile, Modified, Permissions, IsSplit FROM Files WHERE ParentInstance = ? AND ParentIndex = ? AND IsSplit = 0 ORDER BY Name LIMIT ? OFFSET ?`},
		{&q.getSplitFiles, `SELECT IDInstance, IDIndex, ChangeInstance, ChangeIndex, ParentInstance, ParentIndex, Name, IsFile, Modified, Permissions, IsSplit FROM Files WHERE ParentInstance = ? AND ParentIndex = ? AND IsSplit = 1 AND IDInstance = ? ORDER BY Name LIMIT ? OFFSET ?`},
		{&q.createFile, `INSERT OR IGNORE INTO Files (IDInstance, IDIndex, ChangeInstance, ChangeIndex, ParentInstance, ParentIndex, Name, IsFile, Modified, Permissions, IsSplit) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`},
		{&q.deleteFile, `DELETE FROM Files WHERE IDInstance = ? AND IDIndex = ? AND ChangeInstance = ? AND ChangeIndex = ?`},
		{&q.setPermissions, `UPDATE Files SET ChangeInstance = ?, ChangeIndex = ?, Permissions = ? WHERE IDInstance = ? AND IDIndex = ? AND ChangeInstance = ? AND ChangeIndex = ?`},
		{&q.setTimestamp, `UPDATE Files SET ChangeInstance = ?, ChangeIndex = ?, Modified = ? WHERE IDInstance = ? AND IDIndex = ? AND ChangeInstance = ? AND ChangeIndex = ?`},
		{&q.moveFile, `UPDATE Files SET ChangeInstance = ?, ChangeIndex = ?, ParentInstance = ?, ParentIndex = ?, Name = ? WHERE IDInstance = ? AND IDIndex = ? AND ChangeInstance = ? AND ChangeIndex = ?`},
		{&q.createChange, `INSERT OR IGNORE INTO Ancestry (IDInstance, IDIndex, ParentInstance, ParentIndex) VALUES (?, ?, ?, ?)`},
		{&q.getChange, `SELECT ParentInstance, ParentIndex FROM Ancestry WHERE IDInstance = ? AND IDIndex = ?`},
		{&q.getStatsVersion, `SELECT Version FROM Stats`},
		{&q.setStatsVersion, `UPDATE Stats SET Version = ?`},
		{&q.listAncestry, `SELECT IDInstance, IDIndex, ParentInstance, ParentIndex FROM Ancestry`},
	}
	for _, b := range bindings {
		stmt, err := db.Prepare(b.query)
		if err != nil {
			return nil, err
		}
		*b.dst = stmt
	}
	return q, nil
}

// Begin/End bracket the counter-allocation transaction (spec §4.4:
// "Begin; x = Get; Increment; End").
func (q *Queries) Begin() error { return q.begin.Exec() }
func (q *Queries) End() error   { return q.end.Exec() }

// GetFileIndex/IncrementFileIndex/GetChangeIndex/IncrementChangeIndex
// read and advance the host instance's monotonic counters.
func (q *Queries) GetFileIndex() (id.UUID, error) {
	var v uint64
	_, err := q.getFileIndex.First(func(rows *sql.Rows) error {
		var i int64
		if err := rows.Scan(&i); err != nil {
			return err
		}
		v = store.UnbindUint64(i)
		return nil
	})
	return id.UUID(v), err
}

func (q *Queries) IncrementFileIndex() error { return q.incrementFileIndex.Exec() }

func (q *Queries) GetChangeIndex() (id.UUID, error) {
	var v uint64
	_, err := q.getChangeIndex.First(func(rows *sql.Rows) error {
		var i int64
		if err := rows.Scan(&i); err != nil {
			return err
		}
		v = store.UnbindUint64(i)
		return nil
	})
	return id.UUID(v), err
}

func (q *Queries) IncrementChangeIndex() error { return q.incrementChange.Exec() }

// GetInstanceIndex resolves an instance's locally-assigned Counter from
// its filename, the on-disk-safe name derived from its instance name.
func (q *Queries) GetInstanceIndex(filename string) (id.Counter, bool, error) {
	var idx int64
	found, err := q.getInstanceIndex.First(func(rows *sql.Rows) error {
		return rows.Scan(&idx)
	}, filename)
	return id.Counter(store.UnbindUint64(idx)), found, err
}

// InsertInstance records a newly-seen instance. When at is non-nil it
// is inserted at that explicit Counter (used exactly once, for the host
// instance itself, which must be Counter 0); otherwise the next dense
// Counter is assigned by the row id sequence, continuing from whatever
// explicit values have been inserted so far.
func (q *Queries) InsertInstance(at *id.Counter, instanceID uint64, name, filename string) (id.Counter, error) {
	if at != nil {
		if err := q.insertInstanceAt.Exec(store.BindUint64(uint64(*at)), store.BindUint64(instanceID), name, filename); err != nil {
			return 0, err
		}
		return *at, nil
	}
	if err := q.insertInstanceNext.Exec(store.BindUint64(instanceID), name, filename); err != nil {
		return 0, err
	}
	idx, found, err := q.GetInstanceIndex(filename)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, errs.Systemf(nil, "schema: instance %q vanished immediately after insert", filename)
	}
	return idx, nil
}

// GetInstanceByFilename returns the full Instances row for filename.
func (q *Queries) GetInstanceByFilename(filename string) (InstanceRow, bool, error) {
	var row InstanceRow
	var idx, instID int64
	found, err := q.getInstanceByFile.First(func(rows *sql.Rows) error {
		return rows.Scan(&idx, &instID, &row.Name, &row.Filename)
	}, filename)
	row.Index = id.Counter(store.UnbindUint64(idx))
	row.ID = store.UnbindUint64(instID)
	return row, found, err
}

// ListInstances returns every known instance, ordered by Counter.
func (q *Queries) ListInstances() ([]InstanceRow, error) {
	var rows []InstanceRow
	err := q.listInstances.Each(func(r *sql.Rows) error {
		var row InstanceRow
		var idx, instID int64
		if err := r.Scan(&idx, &instID, &row.Name, &row.Filename); err != nil {
			return err
		}
		row.Index = id.Counter(store.UnbindUint64(idx))
		row.ID = store.UnbindUint64(instID)
		rows = append(rows, row)
		return nil
	})
	return rows, err
}

func scanFileRow(rows *sql.Rows) (FileRow, error) {
	var row FileRow
	var idInst, idIdx, chInst, chIdx, pInst, pIdx int64
	var isFile, isSplit int64
	var modified int64
	var perms []byte
	if err := rows.Scan(&idInst, &idIdx, &chInst, &chIdx, &pInst, &pIdx, &row.Name, &isFile, &modified, &perms, &isSplit); err != nil {
		return FileRow{}, err
	}
	row.ID = id.NodeID{Instance: id.Counter(store.UnbindUint64(idInst)), Index: id.UUID(store.UnbindUint64(idIdx))}
	row.Change = id.NodeID{Instance: id.Counter(store.UnbindUint64(chInst)), Index: id.UUID(store.UnbindUint64(chIdx))}
	row.Parent = id.NodeID{Instance: id.Counter(store.UnbindUint64(pInst)), Index: id.UUID(store.UnbindUint64(pIdx))}
	row.IsFile = isFile != 0
	row.IsSplit = isSplit != 0
	row.Modified = id.Timestamp(modified)
	cw, ce, err := store.UnpackPermissions(perms)
	if err != nil {
		return FileRow{}, err
	}
	row.Permissions = Permissions{CanWrite: cw, CanExecute: ce}
	return row, nil
}

// GetFileByID looks up a row by its ID, ignoring IsSplit.
func (q *Queries) GetFileByID(fileID id.NodeID) (FileRow, bool, error) {
	var row FileRow
	var err error
	found, ferr := q.getFileByID.First(func(rows *sql.Rows) error {
		row, err = scanFileRow(rows)
		return err
	}, store.BindUint64(uint64(fileID.Instance)), store.BindUint64(uint64(fileID.Index)))
	if ferr != nil {
		return FileRow{}, false, ferr
	}
	return row, found, nil
}

// GetFile resolves a non-split child of parent by name.
func (q *Queries) GetFile(parent id.NodeID, name string) (FileRow, bool, error) {
	var row FileRow
	var err error
	found, ferr := q.getFile.First(func(rows *sql.Rows) error {
		row, err = scanFileRow(rows)
		return err
	}, store.BindUint64(uint64(parent.Instance)), store.BindUint64(uint64(parent.Index)), name)
	if ferr != nil {
		return FileRow{}, false, ferr
	}
	return row, found, nil
}

// GetSplitFile resolves a split-mode child of parent, scoped to the
// instance whose overlay is being walked.
func (q *Queries) GetSplitFile(parent id.NodeID, splitInstance id.Counter, name string) (FileRow, bool, error) {
	var row FileRow
	var err error
	found, ferr := q.getSplitFile.First(func(rows *sql.Rows) error {
		row, err = scanFileRow(rows)
		return err
	}, store.BindUint64(uint64(parent.Instance)), store.BindUint64(uint64(parent.Index)), name, store.BindUint64(uint64(splitInstance)))
	if ferr != nil {
		return FileRow{}, false, ferr
	}
	return row, found, nil
}

// GetFiles lists non-split children of parent, paginated.
func (q *Queries) GetFiles(parent id.NodeID, offset, limit int) ([]FileRow, error) {
	var rows []FileRow
	err := q.getFiles.Each(func(r *sql.Rows) error {
		row, err := scanFileRow(r)
		if err != nil {
			return err
		}
		rows = append(rows, row)
		return nil
	}, store.BindUint64(uint64(parent.Instance)), store.BindUint64(uint64(parent.Index)), limit, offset)
	return rows, err
}

// GetSplitFiles lists split-mode children of parent for splitInstance,
// paginated.
func (q *Queries) GetSplitFiles(parent id.NodeID, splitInstance id.Counter, offset, limit int) ([]FileRow, error) {
	var rows []FileRow
	err := q.getSplitFiles.Each(func(r *sql.Rows) error {
		row, err := scanFileRow(r)
		if err != nil {
			return err
		}
		rows = append(rows, row)
		return nil
	}, store.BindUint64(uint64(parent.Instance)), store.BindUint64(uint64(parent.Index)), store.BindUint64(uint64(splitInstance)), limit, offset)
	return rows, err
}

// CreateFile inserts a new Files row. change is typically id.NullNodeID
// for a freshly-created file. Idempotent via INSERT OR IGNORE (spec
// §4.5: "Honors insert or ignore so replay is idempotent on the row").
func (q *Queries) CreateFile(fileID, change, parent id.NodeID, name string, isFile bool, modified id.Timestamp, perms Permissions, isSplit bool) error {
	return q.createFile.Exec(
		store.BindUint64(uint64(fileID.Instance)), store.BindUint64(uint64(fileID.Index)),
		store.BindUint64(uint64(change.Instance)), store.BindUint64(uint64(change.Index)),
		store.BindUint64(uint64(parent.Instance)), store.BindUint64(uint64(parent.Index)),
		name, boolToInt(isFile), int64(modified), store.PackPermissions(perms.CanWrite, perms.CanExecute), boolToInt(isSplit),
	)
}

// DeleteFile removes the row identified by (id, change); guarded by the
// exact change stamp like every other mutating query.
func (q *Queries) DeleteFile(fileID, change id.NodeID) error {
	return q.deleteFile.Exec(
		store.BindUint64(uint64(fileID.Instance)), store.BindUint64(uint64(fileID.Index)),
		store.BindUint64(uint64(change.Instance)), store.BindUint64(uint64(change.Index)),
	)
}

// SetPermissions updates permissions and advances the row's Change
// stamp, guarded by oldChange so a stale replay cannot double-apply.
func (q *Queries) SetPermissions(newChange id.NodeID, newPerms Permissions, fileID, oldChange id.NodeID) error {
	return q.setPermissions.Exec(
		store.BindUint64(uint64(newChange.Instance)), store.BindUint64(uint64(newChange.Index)),
		store.PackPermissions(newPerms.CanWrite, newPerms.CanExecute),
		store.BindUint64(uint64(fileID.Instance)), store.BindUint64(uint64(fileID.Index)),
		store.BindUint64(uint64(oldChange.Instance)), store.BindUint64(uint64(oldChange.Index)),
	)
}

// SetTimestamp updates Modified and advances the Change stamp, guarded
// by oldChange.
func (q *Queries) SetTimestamp(newChange id.NodeID, newModified id.Timestamp, fileID, oldChange id.NodeID) error {
	return q.setTimestamp.Exec(
		store.BindUint64(uint64(newChange.Instance)), store.BindUint64(uint64(newChange.Index)),
		int64(newModified),
		store.BindUint64(uint64(fileID.Instance)), store.BindUint64(uint64(fileID.Index)),
		store.BindUint64(uint64(oldChange.Instance)), store.BindUint64(uint64(oldChange.Index)),
	)
}

// MoveFile reparents/renames a row and advances its Change stamp,
// guarded by oldChange.
func (q *Queries) MoveFile(newChange, newParent id.NodeID, newName string, fileID, oldChange id.NodeID) error {
	return q.moveFile.Exec(
		store.BindUint64(uint64(newChange.Instance)), store.BindUint64(uint64(newChange.Index)),
		store.BindUint64(uint64(newParent.Instance)), store.BindUint64(uint64(newParent.Index)),
		newName,
		store.BindUint64(uint64(fileID.Instance)), store.BindUint64(uint64(fileID.Index)),
		store.BindUint64(uint64(oldChange.Instance)), store.BindUint64(uint64(oldChange.Index)),
	)
}

// CreateChange records an ancestry edge new -> old. Neither half may be
// null (spec invariant I4): the very first change from null is never
// recorded, so callers must not call this for a row's initial creation.
func (q *Queries) CreateChange(newChange, oldChange id.NodeID) error {
	return q.createChange.Exec(
		store.BindUint64(uint64(newChange.Instance)), store.BindUint64(uint64(newChange.Index)),
		store.BindUint64(uint64(oldChange.Instance)), store.BindUint64(uint64(oldChange.Index)),
	)
}

// GetChange returns the predecessor change recorded for change, if any.
func (q *Queries) GetChange(change id.NodeID) (id.NodeID, bool, error) {
	var old id.NodeID
	var oInst, oIdx int64
	found, err := q.getChange.First(func(rows *sql.Rows) error {
		return rows.Scan(&oInst, &oIdx)
	}, store.BindUint64(uint64(change.Instance)), store.BindUint64(uint64(change.Index)))
	if err != nil {
		return id.NodeID{}, false, err
	}
	old = id.NodeID{Instance: id.Counter(store.UnbindUint64(oInst)), Index: id.UUID(store.UnbindUint64(oIdx))}
	return old, found, nil
}

// AncestryEdge is one recorded (new change -> old change) edge.
type AncestryEdge struct {
	New id.NodeID
	Old id.NodeID
}

// ListAncestry returns every recorded ancestry edge, for tooling that
// renders the whole change graph (e.g. a dot/graphviz export).
func (q *Queries) ListAncestry() ([]AncestryEdge, error) {
	var edges []AncestryEdge
	err := q.listAncestry.Each(func(r *sql.Rows) error {
		var idInst, idIdx, pInst, pIdx int64
		if err := r.Scan(&idInst, &idIdx, &pInst, &pIdx); err != nil {
			return err
		}
		edges = append(edges, AncestryEdge{
			New: id.NodeID{Instance: id.Counter(store.UnbindUint64(idInst)), Index: id.UUID(store.UnbindUint64(idIdx))},
			Old: id.NodeID{Instance: id.Counter(store.UnbindUint64(pInst)), Index: id.UUID(store.UnbindUint64(pIdx))},
		})
		return nil
	})
	return edges, err
}

// GetStatsVersion reads the current schema version row.
func (q *Queries) GetStatsVersion() (int, error) {
	var v int64
	_, err := q.getStatsVersion.First(func(rows *sql.Rows) error {
		return rows.Scan(&v)
	})
	return int(v), err
}

// SetStatsVersion overwrites the schema version row (a migration step).
func (q *Queries) SetStatsVersion(v int) error {
	return q.setStatsVersion.Exec(v)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
