// Package schema defines filemesh's metadata tables and the prepared
// queries spec.md §4.4 names, laid out directly on top of the store
// package's DB/Stmt wrapper.
package schema

import (
	"database/sql"

	"github.com/rcowham/filemesh/id"
	"github.com/rcowham/filemesh/internal/errs"
	"github.com/rcowham/filemesh/store"
	"github.com/sirupsen/logrus"
)

// CurrentVersion is the schema version written to Stats on a fresh
// database and checked against on open.
const CurrentVersion = 1

// Permissions is the two-bit permission pair spec.md §6 exposes to
// callers: write and execute. Read is implicit.
type Permissions struct {
	CanWrite   bool
	CanExecute bool
}

// FileRow is one row of the Files table, decoded into Go types.
type FileRow struct {
	ID          id.NodeID
	Change      id.NodeID
	Parent      id.NodeID
	Name        string
	IsFile      bool
	Modified    id.Timestamp
	Permissions Permissions
	IsSplit     bool
}

// InstanceRow is one row of the Instances table.
type InstanceRow struct {
	Index    id.Counter
	ID       uint64
	Name     string
	Filename string
}

const ddl = `
CREATE TABLE IF NOT EXISTS Stats (
	Version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS Instances (
	Idx      INTEGER PRIMARY KEY,
	ID       INTEGER NOT NULL,
	Name     TEXT NOT NULL,
	Filename TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_instances_filename ON Instances(Filename);

CREATE TABLE IF NOT EXISTS Counters (
	FileIndex   INTEGER NOT NULL,
	ChangeIndex INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS Files (
	IDInstance     INTEGER NOT NULL,
	IDIndex        INTEGER NOT NULL,
	ChangeInstance INTEGER NOT NULL,
	ChangeIndex    INTEGER NOT NULL,
	ParentInstance INTEGER NOT NULL,
	ParentIndex    INTEGER NOT NULL,
	Name           TEXT NOT NULL,
	IsFile         INTEGER NOT NULL,
	Modified       INTEGER NOT NULL,
	Permissions    BLOB NOT NULL,
	IsSplit        INTEGER NOT NULL,
	PRIMARY KEY (IDInstance, IDIndex)
);
CREATE INDEX IF NOT EXISTS idx_files_parent ON Files(ParentInstance, ParentIndex, Name);

CREATE TABLE IF NOT EXISTS Ancestry (
	IDInstance     INTEGER NOT NULL,
	IDIndex        INTEGER NOT NULL,
	ParentInstance INTEGER NOT NULL,
	ParentIndex    INTEGER NOT NULL,
	PRIMARY KEY (IDInstance, IDIndex)
);
`

// Schema owns the database connection and the prepared query set.
type Schema struct {
	DB      *store.DB
	Queries *Queries
	logger  *logrus.Logger
}

// Open opens (or creates) the database at path, initializing tables on
// a fresh database, then preparing every query.
func Open(path string, logger *logrus.Logger) (*Schema, error) {
	db, err := store.Open(path, logger)
	if err != nil {
		return nil, err
	}
	s := &Schema{DB: db, logger: logger}
	if err := s.Init(); err != nil {
		db.Close()
		return nil, err
	}
	q, err := prepare(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.Queries = q
	return s, nil
}

// Init creates the tables (idempotent: CREATE TABLE IF NOT EXISTS) and
// seeds the Stats/Counters singleton rows on a brand-new database.
func (s *Schema) Init() error {
	if err := s.DB.Exec(ddl); err != nil {
		return err
	}
	empty, err := s.isEmpty("Stats")
	if err != nil {
		return err
	}
	if empty {
		if err := s.DB.Exec(`INSERT INTO Stats (Version) VALUES (?)`, CurrentVersion); err != nil {
			return err
		}
	}
	empty, err = s.isEmpty("Counters")
	if err != nil {
		return err
	}
	if empty {
		if err := s.DB.Exec(`INSERT INTO Counters (FileIndex, ChangeIndex) VALUES (0, 0)`); err != nil {
			return err
		}
	}
	return nil
}

func (s *Schema) isEmpty(table string) (bool, error) {
	stmt, err := s.DB.Prepare(`SELECT COUNT(*) FROM ` + table)
	if err != nil {
		return false, err
	}
	var count int64
	_, err = stmt.First(func(rows *sql.Rows) error {
		return rows.Scan(&count)
	})
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// Close closes the underlying database.
func (s *Schema) Close() error {
	return s.DB.Close()
}

// CheckVersion reads the Stats row and reports a system error if the
// on-disk schema version is not CurrentVersion (spec §4.6: "refuse if
// unknown").
func (s *Schema) CheckVersion() error {
	v, err := s.Queries.GetStatsVersion()
	if err != nil {
		return err
	}
	if v != CurrentVersion {
		return errs.Systemf(nil, "schema: unknown database version %d (expected %d)", v, CurrentVersion)
	}
	return nil
}
