// Package store wraps an embedded SQL engine (sqlite3, via
// github.com/mattn/go-sqlite3) with the typed prepare/execute/get layer
// spec.md §4.3 describes: statements compiled once and reused, scalar
// and structured arguments bound and unbound by type, every SQL error
// surfaced as a fatal system error with the statement text attached.
package store

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rcowham/filemesh/internal/errs"
	"github.com/sirupsen/logrus"
)

// DB wraps a *sql.DB for the schema package to prepare statements
// against, with structured logging of every SQL failure.
type DB struct {
	conn   *sql.DB
	logger *logrus.Logger
}

// Open opens a sqlite3-backed database at path (":memory:" is valid for
// tests). A single connection is used throughout: the share engine
// serializes all access behind one mutex, so there is never concurrent
// SQL traffic to pool across.
func Open(path string, logger *logrus.Logger) (*DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, systemErr(logger, err, "opening database %q", path)
	}
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, systemErr(logger, err, "pinging database %q", path)
	}
	return &DB{conn: conn, logger: logger}, nil
}

// Close releases the underlying connection.
func (db *DB) Close() error {
	if err := db.conn.Close(); err != nil {
		return systemErr(db.logger, err, "closing database")
	}
	return nil
}

// Exec runs a statement that does not return rows (DDL, or a mutating
// statement without a RETURNING clause).
func (db *DB) Exec(query string, args ...any) error {
	if _, err := db.conn.Exec(query, args...); err != nil {
		return systemErr(db.logger, err, "executing %q", query)
	}
	return nil
}

// Prepare compiles query once, returning a reusable *Stmt.
func (db *DB) Prepare(query string) (*Stmt, error) {
	s, err := db.conn.Prepare(query)
	if err != nil {
		return nil, systemErr(db.logger, err, "preparing %q", query)
	}
	return &Stmt{stmt: s, query: query, logger: db.logger}, nil
}

// Stmt is a compiled statement, bound and stepped per call. sqlite3's Go
// driver does not expose an explicit reset; database/sql re-executes a
// prepared statement transparently, so Stmt simply re-invokes Query/Exec
// for each call, matching spec.md's "statements are reset after each
// use" at the semantic level.
type Stmt struct {
	stmt   *sql.Stmt
	query  string
	logger *logrus.Logger
}

// Exec runs the statement for its mutating effect.
func (s *Stmt) Exec(args ...any) error {
	if _, err := s.stmt.Exec(args...); err != nil {
		return systemErr(s.logger, err, "executing %q", s.query)
	}
	return nil
}

// Each runs the statement and invokes fn once per result row.
func (s *Stmt) Each(fn func(*sql.Rows) error, args ...any) error {
	rows, err := s.stmt.Query(args...)
	if err != nil {
		return systemErr(s.logger, err, "querying %q", s.query)
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return systemErr(s.logger, err, "iterating results of %q", s.query)
	}
	return nil
}

// First runs the statement and invokes fn for the first result row only,
// reporting whether any row was returned.
func (s *Stmt) First(fn func(*sql.Rows) error, args ...any) (bool, error) {
	found := false
	err := s.Each(func(rows *sql.Rows) error {
		if found {
			return nil
		}
		found = true
		return fn(rows)
	}, args...)
	if err != nil {
		return false, err
	}
	return found, nil
}

func systemErr(logger *logrus.Logger, err error, format string, args ...any) *errs.SystemError {
	se := errs.Systemf(err, format, args...)
	if logger != nil {
		logger.Errorf("store: %v", se)
	}
	return se
}
