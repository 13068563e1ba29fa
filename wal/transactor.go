package wal

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/alitto/pond"
	"github.com/rcowham/filemesh/codec"
	"github.com/rcowham/filemesh/internal/errs"
	"github.com/sirupsen/logrus"
)

// ApplyHandlers are the five mutation handlers, supplied by share at
// construction so wal never imports schema or share directly: wal is
// depended on, it does not depend back.
type ApplyHandlers struct {
	Create         func(Create) error
	SetPermissions func(SetPermissions) error
	SetTimestamp   func(SetTimestamp) error
	Delete         func(Delete) error
	Move           func(Move) error
}

func (h ApplyHandlers) apply(op Operation) error {
	switch v := op.(type) {
	case Create:
		return h.Create(v)
	case SetPermissions:
		return h.SetPermissions(v)
	case SetTimestamp:
		return h.SetTimestamp(v)
	case Delete:
		return h.Delete(v)
	case Move:
		return h.Move(v)
	default:
		return fmt.Errorf("wal: unhandled operation type %T", op)
	}
}

// Transactor owns the log directory and replays/commits operations
// through it per spec.md §4.5's commit protocol.
type Transactor struct {
	dir      string
	handlers ApplyHandlers
	logger   *logrus.Logger
	fsync    bool
}

// Open prepares dir as the log directory (creating it if absent) and
// immediately performs crash recovery: every leftover log file is
// decoded, dispatched to the matching apply handler, and removed. The
// order files are processed in is unspecified (spec.md §4.5/§9) since
// every handler is independently idempotent, so recovery fans the
// files out across a small worker pool, mirroring the way the teacher's
// blob-writing path submits work to a pond.WorkerPool. By the time Open
// returns, the pool has been stopped and waited on, and the log
// directory is empty (spec invariant I6).
func Open(dir string, handlers ApplyHandlers, logger *logrus.Logger, fsync bool) (*Transactor, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Systemf(err, "wal: creating log directory %q", dir)
	}
	t := &Transactor{dir: dir, handlers: handlers, logger: logger, fsync: fsync}
	if err := t.recover(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Transactor) recover() error {
	entries, err := os.ReadDir(t.dir)
	if err != nil {
		return errs.Systemf(err, "wal: listing log directory %q", t.dir)
	}
	if len(entries) == 0 {
		return nil
	}
	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}
	pool := pond.New(workers, len(entries))
	var mu sync.Mutex
	var firstErr error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		pool.Submit(func() {
			// Handlers share the database and blob directory, so they
			// are applied one at a time.
			mu.Lock()
			defer mu.Unlock()
			if err := t.replayFile(name); err != nil {
				t.logger.Errorf("wal: replaying %q: %v", name, err)
				if firstErr == nil {
					firstErr = err
				}
			}
		})
	}
	pool.StopAndWait()
	if firstErr != nil {
		return firstErr
	}
	return nil
}

func (t *Transactor) replayFile(name string) error {
	path := filepath.Join(t.dir, name)
	f, err := os.Open(path)
	if err != nil {
		return errs.Systemf(err, "wal: opening leftover log file %q", path)
	}
	frame, err := codec.ReadFrame(f)
	f.Close()
	if err != nil {
		return errs.Systemf(err, "wal: decoding leftover log file %q", path)
	}
	op, err := Decode(frame)
	if err != nil {
		return errs.Systemf(err, "wal: decoding operation in %q", path)
	}
	t.logger.Infof("wal: replaying leftover %s record from %q", op.Kind(), path)
	if err := t.handlers.apply(op); err != nil {
		return errs.Systemf(err, "wal: applying replayed %s operation from %q", op.Kind(), path)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errs.Systemf(err, "wal: removing replayed log file %q", path)
	}
	return nil
}

// Commit runs the four-step commit protocol for one operation: encode,
// write to dir/<worker> (fsyncing it when fsync is set), apply, delete.
// worker names the log file
// and must be unique per concurrently in-flight operation; since the
// share engine serializes every mutation behind one mutex, a single
// constant worker label is always safe (see DESIGN.md).
func (t *Transactor) Commit(worker string, op Operation) error {
	frame, err := Encode(op)
	if err != nil {
		return errs.Systemf(err, "wal: encoding %s operation", op.Kind())
	}
	path := filepath.Join(t.dir, worker)
	if err := t.writeLogFile(path, frame); err != nil {
		return err
	}
	if err := t.handlers.apply(op); err != nil {
		return errs.Systemf(err, "wal: applying %s operation", op.Kind())
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errs.Systemf(err, "wal: removing log file %q after commit", path)
	}
	return nil
}

func (t *Transactor) writeLogFile(path string, frame codec.Frame) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errs.Systemf(err, "wal: creating log file %q", path)
	}
	defer f.Close()
	if err := codec.WriteFrame(f, frame); err != nil {
		return errs.Systemf(err, "wal: writing log file %q", path)
	}
	if t.fsync {
		if err := f.Sync(); err != nil {
			return errs.Systemf(err, "wal: fsyncing log file %q", path)
		}
		if dir, err := os.Open(t.dir); err == nil {
			dir.Sync()
			dir.Close()
		}
	}
	return nil
}
