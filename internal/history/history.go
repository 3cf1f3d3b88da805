// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package history keeps a SQLite log of pipeline runs.
package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL,
    command TEXT NOT NULL,   -- 'run', 'simulate'
    stage TEXT NOT NULL,     -- last stage reached
    table_path TEXT,
    rows INTEGER DEFAULT 0,
    exit_code INTEGER NOT NULL,
    error TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`

// An Entry is one recorded run.
type Entry struct {
	ID       int64
	Started  time.Time
	Finished time.Time
	Command  string
	Stage    string
	Table    string
	Rows     int
	ExitCode int
	Error    string
}

// Store is a run archive backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens or creates the archive at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(err, "create history directory")
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.Wrap(err, "open history database")
	}
	db.SetMaxOpenConns(1) // single writer

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initialize history schema")
	}
	return &Store{db: db}, nil
}

// Close closes the archive.
func (s *Store) Close() error { return s.db.Close() }

// Record appends e and returns its id. e.ID is ignored.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (started_at, finished_at, command, stage, table_path, rows, exit_code, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Started.UTC().Format(time.RFC3339Nano), e.Finished.UTC().Format(time.RFC3339Nano),
		e.Command, e.Stage, e.Table, e.Rows, e.ExitCode, e.Error)
	if err != nil {
		return 0, errors.Wrap(err, "record run")
	}
	return res.LastInsertId()
}

// List returns the n most recent runs, newest first. n <= 0 returns all runs.
func (s *Store) List(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		n = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, command, stage, COALESCE(table_path, ''), rows, exit_code, COALESCE(error, '')
		 FROM runs ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	defer rows.Close()

	var list []Entry
	for rows.Next() {
		var (
			e                 Entry
			started, finished string
		)
		if err := rows.Scan(&e.ID, &started, &finished, &e.Command, &e.Stage, &e.Table, &e.Rows, &e.ExitCode, &e.Error); err != nil {
			return nil, errors.Wrap(err, "scan run")
		}
		if e.Started, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, errors.Wrapf(err, "run %d: started_at", e.ID)
		}
		if e.Finished, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, errors.Wrapf(err, "run %d: finished_at", e.ID)
		}
		list = append(list, e)
	}
	return list, errors.Wrap(rows.Err(), "list runs")
}
