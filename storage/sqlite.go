// Package storage provides the SQLite-backed statement store.
package storage

import (
	"database/sql"
	"iter"
	"sync"

	"github.com/c360studio/stbgraph/graph"
	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"
)

// Query constants
const (
	schemaQuery = `
		CREATE TABLE IF NOT EXISTS quads (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			s_kind      INTEGER NOT NULL,
			s_value     TEXT    NOT NULL,
			p_value     TEXT    NOT NULL,
			o_kind      INTEGER NOT NULL,
			o_value     TEXT    NOT NULL,
			o_datatype  TEXT    NOT NULL DEFAULT '',
			o_lang      TEXT    NOT NULL DEFAULT '',
			g_kind      INTEGER NOT NULL DEFAULT 0,
			g_value     TEXT    NOT NULL DEFAULT ''
		)`

	insertQuery = `
		INSERT INTO quads (s_kind, s_value, p_value, o_kind, o_value, o_datatype, o_lang, g_kind, g_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	countQuery = `SELECT COUNT(*) FROM quads`

	resetQuery = `DELETE FROM quads`

	selectQuery = `
		SELECT s_kind, s_value, p_value, o_kind, o_value, o_datatype, o_lang, g_kind, g_value
		FROM quads ORDER BY id`
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteStore implements graph.Store on a SQLite table. Rows keep insertion
// order through the autoincrement id.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

var _ graph.Store = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database at path and prepares the
// schema. An empty path or ":memory:" gives a private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		path = MemoryPath
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite %s", path)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaQuery); err != nil {
		_ = db.Close()
		return nil, errors.WithHint(
			errors.Wrapf(err, "create schema in %s", path),
			"store.path must be a writable SQLite file")
	}
	return NewSQLiteStore(db), nil
}

// NewSQLiteStore wraps an open database whose schema already exists.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Append inserts every statement of seq in a single transaction. If any
// insert fails the transaction is rolled back and nothing is added.
func (s *SQLiteStore) Append(seq iter.Seq[graph.Quad]) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, errors.Wrap(err, "begin transaction")
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.Prepare(insertQuery)
	if err != nil {
		return 0, errors.Wrap(err, "prepare insert")
	}
	defer stmt.Close()

	n := 0
	for q := range seq {
		if _, err := stmt.Exec(
			q.Subject.Kind, q.Subject.Value,
			q.Predicate.Value,
			q.Object.Kind, q.Object.Value, q.Object.Datatype, q.Object.Lang,
			q.Graph.Kind, q.Graph.Value,
		); err != nil {
			return 0, errors.Wrapf(err, "insert statement %d", n+1)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit transaction")
	}
	tx = nil
	return n, nil
}

// Count returns the number of stored statements.
func (s *SQLiteStore) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	var n int
	if err := s.db.QueryRow(countQuery).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count statements")
	}
	return n, nil
}

// Quads streams the stored statements in insertion order.
func (s *SQLiteStore) Quads() iter.Seq2[graph.Quad, error] {
	return func(yield func(graph.Quad, error) bool) {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			yield(graph.Quad{}, ErrClosed)
			return
		}
		rows, err := s.db.Query(selectQuery)
		s.mu.Unlock()
		if err != nil {
			yield(graph.Quad{}, errors.Wrap(err, "query statements"))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var q graph.Quad
			if err := rows.Scan(
				&q.Subject.Kind, &q.Subject.Value,
				&q.Predicate.Value,
				&q.Object.Kind, &q.Object.Value, &q.Object.Datatype, &q.Object.Lang,
				&q.Graph.Kind, &q.Graph.Value,
			); err != nil {
				yield(graph.Quad{}, errors.Wrap(err, "scan statement"))
				return
			}
			q.Predicate.Kind = graph.KindIRI
			if !yield(q, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(graph.Quad{}, errors.Wrap(err, "read statements"))
		}
	}
}

// Reset removes every stored statement.
func (s *SQLiteStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if _, err := s.db.Exec(resetQuery); err != nil {
		return errors.Wrap(err, "reset store")
	}
	return nil
}

// Close releases the database handle. Further calls return ErrClosed.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
