// Package sqlite provides the relational store for the Seforim library:
// categories, books, lines, tables of contents, links, the category closure,
// and the book-title FTS mirror.
//
// Higher layers pass domain objects; SQL never leaves this package. Writes
// go through a single writer transaction at a time (Tx); reads may run
// concurrently once a transaction commits.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json/v2"
	"fmt"
	"log/slog"

	seferrors "github.com/seforimapp/seforim-server/internal/errors"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// dbtx is the common surface of *sql.DB and *sql.Tx used by the operation
// helpers in this package.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store provides SQLite-backed persistence for the Seforim library.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Tx is a writer transaction over the store. All mutating operations live
// here so that at most one writer is open at a time and batches commit
// atomically.
type Tx struct {
	tx *sql.Tx
}

// Open creates or opens the SQLite store at the given path. It configures
// WAL mode, sets the performance pragmas, and runs the schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	// Pragmas ride on the DSN so every pooled connection gets them, not
	// just the one that happens to execute an Exec.
	dsn := "file:" + path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=cache_size(10000)" +
		"&_pragma=temp_store(MEMORY)" +
		"&_pragma=foreign_keys(ON)" +
		"&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite allows a single writer; a small pool serves readers.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{db: db, logger: logger}, nil
}

// OpenReadOnly opens an existing store without running the schema; used at
// query time.
func OpenReadOnly(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite read-only: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunInTransaction runs fn inside a single writer transaction, rolling back
// on error. Integrity violations inside fn abort the whole batch.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Tx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// marshalStrings serializes a string slice column; nil marshals as "[]".
func marshalStrings(vals []string) string {
	if len(vals) == 0 {
		return "[]"
	}
	data, err := json.Marshal(vals)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// unmarshalStrings is the inverse of marshalStrings.
func unmarshalStrings(data string) []string {
	if data == "" || data == "[]" {
		return nil
	}
	var vals []string
	if err := json.Unmarshal([]byte(data), &vals); err != nil {
		return nil
	}
	return vals
}

// nullString returns a sql.NullString that is NULL for the empty string.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullInt64 returns a sql.NullInt64 that is NULL for zero, matching the
// "zero means unassigned" id convention.
func nullInt64(v int64) sql.NullInt64 {
	if v == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: v, Valid: true}
}

// boolInt converts a bool to its stored integer form.
func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// integrityf wraps a foreign-key or uniqueness failure as a typed error so
// callers can distinguish invariant breaks from transient io failures.
func integrityf(err error, format string, args ...any) error {
	return seferrors.Wrapf(err, seferrors.CodeIntegrity, format, args...)
}
