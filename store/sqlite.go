package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the Store implementation backed by modernc.org/sqlite
// through bun. It is the default, embedded backend for a single-host
// deployment; the default filename is jobs.db.
type SQLiteStore struct {
	db *bun.DB
}

// Open opens (creating if necessary) the sqlite database at path, enables
// WAL mode and a busy timeout so concurrent processes on the same host
// serialize cleanly instead of failing with SQLITE_BUSY, and runs
// InitDB. A single connection is enforced (SetMaxOpenConns(1)) because
// modernc.org/sqlite does not tolerate concurrent writers over one
// *sql.DB; cross-process concurrency is handled by sqlite's own file
// locking instead.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	db := bun.NewDB(sqlDB, sqlitedialect.New())
	if err := InitDB(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// NewSQLiteStore wraps an already-configured *bun.DB. The caller is
// responsible for connection limits and for calling InitDB beforehand;
// this mirrors gqs's NewPusher/NewPuller/NewObserver, which take a ready
// *bun.DB rather than owning the connection lifecycle.
func NewSQLiteStore(db *bun.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
