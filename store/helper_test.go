package store_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	gstore "github.com/queuectl/queuectl/store"

	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) *gstore.SQLiteStore {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", "file::memory:?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1) // important for sqlite
	db := bun.NewDB(sqlDB, sqlitedialect.New())
	ctx := context.Background()
	if err := gstore.InitDB(ctx, db); err != nil {
		t.Fatal(err)
	}
	return gstore.NewSQLiteStore(db)
}
