package oversqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// openDB opens (or attaches to an already-open) SQLite database at path using
// the pure-Go ncruces/go-sqlite3 driver, matching the driver the host
// project's storage layer is already written against.
func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %s: %w", path, err)
	}
	// The engine serialises all of its own access through a singleflight
	// group (see engine.go), so a single connection is sufficient and avoids
	// SQLITE_BUSY churn against the application's own connection pool.
	db.SetMaxOpenConns(1)
	if err := registerCanonicalFunc(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on error or panic, following internal/storage/sqlite's withTx
// convention (defer Rollback immediately after BeginTx, explicit Commit on
// the success path so cancellation never leaks an open transaction).
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(tx)
	return err
}
