package oversqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// installMetadataSchema creates the three shadow tables if absent. Matches
// the host's migration idiom of plain CREATE TABLE IF NOT EXISTS statements
// wrapped with a descriptive error (internal/storage/sqlite/migrations).
func installMetadataSchema(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _sync_client_info (
			id                   INTEGER PRIMARY KEY CHECK (id = 1),
			user_id              TEXT    NOT NULL DEFAULT '',
			source_id            TEXT    NOT NULL DEFAULT '',
			next_change_id       INTEGER NOT NULL DEFAULT 1,
			last_server_seq_seen INTEGER NOT NULL DEFAULT 0,
			apply_mode           INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS _sync_row_meta (
			table_name     TEXT    NOT NULL,
			pk_uuid        TEXT    NOT NULL,
			server_version INTEGER NOT NULL DEFAULT 0,
			deleted        INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (table_name, pk_uuid)
		)`,
		`CREATE TABLE IF NOT EXISTS _sync_pending (
			change_id    INTEGER PRIMARY KEY AUTOINCREMENT,
			table_name   TEXT    NOT NULL,
			pk_uuid      TEXT    NOT NULL,
			op           TEXT    NOT NULL,
			base_version INTEGER NOT NULL DEFAULT 0,
			payload      TEXT,
			UNIQUE (table_name, pk_uuid)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_pending_order ON _sync_pending(change_id)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("install metadata schema: %w", err)
		}
	}
	return nil
}

// upsertClientInfo creates or refreshes the client-info singleton. Refresh
// only happens when the caller supplies a non-empty identity, so repeated
// Bootstrap calls with a zero-value identity leave the existing row alone.
func upsertClientInfo(ctx context.Context, tx *sql.Tx, userID, sourceID string) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM _sync_client_info WHERE id = 1)`).Scan(&exists); err != nil {
		return fmt.Errorf("check client info: %w", err)
	}
	if !exists {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO _sync_client_info (id, user_id, source_id, next_change_id, last_server_seq_seen, apply_mode)
			VALUES (1, ?, ?, 1, 0, 0)
		`, userID, sourceID)
		if err != nil {
			return fmt.Errorf("insert client info: %w", err)
		}
		return nil
	}
	if userID == "" && sourceID == "" {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE _sync_client_info SET
			user_id   = CASE WHEN ? != '' THEN ? ELSE user_id END,
			source_id = CASE WHEN ? != '' THEN ? ELSE source_id END
		WHERE id = 1
	`, userID, userID, sourceID, sourceID)
	if err != nil {
		return fmt.Errorf("update client info: %w", err)
	}
	return nil
}

// installTriggers creates the three AFTER triggers per declared table,
// idempotently (drop-then-create, matching MigrateLabelMutexPolicy's
// drop-and-recreate idiom so trigger bodies can be updated on re-bootstrap).
func installTriggers(ctx context.Context, tx *sql.Tx, tables []TableSpec) error {
	for _, t := range tables {
		if err := verifyTableAndPK(ctx, tx, t); err != nil {
			return err
		}
		for _, ddl := range triggerDDL(t) {
			if _, err := tx.ExecContext(ctx, ddl); err != nil {
				return fmt.Errorf("install trigger for %s: %w", t.Name, wrapf(ErrSchema, err, "create trigger"))
			}
		}
	}
	return nil
}

// verifyTableAndPK checks that a declared syncable table exists and that its
// declared PK column is a real column of that table.
func verifyTableAndPK(ctx context.Context, tx *sql.Tx, t TableSpec) error {
	var name string
	err := tx.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, t.Name).Scan(&name)
	if err == sql.ErrNoRows {
		return wrapf(ErrSchema, fmt.Errorf("table %q not found", t.Name), "verify table %s", t.Name)
	}
	if err != nil {
		return fmt.Errorf("verify table %s: %w", t.Name, err)
	}

	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdent(t.Name)))
	if err != nil {
		return fmt.Errorf("inspect columns of %s: %w", t.Name, err)
	}
	defer func() { _ = rows.Close() }()

	found := false
	for rows.Next() {
		var cid int
		var colName, colType string
		var notNull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("scan column info for %s: %w", t.Name, err)
		}
		if colName == t.PKColumn {
			found = true
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate columns of %s: %w", t.Name, err)
	}
	if !found {
		return wrapf(ErrSchema, fmt.Errorf("primary key column %q not found on %q", t.PKColumn, t.Name), "verify pk column")
	}
	return nil
}

// backfillRowMeta inserts server_version=0 row_meta rows for every
// pre-existing business row that doesn't yet have one, so the first upload
// treats them as creations.
func backfillRowMeta(ctx context.Context, tx *sql.Tx, t TableSpec) error {
	query := fmt.Sprintf(`
		INSERT INTO _sync_row_meta (table_name, pk_uuid, server_version, deleted)
		SELECT ?, %s(src.%s), 0, 0
		FROM %s AS src
		WHERE NOT EXISTS (
			SELECT 1 FROM _sync_row_meta rm
			WHERE rm.table_name = ? AND rm.pk_uuid = %s(src.%s)
		)
	`, canonicalFuncName, quoteIdent(t.PKColumn), quoteIdent(t.Name), canonicalFuncName, quoteIdent(t.PKColumn))
	if _, err := tx.ExecContext(ctx, query, t.Name, t.Name); err != nil {
		return fmt.Errorf("backfill row meta for %s: %w", t.Name, err)
	}
	return nil
}

// backfillPending enqueues an INSERT pending change for every business row
// whose row_meta still reads server_version=0 (i.e. it was just backfilled,
// or authored before the engine's triggers existed) and that has no pending
// change already queued for it — so pre-existing rows actually reach the
// server on the first upload, rather than just getting a row_meta marker
// that nothing ever drains. The NOT EXISTS pending guard keeps re-running
// Bootstrap a no-op once a row has been captured by trigger or backfill.
func backfillPending(ctx context.Context, tx *sql.Tx, t TableSpec) error {
	payloadExpr := jsonObjectExpr(t.Columns, "src")
	pk := fmt.Sprintf("%s(src.%s)", canonicalFuncName, quoteIdent(t.PKColumn))
	query := fmt.Sprintf(`
		INSERT INTO _sync_pending (table_name, pk_uuid, op, base_version, payload)
		SELECT '%s', %s, 'INSERT', 0, %s
		FROM %s AS src
		JOIN _sync_row_meta rm ON rm.table_name = '%s' AND rm.pk_uuid = %s
		WHERE rm.server_version = 0 AND rm.deleted = 0
		AND NOT EXISTS (
			SELECT 1 FROM _sync_pending p WHERE p.table_name = '%s' AND p.pk_uuid = %s
		)
	`, t.Name, pk, payloadExpr, quoteIdent(t.Name), t.Name, pk, t.Name, pk)
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("backfill pending for %s: %w", t.Name, err)
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}
