package oversqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// fetchPendingBatch returns the oldest N pending changes ordered by
// change_id, implementing §4.2 step 1.
func fetchPendingBatch(ctx context.Context, tx *sql.Tx, limit int) ([]pendingChange, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT change_id, table_name, pk_uuid, op, base_version, payload
		FROM _sync_pending
		ORDER BY change_id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch pending batch: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []pendingChange
	for rows.Next() {
		var pc pendingChange
		var payload sql.NullString
		if err := rows.Scan(&pc.ChangeID, &pc.Table, &pc.PK, &pc.Op, &pc.BaseVersion, &payload); err != nil {
			return nil, fmt.Errorf("scan pending change: %w", err)
		}
		if payload.Valid {
			pc.Payload = []byte(payload.String)
		}
		out = append(out, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending batch: %w", err)
	}
	return out, nil
}

// deletePending removes a single pending row after its change has been
// resolved (applied, invalid, materialize_error, or discarded on AcceptServer).
func deletePending(ctx context.Context, tx *sql.Tx, changeID int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM _sync_pending WHERE change_id = ?`, changeID); err != nil {
		return fmt.Errorf("delete pending change %d: %w", changeID, err)
	}
	return nil
}

// rebasePending rewrites a pending row's base_version and payload in place,
// used when the resolver chooses KeepLocal on a conflict (§4.4): the next
// upload must send a well-formed update against the server's current
// version. The original op is preserved — a KeepLocal DELETE must still be
// retried as a DELETE (§8 S4), only its base_version advances.
func rebasePending(ctx context.Context, tx *sql.Tx, changeID, newBaseVersion int64, payload []byte) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE _sync_pending SET base_version = ?, payload = ?
		WHERE change_id = ?
	`, newBaseVersion, string(payload), changeID)
	if err != nil {
		return fmt.Errorf("rebase pending change %d: %w", changeID, err)
	}
	return nil
}

// pendingExists reports whether a pending change is already queued for
// (table, pk), used by the download path to decide whether an incoming
// record must go through the resolver instead of direct materialisation.
func pendingExists(ctx context.Context, tx *sql.Tx, table, pk string) (pendingChange, bool, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT change_id, table_name, pk_uuid, op, base_version, payload
		FROM _sync_pending WHERE table_name = ? AND pk_uuid = ?
	`, table, pk)
	var pc pendingChange
	var payload sql.NullString
	err := row.Scan(&pc.ChangeID, &pc.Table, &pc.PK, &pc.Op, &pc.BaseVersion, &payload)
	if err == sql.ErrNoRows {
		return pendingChange{}, false, nil
	}
	if err != nil {
		return pendingChange{}, false, fmt.Errorf("check pending change for %s/%s: %w", table, pk, err)
	}
	if payload.Valid {
		pc.Payload = []byte(payload.String)
	}
	return pc, true, nil
}
