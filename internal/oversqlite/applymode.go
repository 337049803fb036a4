package oversqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// setApplyMode flips the apply_mode flag on the client-info singleton. It is
// always called from inside the write transaction it guards, because a flag
// stored outside the transaction would not roll back on abort (see the
// apply-mode design note) and a per-connection session variable would not
// either, since the engine reuses one long-lived connection.
func setApplyMode(ctx context.Context, tx *sql.Tx, on bool) error {
	val := 0
	if on {
		val = 1
	}
	if _, err := tx.ExecContext(ctx, `UPDATE _sync_client_info SET apply_mode = ? WHERE id = 1`, val); err != nil {
		return fmt.Errorf("set apply_mode=%d: %w", val, err)
	}
	return nil
}

// withApplyMode runs fn with apply_mode=1 for its duration, inside tx,
// restoring apply_mode=0 before returning regardless of outcome so a
// materialisation failure never leaves triggers permanently suppressed.
func withApplyMode(ctx context.Context, tx *sql.Tx, fn func() error) error {
	if err := setApplyMode(ctx, tx, true); err != nil {
		return err
	}
	defer func() { _ = setApplyMode(ctx, tx, false) }()
	return fn()
}
