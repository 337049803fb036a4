package oversqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// DownloadOnce implements §4.3: fetches one page of server changes after the
// current cursor and applies them under apply-mode. Serialised against every
// other sync operation on this Engine via the sync mutex (§5).
func (e *Engine) DownloadOnce(ctx context.Context, limit int, includeSelf bool) (int, int64, error) {
	type result struct {
		applied int
		cursor  int64
	}
	v, err, _ := e.sf.Do(e.sfKey+":op", func() (interface{}, error) {
		applied, cursor, err := e.doDownloadOnce(ctx, limit, includeSelf)
		return result{applied, cursor}, err
	})
	r, _ := v.(result)
	return r.applied, r.cursor, err
}

func (e *Engine) doDownloadOnce(ctx context.Context, limit int, includeSelf bool) (int, int64, error) {
	ctx, span := startOpSpan(ctx, "download_once")
	defer span.End()

	var after int64
	if err := withTx(ctx, e.db, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, `SELECT last_server_seq_seen FROM _sync_client_info WHERE id = 1`).Scan(&after)
	}); err != nil {
		return 0, 0, fmt.Errorf("read cursor: %w", err)
	}

	resp, err := e.transport.Download(ctx, after, limit, includeSelf)
	if err != nil {
		return 0, after, classifyTransportErr(err)
	}

	applied := 0
	changedTables := map[string]bool{}

	err = withTx(ctx, e.db, func(tx *sql.Tx) error {
		return withApplyMode(ctx, tx, func() error {
			for _, rec := range resp.Changes {
				if err := e.applyDownloadedRecord(ctx, tx, rec); err != nil {
					return err
				}
				applied++
				changedTables[rec.Table] = true
			}
			_, err := tx.ExecContext(ctx, `UPDATE _sync_client_info SET last_server_seq_seen = ? WHERE id = 1`, resp.NextAfter)
			if err != nil {
				return fmt.Errorf("advance cursor: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return 0, after, err
	}

	setDownloadAttributes(span, applied, resp.NextAfter)
	for table := range changedTables {
		e.notify(table)
	}
	return applied, resp.NextAfter, nil
}

// applyDownloadedRecord resolves one downloaded record against local state
// (§4.3 step 3): if a pending local change exists for the same (table, pk)
// it goes through the resolver, otherwise it's materialised directly.
func (e *Engine) applyDownloadedRecord(ctx context.Context, tx *sql.Tx, rec changeRecord) error {
	spec, ok := e.tables[rec.Table]
	if !ok {
		return wrapf(ErrSchema, fmt.Errorf("table %q not declared", rec.Table), "apply download record")
	}

	pending, hasPending, err := pendingExists(ctx, tx, rec.Table, rec.PK)
	if err != nil {
		return err
	}

	if !hasPending {
		return e.materializeRecord(ctx, tx, spec, rec)
	}

	result, err := e.resolver.Merge(rec.Table, rec.PK, rec.Payload, pending.Payload)
	if err != nil {
		result = MergeResult{Outcome: KeepLocal, Payload: pending.Payload}
	}

	switch result.Outcome {
	case AcceptServer:
		if err := deletePending(ctx, tx, pending.ChangeID); err != nil {
			return err
		}
		return e.materializeRecord(ctx, tx, spec, rec)
	default: // KeepLocal
		return rebasePending(ctx, tx, pending.ChangeID, rec.ServerVersion, result.Payload)
	}
}

// materializeRecord writes one record under apply-mode. Per §4.5, a failure
// here does not abort the batch unless the engine is configured to stall on
// poisoned records: row_meta is left unchanged on failure either way, since
// the write that would have advanced it is the thing that failed.
func (e *Engine) materializeRecord(ctx context.Context, tx *sql.Tx, spec TableSpec, rec changeRecord) error {
	var err error
	deleted := rec.Op == OpDelete
	if deleted {
		err = materializeDelete(ctx, tx, spec, rec.PK)
	} else {
		err = materializeUpsert(ctx, tx, spec, rec.PK, rec.Payload)
	}
	if err != nil {
		if !e.cfg.AdvanceCursorOnMaterializeError {
			return err
		}
		debugLogMaterializeError(rec.Table, rec.PK, err)
		return nil
	}
	return upsertRowMeta(ctx, tx, rec.Table, rec.PK, rec.ServerVersion, deleted)
}
