package oversqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/oversqlite/oversqlite/internal/oversqlite/transport"
)

// UploadOnce implements §4.2: batches the oldest pending changes, sends them,
// and applies the server's per-item verdicts. Serialised against every other
// sync operation on this Engine via the sync mutex (§5).
func (e *Engine) UploadOnce(ctx context.Context) (UploadSummary, error) {
	v, err, _ := e.sf.Do(e.sfKey+":op", func() (interface{}, error) {
		s, err := e.doUploadOnce(ctx)
		return s, err
	})
	s, _ := v.(UploadSummary)
	return s, err
}

func (e *Engine) doUploadOnce(ctx context.Context) (UploadSummary, error) {
	ctx, span := startOpSpan(ctx, "upload_once")
	defer span.End()

	var summary UploadSummary
	var batch []pendingChange

	err := withTx(ctx, e.db, func(tx *sql.Tx) error {
		b, err := fetchPendingBatch(ctx, tx, e.cfg.UploadLimit)
		if err != nil {
			return err
		}
		batch = b
		return nil
	})
	if err != nil {
		return summary, err
	}
	if len(batch) == 0 {
		setUploadAttributes(span, summary)
		return summary, nil
	}

	req := uploadRequest{UserID: e.cfg.UserID, SourceID: e.cfg.SourceID}
	for _, pc := range batch {
		req.Changes = append(req.Changes, uploadItem{
			ChangeID:    pc.ChangeID,
			Table:       pc.Table,
			Op:          pc.Op,
			PK:          pc.PK,
			BaseVersion: pc.BaseVersion,
			Payload:     pc.Payload,
		})
	}

	resp, err := e.transport.Upload(ctx, req)
	if err != nil {
		return summary, classifyTransportErr(err)
	}
	if len(resp.Verdicts) != len(batch) {
		return summary, wrapf(ErrProtocol, fmt.Errorf("got %d verdicts for %d changes", len(resp.Verdicts), len(batch)), "upload_once")
	}

	changedTables := map[string]bool{}

	err = withTx(ctx, e.db, func(tx *sql.Tx) error {
		return withApplyMode(ctx, tx, func() error {
			for i, v := range resp.Verdicts {
				pc := batch[i]
				summary.Total++
				addVerdictEvent(span, pc.Table, v.Status)

				switch v.Status {
				case VerdictApplied:
					summary.Applied++
					deleted := pc.Op == OpDelete
					if err := upsertRowMeta(ctx, tx, pc.Table, pc.PK, v.NewServerVersion, deleted); err != nil {
						return err
					}
					if err := deletePending(ctx, tx, pc.ChangeID); err != nil {
						return err
					}
					changedTables[pc.Table] = true

				case VerdictConflict:
					summary.Conflict++
					if err := e.handleUploadConflict(ctx, tx, pc, v, &summary); err != nil {
						return err
					}
					changedTables[pc.Table] = true

				case VerdictInvalid:
					summary.Invalid++
					if v.Reason != "" {
						summary.InvalidReasons = append(summary.InvalidReasons, v.Reason)
					}
					if summary.FirstErrorMessage == "" {
						summary.FirstErrorMessage = v.Reason
					}
					if err := deletePending(ctx, tx, pc.ChangeID); err != nil {
						return err
					}

				case VerdictMaterializeError:
					summary.MaterializeError++
					if summary.FirstErrorMessage == "" {
						summary.FirstErrorMessage = v.Reason
					}
					if err := deletePending(ctx, tx, pc.ChangeID); err != nil {
						return err
					}

				default:
					return wrapf(ErrProtocol, fmt.Errorf("unknown verdict status %q", v.Status), "upload_once")
				}
			}
			return nil
		})
	})
	if err != nil {
		return UploadSummary{}, err
	}

	setUploadAttributes(span, summary)
	for table := range changedTables {
		e.notify(table)
	}
	return summary, nil
}

// handleUploadConflict delegates to the resolver when an uploaded change
// comes back as conflict (§4.4). On AcceptServer it discards the pending
// change and materialises the server's row; on KeepLocal it rebases the
// pending change against the server's current version. A resolver error is
// treated as KeepLocal with the local payload, and its message becomes the
// summary's FirstErrorMessage unless an earlier error is already recorded.
func (e *Engine) handleUploadConflict(ctx context.Context, tx *sql.Tx, pc pendingChange, v verdict, summary *UploadSummary) error {
	result, err := e.resolver.Merge(pc.Table, pc.PK, v.ServerRow, pc.Payload)
	if err != nil {
		if summary.FirstErrorMessage == "" {
			summary.FirstErrorMessage = err.Error()
		}
		result = MergeResult{Outcome: KeepLocal, Payload: pc.Payload}
	}

	spec, ok := e.tables[pc.Table]
	if !ok {
		return wrapf(ErrSchema, fmt.Errorf("table %q not declared", pc.Table), "resolve conflict")
	}

	switch result.Outcome {
	case AcceptServer:
		if err := deletePending(ctx, tx, pc.ChangeID); err != nil {
			return err
		}
		if len(v.ServerRow) == 0 || string(v.ServerRow) == "null" {
			if err := materializeDelete(ctx, tx, spec, pc.PK); err != nil {
				return err
			}
			return upsertRowMeta(ctx, tx, pc.Table, pc.PK, v.NewServerVersion, true)
		}
		if err := materializeUpsert(ctx, tx, spec, pc.PK, v.ServerRow); err != nil {
			return err
		}
		return upsertRowMeta(ctx, tx, pc.Table, pc.PK, v.NewServerVersion, false)

	default: // KeepLocal
		return rebasePending(ctx, tx, pc.ChangeID, v.NewServerVersion, result.Payload)
	}
}

func classifyTransportErr(err error) error {
	switch {
	case err == nil:
		return nil
	case transport.IsAuthError(err):
		return wrapf(ErrAuth, err, "transport")
	case transport.IsProtocolError(err):
		return wrapf(ErrProtocol, err, "transport")
	case transport.IsCancelledError(err):
		return wrapf(ErrCancelled, err, "transport")
	default:
		return wrapf(ErrTransport, err, "transport")
	}
}
