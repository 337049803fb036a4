package oversqlite

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Hydrate implements §4.6: a cold-start windowed snapshot import that
// overlaps the next page's fetch with the current page's apply, without
// ever sharing a transaction between fetch and apply.
func (e *Engine) Hydrate(ctx context.Context, includeSelf bool, limit int, windowed bool) (HydrateSummary, error) {
	ctx, span := startOpSpan(ctx, "hydrate")
	defer span.End()

	summary := HydrateSummary{TablesRows: map[string]int{}}

	pages := make(chan snapshotPage)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(pages)
		cursor := ""
		for {
			page, err := e.transport.Snapshot(gctx, cursor, limit, includeSelf, windowed)
			if err != nil {
				return classifyTransportErr(err)
			}
			select {
			case pages <- page:
			case <-gctx.Done():
				return gctx.Err()
			}
			if page.NextCursor == "" {
				return nil
			}
			cursor = page.NextCursor
		}
	})

	changedTables := map[string]bool{}

	g.Go(func() error {
		for page := range pages {
			if err := e.applySnapshotPage(gctx, page, summary.TablesRows); err != nil {
				return err
			}
			for _, r := range page.Rows {
				changedTables[r.Table] = true
			}
			if page.WatermarkSeq > summary.Watermark {
				summary.Watermark = page.WatermarkSeq
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return HydrateSummary{}, err
	}

	if err := withTx(ctx, e.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE _sync_client_info SET last_server_seq_seen = ? WHERE id = 1`, summary.Watermark)
		return err
	}); err != nil {
		return HydrateSummary{}, fmt.Errorf("set hydration watermark: %w", err)
	}

	for table := range changedTables {
		e.notify(table)
	}
	return summary, nil
}

// applySnapshotPage writes one fetched page under its own apply-mode
// transaction, separate from the page fetch, so only adjacent pages overlap
// in flight and a materialisation transaction never suspends on I/O.
func (e *Engine) applySnapshotPage(ctx context.Context, page snapshotPage, counts map[string]int) error {
	return withTx(ctx, e.db, func(tx *sql.Tx) error {
		return withApplyMode(ctx, tx, func() error {
			for _, row := range page.Rows {
				spec, ok := e.tables[row.Table]
				if !ok {
					return wrapf(ErrSchema, fmt.Errorf("table %q not declared", row.Table), "hydrate")
				}
				if err := materializeUpsert(ctx, tx, spec, row.PK, row.Payload); err != nil {
					return err
				}
				if err := upsertRowMeta(ctx, tx, row.Table, row.PK, row.ServerVersion, false); err != nil {
					return err
				}
				counts[row.Table]++
			}
			return nil
		})
	})
}
