package oversqlite

import "fmt"

// triggerDDL returns the three AFTER trigger definitions for a declared
// table. Each body is guarded by apply_mode = 0 so the engine's own writes
// (performed under apply-mode) never re-enter the pending queue — the only
// coordination mechanism between the engine and the triggers, per the
// apply-mode design note. Coalescing (the §4.1 state table) is implemented
// with a single upsert per event using the existing pending row's op to pick
// the right outcome, matching the trigger authored for label-mutex
// enforcement (DROP TRIGGER IF EXISTS ... CREATE TRIGGER ...) for
// idempotent re-bootstrap.
func triggerDDL(t TableSpec) []string {
	payloadExpr := jsonObjectExpr(t.Columns, "NEW")
	pkNew := fmt.Sprintf("%s(NEW.%s)", canonicalFuncName, quoteIdent(t.PKColumn))
	pkOld := fmt.Sprintf("%s(OLD.%s)", canonicalFuncName, quoteIdent(t.PKColumn))

	insertName := triggerName(t.Name, "insert")
	updateName := triggerName(t.Name, "update")
	deleteName := triggerName(t.Name, "delete")

	return []string{
		fmt.Sprintf(`DROP TRIGGER IF EXISTS %s`, insertName),
		fmt.Sprintf(`
			CREATE TRIGGER %s
			AFTER INSERT ON %s
			FOR EACH ROW
			WHEN (SELECT apply_mode FROM _sync_client_info WHERE id = 1) = 0
			BEGIN
				INSERT INTO _sync_pending (table_name, pk_uuid, op, base_version, payload)
				VALUES ('%s', %s, 'INSERT', 0, %s)
				ON CONFLICT (table_name, pk_uuid) DO UPDATE SET
					op = CASE WHEN _sync_pending.op = 'DELETE' THEN 'UPDATE' ELSE 'INSERT' END,
					payload = excluded.payload;
			END
		`, insertName, quoteIdent(t.Name), t.Name, pkNew, payloadExpr),

		fmt.Sprintf(`DROP TRIGGER IF EXISTS %s`, updateName),
		fmt.Sprintf(`
			CREATE TRIGGER %s
			AFTER UPDATE ON %s
			FOR EACH ROW
			WHEN (SELECT apply_mode FROM _sync_client_info WHERE id = 1) = 0
			BEGIN
				INSERT INTO _sync_pending (table_name, pk_uuid, op, base_version, payload)
				VALUES (
					'%s', %s, 'UPDATE',
					COALESCE((SELECT server_version FROM _sync_row_meta WHERE table_name = '%s' AND pk_uuid = %s), 0),
					%s
				)
				ON CONFLICT (table_name, pk_uuid) DO UPDATE SET
					op = CASE WHEN _sync_pending.op = 'INSERT' THEN 'INSERT' ELSE 'UPDATE' END,
					payload = excluded.payload;
			END
		`, updateName, quoteIdent(t.Name), t.Name, pkNew, t.Name, pkNew, payloadExpr),

		fmt.Sprintf(`DROP TRIGGER IF EXISTS %s`, deleteName),
		fmt.Sprintf(`
			CREATE TRIGGER %s
			AFTER DELETE ON %s
			FOR EACH ROW
			WHEN (SELECT apply_mode FROM _sync_client_info WHERE id = 1) = 0
			BEGIN
				INSERT INTO _sync_pending (table_name, pk_uuid, op, base_version, payload)
				SELECT
					'%s', %s, 'DELETE',
					COALESCE((SELECT server_version FROM _sync_row_meta WHERE table_name = '%s' AND pk_uuid = %s), 0),
					NULL
				WHERE NOT EXISTS (
					SELECT 1 FROM _sync_pending WHERE table_name = '%s' AND pk_uuid = %s AND op = 'INSERT'
				)
				ON CONFLICT (table_name, pk_uuid) DO UPDATE SET
					op = 'DELETE',
					payload = NULL;

				DELETE FROM _sync_pending
				WHERE table_name = '%s' AND pk_uuid = %s AND op = 'INSERT';
			END
		`, deleteName, quoteIdent(t.Name), t.Name, pkOld, t.Name, pkOld, t.Name, pkOld, t.Name, pkOld),
	}
}

func triggerName(table, suffix string) string {
	return fmt.Sprintf("_sync_trg_%s_%s", table, suffix)
}

// jsonObjectExpr builds a SQLite json_object(...) expression referencing the
// declared columns of the NEW/OLD row, used as the pending change's payload.
func jsonObjectExpr(columns []string, rowAlias string) string {
	expr := "json_object("
	for i, c := range columns {
		if i > 0 {
			expr += ", "
		}
		expr += fmt.Sprintf("'%s', %s.%s", c, rowAlias, quoteIdent(c))
	}
	expr += ")"
	return expr
}
