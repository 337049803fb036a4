package oversqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// tableSpecs indexes declared tables by name for quick lookup during
// materialisation and hydration.
type tableSpecs map[string]TableSpec

func indexTableSpecs(tables []TableSpec) tableSpecs {
	m := make(tableSpecs, len(tables))
	for _, t := range tables {
		m[t.Name] = t
	}
	return m
}

// materializeUpsert writes a decoded JSON payload into its business table
// under apply-mode, via INSERT ... ON CONFLICT DO UPDATE (§4.5). Columns
// absent from the payload are omitted from the statement so they retain
// their existing value on update and their table default on insert.
func materializeUpsert(ctx context.Context, tx *sql.Tx, spec TableSpec, pk string, payload json.RawMessage) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return wrapf(ErrIntegrity, err, "decode payload for %s/%s", spec.Name, pk)
	}

	cols := make([]string, 0, len(fields)+1)
	placeholders := make([]string, 0, len(fields)+1)
	args := make([]interface{}, 0, len(fields)+1)
	updateClauses := make([]string, 0, len(fields))

	cols = append(cols, spec.PKColumn)
	placeholders = append(placeholders, "?")
	args = append(args, pkLiteral(spec, pk, fields))

	for _, c := range spec.Columns {
		if c == spec.PKColumn {
			continue
		}
		raw, ok := fields[c]
		if !ok {
			continue
		}
		var v interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return wrapf(ErrIntegrity, err, "decode column %s for %s/%s", c, spec.Name, pk)
		}
		cols = append(cols, c)
		placeholders = append(placeholders, "?")
		args = append(args, v)
		updateClauses = append(updateClauses, fmt.Sprintf("%s = excluded.%s", quoteIdent(c), quoteIdent(c)))
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s`,
		quoteIdent(spec.Name),
		joinIdents(cols),
		joinPlaceholders(placeholders),
		quoteIdent(spec.PKColumn),
		joinOrNoop(updateClauses),
	)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return wrapf(ErrIntegrity, err, "upsert %s/%s", spec.Name, pk)
	}
	return nil
}

// materializeDelete removes a business row under apply-mode (§4.5).
func materializeDelete(ctx context.Context, tx *sql.Tx, spec TableSpec, pk string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s(%s) = ?`, quoteIdent(spec.Name), canonicalFuncName, quoteIdent(spec.PKColumn))
	if _, err := tx.ExecContext(ctx, query, pk); err != nil {
		return wrapf(ErrIntegrity, err, "delete %s/%s", spec.Name, pk)
	}
	return nil
}

// upsertRowMeta advances row_meta for (table, pk) after a successful
// materialisation or upload verdict, preserving the tombstone-retention
// invariant (row_meta rows are never deleted, only flagged).
func upsertRowMeta(ctx context.Context, tx *sql.Tx, table, pk string, serverVersion int64, deleted bool) error {
	del := 0
	if deleted {
		del = 1
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO _sync_row_meta (table_name, pk_uuid, server_version, deleted)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (table_name, pk_uuid) DO UPDATE SET
			server_version = excluded.server_version,
			deleted = excluded.deleted
	`, table, pk, serverVersion, del)
	if err != nil {
		return fmt.Errorf("upsert row meta for %s/%s: %w", table, pk, err)
	}
	return nil
}

func rowMetaVersion(ctx context.Context, tx *sql.Tx, table, pk string) (int64, error) {
	var v int64
	err := tx.QueryRowContext(ctx, `SELECT server_version FROM _sync_row_meta WHERE table_name = ? AND pk_uuid = ?`, table, pk).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read row meta version for %s/%s: %w", table, pk, err)
	}
	return v, nil
}

// pkLiteral prefers the canonical pk string already computed unless the
// payload itself carries the original typed value for the pk column (which
// trigger-built payloads do only when the pk column is among the declared
// Columns).
func pkLiteral(spec TableSpec, pk string, fields map[string]json.RawMessage) interface{} {
	if raw, ok := fields[spec.PKColumn]; ok {
		var v interface{}
		if err := json.Unmarshal(raw, &v); err == nil {
			return v
		}
	}
	return pk
}

func joinIdents(cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += quoteIdent(c)
	}
	return out
}

func joinPlaceholders(ps []string) string {
	out := ""
	for i, p := range ps {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}

func joinOrNoop(clauses []string) string {
	if len(clauses) == 0 {
		return fmt.Sprintf("%s = %s", "rowid", "rowid")
	}
	out := ""
	for i, c := range clauses {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}
