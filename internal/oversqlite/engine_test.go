package oversqlite

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestEngine opens a fresh file-backed SQLite database with a single
// "notes" business table already created, then returns a bootstrapped Engine
// wired to srv under sourceID.
func newTestEngine(t *testing.T, srv *fakeSyncServer, userID, sourceID string) *Engine {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "client.db")
	setup, err := openDB(dbPath)
	require.NoError(t, err)
	_, err = setup.Exec(`CREATE TABLE notes (id TEXT PRIMARY KEY, title TEXT, body TEXT)`)
	require.NoError(t, err)
	require.NoError(t, setup.Close())

	cfg := DefaultEngineConfig(dbPath, userID, sourceID)
	cfg.Tables = []TableSpec{{Name: "notes", PKColumn: "id", Columns: []string{"title", "body"}}}

	e, err := NewEngine(cfg, nil, srv.clientFor(sourceID))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	require.NoError(t, e.Bootstrap(t.Context()))
	return e
}

func (e *Engine) execNotes(t *testing.T, query string, args ...interface{}) {
	t.Helper()
	_, err := e.db.Exec(query, args...)
	require.NoError(t, err)
}

func (e *Engine) queryNote(t *testing.T, id string) (title, body string, found bool) {
	t.Helper()
	err := e.db.QueryRow(`SELECT title, body FROM notes WHERE id = ?`, id).Scan(&title, &body)
	if err == sql.ErrNoRows {
		return "", "", false
	}
	require.NoError(t, err)
	return title, body, true
}

// TestScenario_BasicRoundTrip covers §8 S1: a change made on device A
// converges onto device B via upload then download.
func TestScenario_BasicRoundTrip(t *testing.T) {
	srv := newFakeSyncServer()
	a := newTestEngine(t, srv, "u1", "device-a")
	b := newTestEngine(t, srv, "u1", "device-b")

	a.execNotes(t, `INSERT INTO notes (id, title, body) VALUES (?, ?, ?)`, "n1", "hello", "world")

	summary, err := a.UploadOnce(t.Context())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Total)
	require.Equal(t, 1, summary.Applied)

	applied, _, err := b.DownloadOnce(t.Context(), b.cfg.DownloadLimit, b.cfg.IncludeSelf)
	require.NoError(t, err)
	require.Equal(t, 1, applied)

	title, body, found := b.queryNote(t, "n1")
	require.True(t, found)
	require.Equal(t, "hello", title)
	require.Equal(t, "world", body)
}

// TestScenario_CoalescedInsertUpdate covers §8 S2: an insert followed by an
// update to the same row before upload collapses into a single pending
// change and a single applied verdict.
func TestScenario_CoalescedInsertUpdate(t *testing.T) {
	srv := newFakeSyncServer()
	a := newTestEngine(t, srv, "u1", "device-a")

	a.execNotes(t, `INSERT INTO notes (id, title, body) VALUES (?, ?, ?)`, "n1", "draft", "v1")
	a.execNotes(t, `UPDATE notes SET body = ? WHERE id = ?`, "v2", "n1")

	var count int
	require.NoError(t, a.db.QueryRow(`SELECT COUNT(*) FROM _sync_pending`).Scan(&count))
	require.Equal(t, 1, count)

	summary, err := a.UploadOnce(t.Context())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Total)
	require.Equal(t, 1, summary.Applied)
}

// TestScenario_DeleteAfterUpload covers the insert/upload/delete/upload steps
// of §8 S5: deleting a row already uploaded produces a tombstone that
// converges to the other device. It does not repeat UploadOnce afterwards.
func TestScenario_DeleteAfterUpload(t *testing.T) {
	srv := newFakeSyncServer()
	a := newTestEngine(t, srv, "u1", "device-a")
	b := newTestEngine(t, srv, "u1", "device-b")

	a.execNotes(t, `INSERT INTO notes (id, title, body) VALUES (?, ?, ?)`, "n1", "hello", "world")
	_, err := a.UploadOnce(t.Context())
	require.NoError(t, err)
	_, _, err = b.DownloadOnce(t.Context(), b.cfg.DownloadLimit, b.cfg.IncludeSelf)
	require.NoError(t, err)

	a.execNotes(t, `DELETE FROM notes WHERE id = ?`, "n1")
	summary, err := a.UploadOnce(t.Context())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Applied)

	_, _, err = b.DownloadOnce(t.Context(), b.cfg.DownloadLimit, b.cfg.IncludeSelf)
	require.NoError(t, err)
	_, _, found := b.queryNote(t, "n1")
	require.False(t, found)
}

// TestScenario_ConflictServerWins covers a variant of §8 S3 in which the
// losing change is an update rather than a delete: two devices edit the same
// row before either uploads; with ServerWinsResolver the later uploader
// accepts the server's already-applied version.
func TestScenario_ConflictServerWins(t *testing.T) {
	srv := newFakeSyncServer()
	a := newTestEngine(t, srv, "u1", "device-a")
	b := newTestEngine(t, srv, "u1", "device-b")

	a.execNotes(t, `INSERT INTO notes (id, title, body) VALUES (?, ?, ?)`, "n1", "from-a", "a-body")
	_, err := a.UploadOnce(t.Context())
	require.NoError(t, err)

	_, _, err = b.DownloadOnce(t.Context(), b.cfg.DownloadLimit, b.cfg.IncludeSelf)
	require.NoError(t, err)
	b.execNotes(t, `UPDATE notes SET title = ? WHERE id = ?`, "from-b", "n1")

	a.execNotes(t, `UPDATE notes SET title = ? WHERE id = ?`, "from-a-again", "n1")
	summaryA, err := a.UploadOnce(t.Context())
	require.NoError(t, err)
	require.Equal(t, 1, summaryA.Applied)

	summaryB, err := b.UploadOnce(t.Context())
	require.NoError(t, err)
	require.Equal(t, 1, summaryB.Conflict)

	title, _, found := b.queryNote(t, "n1")
	require.True(t, found)
	require.Equal(t, "from-a-again", title)
}
