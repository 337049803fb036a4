package oversqlite

import (
	"database/sql"
	"encoding/hex"
	"strings"
	"sync"

	"github.com/ncruces/go-sqlite3"
	"github.com/ncruces/go-sqlite3/driver"
)

// canonicalFuncName is the SQLite scalar function trigger bodies call to
// compute pk_uuid. Registering it once at connection-open time (rather than
// recomputing in Go per row) keeps canonicalisation a pure function of the
// raw key bytes, invoked at the same boundary for every insert/update/delete,
// per the primary-key canonicalisation design note.
const canonicalFuncName = "oversqlite_canon_pk"

var registerOnce sync.Once

// registerCanonicalFunc installs the canonicalisation scalar function on
// every new connection the driver opens. ncruces/go-sqlite3 exposes
// per-connection hooks rather than a DB-wide function table, so the hook is
// installed once per process and applies to all connections subsequently
// opened through the driver.
func registerCanonicalFunc(_ *sql.DB) error {
	var hookErr error
	registerOnce.Do(func() {
		hookErr = driver.RegisterConnectionHook(func(c *sqlite3.Conn) error {
			return c.CreateFunction(canonicalFuncName, 1, sqlite3.DETERMINISTIC|sqlite3.INNOCUOUS,
				func(ctx sqlite3.Context, arg ...sqlite3.Value) {
					ctx.ResultText(canonicalizePK(arg[0]))
				})
		})
	})
	return hookErr
}

// canonicalizePK normalises a raw primary-key value to its textual sync
// form: text and integer keys pass through their natural string
// representation; blob keys are lower-cased hex encoded. This is the only
// identity the server ever sees.
func canonicalizePK(v sqlite3.Value) string {
	switch v.Type() {
	case sqlite3.BLOB:
		return hex.EncodeToString(v.Blob(nil))
	default:
		return strings.TrimSpace(v.Text())
	}
}

// canonicalizePKGo mirrors canonicalizePK for Go-side values (as decoded
// from payload JSON rather than live SQLite values). No engine path calls it:
// materialisation and hydration use the pk text the server sends as-is.
func canonicalizePKGo(raw interface{}) string {
	switch t := raw.(type) {
	case []byte:
		return hex.EncodeToString(t)
	case string:
		return strings.TrimSpace(t)
	default:
		return strings.TrimSpace(toText(raw))
	}
}
