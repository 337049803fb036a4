package oversqlite

import "github.com/oversqlite/oversqlite/internal/debug"

func debugLogMaterializeError(table, pk string, err error) {
	debug.Logf("oversqlite: materialize_error on %s/%s, skipping: %v\n", table, pk, err)
}
