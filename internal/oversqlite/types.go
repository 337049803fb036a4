package oversqlite

import (
	"encoding/json"

	"github.com/oversqlite/oversqlite/internal/oversqlite/transport"
)

// TableSpec declares one syncable business table: its name, the column that
// serves as its sync primary key, and the full set of columns the engine is
// allowed to read and write when materialising rows. Columns absent from a
// downloaded payload retain their existing value on update and their
// declared default on insert.
type TableSpec struct {
	Name     string   `yaml:"name" toml:"name"`
	PKColumn string   `yaml:"pk_column" toml:"pk_column"`
	Columns  []string `yaml:"columns" toml:"columns"`
}

// Op identifies the kind of change a trigger captured or a server emitted;
// an alias of transport.Op so engine code never has to convert at the wire
// boundary.
type Op = transport.Op

const (
	OpInsert = transport.OpInsert
	OpUpdate = transport.OpUpdate
	OpDelete = transport.OpDelete
)

// pendingChange mirrors a row of _sync_pending.
type pendingChange struct {
	ChangeID    int64
	Table       string
	PK          string
	Op          Op
	BaseVersion int64
	Payload     json.RawMessage
}

// Wire request/response aliases, kept local so upload.go/download.go/
// hydrate.go read naturally without a transport. prefix on every line.
type (
	uploadItem       = transport.UploadItem
	uploadRequest    = transport.UploadRequest
	verdict          = transport.Verdict
	uploadResponse   = transport.UploadResponse
	changeRecord     = transport.ChangeRecord
	downloadResponse = transport.DownloadResponse
	snapshotRow      = transport.SnapshotRow
	snapshotPage     = transport.SnapshotPage
)

// VerdictStatus is the server's disposition for one uploaded change.
type VerdictStatus = transport.VerdictStatus

const (
	VerdictApplied          = transport.VerdictApplied
	VerdictConflict         = transport.VerdictConflict
	VerdictInvalid          = transport.VerdictInvalid
	VerdictMaterializeError = transport.VerdictMaterializeError
)

// UploadSummary reports the outcome of one UploadOnce call.
type UploadSummary struct {
	Total             int
	Applied           int
	Conflict          int
	Invalid           int
	MaterializeError  int
	InvalidReasons    []string
	FirstErrorMessage string
}

// HydrateSummary reports the outcome of a cold-start Hydrate call.
type HydrateSummary struct {
	TablesRows map[string]int
	Watermark  int64
}
