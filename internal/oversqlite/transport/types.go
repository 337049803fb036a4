package transport

import "encoding/json"

// Op mirrors oversqlite.Op on the wire; kept independent so this package has
// no dependency on the engine package (the engine depends on transport, not
// the reverse).
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// UploadItem is one entry of an upload batch (§6).
type UploadItem struct {
	ChangeID    int64           `json:"change_id"`
	Table       string          `json:"table"`
	Op          Op              `json:"op"`
	PK          string          `json:"pk"`
	BaseVersion int64           `json:"base_version"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// UploadRequest is the full body of POST /sync/upload.
type UploadRequest struct {
	UserID   string       `json:"user_id"`
	SourceID string       `json:"source_id"`
	Changes  []UploadItem `json:"changes"`
}

// VerdictStatus is the server's disposition for one uploaded change.
type VerdictStatus string

const (
	VerdictApplied          VerdictStatus = "applied"
	VerdictConflict         VerdictStatus = "conflict"
	VerdictInvalid          VerdictStatus = "invalid"
	VerdictMaterializeError VerdictStatus = "materialize_error"
)

// Verdict is one entry of an upload response, positionally aligned with the
// request's Changes.
type Verdict struct {
	Status           VerdictStatus   `json:"status"`
	NewServerVersion int64           `json:"new_server_version,omitempty"`
	ServerRow        json.RawMessage `json:"server_row,omitempty"`
	Reason           string          `json:"reason,omitempty"`
}

// UploadResponse is the full body of the upload endpoint's reply.
type UploadResponse struct {
	Verdicts []Verdict `json:"verdicts"`
}

// ChangeRecord is one entry of a download response page.
type ChangeRecord struct {
	Seq           int64           `json:"seq"`
	Table         string          `json:"table"`
	Op            Op              `json:"op"`
	PK            string          `json:"pk"`
	ServerVersion int64           `json:"server_version"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	SourceID      string          `json:"source_id,omitempty"`
}

// DownloadResponse is the full body of GET /sync/download.
type DownloadResponse struct {
	Changes   []ChangeRecord `json:"changes"`
	NextAfter int64          `json:"next_after"`
}

// SnapshotRow is one row of a hydration snapshot page.
type SnapshotRow struct {
	Table         string          `json:"table"`
	PK            string          `json:"pk"`
	ServerVersion int64           `json:"server_version"`
	Payload       json.RawMessage `json:"payload"`
}

// SnapshotPage is one page of GET /sync/snapshot.
type SnapshotPage struct {
	Rows         []SnapshotRow `json:"rows"`
	NextCursor   string        `json:"next_cursor"`
	WatermarkSeq int64         `json:"watermark_seq"`
}
