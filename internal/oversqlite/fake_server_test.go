package oversqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/oversqlite/oversqlite/internal/oversqlite/transport"
)

// fakeSyncServer is a minimal in-process stand-in for the server described
// in §6, used by convergence tests (§8) so they don't depend on a real
// network service. One instance is shared across the fake transport.Client
// handed to each simulated device.
type fakeSyncServer struct {
	mu sync.Mutex

	rows map[string]map[string]*fakeServerRow // table -> pk -> row
	log  []transport.ChangeRecord
	seq  int64
}

type fakeServerRow struct {
	version int64
	payload json.RawMessage
	deleted bool
}

func newFakeSyncServer() *fakeSyncServer {
	return &fakeSyncServer{rows: map[string]map[string]*fakeServerRow{}}
}

func (s *fakeSyncServer) clientFor(sourceID string) transport.Client {
	return &fakeSyncClient{server: s, sourceID: sourceID}
}

func (s *fakeSyncServer) upload(req transport.UploadRequest) transport.UploadResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := transport.UploadResponse{Verdicts: make([]transport.Verdict, len(req.Changes))}
	for i, item := range req.Changes {
		table := s.tableRows(item.Table)
		current, exists := table[item.PK]
		var currentVersion int64
		if exists {
			currentVersion = current.version
		}

		if item.BaseVersion != currentVersion {
			var serverRow json.RawMessage
			if exists && !current.deleted {
				serverRow = current.payload
			}
			resp.Verdicts[i] = transport.Verdict{Status: transport.VerdictConflict, ServerRow: serverRow, NewServerVersion: currentVersion}
			continue
		}

		newVersion := currentVersion + 1
		deleted := item.Op == transport.OpDelete
		table[item.PK] = &fakeServerRow{version: newVersion, payload: item.Payload, deleted: deleted}

		s.seq++
		s.log = append(s.log, transport.ChangeRecord{
			Seq: s.seq, Table: item.Table, Op: item.Op, PK: item.PK,
			ServerVersion: newVersion, Payload: item.Payload, SourceID: req.SourceID,
		})

		resp.Verdicts[i] = transport.Verdict{Status: transport.VerdictApplied, NewServerVersion: newVersion}
	}
	return resp
}

func (s *fakeSyncServer) download(after int64, limit int, includeSelf bool, sourceID string) transport.DownloadResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []transport.ChangeRecord
	next := after
	for _, rec := range s.log {
		if rec.Seq <= after {
			continue
		}
		if !includeSelf && rec.SourceID == sourceID {
			next = rec.Seq
			continue
		}
		out = append(out, rec)
		next = rec.Seq
		if len(out) >= limit {
			break
		}
	}
	return transport.DownloadResponse{Changes: out, NextAfter: next}
}

// snapshotPage implements a paginated, cursor-resumable view of current
// server state (§4.6/§6): the cursor encodes the watermark captured on the
// first page plus an offset into a stable sort of all rows. Only the
// watermark stays fixed across pages; each page is cut from the server's
// current rows, so rows uploaded mid-stream can shift later pages.
func (s *fakeSyncServer) snapshotPage(cursor string, limit int) transport.SnapshotPage {
	s.mu.Lock()
	defer s.mu.Unlock()

	var watermark int64
	var offset int
	if cursor == "" {
		watermark = s.seq
	} else {
		_, _ = fmt.Sscanf(cursor, "%d:%d", &watermark, &offset)
	}

	var all []transport.SnapshotRow
	for table, byPK := range s.rows {
		for pk, row := range byPK {
			if row.deleted {
				continue
			}
			all = append(all, transport.SnapshotRow{Table: table, PK: pk, ServerVersion: row.version, Payload: row.payload})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Table != all[j].Table {
			return all[i].Table < all[j].Table
		}
		return all[i].PK < all[j].PK
	})

	if limit <= 0 {
		limit = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	var page []transport.SnapshotRow
	if offset < len(all) {
		page = all[offset:end]
	}

	nextCursor := ""
	if end < len(all) {
		nextCursor = fmt.Sprintf("%d:%d", watermark, end)
	}
	return transport.SnapshotPage{Rows: page, NextCursor: nextCursor, WatermarkSeq: watermark}
}

func (s *fakeSyncServer) tableRows(table string) map[string]*fakeServerRow {
	if s.rows[table] == nil {
		s.rows[table] = map[string]*fakeServerRow{}
	}
	return s.rows[table]
}

// fakeSyncClient adapts one device's view of fakeSyncServer to transport.Client.
type fakeSyncClient struct {
	server   *fakeSyncServer
	sourceID string
}

func (c *fakeSyncClient) Upload(_ context.Context, req transport.UploadRequest) (transport.UploadResponse, error) {
	return c.server.upload(req), nil
}

func (c *fakeSyncClient) Download(_ context.Context, after int64, limit int, includeSelf bool) (transport.DownloadResponse, error) {
	return c.server.download(after, limit, includeSelf, c.sourceID), nil
}

func (c *fakeSyncClient) Snapshot(_ context.Context, cursor string, limit int, _, _ bool) (transport.SnapshotPage, error) {
	return c.server.snapshotPage(cursor, limit), nil
}
