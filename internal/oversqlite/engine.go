package oversqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/spf13/viper"
	"golang.org/x/sync/singleflight"

	"github.com/oversqlite/oversqlite/internal/oversqlite/transport"
)

// Listener is invoked after a sync operation mutates rows of table,
// implementing the reactive invalidation hook (§4.7).
type Listener func(table string)

// Engine is the client-side sync engine. It owns one SQLite connection and
// serialises UploadOnce, DownloadOnce and SyncOnce through a singleflight
// group keyed by database path (§5), the sync mutex. Bootstrap uses a
// separate key of the same group, and Hydrate does not go through it.
type Engine struct {
	db        *sql.DB
	cfg       EngineConfig
	tables    tableSpecs
	resolver  Resolver
	transport transport.Client

	mu        sync.RWMutex
	listeners []Listener

	sf    *singleflight.Group
	sfKey string
}

// dbMutexes holds one singleflight.Group per database path so that two
// Engines opened against the same file (e.g. in tests) still serialise
// against each other, matching the §5 requirement that sync operations on
// the same database never interleave.
var (
	dbMutexesMu sync.Mutex
	dbMutexes   = map[string]*singleflight.Group{}
)

func sfGroupFor(path string) *singleflight.Group {
	dbMutexesMu.Lock()
	defer dbMutexesMu.Unlock()
	if g, ok := dbMutexes[path]; ok {
		return g
	}
	g := &singleflight.Group{}
	dbMutexes[path] = g
	return g
}

// NewEngine opens the database at cfg.DBPath and constructs an Engine ready
// for Bootstrap. It does not itself create shadow tables or triggers; call
// Bootstrap for that. Mirrors the host's top-level facade constructor
// pattern (beads.go's NewSQLiteStorage): a thin public wrapper over an
// internal implementation.
func NewEngine(cfg EngineConfig, resolver Resolver, tc transport.Client) (*Engine, error) {
	loadViperDefaults(viper.New(), &cfg)

	cfg, err := normalizeConfig(cfg)
	if err != nil {
		return nil, err
	}
	if resolver == nil {
		resolver = ServerWinsResolver{}
	}
	if tc == nil {
		return nil, fmt.Errorf("oversqlite: transport client is required")
	}

	db, err := openDB(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	return &Engine{
		db:        db,
		cfg:       cfg,
		tables:    indexTableSpecs(cfg.Tables),
		resolver:  resolver,
		transport: tc,
		sf:        sfGroupFor(cfg.DBPath),
		sfKey:     cfg.DBPath,
	}, nil
}

// AddListener registers a reactive invalidation callback, invoked after any
// sync operation mutates rows of a business table.
func (e *Engine) AddListener(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

func (e *Engine) notify(table string) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, l := range e.listeners {
		l(table)
	}
}

// Bootstrap implements §4.1: idempotent metadata/trigger installation plus
// row_meta backfill for pre-existing business rows.
func (e *Engine) Bootstrap(ctx context.Context) error {
	_, err, _ := e.sf.Do(e.sfKey+":bootstrap", func() (interface{}, error) {
		err := withTx(ctx, e.db, func(tx *sql.Tx) error {
			if err := installMetadataSchema(ctx, tx); err != nil {
				return err
			}
			if err := upsertClientInfo(ctx, tx, e.cfg.UserID, e.cfg.SourceID); err != nil {
				return err
			}
			if err := installTriggers(ctx, tx, e.cfg.Tables); err != nil {
				return err
			}
			for _, t := range e.cfg.Tables {
				if err := backfillRowMeta(ctx, tx, t); err != nil {
					return err
				}
				if err := backfillPending(ctx, tx, t); err != nil {
					return err
				}
			}
			return nil
		})
		return nil, err
	})
	return err
}

// SyncOnce implements §4.7: upload once, then drain download pages until the
// server reports end-of-stream.
func (e *Engine) SyncOnce(ctx context.Context) (UploadSummary, int, error) {
	// Shares the ":op" key with UploadOnce/DownloadOnce so a concurrent call
	// to any of the three collapses onto whichever is already in flight
	// (§5) rather than interleaving on the same connection. SyncOnce calls
	// the unexported doUploadOnce/doDownloadOnce directly rather than the
	// exported wrappers, since singleflight.Do is not reentrant on one key.
	v, err, _ := e.sf.Do(e.sfKey+":op", func() (interface{}, error) {
		summary, err := e.doUploadOnce(ctx)
		if err != nil {
			return syncResult{summary: summary}, err
		}

		totalApplied := 0
		for {
			applied, _, err := e.doDownloadOnce(ctx, e.cfg.DownloadLimit, e.cfg.IncludeSelf)
			if err != nil {
				return syncResult{summary: summary, downloaded: totalApplied}, err
			}
			totalApplied += applied
			if applied < e.cfg.DownloadLimit {
				break
			}
		}
		return syncResult{summary: summary, downloaded: totalApplied}, nil
	})
	res, _ := v.(syncResult)
	return res.summary, res.downloaded, err
}

type syncResult struct {
	summary    UploadSummary
	downloaded int
}

// EngineStatus is a snapshot of local sync state, read without contacting
// the server.
type EngineStatus struct {
	UserID            string
	SourceID          string
	LastServerSeqSeen int64
	PendingCount      int
}

// Status reports local sync state for diagnostics (e.g. the CLI's `status`
// subcommand). It does not acquire the sync mutex: it's a read-only query
// safe to run concurrently with an in-flight sync operation.
func (e *Engine) Status(ctx context.Context) (EngineStatus, error) {
	var status EngineStatus
	err := withTx(ctx, e.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT user_id, source_id, last_server_seq_seen FROM _sync_client_info WHERE id = 1`)
		if err := row.Scan(&status.UserID, &status.SourceID, &status.LastServerSeqSeen); err != nil {
			if err == sql.ErrNoRows {
				return nil
			}
			return err
		}
		return tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM _sync_pending`).Scan(&status.PendingCount)
	})
	return status, err
}

// Close releases the engine's database connection.
func (e *Engine) Close() error {
	return e.db.Close()
}
