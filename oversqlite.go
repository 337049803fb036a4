// Package oversqlite provides a minimal public API for embedding the
// client-side row-sync engine in an application.
//
// Most callers only need NewEngine plus the Bootstrap/Hydrate/UploadOnce/
// DownloadOnce/SyncOnce/Close operations; the internal package implements
// the shadow-table bookkeeping, trigger-driven change capture, and
// conflict-resolution machinery these operations drive.
package oversqlite

import (
	"time"

	"github.com/oversqlite/oversqlite/internal/oversqlite"
	"github.com/oversqlite/oversqlite/internal/oversqlite/transport"
)

// Core types for embedding the engine.
type (
	Engine         = oversqlite.Engine
	EngineConfig   = oversqlite.EngineConfig
	TableSpec      = oversqlite.TableSpec
	Resolver       = oversqlite.Resolver
	MergeResult    = oversqlite.MergeResult
	MergeOutcome   = oversqlite.MergeOutcome
	UploadSummary  = oversqlite.UploadSummary
	HydrateSummary = oversqlite.HydrateSummary
	EngineStatus   = oversqlite.EngineStatus
	Listener       = oversqlite.Listener
)

// Conflict outcomes.
const (
	AcceptServer = oversqlite.AcceptServer
	KeepLocal    = oversqlite.KeepLocal
)

// Reference resolver policies (§4.4).
type (
	ServerWinsResolver = oversqlite.ServerWinsResolver
	ClientWinsResolver = oversqlite.ClientWinsResolver
	FieldMergeResolver = oversqlite.FieldMergeResolver
)

// Transport client, shared with the demonstration CLI.
type (
	TransportClient = transport.Client
	HTTPClient      = transport.HTTPClient
	TokenSource     = transport.TokenSource
)

// NewHTTPClient constructs the reference transport.Client implementation.
func NewHTTPClient(baseURL string, token TokenSource, timeoutSeconds int) *HTTPClient {
	return transport.NewHTTPClient(baseURL, token, secondsToDuration(timeoutSeconds))
}

// DefaultEngineConfig returns an EngineConfig with every tunable set to its
// documented default, ready for the caller to override individual fields.
func DefaultEngineConfig(dbPath, userID, sourceID string) EngineConfig {
	return oversqlite.DefaultEngineConfig(dbPath, userID, sourceID)
}

// NewEngine opens dbPath and constructs an Engine. Call Bootstrap before any
// other operation on a fresh database.
func NewEngine(cfg EngineConfig, resolver Resolver, client TransportClient) (*Engine, error) {
	return oversqlite.NewEngine(cfg, resolver, client)
}

func secondsToDuration(s int) time.Duration {
	if s <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s) * time.Second
}
