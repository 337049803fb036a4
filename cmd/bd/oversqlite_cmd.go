package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/oversqlite/oversqlite"
	"github.com/oversqlite/oversqlite/internal/config"
)

var oversqliteCmd = &cobra.Command{
	Use:   "oversqlite",
	Short: "Sync a local SQLite database against an oversqlite server",
}

func init() {
	oversqliteCmd.PersistentFlags().String("db", "bd.db", "path to the local SQLite database")
	oversqliteCmd.PersistentFlags().String("server", "", "oversqlite server base URL (overrides .oversqlite.toml)")
	oversqliteCmd.PersistentFlags().String("user-id", "", "sync user id (overrides .oversqlite.toml)")
	oversqliteCmd.PersistentFlags().String("source-id", "", "sync device/source id (overrides .oversqlite.toml)")
	oversqliteCmd.PersistentFlags().String("tables", "tables.yaml", "path to the syncable-table declaration document")

	oversqliteCmd.AddCommand(oversqliteBootstrapCmd)
	oversqliteCmd.AddCommand(oversqliteHydrateCmd)
	oversqliteCmd.AddCommand(oversqliteUploadCmd)
	oversqliteCmd.AddCommand(oversqliteDownloadCmd)
	oversqliteCmd.AddCommand(oversqliteSyncCmd)
	oversqliteCmd.AddCommand(oversqliteStatusCmd)
}

// buildEngine assembles an *oversqlite.Engine from CLI flags layered over
// the project config file, following the host's pattern of flags
// overriding viper-backed config defaults.
func buildEngine(cmd *cobra.Command) (*oversqlite.Engine, error) {
	dbPath, _ := cmd.Flags().GetString("db")
	serverURL, _ := cmd.Flags().GetString("server")
	userID, _ := cmd.Flags().GetString("user-id")
	sourceID, _ := cmd.Flags().GetString("source-id")
	tablesPath, _ := cmd.Flags().GetString("tables")

	if serverURL == "" {
		serverURL = config.GetString("server.url")
	}
	if userID == "" {
		userID = config.GetString("user_id")
	}
	if sourceID == "" {
		sourceID = config.GetString("source_id")
	}
	if serverURL == "" {
		return nil, fmt.Errorf("server URL not set: pass --server or run 'bd oversqlite bootstrap'")
	}

	decls, err := config.LoadTableDecls(tablesPath)
	if err != nil {
		return nil, err
	}
	tables := make([]oversqlite.TableSpec, 0, len(decls))
	for _, d := range decls {
		tables = append(tables, oversqlite.TableSpec{Name: d.Name, PKColumn: d.PKColumn, Columns: d.Columns})
	}

	cfg := oversqlite.DefaultEngineConfig(dbPath, userID, sourceID)
	cfg.ServerURL = serverURL
	cfg.Tables = tables
	if v := config.GetInt("upload_limit"); v > 0 {
		cfg.UploadLimit = v
	}
	if v := config.GetInt("download_limit"); v > 0 {
		cfg.DownloadLimit = v
	}
	cfg.IncludeSelf = config.GetBool("include_self")

	switch config.GetServerMode() {
	case config.ServerModeHTTP:
	default:
		return nil, fmt.Errorf("unsupported server mode %q", config.GetServerMode())
	}

	client := oversqlite.NewHTTPClient(serverURL, tokenSource, 30)
	return oversqlite.NewEngine(cfg, oversqlite.ServerWinsResolver{}, client)
}

// tokenSource reads a bearer token from the environment; the engine never
// mints or refreshes credentials itself (§6).
func tokenSource(_ context.Context) (string, error) {
	return os.Getenv("OVERSQLITE_TOKEN"), nil
}

func withTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, 5*time.Minute)
}
