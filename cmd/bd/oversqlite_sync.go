package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var oversqliteHydrateCmd = &cobra.Command{
	Use:   "hydrate",
	Short: "Cold-start import of server state (§4.6)",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		includeSelf, _ := cmd.Flags().GetBool("include-self")

		engine, err := buildEngine(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = engine.Close() }()

		ctx, cancel := withTimeout(cmd.Context())
		defer cancel()

		summary, err := engine.Hydrate(ctx, includeSelf, limit, true)
		if err != nil {
			return fmt.Errorf("hydrate: %w", err)
		}
		printHydrateSummary(summary)
		return nil
	},
}

var oversqliteUploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload one batch of pending local changes (§4.2)",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := buildEngine(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = engine.Close() }()

		ctx, cancel := withTimeout(cmd.Context())
		defer cancel()

		summary, err := engine.UploadOnce(ctx)
		if err != nil {
			return fmt.Errorf("upload: %w", err)
		}
		printUploadSummary(summary)
		return nil
	},
}

var oversqliteDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download one page of server changes (§4.3)",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		includeSelf, _ := cmd.Flags().GetBool("include-self")

		engine, err := buildEngine(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = engine.Close() }()

		ctx, cancel := withTimeout(cmd.Context())
		defer cancel()

		applied, cursor, err := engine.DownloadOnce(ctx, limit, includeSelf)
		if err != nil {
			return fmt.Errorf("download: %w", err)
		}
		fmt.Printf("applied=%d cursor=%d\n", applied, cursor)
		return nil
	},
}

var oversqliteSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload pending changes, then drain all download pages (§4.7)",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := buildEngine(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = engine.Close() }()

		ctx, cancel := withTimeout(cmd.Context())
		defer cancel()

		summary, downloaded, err := engine.SyncOnce(ctx)
		if err != nil {
			return fmt.Errorf("sync: %w", err)
		}
		printUploadSummary(summary)
		fmt.Printf("downloaded=%d\n", downloaded)
		return nil
	},
}

var oversqliteStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local sync state without contacting the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, _ := cmd.Flags().GetString("db")
		engine, err := buildEngine(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = engine.Close() }()

		status, err := engine.Status(cmd.Context())
		if err != nil {
			return fmt.Errorf("status: %w", err)
		}

		style := summaryRenderer.NewStyle().Bold(true)
		fmt.Println(style.Render("oversqlite status"))
		fmt.Printf("database:   %s\n", dbPath)
		fmt.Printf("source_id:  %s\n", status.SourceID)
		fmt.Printf("cursor:     %d\n", status.LastServerSeqSeen)
		fmt.Printf("pending:    %d\n", status.PendingCount)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{oversqliteHydrateCmd, oversqliteDownloadCmd} {
		c.Flags().Int("limit", 200, "page size")
		c.Flags().Bool("include-self", false, "include changes authored by this device")
	}
}

