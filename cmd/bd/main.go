// Command bd is a thin demonstration consumer of the oversqlite library.
// It is not part of the library's contract (§6): every behaviour here is
// reproducible by an application embedding *oversqlite.Engine directly.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oversqlite/oversqlite/internal/config"
	"github.com/oversqlite/oversqlite/internal/debug"
)

var rootCmd = &cobra.Command{
	Use:   "bd",
	Short: "oversqlite demonstration CLI",
	Long:  `bd drives the oversqlite client-side row-sync engine against a local SQLite database.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return err
		}
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			debug.SetVerbose(true)
		}
		if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
			debug.SetQuiet(true)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("verbose", false, "enable verbose debug output")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("trace", false, "export oversqlite spans to stderr")
	rootCmd.AddCommand(oversqliteCmd)
}

func main() {
	if hasTraceFlag() {
		shutdown, err := setupTracing()
		if err != nil {
			fmt.Fprintln(os.Stderr, "tracing disabled:", err)
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// hasTraceFlag scans raw args for --trace before cobra parses flags, since
// rootCmd's own flag value isn't populated until Execute runs.
func hasTraceFlag() bool {
	for _, a := range os.Args[1:] {
		if a == "--trace" {
			return true
		}
	}
	return false
}
