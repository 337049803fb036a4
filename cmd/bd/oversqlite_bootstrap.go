package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/oversqlite/oversqlite/internal/config"
	"github.com/oversqlite/oversqlite/internal/debug"
)

var oversqliteBootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Install sync metadata/triggers and write a starter .oversqlite.toml",
	RunE:  runOversqliteBootstrap,
}

func init() {
	oversqliteBootstrapCmd.Flags().Bool("yes", false, "skip the interactive wizard and use flags/config as-is")
}

// runOversqliteBootstrap collects identity and server details via an
// interactive huh form when flags are absent (first-run UX, §2.1), then
// installs the sync schema/triggers on the target database.
func runOversqliteBootstrap(cmd *cobra.Command, args []string) error {
	serverURL, _ := cmd.Flags().GetString("server")
	userID, _ := cmd.Flags().GetString("user-id")
	sourceID, _ := cmd.Flags().GetString("source-id")
	dbPath, _ := cmd.Flags().GetString("db")
	skipWizard, _ := cmd.Flags().GetBool("yes")

	if !skipWizard && (serverURL == "" || userID == "" || sourceID == "") {
		if err := runBootstrapWizard(&serverURL, &userID, &sourceID); err != nil {
			return fmt.Errorf("bootstrap wizard: %w", err)
		}
	}
	if serverURL == "" {
		return fmt.Errorf("server URL is required")
	}

	if err := config.WriteDefaultProjectFile(".oversqlite.toml", serverURL, userID, sourceID); err != nil {
		debug.Logf("warning: could not write .oversqlite.toml: %v\n", err)
	}

	cmd.Flags().Set("server", serverURL)
	cmd.Flags().Set("user-id", userID)
	cmd.Flags().Set("source-id", sourceID)

	engine, err := buildEngine(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	ctx, cancel := withTimeout(cmd.Context())
	defer cancel()
	if err := engine.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	printBootstrapSummary(dbPath, serverURL, userID, sourceID)
	return nil
}

func runBootstrapWizard(serverURL, userID, sourceID *string) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Server URL").
				Description("Base URL of the oversqlite server").
				Placeholder("https://sync.example.com").
				Value(serverURL).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("server URL is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("User ID").
				Description("Opaque identity shared across this user's devices").
				Value(userID).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("user id is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Source ID").
				Description("Opaque identity for this device (leave blank to generate one)").
				Value(sourceID),
		),
	).WithTheme(huh.ThemeDracula())

	if err := form.Run(); err != nil {
		return err
	}
	if *sourceID == "" {
		*sourceID = newSourceID()
	}
	return nil
}

func printBootstrapSummary(dbPath, serverURL, userID, sourceID string) {
	style := summaryRenderer.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	label := summaryLabel

	fmt.Println(style.Render("oversqlite bootstrap complete"))
	fmt.Printf("%s %s\n", label.Render("database:"), dbPath)
	fmt.Printf("%s %s\n", label.Render("server:  "), serverURL)
	fmt.Printf("%s %s\n", label.Render("user_id: "), userID)
	fmt.Printf("%s %s\n", label.Render("source:  "), sourceID)
}
