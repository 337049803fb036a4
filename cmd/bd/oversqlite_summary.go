package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/oversqlite/oversqlite"
)

// summaryRenderer is pinned to the detected output's actual color profile
// rather than lipgloss's own terminal probing, so piped/CI output (where
// termenv reports Ascii) degrades to plain text instead of raw escape codes.
var summaryRenderer = newSummaryRenderer()

func newSummaryRenderer() *lipgloss.Renderer {
	r := lipgloss.NewRenderer(os.Stdout)
	r.SetColorProfile(termenv.EnvColorProfile())
	return r
}

var summaryLabel = summaryRenderer.NewStyle().Foreground(lipgloss.Color("245"))

func printUploadSummary(s oversqlite.UploadSummary) {
	fmt.Printf("%s total=%d applied=%d conflict=%d invalid=%d materialize_error=%d\n",
		summaryLabel.Render("upload:"), s.Total, s.Applied, s.Conflict, s.Invalid, s.MaterializeError)
	if s.FirstErrorMessage != "" {
		fmt.Printf("first error: %s\n", s.FirstErrorMessage)
	}
}

func printHydrateSummary(s oversqlite.HydrateSummary) {
	fmt.Printf("%s watermark=%d\n", summaryLabel.Render("hydrate:"), s.Watermark)
	for table, count := range s.TablesRows {
		fmt.Printf("  %s: %d rows\n", table, count)
	}
}
