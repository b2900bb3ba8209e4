package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/stackgen/internal/ui"
	"github.com/cameronsjo/stackgen/internal/update"
)

const (
	updateTimeout     = 2 * time.Minute
	maxChangelogLines = 10
)

var updateCheckOnly bool

var updateCmd = &cobra.Command{
	Use:     "update",
	Aliases: []string{"upgrade"},
	Short:   "Update stackgen to the latest release",
	Long: `Update stackgen to the latest version from GitHub releases.

Examples:
  stackgen update           # Update to latest version
  stackgen update --check   # Check for updates without installing`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().BoolVar(&updateCheckOnly, "check", false, "Only check for updates, don't install")
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), updateTimeout)
	defer cancel()

	ui.Info("Current version: %s (%s)", version, update.GetPlatformInfo())

	if updateCheckOnly {
		release, available, err := update.CheckForUpdate(ctx, version)
		if err != nil {
			return fmt.Errorf("check for updates: %w", err)
		}
		if !available {
			ui.Success("You're running the latest version")
			return nil
		}
		ui.Success("New version available: %s (released %s)", release.Version, release.PublishedAt)
		ui.Info("To update, run: stackgen update")
		printChangelog(cmd.OutOrStdout(), release.Changelog)
		return nil
	}

	release, err := update.Update(ctx, version)
	if err != nil {
		return err
	}
	if release == nil {
		ui.Success("You're already running the latest version")
		return nil
	}

	ui.Success("Updated to version %s", release.Version)
	printChangelog(cmd.OutOrStdout(), release.Changelog)
	return nil
}

// printChangelog prints the head of a release's notes.
func printChangelog(w io.Writer, changelog string) {
	if changelog == "" {
		return
	}

	ui.Yellow.Fprintln(w, "What's new:")
	lines := strings.Split(strings.TrimRight(changelog, "\n"), "\n")
	for i, line := range lines {
		if i == maxChangelogLines {
			fmt.Fprintf(w, "  ... (%d more lines)\n", len(lines)-maxChangelogLines)
			break
		}
		fmt.Fprintf(w, "  %s\n", line)
	}
}
