package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/stackgen/internal/generate"
	"github.com/cameronsjo/stackgen/internal/lock"
	"github.com/cameronsjo/stackgen/internal/snapshot"
	"github.com/cameronsjo/stackgen/internal/ui"
)

// maxListedSnapshots caps the snapshots command output.
const maxListedSnapshots = 10

var snapshotsAll bool

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List output snapshots",
	Long: `List the snapshots of the output tree, newest first. Snapshots are taken
by 'stackgen --snapshot' and before every rollback.`,
	Args: cobra.NoArgs,
	RunE: runSnapshots,
}

var rollbackCmd = &cobra.Command{
	Use:               "rollback <snapshot>",
	Short:             "Restore the output tree from a snapshot",
	Long:              `Replace the output tree with a snapshot. The current tree is saved as a pre-rollback snapshot first.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeSnapshotNames,
	RunE:              runRollback,
}

func init() {
	snapshotsCmd.Flags().BoolVarP(&snapshotsAll, "all", "a", false, "List every snapshot")

	rootCmd.AddCommand(snapshotsCmd)
	rootCmd.AddCommand(rollbackCmd)
}

func snapshotStore() *snapshot.Store {
	return snapshot.New(cfg.StateDir(), cfg.OutputDir)
}

func runSnapshots(cmd *cobra.Command, args []string) error {
	snapshots, err := snapshotStore().List()
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}

	if len(snapshots) == 0 {
		ui.Info("No snapshots in %s", snapshotStore().Dir())
		return nil
	}

	out := cmd.OutOrStdout()
	ui.Header("Snapshots")
	for i, snap := range snapshots {
		if i == maxListedSnapshots && !snapshotsAll {
			fmt.Fprintf(out, "  ... %d more (use --all)\n", len(snapshots)-maxListedSnapshots)
			break
		}
		fmt.Fprintf(out, "  %s  %s  %d file(s)\n",
			snap.Name, snap.Created.Format("2006-01-02 15:04:05"), snap.FileCount)
	}
	return nil
}

func runRollback(cmd *cobra.Command, args []string) error {
	name := args[0]
	store := snapshotStore()

	// Rollback and generation both rewrite the output tree.
	err := lock.WithLock(cfg.StateDir(), generate.LockOperation, func() error {
		return store.Restore(name)
	})
	if err != nil {
		return fmt.Errorf("rollback to %s: %w", name, err)
	}

	files, err := store.Files()
	if err != nil {
		return err
	}
	ui.Success("Restored %s (%d file(s))", name, len(files))
	return nil
}
