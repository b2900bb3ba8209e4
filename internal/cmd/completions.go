package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/stackgen/internal/config"
	"github.com/cameronsjo/stackgen/internal/generate"
	"github.com/cameronsjo/stackgen/internal/snapshot"
)

// completeComponentNames completes the single component argument.
func completeComponentNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var names []string
	for _, name := range generate.Names() {
		if strings.HasPrefix(name, toComplete) {
			names = append(names, name)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// completeSnapshotNames completes snapshot names for rollback.
func completeSnapshotNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	// setup ran before the completed command's flags were parsed.
	c, err := config.Load(config.Flags{
		Configs:    configsFlag,
		OutputDir:  outputFlag,
		Components: componentsFlag,
		EnvFile:    envFileFlag,
	})
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	snapshots, err := snapshot.New(c.StateDir(), c.OutputDir).List()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var names []string
	for _, snap := range snapshots {
		if strings.HasPrefix(snap.Name, toComplete) {
			names = append(names, snap.Name)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
