package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/stackgen/internal/generate"
	"github.com/cameronsjo/stackgen/internal/ui"
)

var lintCmd = &cobra.Command{
	Use:   "lint [component]",
	Short: "Check the registry and templates without writing",
	Long: `Run every enabled component against the registry without writing any
output. Reports missing or mistyped settings, templates that fail to render
and templates that declare the wrong kind. Exits non-zero when anything is
found.`,
	Args:              validateComponentArgs,
	ValidArgsFunction: completeComponentNames,
	RunE:              runLint,
}

func init() {
	rootCmd.AddCommand(lintCmd)
}

func runLint(cmd *cobra.Command, args []string) error {
	var components []generate.Component
	if len(args) == 1 {
		c, _ := generate.Lookup(args[0])
		components = []generate.Component{c}
	}
	opts := options(components)

	reg, err := generate.LoadRegistry(opts.Configs, opts.Values)
	if err != nil {
		return err
	}

	problems, err := generate.Lint(reg, opts)
	if err != nil {
		return err
	}

	if len(problems) == 0 {
		ui.Success("No problems found")
		return nil
	}

	for _, p := range problems {
		ui.Error("%s", p)
	}
	return fmt.Errorf("lint found %d problem(s)", len(problems))
}
