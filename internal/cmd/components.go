package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/stackgen/internal/generate"
	"github.com/cameronsjo/stackgen/internal/ui"
)

var componentsCmd = &cobra.Command{
	Use:   "components",
	Short: "List the components and their templates",
	Long: `List the built-in components with their generation mode, the settings a
registry entry has to provide and whether their templates exist under the
components directory.`,
	Args: cobra.NoArgs,
	RunE: runComponents,
}

func init() {
	rootCmd.AddCommand(componentsCmd)
}

func runComponents(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	ui.Header("Components (%s)", cfg.ComponentsDir)
	for _, c := range generate.Components() {
		fmt.Fprintf(out, "  %-12s %s\n", c.Name, c.Mode)

		if required := c.Required(); len(required) > 0 {
			fmt.Fprintf(out, "    requires: %s\n", strings.Join(required, ", "))
		}

		for _, tmpl := range c.Templates() {
			path := filepath.Join(cfg.ComponentsDir, filepath.FromSlash(tmpl))
			if _, err := os.Stat(path); err != nil {
				ui.Red.Fprintf(out, "    missing:  %s\n", tmpl)
				continue
			}
			fmt.Fprintf(out, "    template: %s\n", tmpl)
		}
	}
	return nil
}
