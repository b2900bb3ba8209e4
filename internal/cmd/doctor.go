package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/stackgen/internal/generate"
	"github.com/cameronsjo/stackgen/internal/preflight"
	"github.com/cameronsjo/stackgen/internal/ui"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the project is ready to generate",
	Long: `Check the registry, the component directory, the output location and
whether another run holds the lock. Missing optional tools are reported as
warnings.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ui.Header("Project")
	ui.Step(1, "configs:    %s", cfg.Configs)
	ui.Step(2, "components: %s", cfg.ComponentsDir)
	ui.Step(3, "output:     %s", cfg.OutputDir)

	warnings, errs := preflight.CheckProject(preflight.Project{
		Configs:       cfg.Configs,
		ComponentsDir: cfg.ComponentsDir,
		OutputDir:     cfg.OutputDir,
		StateDir:      cfg.StateDir(),
		LockOperation: generate.LockOperation,
	})

	for _, w := range warnings {
		ui.Warning("%s", w)
	}
	for _, e := range errs {
		ui.Error("%s", e)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%d check(s) failed", len(errs))
	}
	ui.Success("Ready to generate")
	return nil
}
