// Package cmd provides the CLI commands for stackgen.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/stackgen/internal/config"
	"github.com/cameronsjo/stackgen/internal/generate"
	"github.com/cameronsjo/stackgen/internal/logging"
	"github.com/cameronsjo/stackgen/internal/ui"
)

const version = "0.1.0"

const usageLine = "usage: stackgen [component]"

// Persistent flags shared by every command.
var (
	configsFlag    string
	outputFlag     string
	componentsFlag string
	envFileFlag    string
	logLevelFlag   string
	valuesFlag     string
)

// Generation flags.
var (
	dryRunFlag   bool
	diffFlag     bool
	snapshotFlag bool
)

// cfg is resolved before any command runs.
var cfg *config.Config

// usageError reports a bad command line. Execute prints it to stderr
// as is.
type usageError struct {
	reason string
}

func (e *usageError) Error() string {
	return fmt.Sprintf("%s\n%s\nknown components: %s", usageLine, e.reason, strings.Join(generate.Names(), ", "))
}

// rootCmd generates manifests when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "stackgen [component]",
	Short: "Generate Kubernetes manifests from a stack registry",
	Long: `stackgen - Kubernetes manifests for monitoring and logging stacks

Reads the per-environment stack registry under configs/ and writes the
manifests of every enabled component to <output>/<stack>/<component>/.

COMPONENTS
  grafana               Built from scratch, NodePort service, Application
  prometheus            Built from scratch, Application
  kibana                Patched from components/kibana/
  logstash              Patched from components/logstash/

GENERATION
  stackgen              Generate every component
  stackgen <component>  Generate only that component
    --dry-run, -n       Print the manifests instead of writing them
    --diff, -d          Show a diff against the existing output
    --values, -f <file> Merge a values overlay into every environment
    --snapshot          Snapshot the output tree before writing

MAINTENANCE
  components            List the components and their templates
  doctor                Check that the project is ready to generate
  lint                  Check the registry and templates without writing
  snapshots             List output snapshots
  rollback <snapshot>   Restore the output tree from a snapshot`,
	Version:           version,
	Args:              validateComponentArgs,
	ValidArgsFunction: completeComponentNames,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runGenerate,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	var usage *usageError
	if errors.As(err, &usage) {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}
	ui.Fatal("%v", err)
}

func validateComponentArgs(cmd *cobra.Command, args []string) error {
	switch {
	case len(args) > 1:
		return &usageError{reason: fmt.Sprintf("expected at most one component, got %d arguments", len(args))}
	case len(args) == 1:
		if _, ok := generate.Lookup(args[0]); !ok {
			return &usageError{reason: fmt.Sprintf("unknown component %q", args[0])}
		}
	}
	return nil
}

func setup(cmd *cobra.Command, args []string) error {
	ui.SetOutput(cmd.OutOrStdout())

	loaded, err := config.Load(config.Flags{
		Configs:    configsFlag,
		OutputDir:  outputFlag,
		Components: componentsFlag,
		LogLevel:   logLevelFlag,
		EnvFile:    envFileFlag,
	})
	if err != nil {
		return err
	}
	if err := logging.Setup(cmd.ErrOrStderr(), loaded.LogLevel); err != nil {
		return err
	}

	cfg = loaded
	return nil
}

// options builds the generation options shared by generate and lint.
func options(components []generate.Component) generate.Options {
	return generate.Options{
		Configs:        cfg.Configs,
		Values:         valuesFlag,
		ComponentsRoot: cfg.ComponentsDir,
		OutputRoot:     cfg.OutputDir,
		SourceBase:     cfg.SourceBase(),
		StateDir:       cfg.StateDir(),
		Components:     components,
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if dryRunFlag && diffFlag {
		return &usageError{reason: "--dry-run and --diff cannot be combined"}
	}

	var components []generate.Component
	if len(args) == 1 {
		c, _ := generate.Lookup(args[0])
		components = []generate.Component{c}
	}

	opts := options(components)
	opts.Snapshot = snapshotFlag

	var diff *generate.DiffSink
	switch {
	case dryRunFlag:
		opts.Sink = &generate.PrintSink{W: cmd.OutOrStdout()}
		opts.DryRun = true
	case diffFlag:
		diff = generate.NewDiffSink(cmd.OutOrStdout())
		opts.Sink = diff
		opts.DryRun = true
	}

	summary, err := generate.Run(opts)
	if err != nil {
		return err
	}

	// Keep printed manifests parseable; warnings were logged to stderr.
	if dryRunFlag {
		return nil
	}

	for _, w := range summary.Warnings {
		ui.Warning("%s", w)
	}

	if diff != nil {
		if n := len(diff.Changed()); n > 0 {
			ui.Info("%d file(s) would change", n)
		} else {
			ui.Success("No changes")
		}
		return nil
	}

	if summary.Snapshot != "" {
		ui.Info("Snapshot: %s", summary.Snapshot)
	}
	ui.Success("Generated %d component(s) for %d stack(s) in %d environment(s)",
		summary.Generated, summary.Stacks, summary.Environments)
	if summary.Skipped > 0 {
		ui.Info("%d component(s) not enabled", summary.Skipped)
	}
	return nil
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configsFlag, "configs", "", "Registry directory, file or glob (env CONFIGS)")
	pf.StringVar(&outputFlag, "output", "", "Output root (env OUTPUT_DIR)")
	pf.StringVar(&componentsFlag, "components", "", "Component template root (env COMPONENTS)")
	pf.StringVar(&envFileFlag, "env-file", "", "Environment file to load instead of .env")
	pf.StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error (env STACKGEN_LOG_LEVEL)")
	pf.StringVarP(&valuesFlag, "values", "f", "", "Values overlay merged into every environment")

	rootCmd.Flags().BoolVarP(&dryRunFlag, "dry-run", "n", false, "Print manifests instead of writing them")
	rootCmd.Flags().BoolVarP(&diffFlag, "diff", "d", false, "Show a diff against the existing output")
	rootCmd.Flags().BoolVar(&snapshotFlag, "snapshot", false, "Snapshot the output tree before writing")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{reason: err.Error()}
	})

	rootCmd.SetVersionTemplate("stackgen version {{.Version}}\n")
}
