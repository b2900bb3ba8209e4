package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/cameronsjo/stackgen/internal/ui"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// resetFlags restores every flag of c and its subcommands to its default.
// Cobra keeps flag values in package state between executions.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// executeCmd runs the root command with args and returns everything it
// printed.
func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	cfg = nil

	buf := new(bytes.Buffer)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	t.Cleanup(func() { ui.SetOutput(nil) })

	err := rootCmd.Execute()
	return buf.String(), err
}

// project is an output location for the fixture registry and templates.
type project struct {
	configs    string
	components string
	output     string
	stateDir   string
}

func newProject(t *testing.T) project {
	t.Helper()
	dir := t.TempDir()
	return project{
		configs:    filepath.Join("testdata", "configs"),
		components: filepath.Join("testdata", "components"),
		output:     filepath.Join(dir, "manifests"),
		stateDir:   filepath.Join(dir, ".stackgen"),
	}
}

// run executes a command against the project.
func (p project) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeCmd(t, append([]string{
		"--configs", p.configs,
		"--components", p.components,
		"--output", p.output,
	}, args...)...)
}

func (p project) read(t *testing.T, rel string) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(p.output, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(content)
}
