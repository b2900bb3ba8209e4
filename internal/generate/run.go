package generate

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/cameronsjo/stackgen/internal/lock"
	"github.com/cameronsjo/stackgen/internal/registry"
	"github.com/cameronsjo/stackgen/internal/snapshot"
)

// LockOperation names the lock held while writing the output tree.
const LockOperation = "generate"

// Options configures a generation run.
type Options struct {
	// Configs is the registry directory, file or glob.
	Configs string

	// Values is an optional overlay merged into every environment.
	Values string

	ComponentsRoot string
	OutputRoot     string

	// SourceBase makes Application source paths relative when set.
	SourceBase string

	// StateDir holds locks and snapshots. Defaults to .stackgen next to
	// OutputRoot.
	StateDir string

	// Components to run, in order. Nil means every built-in component.
	Components []Component

	// Sink defaults to DirSink.
	Sink Sink

	// DryRun marks a Sink that leaves the output tree alone. No lock is
	// taken and no snapshot is made.
	DryRun bool

	// Snapshot copies the existing output tree before writing.
	Snapshot bool
}

// Summary reports what a run did.
type Summary struct {
	Environments int
	Stacks       int
	Generated    int
	Skipped      int

	// Snapshot is the name of the snapshot taken before writing, if any.
	Snapshot string

	// Warnings are non-fatal problems such as a stack declared by more
	// than one environment.
	Warnings []string
}

// Run loads the registry, applies the values overlay and generates every
// enabled component.
func Run(opts Options) (*Summary, error) {
	reg, err := LoadRegistry(opts.Configs, opts.Values)
	if err != nil {
		return nil, err
	}
	return Generate(reg, opts)
}

// LoadRegistry loads the registry at configs and merges the optional values
// overlay into every environment.
func LoadRegistry(configs, values string) (*registry.Registry, error) {
	reg, err := registry.Load(configs)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}

	if values != "" {
		overlay, err := registry.LoadOverlay(values)
		if err != nil {
			return nil, err
		}
		if err := reg.ApplyOverlay(overlay); err != nil {
			return nil, fmt.Errorf("apply values: %w", err)
		}
	}

	return reg, nil
}

// Generate runs the selected components for every environment and stack of
// reg. Environments and stacks go in name order, components in the order
// given. The first error stops the run; output written so far stays.
func Generate(reg *registry.Registry, opts Options) (*Summary, error) {
	sink := opts.Sink
	if sink == nil {
		sink = DirSink{}
	}
	components := opts.Components
	if components == nil {
		components = Components()
	}
	stateDir := opts.StateDir
	if stateDir == "" {
		stateDir = filepath.Join(filepath.Dir(opts.OutputRoot), ".stackgen")
	}

	summary := &Summary{}

	if !opts.DryRun {
		l := lock.New(stateDir, LockOperation)
		if err := l.Acquire(); err != nil {
			return nil, err
		}
		defer l.Release()

		if opts.Snapshot {
			name, err := snapshot.New(stateDir, opts.OutputRoot).Create()
			if err != nil {
				return nil, fmt.Errorf("snapshot output: %w", err)
			}
			summary.Snapshot = name
		}
	}

	// The output layout has no environment level, so a stack declared
	// twice is written twice and the later environment wins.
	generatedBy := make(map[string]string)

	for _, env := range reg.Environments() {
		stacks, err := env.Stacks()
		if err != nil {
			return summary, err
		}
		summary.Environments++

		for _, stack := range stacks {
			if prev, ok := generatedBy[stack]; ok {
				msg := fmt.Sprintf("stack %s is declared by environments %s and %s; %s overwrites the output of %s",
					stack, prev, env.Name, env.Name, prev)
				slog.Warn("stack declared by more than one environment", "stack", stack, "previous", prev, "environment", env.Name)
				summary.Warnings = append(summary.Warnings, msg)
			}
			generatedBy[stack] = env.Name
			summary.Stacks++

			for _, c := range components {
				if !env.Enabled(stack, c.Name) {
					slog.Debug("component not enabled", "component", c.Name, "stack", stack, "environment", env.Name)
					summary.Skipped++
					continue
				}

				err := c.Generate(Request{
					ComponentsRoot: opts.ComponentsRoot,
					OutputRoot:     opts.OutputRoot,
					SourceBase:     opts.SourceBase,
					Registry:       env.Config,
					Environment:    env.Name,
					Stack:          stack,
					Sink:           sink,
				})
				if err != nil {
					return summary, fmt.Errorf("environment %s: %w", env.Name, err)
				}
				summary.Generated++
			}
		}
	}

	return summary, nil
}
