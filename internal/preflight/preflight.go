// Package preflight checks that a project is ready for a generation run.
package preflight

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/cameronsjo/stackgen/internal/lock"
	"github.com/cameronsjo/stackgen/internal/registry"
)

// BinaryCheck represents a tool used alongside the generated manifests.
type BinaryCheck struct {
	Name        string
	InstallHint string
}

// optionalBinaries apply or sync the output. Generation works without them.
var optionalBinaries = []BinaryCheck{
	{
		Name:        "kubectl",
		InstallHint: "Install kubectl: https://kubernetes.io/docs/tasks/tools/",
	},
	{
		Name:        "argocd",
		InstallHint: "Install the Argo CD CLI: https://argo-cd.readthedocs.io/en/stable/cli_installation/",
	},
}

// Project locates the inputs and outputs of a run.
type Project struct {
	Configs       string
	ComponentsDir string
	OutputDir     string
	StateDir      string

	// LockOperation is the lock a generation run holds.
	LockOperation string
}

// CheckOptionalBinaries returns the optional binaries missing from PATH.
func CheckOptionalBinaries() []BinaryCheck {
	var missing []BinaryCheck
	for _, bin := range optionalBinaries {
		if !IsBinaryAvailable(bin.Name) {
			missing = append(missing, bin)
		}
	}
	return missing
}

// IsBinaryAvailable checks if a specific binary is available in PATH.
func IsBinaryAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// CheckProject validates the project layout. Errors block a run; warnings
// do not.
func CheckProject(p Project) (warnings []string, errs []string) {
	reg, err := registry.Load(p.Configs)
	if err != nil {
		errs = append(errs, fmt.Sprintf("registry: %v", err))
	} else {
		for _, env := range reg.Environments() {
			if _, err := env.Stacks(); err != nil {
				errs = append(errs, fmt.Sprintf("registry: %v", err))
			}
		}
	}

	if info, err := os.Stat(p.ComponentsDir); err != nil || !info.IsDir() {
		errs = append(errs, fmt.Sprintf("components: %s is not a directory", p.ComponentsDir))
	}

	if info, err := os.Stat(p.OutputDir); err == nil && !info.IsDir() {
		errs = append(errs, fmt.Sprintf("output: %s is not a directory", p.OutputDir))
	}

	if w := checkLock(p); w != "" {
		warnings = append(warnings, w)
	}

	for _, bin := range CheckOptionalBinaries() {
		warnings = append(warnings, bin.Name+": "+bin.InstallHint)
	}

	return warnings, errs
}

// checkLock reports a run in progress. A missing lock directory means no
// run has ever taken the lock, and nothing is created to find out.
func checkLock(p Project) string {
	if p.LockOperation == "" {
		return ""
	}
	l := lock.New(p.StateDir, p.LockOperation)
	if _, err := os.Stat(filepath.Dir(l.Path())); err != nil {
		return ""
	}

	err := l.Acquire()
	if errors.Is(err, lock.ErrLocked) {
		return fmt.Sprintf("lock: a %s run is in progress (%s)", p.LockOperation, l.Path())
	}
	if err != nil {
		return fmt.Sprintf("lock: %v", err)
	}
	l.Release()
	return ""
}
