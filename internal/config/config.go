// Package config resolves the directories a stackgen run works with.
//
// Every path comes from, in order of precedence, a command line flag, an
// environment variable, a .env file, or the project layout found by
// searching upward for a directory holding both configs/ and components/.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Default directory names inside a project root.
const (
	ConfigsDirName    = "configs"
	ComponentsDirName = "components"
	OutputDirName     = "manifests"
	StateDirName      = ".stackgen"
	EnvFileName       = ".env"
)

// ErrRootNotFound indicates no project root above the working directory.
var ErrRootNotFound = errors.New("project root not found (no directory with configs/ and components/)")

// EnvVars are the settings read from the environment.
type EnvVars struct {
	// Configs is the registry location from CONFIGS.
	Configs string `env:"CONFIGS"`
	// OutputDir is the manifest output root from OUTPUT_DIR.
	OutputDir string `env:"OUTPUT_DIR"`
	// Components is the template root from COMPONENTS.
	Components string `env:"COMPONENTS"`
	// LogLevel is the diagnostic log level from STACKGEN_LOG_LEVEL.
	LogLevel string `env:"STACKGEN_LOG_LEVEL"`
}

// Flags carries command line overrides. Empty fields are unset.
type Flags struct {
	Configs    string
	OutputDir  string
	Components string
	LogLevel   string
	EnvFile    string
}

// Config holds the resolved settings of a run.
type Config struct {
	// Root is the project root, or empty when none was found.
	Root string

	// Configs is the registry directory, file or glob.
	Configs string

	// OutputDir receives <stack>/<component>/ manifests.
	OutputDir string

	// ComponentsDir holds the component templates.
	ComponentsDir string

	LogLevel string
}

// FindRoot searches upward from the working directory for the project root.
func FindRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return FindRootFrom(dir)
}

// FindRootFrom searches upward from dir for a directory containing both
// configs/ and components/.
func FindRootFrom(dir string) (string, error) {
	for {
		if isDir(filepath.Join(dir, ConfigsDirName)) && isDir(filepath.Join(dir, ComponentsDirName)) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrRootNotFound
		}
		dir = parent
	}
}

// Load resolves the configuration for the current process.
func Load(flags Flags) (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	return load(wd, flags, environ())
}

func load(wd string, flags Flags, osEnv map[string]string) (*Config, error) {
	root, err := FindRootFrom(wd)
	if err != nil && !errors.Is(err, ErrRootNotFound) {
		return nil, err
	}
	base := root
	if base == "" {
		base = wd
	}

	vars, err := readEnvFile(base, flags.EnvFile)
	if err != nil {
		return nil, err
	}
	// Real environment variables win over the .env file.
	for k, v := range osEnv {
		vars[k] = v
	}

	var ev EnvVars
	if err := env.ParseWithOptions(&ev, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	return &Config{
		Root:          root,
		Configs:       absFrom(wd, first(flags.Configs, ev.Configs, filepath.Join(base, ConfigsDirName))),
		OutputDir:     absFrom(wd, first(flags.OutputDir, ev.OutputDir, filepath.Join(base, OutputDirName))),
		ComponentsDir: absFrom(wd, first(flags.Components, ev.Components, filepath.Join(base, ComponentsDirName))),
		LogLevel:      first(flags.LogLevel, ev.LogLevel, "info"),
	}, nil
}

// readEnvFile loads path, or base/.env when path is empty. Only an
// explicitly named file has to exist.
func readEnvFile(base, path string) (map[string]string, error) {
	explicit := path != ""
	if !explicit {
		path = filepath.Join(base, EnvFileName)
	}

	vars, err := godotenv.Read(path)
	if err == nil {
		return vars, nil
	}
	if !explicit && errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	return nil, fmt.Errorf("load env file %s: %w", path, err)
}

// StateDir holds locks and snapshots, next to the output directory.
func (c *Config) StateDir() string {
	return filepath.Join(filepath.Dir(filepath.Clean(c.OutputDir)), StateDirName)
}

// SourceBase is the directory Application source paths are relative to:
// the project root when there is one.
func (c *Config) SourceBase() string {
	return c.Root
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// absFrom resolves a relative path against dir.
func absFrom(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func environ() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			out[k] = v
		}
	}
	return out
}
