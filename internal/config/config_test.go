package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// evalSymlinks resolves symlinks for path comparison (macOS /var -> /private/var).
func evalSymlinks(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return path
	}
	return resolved
}

// newProject creates a project root with configs/ and components/ and a
// nested working directory below it.
func newProject(t *testing.T) (root, sub string) {
	t.Helper()
	root = evalSymlinks(t, t.TempDir())
	require.NoError(t, os.MkdirAll(filepath.Join(root, ConfigsDirName), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ComponentsDirName), 0755))
	sub = filepath.Join(root, "sub", "deep")
	require.NoError(t, os.MkdirAll(sub, 0755))
	return root, sub
}

func TestFindRootFrom(t *testing.T) {
	root, sub := newProject(t)

	got, err := FindRootFrom(sub)
	require.NoError(t, err)
	assert.Equal(t, root, got)

	got, err = FindRootFrom(root)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestFindRootFrom_NeedsBothDirectories(t *testing.T) {
	dir := evalSymlinks(t, t.TempDir())
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ConfigsDirName), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ComponentsDirName), []byte("not a dir"), 0644))

	_, err := FindRootFrom(dir)
	assert.ErrorIs(t, err, ErrRootNotFound)
}

func TestFindRoot_FromWorkingDirectory(t *testing.T) {
	root, sub := newProject(t)

	originalWd, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(originalWd)
	require.NoError(t, os.Chdir(sub))

	got, err := FindRoot()
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestLoad_ProjectDefaults(t *testing.T) {
	root, sub := newProject(t)

	cfg, err := load(sub, Flags{}, nil)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Root)
	assert.Equal(t, filepath.Join(root, "configs"), cfg.Configs)
	assert.Equal(t, filepath.Join(root, "manifests"), cfg.OutputDir)
	assert.Equal(t, filepath.Join(root, "components"), cfg.ComponentsDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, filepath.Join(root, ".stackgen"), cfg.StateDir())
	assert.Equal(t, root, cfg.SourceBase())
}

func TestLoad_WithoutProjectRoot(t *testing.T) {
	wd := evalSymlinks(t, t.TempDir())

	cfg, err := load(wd, Flags{}, nil)
	require.NoError(t, err)

	assert.Empty(t, cfg.Root)
	assert.Equal(t, filepath.Join(wd, "configs"), cfg.Configs)
	assert.Equal(t, filepath.Join(wd, "manifests"), cfg.OutputDir)
}

func TestLoad_Precedence(t *testing.T) {
	root, _ := newProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte(
		"CONFIGS=from-dotenv\nOUTPUT_DIR=/dotenv/out\nCOMPONENTS=/dotenv/components\nSTACKGEN_LOG_LEVEL=warn\n",
	), 0644))

	t.Run(".env beats defaults", func(t *testing.T) {
		cfg, err := load(root, Flags{}, nil)
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(root, "from-dotenv"), cfg.Configs, "relative values resolve against the working directory")
		assert.Equal(t, "/dotenv/out", cfg.OutputDir)
		assert.Equal(t, "/dotenv/components", cfg.ComponentsDir)
		assert.Equal(t, "warn", cfg.LogLevel)
		assert.Equal(t, "/dotenv/.stackgen", cfg.StateDir())
	})

	t.Run("environment beats .env", func(t *testing.T) {
		cfg, err := load(root, Flags{}, map[string]string{
			"OUTPUT_DIR":         "/env/out",
			"STACKGEN_LOG_LEVEL": "debug",
		})
		require.NoError(t, err)

		assert.Equal(t, "/env/out", cfg.OutputDir)
		assert.Equal(t, "/dotenv/components", cfg.ComponentsDir)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("flags beat everything", func(t *testing.T) {
		cfg, err := load(root, Flags{
			OutputDir: "/flag/out",
			LogLevel:  "error",
		}, map[string]string{"OUTPUT_DIR": "/env/out"})
		require.NoError(t, err)

		assert.Equal(t, "/flag/out", cfg.OutputDir)
		assert.Equal(t, "error", cfg.LogLevel)
	})
}

func TestLoad_EnvFile(t *testing.T) {
	root, _ := newProject(t)

	t.Run("explicit file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ci.env")
		require.NoError(t, os.WriteFile(path, []byte("CONFIGS=/ci/configs/*.yaml\n"), 0644))

		cfg, err := load(root, Flags{EnvFile: path}, nil)
		require.NoError(t, err)
		assert.Equal(t, "/ci/configs/*.yaml", cfg.Configs)
	})

	t.Run("explicit missing file is an error", func(t *testing.T) {
		_, err := load(root, Flags{EnvFile: filepath.Join(root, "missing.env")}, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("default file is optional", func(t *testing.T) {
		_, err := load(root, Flags{}, nil)
		require.NoError(t, err)
	})
}

func TestFirst(t *testing.T) {
	assert.Equal(t, "b", first("", "b", "c"))
	assert.Equal(t, "", first("", ""))
}
