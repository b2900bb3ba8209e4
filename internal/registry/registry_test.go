package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cameronsjo/stackgen/internal/datapath"
)

func envNames(r *Registry) []string {
	var names []string
	for _, env := range r.Environments() {
		names = append(names, env.Name)
	}
	return names
}

func TestLoad_Directory(t *testing.T) {
	r, err := Load(filepath.Join("testdata", "envs"))
	require.NoError(t, err)

	assert.Equal(t, []string{"development", "production"}, envNames(r))

	dev, ok := r.Environment("development")
	require.True(t, ok)
	assert.Equal(t, filepath.Join("testdata", "envs", "development.yaml"), dev.Source)

	stacks, err := dev.Stacks()
	require.NoError(t, err)
	assert.Equal(t, []string{"metrics", "observability", "placeholder"}, stacks)
}

func TestLoad_SingleFileWithStacks(t *testing.T) {
	r, err := Load(filepath.Join("testdata", "envs", "production.yml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"production"}, envNames(r))
}

func TestLoad_FileKeyedByEnvironment(t *testing.T) {
	r, err := Load(filepath.Join("testdata", "combined.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"qa", "staging"}, envNames(r))

	staging, ok := r.Environment("staging")
	require.True(t, ok)
	assert.True(t, staging.Enabled("web", "grafana"))
	assert.False(t, staging.Enabled("web", "prometheus"))
}

func TestLoad_Glob(t *testing.T) {
	r, err := Load(filepath.Join("testdata", "nested", "**", "*.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"dev", "prod"}, envNames(r))
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing path", func(t *testing.T) {
		_, err := Load(filepath.Join("testdata", "nope.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "registry not found")
	})

	t.Run("glob without matches", func(t *testing.T) {
		_, err := Load(filepath.Join("testdata", "*.json"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "matched no files")
	})

	t.Run("stack name with delimiter", func(t *testing.T) {
		_, err := Load(filepath.Join("testdata", "bad", "dotted.yaml"))
		assert.ErrorIs(t, err, ErrInvalidStackName)
	})

	t.Run("document without stacks", func(t *testing.T) {
		_, err := Load(filepath.Join("testdata", "bad", "nostacks.yaml"))
		assert.ErrorIs(t, err, ErrNoStacks)
	})

	t.Run("duplicate environment", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "dev.yaml"), "stacks: {}\n")
		writeFile(t, filepath.Join(dir, "dev.yml"), "stacks: {}\n")

		_, err := Load(dir)
		assert.ErrorIs(t, err, ErrDuplicateEnvironment)
	})
}

func TestEnvironment_Enabled(t *testing.T) {
	r, err := Load(filepath.Join("testdata", "envs"))
	require.NoError(t, err)

	dev, _ := r.Environment("development")

	assert.True(t, dev.Enabled("observability", "grafana"))
	assert.True(t, dev.Enabled("observability", "kibana"))
	assert.False(t, dev.Enabled("observability", "logstash"))
	assert.True(t, dev.Enabled("metrics", "prometheus"))
	assert.False(t, dev.Enabled("placeholder", "grafana"), "null stack enables nothing")
	assert.False(t, dev.Enabled("missing", "grafana"))
}

func TestNew(t *testing.T) {
	r, err := New(map[string]map[string]any{
		"dev": {"stacks": map[string]any{"s": map[string]any{"grafana": nil}}},
	})
	require.NoError(t, err)

	dev, ok := r.Environment("dev")
	require.True(t, ok)
	assert.True(t, dev.Enabled("s", "grafana"), "a present key enables the component even with no settings")

	_, err = New(map[string]map[string]any{"dev": {}})
	assert.ErrorIs(t, err, ErrNoStacks)
}

func TestLoad_NumericStackName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dev.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stacks:\n  2024:\n    grafana:\n      port: 3000\n"), 0644))

	r, err := Load(path)
	require.NoError(t, err)

	dev, ok := r.Environment("dev")
	require.True(t, ok)

	stacks, err := dev.Stacks()
	require.NoError(t, err)
	assert.Equal(t, []string{"2024"}, stacks)
	assert.True(t, dev.Enabled("2024", "grafana"))

	port, err := dev.Config.Get(datapath.Key(StacksKey, "2024", "grafana", "port"))
	require.NoError(t, err)
	assert.Equal(t, 3000, port)
}

func TestNew_NonStringKeys(t *testing.T) {
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte("stacks:\n  2024:\n    grafana: {}\n  true:\n    kibana: {}\n"), &doc))

	r, err := New(map[string]map[string]any{"dev": doc})
	require.NoError(t, err)

	dev, ok := r.Environment("dev")
	require.True(t, ok)

	stacks, err := dev.Stacks()
	require.NoError(t, err)
	assert.Equal(t, []string{"2024", "true"}, stacks)
	assert.True(t, dev.Enabled("2024", "grafana"))
	assert.True(t, dev.Enabled("true", "kibana"))
}
