package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDeepMerge(t *testing.T) {
	tests := []struct {
		name    string
		base    map[string]any
		overlay map[string]any
		want    map[string]any
	}{
		{
			name:    "overlay wins on scalars",
			base:    map[string]any{"key1": "base1", "key2": "base2"},
			overlay: map[string]any{"key2": "overlay2", "key3": "overlay3"},
			want:    map[string]any{"key1": "base1", "key2": "overlay2", "key3": "overlay3"},
		},
		{
			name: "nested maps merge recursively",
			base: map[string]any{
				"grafana": map[string]any{"port": 3000, "image": "grafana/grafana:10"},
			},
			overlay: map[string]any{
				"grafana": map[string]any{"image": "grafana/grafana:11"},
			},
			want: map[string]any{
				"grafana": map[string]any{"port": 3000, "image": "grafana/grafana:11"},
			},
		},
		{
			name:    "lists are replaced",
			base:    map[string]any{"args": []any{"a", "b"}},
			overlay: map[string]any{"args": []any{"c"}},
			want:    map[string]any{"args": []any{"c"}},
		},
		{
			name:    "map replaced by scalar",
			base:    map[string]any{"resources": map[string]any{"cpu": "1"}},
			overlay: map[string]any{"resources": nil},
			want:    map[string]any{"resources": nil},
		},
		{
			name:    "nil base",
			base:    nil,
			overlay: map[string]any{"a": 1},
			want:    map[string]any{"a": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeepMerge(tt.base, tt.overlay))
		})
	}
}

func TestDeepMerge_DoesNotModifyInputs(t *testing.T) {
	base := map[string]any{"nested": map[string]any{"a": 1}}
	overlay := map[string]any{"nested": map[string]any{"b": 2}}

	result := DeepMerge(base, overlay)
	result["nested"].(map[string]any)["c"] = 3

	assert.Equal(t, map[string]any{"nested": map[string]any{"a": 1}}, base)
	assert.Equal(t, map[string]any{"nested": map[string]any{"b": 2}}, overlay)
}

func TestApplyOverlay(t *testing.T) {
	r, err := Load(filepath.Join("testdata", "envs"))
	require.NoError(t, err)

	overlay := map[string]any{
		"stacks": map[string]any{
			"observability": map[string]any{
				"grafana": map[string]any{"image": "grafana/grafana:11.0.0"},
			},
		},
	}
	require.NoError(t, r.ApplyOverlay(overlay))

	dev, _ := r.Environment("development")
	image, err := dev.Config.Get("stacks.observability.grafana.image")
	require.NoError(t, err)
	assert.Equal(t, "grafana/grafana:11.0.0", image)

	name, err := dev.Config.Get("stacks.observability.grafana.name")
	require.NoError(t, err)
	assert.Equal(t, "grafana-dev", name, "existing settings survive the overlay")

	prod, _ := r.Environment("production")
	assert.True(t, prod.Enabled("observability", "grafana"), "overlay applies to every environment")
}

func TestApplyOverlay_RejectsInvalidStackNames(t *testing.T) {
	r, err := Load(filepath.Join("testdata", "envs"))
	require.NoError(t, err)

	err = r.ApplyOverlay(map[string]any{
		"stacks": map[string]any{"bad.name": map[string]any{}},
	})
	assert.ErrorIs(t, err, ErrInvalidStackName)
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "values.yaml")
	writeFile(t, path, "stacks:\n  s:\n    grafana:\n      port: 3001\n")

	overlay, err := LoadOverlay(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"stacks": map[string]any{"s": map[string]any{"grafana": map[string]any{"port": 3001}}},
	}, overlay)

	empty := filepath.Join(dir, "empty.yaml")
	writeFile(t, empty, "")
	overlay, err = LoadOverlay(empty)
	require.NoError(t, err)
	assert.Empty(t, overlay)

	_, err = LoadOverlay(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadOverlay_NumericKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.yaml")
	writeFile(t, path, "stacks:\n  2024:\n    grafana:\n      port: 3001\n")

	overlay, err := LoadOverlay(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"stacks": map[string]any{"2024": map[string]any{"grafana": map[string]any{"port": 3001}}},
	}, overlay)
}
