package generate

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func TestDirSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "observability", "grafana")
	sink := DirSink{}

	require.NoError(t, sink.MkdirAll(dir))
	require.NoError(t, sink.WriteFile(filepath.Join(dir, HPAFile), []byte("kind: HorizontalPodAutoscaler\n")))

	got, err := os.ReadFile(filepath.Join(dir, HPAFile))
	require.NoError(t, err)
	assert.Equal(t, "kind: HorizontalPodAutoscaler\n", string(got))

	src := filepath.Join(componentsRoot, "kibana", ServiceFile)
	require.NoError(t, sink.CopyFile(src, filepath.Join(dir, ServiceFile)))
	want, err := os.ReadFile(src)
	require.NoError(t, err)
	got, err = os.ReadFile(filepath.Join(dir, ServiceFile))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestPrintSink(t *testing.T) {
	var buf bytes.Buffer
	dir := filepath.Join(t.TempDir(), "out")
	sink := &PrintSink{W: &buf}

	require.NoError(t, sink.MkdirAll(dir))
	require.NoError(t, sink.WriteFile(filepath.Join(dir, HPAFile), []byte("kind: HorizontalPodAutoscaler\n")))
	require.NoError(t, sink.WriteFile(filepath.Join(dir, "bare.yaml"), []byte("kind: Service")))
	require.NoError(t, sink.CopyFile(filepath.Join(componentsRoot, "logstash", ServiceAccountFile), filepath.Join(dir, ServiceAccountFile)))

	out := buf.String()
	assert.Contains(t, out, "---\n# "+filepath.Join(dir, HPAFile)+"\nkind: HorizontalPodAutoscaler\n")
	assert.Contains(t, out, "# "+filepath.Join(dir, "bare.yaml")+"\nkind: Service\n")
	assert.Contains(t, out, "# "+filepath.Join(dir, ServiceAccountFile)+"\napiVersion: v1\n")

	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "nothing is written")
}

func TestPrintSink_CopyMissingSource(t *testing.T) {
	sink := &PrintSink{W: &bytes.Buffer{}}
	err := sink.CopyFile(filepath.Join(t.TempDir(), "missing.yaml"), "out.yaml")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDiffSink(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, HPAFile)
	require.NoError(t, os.WriteFile(existing, []byte("spec:\n  maxReplicas: 2\n  minReplicas: 1\n"), 0644))

	var buf bytes.Buffer
	sink := NewDiffSink(&buf)

	t.Run("unchanged file prints nothing", func(t *testing.T) {
		require.NoError(t, sink.WriteFile(existing, []byte("spec:\n  maxReplicas: 2\n  minReplicas: 1\n")))
		assert.Empty(t, buf.String())
		assert.Empty(t, sink.Changed())
	})

	t.Run("changed file prints a unified diff", func(t *testing.T) {
		require.NoError(t, sink.WriteFile(existing, []byte("spec:\n  maxReplicas: 5\n  minReplicas: 1\n")))

		out := buf.String()
		assert.Contains(t, out, "--- "+existing)
		assert.Contains(t, out, "+++ "+existing)
		assert.Contains(t, out, "-  maxReplicas: 2\n")
		assert.Contains(t, out, "+  maxReplicas: 5\n")
		assert.Contains(t, out, "@@")
		assert.Equal(t, []string{existing}, sink.Changed())
	})

	t.Run("new file diffs against /dev/null", func(t *testing.T) {
		buf.Reset()
		created := filepath.Join(dir, "new", DeploymentFile)
		require.NoError(t, sink.WriteFile(created, []byte("kind: Deployment\n")))

		out := buf.String()
		assert.Contains(t, out, "--- /dev/null")
		assert.Contains(t, out, "+kind: Deployment")
		assert.Len(t, sink.Changed(), 2)

		_, err := os.Stat(created)
		assert.True(t, os.IsNotExist(err), "nothing is written")
	})

	t.Run("copy compares the source content", func(t *testing.T) {
		buf.Reset()
		src := filepath.Join(componentsRoot, "logstash", ServiceAccountFile)
		dst := filepath.Join(dir, ServiceAccountFile)

		content, err := os.ReadFile(src)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(dst, content, 0644))

		require.NoError(t, sink.CopyFile(src, dst))
		assert.Empty(t, buf.String())
		assert.False(t, strings.Contains(strings.Join(sink.Changed(), ","), dst))
	})
}
