package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDirs(t *testing.T) {
	paths := NewPaths(filepath.Join(t.TempDir(), "storage"))

	require.NoError(t, paths.EnsureDirs())

	for _, dir := range []string{
		paths.ProcessingDir(),
		paths.ResultsDir(),
		paths.ExportsDir(),
		paths.PublicDir(),
	} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestRemoveBatchDirs(t *testing.T) {
	paths := NewPaths(t.TempDir())
	require.NoError(t, paths.EnsureDirs())

	// Only results and exports exist for this batch.
	require.NoError(t, os.MkdirAll(paths.BatchResultsDir("b1"), 0o755))
	require.NoError(t, os.MkdirAll(paths.BatchExportsDir("b1"), 0o755))

	removed, err := paths.RemoveBatchDirs("b1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		paths.BatchResultsDir("b1"),
		paths.BatchExportsDir("b1"),
	}, removed)

	_, err = os.Stat(paths.BatchResultsDir("b1"))
	assert.True(t, os.IsNotExist(err))

	// Nothing left to remove.
	removed, err = paths.RemoveBatchDirs("b1")
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestRemoveExportDirTolerant(t *testing.T) {
	paths := NewPaths(t.TempDir())
	assert.NoError(t, paths.RemoveExportDir("missing-batch"))
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.csv")
	require.NoError(t, os.WriteFile(src, []byte("file_id,q1\n"), 0o644))

	dest := filepath.Join(dir, "nested", "dest.csv")
	require.NoError(t, CopyFile(src, dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "file_id,q1\n", string(data))
}

func TestCopyIfExists(t *testing.T) {
	dir := t.TempDir()

	copied, err := CopyIfExists(filepath.Join(dir, "absent.png"), filepath.Join(dir, "out.png"))
	require.NoError(t, err)
	assert.False(t, copied)

	src := filepath.Join(dir, "present.png")
	require.NoError(t, os.WriteFile(src, []byte("img"), 0o644))

	copied, err = CopyIfExists(src, filepath.Join(dir, "out.png"))
	require.NoError(t, err)
	assert.True(t, copied)
}
