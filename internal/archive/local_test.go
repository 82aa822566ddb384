package archive_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamlens/streamlens/internal/archive"
)

func TestNewLocal(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		store, err := archive.NewLocal(archive.LocalConfig{BaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := archive.NewLocal(archive.LocalConfig{})
		assert.Error(t, err)
	})

	t.Run("CreatesMissingDir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "snapshots")
		_, err := archive.NewLocal(archive.LocalConfig{BaseDir: dir})
		require.NoError(t, err)
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "plainfile")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := archive.NewLocal(archive.LocalConfig{BaseDir: file})
		assert.Error(t, err)
	})
}

func TestLocalSave(t *testing.T) {
	dir := t.TempDir()
	store, err := archive.NewLocal(archive.LocalConfig{BaseDir: dir})
	require.NoError(t, err)

	t.Run("WritesFile", func(t *testing.T) {
		uri, err := store.Save(context.Background(), "directory-123.html", "text/html", []byte("<html></html>"))
		require.NoError(t, err)
		assert.Equal(t, "file://"+filepath.Join(dir, "directory-123.html"), uri)

		data, err := os.ReadFile(filepath.Join(dir, "directory-123.html"))
		require.NoError(t, err)
		assert.Equal(t, "<html></html>", string(data))
	})

	t.Run("CreatesNestedDirs", func(t *testing.T) {
		uri, err := store.Save(context.Background(), "2026/09/page.html", "text/html", []byte("x"))
		require.NoError(t, err)
		assert.Contains(t, uri, filepath.Join(dir, "2026", "09", "page.html"))
	})

	t.Run("EmptyName", func(t *testing.T) {
		_, err := store.Save(context.Background(), "  ", "text/html", []byte("x"))
		assert.Error(t, err)
	})

	t.Run("PathTraversal", func(t *testing.T) {
		_, err := store.Save(context.Background(), "../escape.html", "text/html", []byte("x"))
		assert.Error(t, err)
	})
}

func TestNoopSave(t *testing.T) {
	uri, err := archive.NewNoop().Save(context.Background(), "anything.html", "text/html", []byte("x"))
	require.NoError(t, err)
	assert.Empty(t, uri)
}
