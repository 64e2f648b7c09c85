package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalFileStorage_Save(t *testing.T) {
	tempDir := t.TempDir()
	fs := NewLocalFileStorage(tempDir, zap.NewNop())
	ctx := context.Background()

	t.Run("saves file and creates parent directories", func(t *testing.T) {
		err := fs.Save(ctx, "archive/OO_2026_1.pdf", []byte("%PDF-1.3"))
		require.NoError(t, err)

		content, err := os.ReadFile(filepath.Join(tempDir, "archive", "OO_2026_1.pdf"))
		require.NoError(t, err)
		assert.Equal(t, []byte("%PDF-1.3"), content)
	})

	t.Run("overwrites existing file", func(t *testing.T) {
		require.NoError(t, fs.Save(ctx, "note.txt", []byte("original")))
		require.NoError(t, fs.Save(ctx, "note.txt", []byte("updated")))

		content, err := fs.Read(ctx, "note.txt")
		require.NoError(t, err)
		assert.Equal(t, []byte("updated"), content)
	})

	t.Run("leaves no temp files behind", func(t *testing.T) {
		entries, err := os.ReadDir(filepath.Join(tempDir, "archive"))
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("empty content", func(t *testing.T) {
		require.NoError(t, fs.Save(ctx, "empty.txt", nil))
		assert.True(t, fs.Exists(ctx, "empty.txt"))
	})
}

func TestLocalFileStorage_PathTraversal(t *testing.T) {
	fs := NewLocalFileStorage(t.TempDir(), zap.NewNop())
	ctx := context.Background()

	for _, path := range []string{"../escape.txt", "archive/../../escape.txt", "..", ""} {
		t.Run(path, func(t *testing.T) {
			err := fs.Save(ctx, path, []byte("x"))
			assert.ErrorIs(t, err, ErrPathEscapes)
			assert.False(t, fs.Exists(ctx, path))
		})
	}
}

func TestLocalFileStorage_ExistsAndDelete(t *testing.T) {
	fs := NewLocalFileStorage(t.TempDir(), zap.NewNop())
	ctx := context.Background()

	assert.False(t, fs.Exists(ctx, "a.pdf"))
	require.NoError(t, fs.Save(ctx, "a.pdf", []byte("x")))
	assert.True(t, fs.Exists(ctx, "a.pdf"))

	require.NoError(t, fs.Delete(ctx, "a.pdf"))
	assert.False(t, fs.Exists(ctx, "a.pdf"))

	// idempotent
	require.NoError(t, fs.Delete(ctx, "a.pdf"))

	_, err := fs.Read(ctx, "a.pdf")
	assert.Error(t, err)
}

func TestFolderManager_SanitizeName(t *testing.T) {
	fm := NewLocalFolderManager(t.TempDir(), zap.NewNop())

	tests := []struct {
		input string
		want  string
	}{
		{"OO/2026/12", "OO_2026_12"},
		{"archive", "archive"},
		{"../../etc/passwd", "__etc_passwd"},
		{`a\b`, "a_b"},
		{"name with spaces!", "namewithspaces"},
		{"..", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, fm.SanitizeName(tt.input))
		})
	}
}

func TestFolderManager_Lifecycle(t *testing.T) {
	tempDir := t.TempDir()
	fm := NewLocalFolderManager(tempDir, zap.NewNop())
	ctx := context.Background()

	assert.False(t, fm.Exists("archive"))

	path, err := fm.CreateFolder(ctx, "archive")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tempDir, "archive"), path)
	assert.True(t, fm.Exists("archive"))
	assert.Equal(t, path, fm.GetPath("archive"))

	_, err = fm.CreateFolder(ctx, "..")
	assert.Error(t, err)

	require.NoError(t, fm.Delete(ctx, "archive"))
	assert.False(t, fm.Exists("archive"))
	require.NoError(t, fm.Delete(ctx, "archive"))
	assert.Error(t, fm.Delete(ctx, ""))
}

func TestArchiveLayout(t *testing.T) {
	tempDir := t.TempDir()
	fs := NewLocalFileStorage(tempDir, zap.NewNop())
	fm := NewLocalFolderManager(tempDir, zap.NewNop())
	ctx := context.Background()

	_, err := fm.CreateFolder(ctx, "archive")
	require.NoError(t, err)

	path := "archive/" + fm.SanitizeName("OO/2026/3") + ".pdf"
	require.NoError(t, fs.Save(ctx, path, []byte("%PDF")))

	assert.FileExists(t, filepath.Join(fm.GetPath("archive"), "OO_2026_3.pdf"))
	assert.Equal(t, filepath.Join(tempDir, path), fs.GetFullPath(path))
}
