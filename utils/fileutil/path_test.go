package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	cwd, err := os.Getwd()
	require.NoError(t, err)
	t.Setenv("TAGUP_TEST_ROOT", "/srv/tagup")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"home", "~", home},
		{"tags dir under home", "~/.tagup/tags/v3", filepath.Join(home, ".tagup", "tags", "v3")},
		{"env var", "$TAGUP_TEST_ROOT/ban", "/srv/tagup/ban"},
		{"absolute", "/opt/tokenizers/dart.json", "/opt/tokenizers/dart.json"},
		{"relative is cleaned", "./tags/../ban", filepath.Join(cwd, "ban")},
		{"tilde inside name is literal", "tags~old", filepath.Join(cwd, "tags~old")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandPath(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSafeReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "copyright.txt")
	require.NoError(t, os.WriteFile(path, []byte("vocaloid\ntouhou\n"), 0o644))

	t.Run("regular file", func(t *testing.T) {
		data, err := SafeReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "vocaloid\ntouhou\n", string(data))
	})

	t.Run("directory", func(t *testing.T) {
		_, err := SafeReadFile(dir)
		assert.ErrorContains(t, err, "is a directory")
	})

	t.Run("missing", func(t *testing.T) {
		_, err := SafeReadFile(filepath.Join(dir, "missing.txt"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("too large", func(t *testing.T) {
		big := filepath.Join(dir, "big.txt")
		f, err := os.Create(big)
		require.NoError(t, err)
		require.NoError(t, f.Truncate(MaxFileSize+1))
		require.NoError(t, f.Close())

		_, err = SafeReadFile(big)
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})
}
