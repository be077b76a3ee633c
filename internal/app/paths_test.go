package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaths(t *testing.T) {
	p := NewPaths("/project")
	assert.Equal(t, "/project", p.Project)
	assert.Equal(t, filepath.Join("/project", ".octs"), p.Root)
	assert.Equal(t, filepath.Join("/project", ".octs", "cache.db"), p.CacheDB)
	assert.Equal(t, filepath.Join("/project", ".octs", "grammars"), p.GrammarsDir)
	assert.Equal(t, filepath.Join("/project", ".octs", "grammars", "manifest.json"), p.Manifest)
}

func TestEnsureDirs(t *testing.T) {
	dir := t.TempDir()
	p := NewPaths(dir)

	// First call creates directories.
	require.NoError(t, p.EnsureDirs())
	for _, d := range []string{p.Root, p.GrammarsDir} {
		info, err := os.Stat(d)
		require.NoError(t, err, "dir %s should exist", d)
		assert.True(t, info.IsDir())
	}

	// Second call is idempotent.
	require.NoError(t, p.EnsureDirs())
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".octs"), 0755))
	nested := filepath.Join(root, "modules", "network")
	require.NoError(t, os.MkdirAll(nested, 0755))

	got, err := FindProjectRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestFindProjectRoot_GitMarker(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0755))
	nested := filepath.Join(root, "lib")
	require.NoError(t, os.MkdirAll(nested, 0755))

	got, err := FindProjectRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}
