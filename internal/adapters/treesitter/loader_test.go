package treesitter

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSymbolName(t *testing.T) {
	tests := []struct {
		lang     string
		expected string
	}{
		{"hcl", "tree_sitter_hcl"},
		{"elixir", "tree_sitter_elixir"},
		{"terraform", "tree_sitter_hcl"}, // override
		{"c-sharp", "tree_sitter_c_sharp"},
		{"ocaml", "tree_sitter_ocaml"},
	}
	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			assert.Equal(t, tt.expected, CSymbolName(tt.lang))
		})
	}
}

func TestSOBaseName(t *testing.T) {
	tests := []struct {
		lang     string
		expected string
	}{
		{"hcl", "hcl"},
		{"elixir", "elixir"},
		{"terraform", "hcl"},
	}
	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			assert.Equal(t, tt.expected, SOBaseName(tt.lang))
		})
	}
}

func TestLibExtension(t *testing.T) {
	ext := LibExtension()
	switch runtime.GOOS {
	case "darwin":
		assert.Equal(t, ".dylib", ext)
	default:
		assert.Equal(t, ".so", ext)
	}
}

func TestPlatformString(t *testing.T) {
	assert.Equal(t, runtime.GOOS+"-"+runtime.GOARCH, PlatformString())
}

func TestDefaultGrammarPaths(t *testing.T) {
	paths := DefaultGrammarPaths("/project/root")
	require.GreaterOrEqual(t, len(paths), 1)
	assert.Equal(t, "/project/root/.octs/grammars", paths[0])

	// Global path should be second
	if len(paths) > 1 {
		home, _ := os.UserHomeDir()
		assert.Equal(t, filepath.Join(home, ".octs", "grammars"), paths[1])
	}
}

func TestDefaultGrammarPaths_EmptyRoot(t *testing.T) {
	paths := DefaultGrammarPaths("")
	if home, err := os.UserHomeDir(); err == nil {
		require.Equal(t, 1, len(paths))
		assert.Equal(t, filepath.Join(home, ".octs", "grammars"), paths[0])
	}
}

func TestDynamicLoader_LoadGrammar_NotFound(t *testing.T) {
	dl := NewDynamicLoader([]string{"/nonexistent/path"})
	_, err := dl.LoadGrammar("ocaml")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGrammarUnavailable)
	assert.Contains(t, err.Error(), "not found in search paths")
}

func TestDynamicLoader_LoadGrammar_NotASharedLibrary(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ocaml"+LibExtension()), []byte("not an elf"), 0o644))

	dl := NewDynamicLoader([]string{dir})
	_, err := dl.LoadGrammar("ocaml")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGrammarUnavailable)
	assert.Contains(t, err.Error(), "dlopen")
}

func TestDynamicLoader_GrammarPath_NotFound(t *testing.T) {
	dl := NewDynamicLoader([]string{"/nonexistent/path"})
	assert.Equal(t, "", dl.GrammarPath("hcl"))
}

func TestDynamicLoader_InstalledGrammars_EmptyDir(t *testing.T) {
	dl := NewDynamicLoader([]string{t.TempDir()})
	assert.Empty(t, dl.InstalledGrammars())
}

func TestDynamicLoader_InstalledGrammars_FindsSO(t *testing.T) {
	dir := t.TempDir()
	ext := LibExtension()

	for _, lang := range []string{"hcl", "elixir", "ocaml"} {
		f, err := os.Create(filepath.Join(dir, lang+ext))
		require.NoError(t, err)
		f.Close()
	}
	// Not a grammar library.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), nil, 0o644))

	dl := NewDynamicLoader([]string{dir})
	assert.ElementsMatch(t, []string{"hcl", "elixir", "ocaml"}, dl.InstalledGrammars())
}

func TestDynamicLoader_InstalledGrammars_Dedup(t *testing.T) {
	dir1 := t.TempDir()
	dir2 := t.TempDir()
	ext := LibExtension()

	for _, dir := range []string{dir1, dir2} {
		f, err := os.Create(filepath.Join(dir, "elixir"+ext))
		require.NoError(t, err)
		f.Close()
	}

	dl := NewDynamicLoader([]string{dir1, dir2})
	assert.Equal(t, []string{"elixir"}, dl.InstalledGrammars())
}

func TestDynamicLoader_SearchPathPriority(t *testing.T) {
	dir1 := t.TempDir()
	dir2 := t.TempDir()
	ext := LibExtension()

	path1 := filepath.Join(dir1, "hcl"+ext)
	path2 := filepath.Join(dir2, "hcl"+ext)
	for _, p := range []string{path1, path2} {
		f, err := os.Create(p)
		require.NoError(t, err)
		f.Close()
	}

	dl := NewDynamicLoader([]string{dir1, dir2})
	assert.Equal(t, path1, dl.GrammarPath("hcl"))
}

func TestDynamicLoader_TerraformUsesHCLLibrary(t *testing.T) {
	dir := t.TempDir()
	hclPath := filepath.Join(dir, "hcl"+LibExtension())
	f, err := os.Create(hclPath)
	require.NoError(t, err)
	f.Close()

	dl := NewDynamicLoader([]string{dir})
	assert.Equal(t, hclPath, dl.GrammarPath("terraform"))
}

func TestDynamicLoader_Close(t *testing.T) {
	dl := NewDynamicLoader([]string{"/tmp"})
	dl.Close()
	assert.Empty(t, dl.loaded)
	assert.Nil(t, dl.handles)
}

func TestDynamicLoader_SearchPaths(t *testing.T) {
	paths := []string{"/a", "/b", "/c"}
	dl := NewDynamicLoader(paths)
	assert.Equal(t, paths, dl.SearchPaths())
}
