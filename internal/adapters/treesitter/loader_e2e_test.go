//go:build !lean

package treesitter

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDynamicLoader_LoadAndParse_EndToEnd compiles the HCL grammar to a .so,
// loads it via purego, and verifies it produces the same tree as the compiled-in grammar.
func TestDynamicLoader_LoadAndParse_EndToEnd(t *testing.T) {
	goPath := os.Getenv("GOPATH")
	if goPath == "" {
		home, err := os.UserHomeDir()
		require.NoError(t, err)
		goPath = filepath.Join(home, "go")
	}

	hclSrc := filepath.Join(goPath, "pkg", "mod", "github.com", "alexaandru",
		"go-sitter-forest", "hcl@v1.9.3")
	parserC := filepath.Join(hclSrc, "parser.c")
	if _, err := os.Stat(parserC); err != nil {
		t.Skipf("HCL grammar source not in module cache: %v", err)
	}
	if _, err := exec.LookPath("gcc"); err != nil {
		t.Skip("gcc not available")
	}

	sources := []string{parserC}
	if scanner := filepath.Join(hclSrc, "scanner.c"); fileExists(scanner) {
		sources = append(sources, scanner)
	}

	dir := t.TempDir()
	soPath := filepath.Join(dir, "hcl"+LibExtension())
	args := append([]string{"-shared", "-fPIC", "-I" + hclSrc, "-o", soPath}, sources...)
	out, err := exec.Command("gcc", args...).CombinedOutput()
	if err != nil {
		t.Skipf("gcc failed: %s", out)
	}

	// Resolve "terraform" so the compiled-in "hcl" entry cannot satisfy it.
	engine := NewEngine(WithLoader(NewDynamicLoader([]string{dir})))
	grammar := Grammar{ID: 32, Name: "terraform", RootKind: "config_file"}
	source := []byte("resource \"aws_s3_bucket\" \"b\" {\n  bucket = \"logs\"\n}\n")

	dynamic, err := engine.AllocateParser()
	require.NoError(t, err)
	defer dynamic.Close()
	require.NoError(t, dynamic.BindGrammar(grammar))

	dynTree, err := dynamic.ParseFragment(context.Background(), source)
	require.NoError(t, err)
	defer dynTree.Close()

	builtin, err := NewEngine().AllocateParser()
	require.NoError(t, err)
	defer builtin.Close()
	require.NoError(t, builtin.BindGrammar(BuiltinManifest().Grammars["hcl"].Grammar()))

	builtinTree, err := builtin.ParseFragment(context.Background(), source)
	require.NoError(t, err)
	defer builtinTree.Close()

	assert.Equal(t, "config_file", dynTree.RootKind())
	assert.Equal(t, builtinTree.Sexp(), dynTree.Sexp())
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
