package treesitter

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/corey/octs/internal/ports"
)

// Tree is a parsed syntax tree together with the source it was built from.
// Callers own it and must Close it.
type Tree struct {
	inner   *tree_sitter.Tree
	source  []byte
	grammar Grammar
	path    string
}

// Close releases tree resources.
func (t *Tree) Close() {
	if t == nil || t.inner == nil {
		return
	}
	t.inner.Close()
	t.inner = nil
}

// Inner returns the wrapped go-tree-sitter tree pointer.
func (t *Tree) Inner() *tree_sitter.Tree {
	if t == nil {
		return nil
	}
	return t.inner
}

// Root returns the root node, or nil for a closed tree.
func (t *Tree) Root() *tree_sitter.Node {
	if t == nil || t.inner == nil {
		return nil
	}
	return t.inner.RootNode()
}

// RootKind returns the kind of the root node.
func (t *Tree) RootKind() string {
	root := t.Root()
	if root == nil {
		return ""
	}
	return root.Kind()
}

// HasError reports whether the tree contains ERROR or MISSING nodes.
func (t *Tree) HasError() bool {
	root := t.Root()
	return root != nil && root.HasError()
}

// Diagnostics lists every ERROR and MISSING node in document order.
func (t *Tree) Diagnostics() []ports.Diagnostic {
	root := t.Root()
	if root == nil || !root.HasError() {
		return nil
	}
	return CollectDiagnostics(root)
}

// Sexp returns the tree as an s-expression.
func (t *Tree) Sexp() string {
	root := t.Root()
	if root == nil {
		return ""
	}
	return root.ToSexp()
}

// Source returns the bytes the tree was parsed from.
func (t *Tree) Source() []byte {
	if t == nil {
		return nil
	}
	return t.source
}

// Text returns the source text covered by n.
func (t *Tree) Text(n *tree_sitter.Node) string {
	if t == nil || n == nil {
		return ""
	}
	return nodeText(n, t.source)
}

// Grammar returns the grammar the tree was parsed with.
func (t *Tree) Grammar() Grammar {
	if t == nil {
		return Grammar{}
	}
	return t.grammar
}

// Path returns the target path, or "" for a fragment.
func (t *Tree) Path() string {
	if t == nil {
		return ""
	}
	return t.path
}

// Summary condenses the tree into a cacheable record.
func (t *Tree) Summary() *ports.Summary {
	return &ports.Summary{
		Language:    t.grammar.Name,
		Grammar:     t.grammar.ID,
		Path:        t.path,
		RootKind:    t.RootKind(),
		HasError:    t.HasError(),
		Diagnostics: t.Diagnostics(),
		Sexp:        t.Sexp(),
	}
}
