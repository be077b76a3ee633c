package treesitter

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/corey/octs/internal/ports"
)

// CollectDiagnostics walks the tree under root and reports every ERROR and
// MISSING node. Subtrees without errors are skipped.
func CollectDiagnostics(root *tree_sitter.Node) []ports.Diagnostic {
	if root == nil {
		return nil
	}
	var out []ports.Diagnostic
	walkErrors(root, &out)
	return out
}

func walkErrors(n *tree_sitter.Node, out *[]ports.Diagnostic) {
	switch {
	case n.IsMissing():
		*out = append(*out, diagnosticFor(n, ports.DiagnosticMissing, "missing "+n.Kind()))
		return
	case n.IsError():
		*out = append(*out, diagnosticFor(n, ports.DiagnosticError, "syntax error"))
	}
	if !n.HasError() {
		return
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		walkErrors(n.Child(i), out)
	}
}

func diagnosticFor(n *tree_sitter.Node, kind ports.DiagnosticKind, msg string) ports.Diagnostic {
	start, end := n.StartPosition(), n.EndPosition()
	return ports.Diagnostic{
		Kind:      kind,
		Message:   msg,
		StartByte: n.StartByte(),
		EndByte:   n.EndByte(),
		StartRow:  start.Row,
		StartCol:  start.Column,
		EndRow:    end.Row,
		EndCol:    end.Column,
	}
}

// NamedChildren returns the named children of n in source order.
func NamedChildren(n *tree_sitter.Node) []*tree_sitter.Node {
	if n == nil {
		return nil
	}
	count := n.NamedChildCount()
	out := make([]*tree_sitter.Node, 0, count)
	for i := uint(0); i < count; i++ {
		if c := n.NamedChild(i); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// nodeText returns the source text for a node.
func nodeText(n *tree_sitter.Node, source []byte) string {
	start, end := n.StartByte(), n.EndByte()
	if end > uint(len(source)) || start > end {
		return ""
	}
	return string(source[start:end])
}
