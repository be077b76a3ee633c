package parser

import (
	"regexp"
	"slices"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/corey/octs/internal/adapters/treesitter"
)

// metavarRe matches $NAME and $...NAME. Names are upper-case so that $x
// stays an ordinary token in languages that use the dollar sign.
var metavarRe = regexp.MustCompile(`\$(\.\.\.)?([A-Z_][A-Z0-9_]*)`)

// Metavariable is a placeholder in a pattern. Start and End are byte offsets
// into the pattern text, covering the leading '$'.
type Metavariable struct {
	Name     string
	Variadic bool
	Start    int
	End      int
}

// maskMetavariables rewrites each metavariable into an identifier of the same
// byte length: $X becomes _X and $...ARGS becomes ____ARGS. Node offsets in
// the masked tree therefore index the original text unchanged.
func maskMetavariables(text string) (string, []Metavariable) {
	locs := metavarRe.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return text, nil
	}
	masked := []byte(text)
	vars := make([]Metavariable, 0, len(locs))
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		nameStart := loc[4]
		for i := start; i < nameStart; i++ {
			masked[i] = '_'
		}
		vars = append(vars, Metavariable{
			Name:     text[nameStart:loc[5]],
			Variadic: loc[2] >= 0,
			Start:    start,
			End:      end,
		})
	}
	return string(masked), vars
}

// Pattern is a parsed search pattern. It owns its tree; Close it when done.
type Pattern struct {
	tree      *treesitter.Tree
	text      string
	multiLine bool
	metavars  []Metavariable
}

func newPattern(tree *treesitter.Tree, text string, multiLine bool, metavars []Metavariable) *Pattern {
	return &Pattern{tree: tree, text: text, multiLine: multiLine, metavars: metavars}
}

// Tree returns the syntax tree of the masked pattern.
func (p *Pattern) Tree() *treesitter.Tree { return p.tree }

// Source returns the pattern text as written, metavariables included.
func (p *Pattern) Source() string { return p.text }

// MultiLine reports whether the pattern was parsed in multi-statement context.
func (p *Pattern) MultiLine() bool { return p.multiLine }

// Metavariables lists the placeholders in source order.
func (p *Pattern) Metavariables() []Metavariable {
	return slices.Clone(p.metavars)
}

// HasError reports whether the pattern failed to parse cleanly.
func (p *Pattern) HasError() bool { return p.tree.HasError() }

// Text returns the original pattern text under n.
func (p *Pattern) Text(n *tree_sitter.Node) string {
	if n == nil {
		return ""
	}
	start, end := int(n.StartByte()), int(n.EndByte())
	if end > len(p.text) || start > end {
		return ""
	}
	return p.text[start:end]
}

// MetavariableNode returns the smallest named node covering mv's span.
func (p *Pattern) MetavariableNode(mv Metavariable) *tree_sitter.Node {
	root := p.tree.Root()
	if root == nil || mv.Start < 0 || mv.End > len(p.text) || mv.Start >= mv.End {
		return nil
	}
	return root.NamedDescendantForByteRange(uint(mv.Start), uint(mv.End))
}

// Node returns the node a match is rooted at.
//
// In single-line context this is the one top-level construct, found by
// descending from the root through containers that wrap a single child. In
// multi-line context it is the statement container itself.
func (p *Pattern) Node() *tree_sitter.Node {
	root := p.tree.Root()
	if root == nil {
		return nil
	}
	g := p.tree.Grammar()
	if p.multiLine {
		if kids := significantChildren(root); len(kids) == 1 && slices.Contains(g.BodyKinds, kids[0].Kind()) {
			return kids[0]
		}
		return root
	}
	n := root
	for isContainer(g, n.Kind()) {
		kids := significantChildren(n)
		if len(kids) != 1 {
			break
		}
		n = kids[0]
	}
	return n
}

// Statements returns the top-level statements of a multi-line pattern, or the
// single node of a single-line one.
func (p *Pattern) Statements() []*tree_sitter.Node {
	n := p.Node()
	if n == nil {
		return nil
	}
	if !p.multiLine {
		return []*tree_sitter.Node{n}
	}
	return significantChildren(n)
}

// Close releases the pattern's tree.
func (p *Pattern) Close() {
	if p == nil {
		return
	}
	p.tree.Close()
}

func isContainer(g treesitter.Grammar, kind string) bool {
	return kind == g.RootKind || slices.Contains(g.BodyKinds, kind)
}

// significantChildren returns the named children of n other than comments.
func significantChildren(n *tree_sitter.Node) []*tree_sitter.Node {
	kids := treesitter.NamedChildren(n)
	out := kids[:0]
	for _, k := range kids {
		if !strings.Contains(k.Kind(), "comment") {
			out = append(out, k)
		}
	}
	return out
}
