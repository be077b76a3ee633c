package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/corey/octs/internal/parser"
	"github.com/corey/octs/internal/ports"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// painter wraps text in color codes when enabled.
type painter bool

func (p painter) paint(color, s string) string {
	if !p {
		return s
	}
	return color + s + colorReset
}

// isStdoutTTY returns true if stdout is connected to a terminal.
func isStdoutTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// resolveColor determines whether to use color output.
// colorFlag is the --color value: "auto", "always", or "never".
func resolveColor(colorFlag string) bool {
	switch colorFlag {
	case "always":
		return true
	case "never":
		return false
	default: // "auto"
		return os.Getenv("NO_COLOR") == "" && isStdoutTTY()
	}
}

// writeSummary prints one target's result grep-style:
//
//	main.tf: config_file ok
//	broken.ex: source 2 problems
//	  broken.ex:2:11: error: syntax error
func writeSummary(w io.Writer, p painter, s *ports.Summary, withSexp bool) {
	status := p.paint(colorGreen, "ok")
	if n := len(s.Diagnostics); n > 0 {
		status = p.paint(colorRed, plural(n, "problem"))
	} else if s.HasError {
		status = p.paint(colorRed, "errors")
	}
	fmt.Fprintf(w, "%s: %s %s\n", p.paint(colorCyan, s.Path), s.RootKind, status)
	for _, d := range s.Diagnostics {
		fmt.Fprintf(w, "  %s:%s: %s: %s\n", s.Path, d.Position(), p.paint(colorRed, string(d.Kind)), d.Message)
	}
	if withSexp {
		fmt.Fprintf(w, "  %s\n", p.paint(colorGray, s.Sexp))
	}
}

// writePattern prints a parsed pattern: its match node, statements and
// metavariables with the kind of node each one parsed as.
func writePattern(w io.Writer, p painter, pat *parser.Pattern) {
	node := pat.Node()
	kind := ""
	if node != nil {
		kind = node.Kind()
	}
	fmt.Fprintf(w, "%s %s\n", p.paint(colorBold, "node:"), kind)
	if pat.MultiLine() {
		for i, st := range pat.Statements() {
			fmt.Fprintf(w, "  [%d] %s %s\n", i, st.Kind(), p.paint(colorGray, oneLine(pat.Text(st))))
		}
	}
	for _, mv := range pat.Metavariables() {
		name := "$" + mv.Name
		if mv.Variadic {
			name = "$..." + mv.Name
		}
		at := ""
		if n := pat.MetavariableNode(mv); n != nil {
			at = " " + n.Kind()
		}
		fmt.Fprintf(w, "%s %s [%d,%d)%s\n", p.paint(colorYellow, "metavar:"), name, mv.Start, mv.End, at)
	}
	if node != nil {
		fmt.Fprintf(w, "%s %s\n", p.paint(colorBold, "sexp:"), node.ToSexp())
	}
	for _, d := range pat.Tree().Diagnostics() {
		fmt.Fprintf(w, "  %s: %s: %s\n", d.Position(), p.paint(colorRed, string(d.Kind)), d.Message)
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
