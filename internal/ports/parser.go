package ports

import "fmt"

// GrammarID identifies the grammar bound to a parser. Values are stable for
// the life of the process and are shared with pattern consumers, so existing
// IDs must never be renumbered.
type GrammarID uint16

// Known grammar identifiers.
const (
	GrammarUnknown GrammarID = 0
	GrammarElixir  GrammarID = 11
	GrammarHCL     GrammarID = 32
)

func (g GrammarID) String() string {
	switch g {
	case GrammarElixir:
		return "elixir"
	case GrammarHCL:
		return "hcl"
	case GrammarUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("grammar-%d", uint16(g))
	}
}

// DiagnosticKind classifies a recovered parse problem.
type DiagnosticKind string

const (
	DiagnosticError   DiagnosticKind = "error"   // ERROR node: input the grammar could not place
	DiagnosticMissing DiagnosticKind = "missing" // zero-width node the parser inserted to recover
)

// Diagnostic is one error or missing node found in a syntax tree.
// Rows and columns are zero-based, columns count bytes.
type Diagnostic struct {
	Kind      DiagnosticKind `json:"kind"`
	Message   string         `json:"message"`
	StartByte uint           `json:"start_byte"`
	EndByte   uint           `json:"end_byte"`
	StartRow  uint           `json:"start_row"`
	StartCol  uint           `json:"start_col"`
	EndRow    uint           `json:"end_row"`
	EndCol    uint           `json:"end_col"`
}

// Position renders the diagnostic start as a one-based line:column pair.
func (d Diagnostic) Position() string {
	return fmt.Sprintf("%d:%d", d.StartRow+1, d.StartCol+1)
}
