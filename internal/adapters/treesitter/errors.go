package treesitter

import (
	"errors"
	"fmt"
)

var (
	// ErrGrammarUnavailable means no compiled-in or loadable grammar exists
	// for a language.
	ErrGrammarUnavailable = errors.New("grammar unavailable")

	// ErrBind means the engine rejected a grammar, usually an ABI mismatch
	// between the grammar and the linked tree-sitter runtime.
	ErrBind = errors.New("bind grammar")

	// ErrNotBound is returned when parsing before a grammar was bound.
	ErrNotBound = errors.New("no grammar bound to parser")

	// ErrEngineClosed is returned when allocating from a closed engine.
	ErrEngineClosed = errors.New("engine closed")

	// ErrTargetIO marks a target file that could not be read. It is distinct
	// from malformed input, which is reported inside the tree.
	ErrTargetIO = errors.New("target unreadable")
)

// TargetError reports an I/O failure on a parse target.
// errors.Is matches both ErrTargetIO and the underlying cause.
type TargetError struct {
	Path string
	Err  error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("read target %s: %v", e.Path, e.Err)
}

func (e *TargetError) Unwrap() []error {
	return []error{ErrTargetIO, e.Err}
}
