//go:build !lean

package treesitter

// This file registers the compiled-in grammars. It is included in the default
// build (go build / go install) but excluded when building with -tags lean,
// which produces a binary that loads grammars dynamically from .so/.dylib files.

import (
	"unsafe"

	forest_elixir "github.com/alexaandru/go-sitter-forest/elixir"
	forest_hcl "github.com/alexaandru/go-sitter-forest/hcl"
)

// builtinLanguages maps grammar names to their compiled-in TSLanguage constructors.
var builtinLanguages = map[string]func() unsafe.Pointer{
	"hcl":    forest_hcl.GetLanguage,
	"elixir": forest_elixir.GetLanguage,
}
