//go:build lean

package treesitter

// This file is included only when building with -tags lean.
// No grammar is compiled in; every grammar is loaded dynamically from
// .so/.dylib files via the DynamicLoader (purego).
//
// Build with: go build -tags lean ./cmd/octs/

import "unsafe"

var builtinLanguages = map[string]func() unsafe.Pointer{}
