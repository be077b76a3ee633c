// Package elixir registers the Elixir parser factory.
package elixir

import (
	"github.com/corey/octs/internal/adapters/treesitter"
	"github.com/corey/octs/internal/parser"
)

// Name is the registry key for Elixir.
const Name = "elixir"

var factory = mustFactory()

func mustFactory() *parser.Factory {
	f, err := parser.FromManifest(treesitter.Default(), treesitter.BuiltinManifest(), Name)
	if err != nil {
		panic(err)
	}
	return f
}

func init() {
	parser.Register(factory)
}

// Factory returns the Elixir parser factory.
func Factory() *parser.Factory {
	return factory
}

// CreateParser returns a new, unresolved Elixir parser handle.
func CreateParser() *parser.Handle {
	return factory.New()
}
