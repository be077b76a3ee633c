// Package hcl registers the HCL parser factory. HCL is the configuration
// language of Terraform; .tf, .hcl and .tfvars files parse with it.
package hcl

import (
	"github.com/corey/octs/internal/adapters/treesitter"
	"github.com/corey/octs/internal/parser"
)

// Name is the registry key for HCL.
const Name = "hcl"

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

// Factory returns the HCL parser factory.
func Factory() *parser.Factory {
	return factory
}

// CreateParser returns a new, unresolved HCL parser handle.
func CreateParser() *parser.Handle {
	return factory.New()
}
