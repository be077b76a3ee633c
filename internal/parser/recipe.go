package parser

import (
	"fmt"

	"github.com/corey/octs/internal/adapters/treesitter"
)

// Recipe builds one engine parser for one grammar: allocate, then bind.
// It is the only place a handle's engine parser comes from.
type Recipe struct {
	Engine  *treesitter.Engine
	Grammar treesitter.Grammar
}

// Build allocates a parser and binds the recipe's grammar to it. A parser that
// fails to bind is released before returning.
func (r Recipe) Build() (*treesitter.EngineParser, error) {
	if r.Engine == nil {
		return nil, fmt.Errorf("recipe %q: no engine", r.Grammar.Name)
	}
	p, err := r.Engine.AllocateParser()
	if err != nil {
		return nil, fmt.Errorf("allocate parser for %s: %w", r.Grammar.Name, err)
	}
	if err := p.BindGrammar(r.Grammar); err != nil {
		p.Close()
		return nil, fmt.Errorf("bind %s: %w", r.Grammar.Name, err)
	}
	return p, nil
}
