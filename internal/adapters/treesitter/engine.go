// Package treesitter is the engine runtime behind every parser handle. It
// allocates tree-sitter parsers, binds grammars to them and runs parses.
//
// HCL and Elixir are compiled-in via CGo in the default build. Any other
// grammar (and every grammar under -tags lean) is loaded at runtime from a
// .so/.dylib on the grammar search path through purego.
package treesitter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/corey/octs/internal/ports"
)

// Grammar names a language grammar and the facts about its trees that callers
// rely on. It carries no engine state and is safe to copy.
type Grammar struct {
	ID        ports.GrammarID
	Name      string
	RootKind  string   // kind of the top-level node of a full file
	BodyKinds []string // single container nodes that hold top-level statements
}

// Engine owns grammar resolution and hands out parsers.
type Engine struct {
	mu        sync.Mutex
	loader    *DynamicLoader
	languages map[string]*tree_sitter.Language
	logger    *slog.Logger
	closed    bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLoader enables runtime grammar loading from shared libraries.
func WithLoader(dl *DynamicLoader) Option {
	return func(e *Engine) { e.loader = dl }
}

// WithLogger sets the engine logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine with the compiled-in grammars available.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		languages: make(map[string]*tree_sitter.Language),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = sync.OnceValue(func() *Engine {
	return NewEngine(WithLoader(NewDynamicLoader(DefaultGrammarPaths(""))))
})

// Default returns the process-wide engine shared by the language factories.
func Default() *Engine {
	return defaultEngine()
}

// Configure replaces the loader and logger. Languages already resolved stay
// cached; only grammars resolved afterwards see the new search paths.
func (e *Engine) Configure(opts ...Option) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, opt := range opts {
		opt(e)
	}
}

// Loader returns the dynamic grammar loader, or nil if not configured.
func (e *Engine) Loader() *DynamicLoader {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loader
}

// Builtin reports whether a grammar is compiled into this binary.
func (e *Engine) Builtin(name string) bool {
	_, ok := builtinLanguages[name]
	return ok
}

// Available reports whether a grammar can be resolved, without loading it.
func (e *Engine) Available(name string) bool {
	if e.Builtin(name) {
		return true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.languages[name]; ok {
		return true
	}
	return e.loader != nil && e.loader.GrammarPath(name) != ""
}

// Language resolves a grammar by name: cached, then compiled-in, then the
// dynamic loader. Failures wrap ErrGrammarUnavailable.
func (e *Engine) Language(name string) (*tree_sitter.Language, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if lang, ok := e.languages[name]; ok {
		return lang, nil
	}
	if ctor, ok := builtinLanguages[name]; ok {
		lang := tree_sitter.NewLanguage(ctor())
		e.languages[name] = lang
		e.logger.Debug("grammar resolved", "grammar", name, "source", "builtin")
		return lang, nil
	}
	if e.loader == nil {
		return nil, fmt.Errorf("%w: grammar %q is not compiled in and dynamic loading is disabled", ErrGrammarUnavailable, name)
	}
	lang, err := e.loader.LoadGrammar(name)
	if err != nil {
		e.logger.Warn("grammar load failed", "grammar", name, "err", err)
		return nil, err
	}
	e.languages[name] = lang
	e.logger.Debug("grammar resolved", "grammar", name, "source", "dynamic")
	return lang, nil
}

// AllocateParser creates a parser with no grammar bound.
func (e *Engine) AllocateParser() (*EngineParser, error) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return nil, ErrEngineClosed
	}
	return &EngineParser{engine: e, inner: tree_sitter.NewParser()}, nil
}

// Close stops the engine from allocating parsers and drops loaded grammars.
// Parsers already handed out keep working.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	if e.loader != nil {
		e.loader.Close()
	}
}

// EngineParser is one native parser. It is not safe for concurrent use.
type EngineParser struct {
	engine  *Engine
	inner   *tree_sitter.Parser
	grammar Grammar
	bound   bool
}

// BindGrammar resolves g and sets it as the parser's language.
func (p *EngineParser) BindGrammar(g Grammar) error {
	if p == nil || p.inner == nil {
		return errors.New("nil parser")
	}
	lang, err := p.engine.Language(g.Name)
	if err != nil {
		return err
	}
	if err := p.inner.SetLanguage(lang); err != nil {
		return fmt.Errorf("%w %q: %w", ErrBind, g.Name, err)
	}
	p.grammar = g
	p.bound = true
	return nil
}

// Grammar returns the bound grammar. ok is false before BindGrammar succeeds.
func (p *EngineParser) Grammar() (g Grammar, ok bool) {
	if p == nil {
		return g, false
	}
	return p.grammar, p.bound
}

// ParseFragment parses src with the bound grammar. Malformed input is not an
// error: it shows up as ERROR and MISSING nodes in the returned tree.
func (p *EngineParser) ParseFragment(ctx context.Context, src []byte) (*Tree, error) {
	return p.parse(ctx, src, "")
}

// ParseFile reads and parses the file at path. Read failures are returned as
// *TargetError.
func (p *EngineParser) ParseFile(ctx context.Context, path string) (*Tree, error) {
	if p == nil || p.inner == nil {
		return nil, errors.New("nil parser")
	}
	if !p.bound {
		return nil, ErrNotBound
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &TargetError{Path: path, Err: err}
	}
	return p.parse(ctx, src, path)
}

// ParseSource parses src as the contents of the target at path.
func (p *EngineParser) ParseSource(ctx context.Context, path string, src []byte) (*Tree, error) {
	return p.parse(ctx, src, path)
}

func (p *EngineParser) parse(ctx context.Context, src []byte, path string) (*Tree, error) {
	if p == nil || p.inner == nil {
		return nil, errors.New("nil parser")
	}
	if !p.bound {
		return nil, ErrNotBound
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	source := slices.Clone(src)
	raw := p.inner.ParseWithOptions(func(i int, _ tree_sitter.Point) []byte {
		if i >= len(source) {
			return nil
		}
		return source[i:]
	}, nil, &tree_sitter.ParseOptions{
		ProgressCallback: func(_ tree_sitter.ParseState) bool {
			return ctx.Err() != nil
		},
	})
	if err := ctx.Err(); err != nil {
		if raw != nil {
			raw.Close()
		}
		p.inner.Reset()
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("tree-sitter parse returned nil tree")
	}
	return &Tree{inner: raw, source: source, grammar: p.grammar, path: path}, nil
}

// Close releases the native parser. Safe to call more than once.
func (p *EngineParser) Close() {
	if p == nil || p.inner == nil {
		return
	}
	p.inner.Close()
	p.inner = nil
	p.bound = false
}
