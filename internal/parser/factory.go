package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/corey/octs/internal/adapters/treesitter"
)

// ErrUnknownLanguage is returned when no factory is registered under a name.
var ErrUnknownLanguage = errors.New("unknown language")

// Factory creates parser handles for one language. Creating a handle has no
// side effects: the engine parser is built when the handle is first used.
type Factory struct {
	name       string
	recipe     Recipe
	extensions []string
	logger     *slog.Logger
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithExtensions sets the file extensions the language claims.
func WithExtensions(exts ...string) FactoryOption {
	return func(f *Factory) { f.extensions = append([]string(nil), exts...) }
}

// WithLogger sets the logger handed to every handle. Defaults to slog.Default.
func WithLogger(l *slog.Logger) FactoryOption {
	return func(f *Factory) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFactory returns a factory that builds handles from recipe.
func NewFactory(name string, recipe Recipe, opts ...FactoryOption) *Factory {
	f := &Factory{name: name, recipe: recipe}
	for _, o := range opts {
		o(f)
	}
	return f
}

// FromManifest builds a factory for a grammar listed in m, backed by engine.
func FromManifest(engine *treesitter.Engine, m *treesitter.Manifest, name string, opts ...FactoryOption) (*Factory, error) {
	info, ok := m.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, name)
	}
	base := []FactoryOption{WithExtensions(info.Extensions...)}
	return NewFactory(name, Recipe{Engine: engine, Grammar: info.Grammar()}, append(base, opts...)...), nil
}

// Name returns the language name.
func (f *Factory) Name() string { return f.name }

// Extensions returns the file extensions the language claims.
func (f *Factory) Extensions() []string { return append([]string(nil), f.extensions...) }

// Recipe returns the recipe handles are built from.
func (f *Factory) Recipe() Recipe { return f.recipe }

// New returns a fresh, unresolved handle.
func (f *Factory) New() *Handle {
	logger := f.logger
	if logger == nil {
		logger = slog.Default()
	}
	return newHandle(f.name, f.recipe, logger.With("component", "parser"))
}

var (
	registryMu sync.RWMutex
	registry   = map[string]*Factory{}
)

// Register makes a factory available by name. Registering the same name twice
// panics; language packages register from init.
func Register(f *Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if f == nil {
		panic("parser: Register with nil factory")
	}
	if _, dup := registry[f.name]; dup {
		panic("parser: Register called twice for " + f.name)
	}
	registry[f.name] = f
}

// Lookup returns the factory registered under name.
func Lookup(name string) (*Factory, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, name)
	}
	return f, nil
}

// Names returns the registered language names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForPath returns the factory whose extensions claim path.
func ForPath(path string) (*Factory, error) {
	ext := extOf(path)
	registryMu.RLock()
	defer registryMu.RUnlock()
	if ext != "" {
		for _, name := range sortedKeys(registry) {
			for _, e := range registry[name].extensions {
				if e == ext {
					return registry[name], nil
				}
			}
		}
	}
	return nil, fmt.Errorf("%w: no language for %q", ErrUnknownLanguage, path)
}

func sortedKeys(m map[string]*Factory) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func extOf(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
