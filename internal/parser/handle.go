package parser

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/corey/octs/internal/adapters/treesitter"
	"github.com/corey/octs/internal/lazy"
	"github.com/corey/octs/internal/ports"
)

// ErrClosed is returned by every operation on a closed handle.
var ErrClosed = errors.New("parser handle closed")

// Handle is a parser for one grammar whose engine parser is built on first use.
//
// Lang, ParsePattern and ParseTarget all resolve the engine parser if needed.
// Resolution happens once per handle even under concurrent first use; parse
// calls on the same handle are serialized because the engine is not reentrant.
type Handle struct {
	name   string
	cell   *lazy.Cell[*treesitter.EngineParser]
	logger *slog.Logger

	mu     sync.Mutex // serializes engine use and guards closed
	closed bool
}

func newHandle(name string, b lazy.Builder[*treesitter.EngineParser], logger *slog.Logger) *Handle {
	return &Handle{
		name:   name,
		cell:   lazy.New(b),
		logger: logger,
	}
}

// Name returns the language name the handle was created for.
func (h *Handle) Name() string {
	return h.name
}

// Resolved reports whether the engine parser has been built.
func (h *Handle) Resolved() bool {
	return h.cell.State() == lazy.Resolved
}

// resolve returns the engine parser, building it on first use.
func (h *Handle) resolve(ctx context.Context) (*treesitter.EngineParser, error) {
	if h.cell.State() == lazy.Resolved {
		return h.cell.Resolve(ctx)
	}
	start := time.Now()
	p, err := h.cell.Resolve(ctx)
	if err != nil {
		h.logger.Warn("parser construction failed", "language", h.name, "attempts", h.cell.Attempts(), "err", err)
		return nil, err
	}
	h.logger.Debug("parser resolved", "language", h.name, "duration", time.Since(start))
	return p, nil
}

// acquire resolves the engine parser and locks the handle for one engine call.
// The caller must unlock h.mu when err is nil.
func (h *Handle) acquire(ctx context.Context) (*treesitter.EngineParser, error) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	p, err := h.resolve(ctx)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	if h.closed {
		// Close ran while we were resolving; the parser is ours to release.
		h.releaseLocked()
		h.mu.Unlock()
		return nil, ErrClosed
	}
	return p, nil
}

// Lang returns the identifier of the grammar bound to the engine parser.
func (h *Handle) Lang(ctx context.Context) (ports.GrammarID, error) {
	p, err := h.acquire(ctx)
	if err != nil {
		return ports.GrammarUnknown, err
	}
	defer h.mu.Unlock()
	g, _ := p.Grammar()
	return g.ID, nil
}

// ParsePattern parses a search pattern. multiLine selects multi-statement
// context; otherwise the pattern is read as a single construct.
// Malformed patterns are not errors: inspect Pattern.HasError.
func (h *Handle) ParsePattern(ctx context.Context, multiLine bool, text string) (*Pattern, error) {
	p, err := h.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer h.mu.Unlock()

	masked, metavars := maskMetavariables(text)
	tree, err := p.ParseFragment(ctx, []byte(masked))
	if err != nil {
		return nil, err
	}
	return newPattern(tree, text, multiLine, metavars), nil
}

// ParseTarget reads and parses a source file. An unreadable file fails with
// an error matching treesitter.ErrTargetIO; malformed source does not fail.
func (h *Handle) ParseTarget(ctx context.Context, path string) (*treesitter.Tree, error) {
	p, err := h.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer h.mu.Unlock()
	return p.ParseFile(ctx, path)
}

// ParseSource parses src as the contents of path, for callers that already
// read the target (to hash it, say) and must parse exactly those bytes.
func (h *Handle) ParseSource(ctx context.Context, path string, src []byte) (*treesitter.Tree, error) {
	p, err := h.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer h.mu.Unlock()
	return p.ParseSource(ctx, path, src)
}

// Close releases the engine parser if it was built. Further operations return
// ErrClosed. Safe to call more than once.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.releaseLocked()
	return nil
}

func (h *Handle) releaseLocked() {
	if p, ok := h.cell.Take(); ok {
		p.Close()
	}
}
