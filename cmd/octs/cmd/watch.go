package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/corey/octs/internal/adapters/fsnotify"
	"github.com/corey/octs/internal/adapters/treesitter"
	"github.com/corey/octs/internal/parser"
	"github.com/corey/octs/internal/ports"
)

func newWatchCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir]",
		Short: "Reparse files as they change and report syntax problems",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := e.cfg.Paths.Project
			if len(args) == 1 {
				dir = args[0]
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, e, cmd, dir)
		},
	}
}

func runWatch(ctx context.Context, e *env, cmd *cobra.Command, dir string) error {
	w, err := fsnotify.NewWatcher(fsnotify.WithLogger(e.logger.With("component", "watch")))
	if err != nil {
		return err
	}
	s := newWatchSession(ctx, e, cmd.OutOrStdout(), w)
	defer s.close()

	if err := w.Watch(dir, s.accept, s.onChange); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	e.logger.Info("watching", "dir", dir, "languages", parser.Names())

	<-ctx.Done()
	return nil
}

// watchSession reparses changed files with one handle per language.
type watchSession struct {
	ctx context.Context
	e   *env
	out io.Writer
	w   ports.Watcher

	mu      sync.Mutex
	closed  bool
	handles map[string]*parser.Handle
}

func newWatchSession(ctx context.Context, e *env, out io.Writer, w ports.Watcher) *watchSession {
	return &watchSession{ctx: ctx, e: e, out: out, w: w, handles: make(map[string]*parser.Handle)}
}

func (s *watchSession) accept(path string) bool {
	_, err := parser.ForPath(path)
	return err == nil
}

func (s *watchSession) onChange(path string) {
	f, err := parser.ForPath(path)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	h, ok := s.handles[f.Name()]
	if !ok {
		h = f.New()
		s.handles[f.Name()] = h
	}
	tree, err := h.ParseTarget(s.ctx, path)
	switch {
	case errors.Is(err, treesitter.ErrTargetIO):
		fmt.Fprintf(s.out, "%s: removed\n", s.e.paint.paint(colorCyan, path))
		return
	case err != nil:
		s.e.logger.Warn("parse failed", "path", path, "err", err)
		return
	}
	defer tree.Close()
	writeSummary(s.out, s.e.paint, tree.Summary(), false)
}

// close stops the watcher before releasing handles, so no callback can
// create a handle after they are gone.
func (s *watchSession) close() {
	if err := s.w.Stop(); err != nil {
		s.e.logger.Debug("stop watcher", "err", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for name, h := range s.handles {
		h.Close()
		delete(s.handles, name)
	}
}
