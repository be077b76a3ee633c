// Package fsnotify implements the ports.Watcher interface using github.com/fsnotify/fsnotify.
// It recursively watches a directory of parse targets, skips VCS, dependency
// and build directories, and debounces bursts of events per file (editors
// often write several times per save).
package fsnotify

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/corey/octs/internal/ports"
)

// DefaultDebounce is how long a file must stay quiet before onChange fires.
const DefaultDebounce = 50 * time.Millisecond

// Directories to ignore when watching.
var ignoreDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	".octs":        true,
	".terraform":   true,
	".elixir_ls":   true,
	"_build":       true,
	"deps":         true,
	"node_modules": true,
	"vendor":       true,
	".idea":        true,
	".vscode":      true,
}

// File names and suffixes to ignore.
var ignoreFiles = map[string]bool{
	".DS_Store":       true,
	".swp":            true,
	".tfstate":        true,
	".tfstate.backup": true,
	".beam":           true,
	"~":               true,
}

var _ ports.Watcher = (*Watcher)(nil)

// Watcher implements ports.Watcher using fsnotify.
type Watcher struct {
	fw       *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	done    chan struct{}
	stopped bool
	pending map[string]*time.Timer
	firing  sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period per file.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets where watch errors are reported.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher creates a new file system watcher.
func NewWatcher(opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fw:       fw,
		debounce: DefaultDebounce,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		done:     make(chan struct{}),
		pending:  make(map[string]*time.Timer),
	}
	for _, o := range opts {
		o(w)
	}
	return w, nil
}

// Watch starts monitoring root recursively. onChange receives the absolute
// path of each changed file that accept allows; a nil accept allows all.
func (w *Watcher) Watch(root string, accept func(path string) bool, onChange func(path string)) error {
	absPath, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	if _, err := os.Stat(absPath); err != nil {
		return err
	}
	if accept == nil {
		accept = func(string) bool { return true }
	}

	err = filepath.WalkDir(absPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible paths
		}
		if d.IsDir() {
			if shouldIgnoreDir(d.Name()) && path != absPath {
				return filepath.SkipDir
			}
			return w.fw.Add(path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	go w.loop(accept, onChange)
	return nil
}

func (w *Watcher) loop(accept func(string) bool, onChange func(string)) {
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			path := event.Name

			// New directories join the watch list.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(path); err == nil && info.IsDir() {
					if !shouldIgnoreDir(info.Name()) {
						if err := w.fw.Add(path); err != nil {
							w.logger.Warn("watch directory", "path", path, "err", err)
						}
					}
					continue
				}
			}

			if shouldIgnorePath(path) || !accept(path) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.schedule(path, onChange)
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Debug("watch error", "err", err)

		case <-w.done:
			return
		}
	}
}

// schedule (re)arms the per-file timer so onChange fires once the file has
// been quiet for the debounce period.
func (w *Watcher) schedule(path string, onChange func(string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.scheduleLocked(path, onChange)
}

func (w *Watcher) scheduleLocked(path string, onChange func(string)) {
	if w.stopped {
		return
	}
	if t, ok := w.pending[path]; ok && t.Stop() {
		t.Reset(w.debounce)
		return
	}
	// Either no timer, or its callback has already been released and will
	// find it is no longer the pending one.
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		if w.stopped || w.pending[path] != t {
			w.mu.Unlock()
			return
		}
		delete(w.pending, path)
		w.firing.Add(1)
		w.mu.Unlock()

		defer w.firing.Done()
		onChange(path)
	})
	w.pending[path] = t
}

// Stop ends monitoring and releases all resources. No onChange call is
// running or will start once Stop returns. Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	close(w.done)
	w.mu.Unlock()

	w.firing.Wait()
	return w.fw.Close()
}

// shouldIgnoreDir returns true if the directory name should be skipped.
func shouldIgnoreDir(name string) bool {
	return ignoreDirs[name]
}

// shouldIgnorePath returns true if the file path should not trigger onChange.
func shouldIgnorePath(path string) bool {
	base := filepath.Base(path)
	if ignoreFiles[base] {
		return true
	}
	for suffix := range ignoreFiles {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if ignoreDirs[part] {
			return true
		}
	}
	return false
}
