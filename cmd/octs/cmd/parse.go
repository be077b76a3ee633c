package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/corey/octs/internal/adapters/bbolt"
	"github.com/corey/octs/internal/adapters/treesitter"
	"github.com/corey/octs/internal/parser"
	"github.com/corey/octs/internal/ports"
)

type parseOpts struct {
	lang  string
	sexp  bool
	purge bool
}

func newParseCmd(e *env) *cobra.Command {
	var opts parseOpts
	cmd := &cobra.Command{
		Use:   "parse [--lang L] <file>...",
		Short: "Parse source files and report syntax problems",
		Long: "Parse each file with the parser for its language (by extension unless\n" +
			"--lang is given) and print the root node kind and any syntax problems.\n" +
			"Exits 1 when a file has syntax errors and 2 when a file cannot be read.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd.Context(), e, cmd, opts, args)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.lang, "lang", "l", "", "language for every file (default: by extension)")
	f.BoolVar(&opts.sexp, "sexp", false, "print the syntax tree as an s-expression")
	f.Bool("cache", false, "reuse summaries from .octs/cache.db for unchanged files")
	f.BoolVar(&opts.purge, "purge-cache", false, "empty the summary cache before parsing (implies --cache)")
	f.IntP("jobs", "j", 0, "parallel workers (default GOMAXPROCS, or $OCTS_JOBS)")
	return cmd
}

// parseResult is one file's outcome; exactly one of summary and err is set.
type parseResult struct {
	summary *ports.Summary
	err     error
}

func runParse(ctx context.Context, e *env, cmd *cobra.Command, opts parseOpts, paths []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var store *bbolt.Store
	if e.cfg.Cache || opts.purge {
		if err := e.cfg.Paths.EnsureDirs(); err != nil {
			return err
		}
		s, err := bbolt.NewStore(e.cfg.Paths.CacheDB)
		if err != nil {
			if isDBLockError(err) {
				return fmt.Errorf("%w\n  → another octs process holds %s", err, e.cfg.Paths.CacheDB)
			}
			return err
		}
		defer s.Close()
		store = s
		if opts.purge {
			if err := s.Purge(); err != nil {
				return fmt.Errorf("purge %s: %w", e.cfg.Paths.CacheDB, err)
			}
			e.logger.Info("cache purged", "path", e.cfg.Paths.CacheDB)
		}
	}

	results := make([]parseResult, len(paths))
	jobs := make(chan int)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := range paths {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	workers := min(e.cfg.Jobs, len(paths))
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			pw := newParseWorker(summaryStore(store), e)
			defer pw.close()
			for i := range jobs {
				results[i] = pw.parse(gctx, opts.lang, paths[i])
				if err := gctx.Err(); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if store != nil {
		if n, err := store.Len(); err == nil {
			e.logger.Debug("cache size", "entries", n)
		}
	}

	out := cmd.OutOrStdout()
	code := exitOK
	for i, r := range results {
		switch {
		case r.err != nil:
			fmt.Fprintf(e.stderr, "%s: %v\n", paths[i], r.err)
			if errors.Is(r.err, treesitter.ErrTargetIO) {
				code = exitIO
			} else if code == exitOK {
				code = exitFailure
			}
		default:
			writeSummary(out, e.paint, r.summary, opts.sexp)
			if r.summary.HasError && code == exitOK {
				code = exitFailure
			}
		}
	}
	if code != exitOK {
		return exitError{code: code}
	}
	return nil
}

// parseWorker owns one handle per language it has seen. Handles are never
// shared between workers, so parses on different workers run in parallel.
type parseWorker struct {
	store   ports.SummaryStore
	e       *env
	handles map[string]*parser.Handle
}

func newParseWorker(store ports.SummaryStore, e *env) *parseWorker {
	return &parseWorker{store: store, e: e, handles: make(map[string]*parser.Handle)}
}

func (w *parseWorker) handle(f *parser.Factory) *parser.Handle {
	h, ok := w.handles[f.Name()]
	if !ok {
		h = f.New()
		w.handles[f.Name()] = h
	}
	return h
}

func (w *parseWorker) parse(ctx context.Context, lang, path string) parseResult {
	f, err := factoryFor(lang, path)
	if err != nil {
		return parseResult{err: err}
	}

	// One read serves both the cache key and the parse, so a summary is
	// always stored under the hash of the bytes it describes.
	src, err := os.ReadFile(path)
	if err != nil {
		return parseResult{err: &treesitter.TargetError{Path: path, Err: err}}
	}

	var key string
	if w.store != nil {
		key = bbolt.Key(f.Name(), src)
		if sum, err := w.store.Get(key); err != nil {
			w.e.logger.Warn("cache read failed, dropping entry", "path", path, "err", err)
			if err := w.store.Delete(key); err != nil {
				w.e.logger.Warn("cache delete failed", "path", path, "err", err)
			}
		} else if sum != nil {
			w.e.logger.Debug("cache hit", "path", path)
			sum.Path = path
			return parseResult{summary: sum}
		}
	}

	tree, err := w.handle(f).ParseSource(ctx, path, src)
	if err != nil {
		return parseResult{err: err}
	}
	defer tree.Close()
	sum := tree.Summary()

	if w.store != nil {
		if err := w.store.Put(key, sum); err != nil {
			w.e.logger.Warn("cache write failed", "path", path, "err", err)
		}
	}
	return parseResult{summary: sum}
}

func (w *parseWorker) close() {
	for _, h := range w.handles {
		h.Close()
	}
}

// summaryStore keeps a nil *bbolt.Store from becoming a non-nil interface.
func summaryStore(s *bbolt.Store) ports.SummaryStore {
	if s == nil {
		return nil
	}
	return s
}
