package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/corey/octs/internal/adapters/treesitter"
	"github.com/corey/octs/internal/app"
	"github.com/corey/octs/internal/parser"

	// Language factories register themselves with the parser registry.
	_ "github.com/corey/octs/internal/languages/elixir"
	_ "github.com/corey/octs/internal/languages/hcl"
)

// env is the state shared by every subcommand of one invocation.
type env struct {
	cfg    *app.Config
	logger *slog.Logger
	paint  painter
	stderr io.Writer

	// persistent flag values
	dir          string
	logLevel     string
	logFormat    string
	colorFlag    string
	grammarPaths []string
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	e := &env{stderr: os.Stderr}

	root := &cobra.Command{
		Use:   "octs",
		Short: "octs: tree-sitter parsers for HCL and Elixir",
		Long: "Parse search patterns and source files with lazily built, per-language\n" +
			"tree-sitter parsers. HCL (Terraform) and Elixir are compiled in; other\n" +
			"grammars load from .octs/grammars.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			e.stderr = cmd.ErrOrStderr()
			return e.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&e.dir, "dir", "C", ".", "project directory")
	pf.StringVar(&e.logLevel, "log-level", "", "log level: trace, debug, info, warn, error (default warn, or $"+app.EnvLogLevel+")")
	pf.StringVar(&e.logFormat, "log-format", "", "log format: text or json")
	pf.StringVar(&e.colorFlag, "color", "auto", "colorize output: auto, always, never")
	pf.StringSliceVar(&e.grammarPaths, "grammar-path", nil, "extra directories searched for grammar libraries")

	root.AddCommand(
		newLangCmd(e),
		newPatternCmd(e),
		newParseCmd(e),
		newGrammarsCmd(e),
		newWatchCmd(e),
		newConfigCmd(e),
	)
	return root
}

// setup resolves configuration (defaults, then environment, then flags),
// installs the logger and points the shared engine at the grammar paths.
func (e *env) setup(cmd *cobra.Command) error {
	root, err := app.FindProjectRoot(e.dir)
	if err != nil {
		return fmt.Errorf("resolve project root: %w", err)
	}
	cfg := app.DefaultConfig(root)
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = e.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = e.logFormat
	}
	if flags.Changed("grammar-path") {
		cfg.GrammarPaths = slices.Concat(e.grammarPaths, cfg.GrammarPaths)
	}
	if f := flags.Lookup("jobs"); f != nil && f.Changed {
		if cfg.Jobs, err = flags.GetInt("jobs"); err != nil {
			return err
		}
	}
	if f := flags.Lookup("cache"); f != nil {
		if cfg.Cache, err = flags.GetBool("cache"); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := app.NewLogger(e.stderr, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	treesitter.Default().Configure(
		treesitter.WithLoader(treesitter.NewDynamicLoader(cfg.SearchPaths())),
		treesitter.WithLogger(logger.With("component", "engine")),
	)

	e.cfg = cfg
	e.logger = logger
	e.paint = painter(resolveColor(e.colorFlag))
	return e.registerManifest()
}

// registerManifest adds factories for grammars listed in the project's
// manifest that no compiled-in language already provides.
func (e *env) registerManifest() error {
	m, err := e.cfg.LoadManifest()
	if err != nil {
		return err
	}
	if m == nil {
		return nil
	}
	for _, name := range m.Names() {
		if _, err := parser.Lookup(name); err == nil {
			continue
		}
		f, err := parser.FromManifest(treesitter.Default(), m, name)
		if err != nil {
			return err
		}
		parser.Register(f)
		e.logger.Debug("registered manifest grammar", "language", name)
	}
	return nil
}

// factoryFor finds a language by name, or by the path's extension when name
// is empty.
func factoryFor(name, path string) (*parser.Factory, error) {
	if name != "" {
		return parser.Lookup(name)
	}
	return parser.ForPath(path)
}
