package app

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/corey/octs/internal/adapters/treesitter"
)

// Environment variables read by ApplyEnv.
const (
	EnvGrammarPath = "OCTS_GRAMMAR_PATH"
	EnvLogLevel    = "OCTS_LOG_LEVEL"
	EnvLogFormat   = "OCTS_LOG_FORMAT"
	EnvJobs        = "OCTS_JOBS"
)

// Config is the resolved runtime configuration. Precedence, lowest first:
// defaults, environment, command-line flags.
type Config struct {
	Paths *Paths

	// GrammarPaths are searched for grammar libraries before the defaults.
	GrammarPaths []string

	LogLevel  string
	LogFormat string
	Jobs      int
	Cache     bool
}

// DefaultConfig returns defaults for a project.
func DefaultConfig(projectRoot string) *Config {
	return &Config{
		Paths:     NewPaths(projectRoot),
		LogLevel:  "warn",
		LogFormat: "text",
		Jobs:      runtime.GOMAXPROCS(0),
	}
}

// ApplyEnv overlays values from the environment. getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvGrammarPath); v != "" {
		for _, p := range filepath.SplitList(v) {
			if p = strings.TrimSpace(p); p != "" {
				c.GrammarPaths = append(c.GrammarPaths, p)
			}
		}
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := getenv(EnvLogFormat); v != "" {
		c.LogFormat = v
	}
	if v := getenv(EnvJobs); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("%s: want a positive integer, got %q", EnvJobs, v)
		}
		c.Jobs = n
	}
	return nil
}

// Validate checks values that flags and environment can get wrong.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := ParseFormat(c.LogFormat); err != nil {
		return err
	}
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", c.Jobs)
	}
	return nil
}

// SearchPaths lists grammar directories in lookup order: explicit paths, then
// the project's .octs/grammars, then ~/.octs/grammars.
func (c *Config) SearchPaths() []string {
	paths := append([]string(nil), c.GrammarPaths...)
	return append(paths, treesitter.DefaultGrammarPaths(c.Paths.Project)...)
}

// LoadManifest returns the project's grammar manifest, or nil if it has none.
func (c *Config) LoadManifest() (*treesitter.Manifest, error) {
	if _, err := os.Stat(c.Paths.Manifest); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return treesitter.LoadManifest(c.Paths.Manifest)
}
