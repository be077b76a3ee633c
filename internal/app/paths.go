package app

import (
	"errors"
	"os"
	"path/filepath"
)

// DirName is the per-project state directory.
const DirName = ".octs"

// Paths holds all resolved filesystem paths for the .octs/ project directory.
// All fields are pre-computed strings.
type Paths struct {
	Project string // project root
	Root    string // .octs/
	CacheDB string // .octs/cache.db

	GrammarsDir string // .octs/grammars/
	Manifest    string // .octs/grammars/manifest.json
}

// NewPaths constructs all resolved paths from a project root directory.
func NewPaths(projectRoot string) *Paths {
	root := filepath.Join(projectRoot, DirName)
	return &Paths{
		Project: projectRoot,
		Root:    root,
		CacheDB: filepath.Join(root, "cache.db"),

		GrammarsDir: filepath.Join(root, "grammars"),
		Manifest:    filepath.Join(root, "grammars", "manifest.json"),
	}
}

// EnsureDirs creates all subdirectories under .octs/. Idempotent.
func (p *Paths) EnsureDirs() error {
	for _, d := range []string{p.Root, p.GrammarsDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}

// FindProjectRoot walks up from dir to the nearest directory holding .octs/
// or .git. Falls back to dir itself.
func FindProjectRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for cur := abs; ; {
		for _, marker := range []string{DirName, ".git"} {
			if _, err := os.Stat(filepath.Join(cur, marker)); err == nil {
				return cur, nil
			} else if !errors.Is(err, os.ErrNotExist) {
				return "", err
			}
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return abs, nil
		}
		cur = parent
	}
}
