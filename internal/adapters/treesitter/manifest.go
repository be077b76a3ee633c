package treesitter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/corey/octs/internal/ports"
)

// GrammarInfo describes a single grammar in the manifest.
type GrammarInfo struct {
	Name       string          `json:"name"`
	ID         ports.GrammarID `json:"id"`
	Version    string          `json:"version"`
	RootKind   string          `json:"root_kind"`
	BodyKinds  []string        `json:"body_kinds,omitempty"`
	Extensions []string        `json:"extensions"`
	RepoURL    string          `json:"repo_url"`
}

// Grammar returns the engine-facing grammar value for this entry.
func (g GrammarInfo) Grammar() Grammar {
	return Grammar{
		ID:        g.ID,
		Name:      g.Name,
		RootKind:  g.RootKind,
		BodyKinds: append([]string(nil), g.BodyKinds...),
	}
}

// Manifest is the grammar registry listing all known grammars.
type Manifest struct {
	Version  int                    `json:"version"`
	Grammars map[string]GrammarInfo `json:"grammars"`
}

// LoadManifest reads a manifest from a JSON file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	for name, info := range m.Grammars {
		if info.Name == "" {
			info.Name = name
			m.Grammars[name] = info
		}
	}
	return &m, nil
}

// Lookup returns the manifest entry for a grammar name.
func (m *Manifest) Lookup(name string) (GrammarInfo, bool) {
	info, ok := m.Grammars[name]
	return info, ok
}

// Names returns all grammar names, sorted.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Grammars))
	for name := range m.Grammars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LanguageForPath maps a file path to a grammar name by extension.
// Returns "" when no grammar claims the file.
func (m *Manifest) LanguageForPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return ""
	}
	for _, name := range m.Names() {
		for _, e := range m.Grammars[name].Extensions {
			if e == ext {
				return name
			}
		}
	}
	return ""
}

// BuiltinManifest returns the grammars this binary knows about.
// This is embedded in the binary so `octs grammars` works without network.
func BuiltinManifest() *Manifest {
	return &Manifest{
		Version: 1,
		Grammars: map[string]GrammarInfo{
			"hcl": {
				Name:       "hcl",
				ID:         ports.GrammarHCL,
				Version:    "1.9.3",
				RootKind:   "config_file",
				BodyKinds:  []string{"body"},
				Extensions: []string{".tf", ".hcl", ".tfvars"},
				RepoURL:    "https://github.com/tree-sitter-grammars/tree-sitter-hcl",
			},
			"elixir": {
				Name:       "elixir",
				ID:         ports.GrammarElixir,
				Version:    "1.9.5",
				RootKind:   "source",
				Extensions: []string{".ex", ".exs"},
				RepoURL:    "https://github.com/elixir-lang/tree-sitter-elixir",
			},
		},
	}
}
