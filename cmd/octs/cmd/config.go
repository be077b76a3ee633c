package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corey/octs/internal/adapters/bbolt"
	"github.com/corey/octs/internal/adapters/treesitter"
)

func newConfigCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show configuration",
		Long:  "Shows the project root, cache and grammar locations, and logging settings.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := e.cfg
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s\n", e.paint.paint(colorBold, "octs config"))
			fmt.Fprintf(w, "  Root:       %s\n", c.Paths.Project)
			fmt.Fprintf(w, "  Cache:      %s%s\n", c.Paths.CacheDB, cacheNote(c.Paths.CacheDB))
			fmt.Fprintf(w, "  Manifest:   %s%s\n", c.Paths.Manifest, existsNote(c.Paths.Manifest))
			fmt.Fprintf(w, "  Platform:   %s\n", treesitter.PlatformString())
			fmt.Fprintf(w, "  Grammars:\n")
			paths := c.SearchPaths()
			if dl := treesitter.Default().Loader(); dl != nil {
				paths = dl.SearchPaths()
			}
			for _, p := range paths {
				fmt.Fprintf(w, "    %s%s\n", p, existsNote(p))
			}
			fmt.Fprintf(w, "  Log:        %s (%s)\n", c.LogLevel, c.LogFormat)
			fmt.Fprintf(w, "  Jobs:       %d\n", c.Jobs)
			return nil
		},
	}
}

func existsNote(path string) string {
	if _, err := os.Stat(path); err != nil {
		return " (absent)"
	}
	return ""
}

// cacheNote reports how many summaries the cache holds. A cache held open by
// another process is reported rather than waited on twice.
func cacheNote(path string) string {
	if _, err := os.Stat(path); err != nil {
		return " (absent)"
	}
	s, err := bbolt.NewStore(path)
	if err != nil {
		if isDBLockError(err) {
			return " (locked)"
		}
		return " (unreadable)"
	}
	defer s.Close()
	n, err := s.Len()
	if err != nil {
		return " (unreadable)"
	}
	if n == 1 {
		return " (1 entry)"
	}
	return fmt.Sprintf(" (%d entries)", n)
}
