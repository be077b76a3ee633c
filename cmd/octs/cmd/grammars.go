package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/corey/octs/internal/adapters/treesitter"
	"github.com/corey/octs/internal/parser"
)

func newGrammarsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "grammars",
		Short: "List registered languages and where their grammars come from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine := treesitter.Default()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "LANGUAGE\tID\tROOT\tEXTENSIONS\tSOURCE")
			for _, name := range parser.Names() {
				f, err := parser.Lookup(name)
				if err != nil {
					return err
				}
				g := f.Recipe().Grammar
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n",
					name, g.ID, g.RootKind, strings.Join(f.Extensions(), " "), grammarSource(e, engine, name))
			}
			// Libraries on the search path that no manifest entry describes.
			if dl := engine.Loader(); dl != nil {
				for _, name := range dl.InstalledGrammars() {
					if _, err := parser.Lookup(name); err == nil {
						continue
					}
					fmt.Fprintf(tw, "%s\t-\t-\t-\t%s %s\n",
						name, dl.GrammarPath(name), e.paint.paint(colorYellow, "(unregistered)"))
				}
			}
			return tw.Flush()
		},
	}
}

func grammarSource(e *env, engine *treesitter.Engine, name string) string {
	switch {
	case engine.Builtin(name):
		return "builtin"
	case engine.Available(name):
		if dl := engine.Loader(); dl != nil {
			return dl.GrammarPath(name)
		}
		return "loaded"
	default:
		return e.paint.paint(colorYellow, "missing")
	}
}
