package cmd

import (
	"github.com/spf13/cobra"

	"github.com/corey/octs/internal/parser"
)

func newPatternCmd(e *env) *cobra.Command {
	var multiLine bool
	cmd := &cobra.Command{
		Use:   "pattern <language> <text>",
		Short: "Parse a search pattern",
		Long: "Parse a search pattern and print the node a match is rooted at.\n" +
			"Metavariables ($X, $...ARGS) stand for any node. Exits 1 when the\n" +
			"pattern does not parse cleanly.",
		Example: `  octs pattern hcl 'value = $X'
  octs pattern elixir --multi-line $'x = $A\ny = $B'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parser.Lookup(args[0])
			if err != nil {
				return err
			}
			h := f.New()
			defer h.Close()

			pat, err := h.ParsePattern(cmd.Context(), multiLine, args[1])
			if err != nil {
				return err
			}
			defer pat.Close()

			writePattern(cmd.OutOrStdout(), e.paint, pat)
			if pat.HasError() {
				return exitError{code: exitFailure, msg: "pattern has syntax errors"}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&multiLine, "multi-line", "m", false, "parse as a sequence of statements")
	return cmd
}
