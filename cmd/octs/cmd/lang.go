package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corey/octs/internal/parser"
)

func newLangCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "lang <language>",
		Short: "Print the grammar identifier of a language",
		Args:  cobra.ExactArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return parser.Names(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parser.Lookup(args[0])
			if err != nil {
				return err
			}
			h := f.New()
			defer h.Close()

			id, err := h.Lang(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", h.Name(), id)
			return nil
		},
	}
}
