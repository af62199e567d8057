package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deicod/ermsearch/search"
)

func newPredicatesCmd() *cobra.Command {
	var compounds bool
	cmd := &cobra.Command{
		Use:   "predicates",
		Short: "List the registered search predicates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printPredicates(cmd.OutOrStdout(), search.DefaultRegistry(), compounds)
			return nil
		},
	}
	cmd.Flags().BoolVar(&compounds, "compounds", false, "Include derived _any and _all predicates")
	return cmd
}

func printPredicates(out io.Writer, reg *search.Registry, compounds bool) {
	for _, where := range reg.Wheres() {
		if where.Compound != "" && !compounds {
			continue
		}
		line := fmt.Sprintf("%-28s %s", where.Name, where.Types)
		if len(where.Aliases) > 0 {
			line += "  aliases: " + strings.Join(where.Aliases, ", ")
		}
		if where.Splat {
			line += "  (list)"
		}
		fmt.Fprintln(out, line)
	}
}
