package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var routesCmd = &cobra.Command{
	Use:   "routes <doc>...",
	Short: "Show rule-tree statistics of every schema",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRoutes,
}

func init() {
	rootCmd.AddCommand(routesCmd)
}

func runRoutes(cmd *cobra.Command, args []string) error {
	schemas, err := loadSchemas(args)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCHEMA\tRULES\tALTERNATIVES\tDEPTH\tCOST\tFORMATS\tCUSTOM")
	for _, s := range schemas.All() {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
			s.Name, s.Stats.Rules, s.Stats.Alternatives, s.Stats.Depth, s.Stats.Cost,
			orDash(s.Stats.Formats), orDash(s.Stats.Custom))
	}
	return w.Flush()
}

func orDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ",")
}
