package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the registered implementations",
	Long: `Print every dispatch table with its entries and the argument types each
entry accepts. None marks an absent argument and _ a wildcard.`,
	RunE: runCatalog,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}

func runCatalog(cmd *cobra.Command, args []string) error {
	e, reg, err := newEngine(cmd)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, table := range e.Tables() {
		fmt.Fprintf(w, "%s (%d entries)\n", table.Name, len(table.Entries))
		for _, entry := range table.Entries {
			fmt.Fprintf(w, "  %s\t%s\n", entry.Name, entry.Pattern)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return finish(cmd, reg)
}
