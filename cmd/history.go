package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/dot-spend/internal/render"
)

var (
	historyLimit int
	historyJSON  bool
)

var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Revert the last add, edit or delete",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd.Context(), func(d *Dependencies) error {
			entry, err := d.History.Undo(cmd.Context())
			if err != nil {
				return err
			}
			render.Success(cmd.OutOrStdout(), "Undid: %s", entry.Describe())
			return nil
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent changes to the ledger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd.Context(), func(d *Dependencies) error {
			entries, err := d.History.List(historyLimit)
			if err != nil {
				return err
			}
			if historyJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No history yet.")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", e.At.Local().Format("2006-01-02 15:04"), e.Describe())
			}
			return nil
		})
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "last", "n", 10, "number of entries (0 for all)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print JSON")

	rootCmd.AddCommand(undoCmd, historyCmd)
}
