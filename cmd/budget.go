package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/dot-spend/internal/budget"
	"github.com/frahmantamala/dot-spend/internal/expense"
	"github.com/frahmantamala/dot-spend/internal/render"
)

var budgetJSON bool

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Manage monthly category budgets",
}

var budgetSetCmd = &cobra.Command{
	Use:     "set <category> <limit>",
	Short:   "Set the monthly limit of a category",
	Example: "  spend budget set food 500",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, err := expense.ParseAmount(args[1])
		if err != nil {
			return err
		}
		return withDeps(cmd.Context(), func(d *Dependencies) error {
			b, err := d.Budgets.Set(args[0], limit)
			if err != nil {
				return err
			}
			render.Success(cmd.OutOrStdout(), "Budget for %s set to %s per month", b.Category, render.Money(b.Limit, d.Ledger.BaseCurrency()))
			return nil
		})
	},
}

var budgetStatusCmd = &cobra.Command{
	Use:   "status [category]",
	Short: "Show spending against each budget this month",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd.Context(), func(d *Dependencies) error {
			d.prepareReports(cmd.Context())
			var statuses []budget.Status
			if len(args) == 1 {
				st, err := d.Budgets.StatusFor(cmd.Context(), args[0], time.Now())
				if err != nil {
					return err
				}
				statuses = []budget.Status{*st}
			} else {
				var err error
				if statuses, err = d.Budgets.Status(cmd.Context(), time.Now()); err != nil {
					return err
				}
			}

			if budgetJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(budget.StatusResponse{Budgets: statuses})
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.Budgets(statuses, d.Ledger.BaseCurrency()))
			for _, s := range statuses {
				if s.Over {
					render.Warn(cmd.ErrOrStderr(), "%s is over budget by %s", s.Category, render.Money(s.Remaining.Neg(), d.Ledger.BaseCurrency()))
				}
			}
			return nil
		})
	},
}

var budgetRemoveCmd = &cobra.Command{
	Use:     "remove <category>",
	Aliases: []string{"rm"},
	Short:   "Remove the budget of a category",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd.Context(), func(d *Dependencies) error {
			if err := d.Budgets.Remove(args[0]); err != nil {
				return err
			}
			render.Success(cmd.OutOrStdout(), "Budget for %s removed", expense.NormalizeCategory(args[0]))
			return nil
		})
	},
}

func init() {
	budgetStatusCmd.Flags().BoolVar(&budgetJSON, "json", false, "print JSON instead of a table")

	budgetCmd.AddCommand(budgetSetCmd, budgetStatusCmd, budgetRemoveCmd)
	rootCmd.AddCommand(budgetCmd)
}
