package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/expense"
	"github.com/frahmantamala/dot-spend/internal/render"
)

var (
	addAmount   string
	addCategory string
	addNote     string
	addDate     string
	addCurrency string

	listLast     int
	listCategory string
	listFrom     string
	listTo       string
	listSource   string
	listJSON     bool

	editAmount   string
	editCategory string
	editNote     string
	editDate     string
	editCurrency string

	nukeYes bool
	nukeAll bool
)

var addCmd = &cobra.Command{
	Use:   "add [amount] [category] [note...]",
	Short: "Record an expense",
	Example: `  spend add 12.50 food lunch with team
  spend add -a 40 -c transport -n "airport taxi" --date yesterday`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 && addAmount == "" {
			addAmount, args = args[0], args[1:]
		}
		if len(args) > 0 && addCategory == "" {
			addCategory, args = args[0], args[1:]
		}
		if len(args) > 0 && addNote == "" {
			addNote = strings.Join(args, " ")
		}
		if addAmount == "" || addCategory == "" {
			return internal.NewValidationError("amount and category are required", internal.ErrCodeValidationFailed)
		}

		amount, err := expense.ParseAmount(addAmount)
		if err != nil {
			return err
		}
		dto := expense.AddExpenseDTO{
			Amount:   amount,
			Currency: strings.ToUpper(addCurrency),
			Category: addCategory,
			Note:     addNote,
			Source:   expense.SourceManual,
		}
		if addDate != "" {
			date, err := expense.ParseDate(addDate, time.Now())
			if err != nil {
				return err
			}
			dto.Date = &date
		}

		return withDeps(cmd.Context(), func(d *Dependencies) error {
			exp, err := d.Ledger.Add(cmd.Context(), dto)
			if err != nil {
				return err
			}
			render.Success(cmd.OutOrStdout(), "Added %s %s %s [%s]",
				render.Money(exp.Amount, exp.Currency), exp.Category, exp.Note, exp.ID)
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show recorded expenses, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := parseFilter(listLast, listCategory, listFrom, listTo, listSource)
		if err != nil {
			return err
		}
		return withDeps(cmd.Context(), func(d *Dependencies) error {
			d.prepareReports(cmd.Context())
			expenses, err := d.Ledger.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if listJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(expense.ListResponse{Expenses: expenses, Count: len(expenses)})
			}
			total, err := d.Ledger.Total(cmd.Context(), filter)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.Expenses(expenses, total, d.Ledger.BaseCurrency()))
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id>...",
	Aliases: []string{"rm"},
	Short:   "Delete expenses by id",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd.Context(), func(d *Dependencies) error {
			for _, id := range args {
				if err := d.Ledger.Delete(cmd.Context(), id); err != nil {
					return err
				}
				render.Success(cmd.OutOrStdout(), "Deleted %s", id)
			}
			return nil
		})
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change fields of an expense",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var dto expense.EditExpenseDTO
		flags := cmd.Flags()
		if flags.Changed("amount") {
			amount, err := expense.ParseAmount(editAmount)
			if err != nil {
				return err
			}
			dto.Amount = &amount
		}
		if flags.Changed("category") {
			dto.Category = &editCategory
		}
		if flags.Changed("note") {
			dto.Note = &editNote
		}
		if flags.Changed("currency") {
			code := strings.ToUpper(editCurrency)
			dto.Currency = &code
		}
		if flags.Changed("date") {
			date, err := expense.ParseDate(editDate, time.Now())
			if err != nil {
				return err
			}
			dto.Date = &date
		}

		return withDeps(cmd.Context(), func(d *Dependencies) error {
			exp, err := d.Ledger.Edit(cmd.Context(), args[0], dto)
			if err != nil {
				return err
			}
			render.Success(cmd.OutOrStdout(), "Updated %s: %s %s %s", exp.ID,
				render.Money(exp.Amount, exp.Currency), exp.Category, exp.Date.Format("2006-01-02"))
			return nil
		})
	},
}

var nukeCmd = &cobra.Command{
	Use:   "nuke",
	Short: "Delete ALL expenses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !nukeYes && !confirm(cmd, "Are you sure you want to delete ALL expenses?") {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
		return withDeps(cmd.Context(), func(d *Dependencies) error {
			removed, err := d.Ledger.Nuke(cmd.Context())
			if err != nil {
				return err
			}
			render.Success(cmd.OutOrStdout(), "Removed %d expense(s)", removed)
			if !nukeAll {
				return nil
			}
			budgets, err := d.Budgets.RemoveAll()
			if err != nil {
				return err
			}
			rules, err := d.Recurring.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range rules {
				if err := d.Recurring.Delete(cmd.Context(), r.ID); err != nil {
					return err
				}
			}
			render.Success(cmd.OutOrStdout(), "Removed %d budget(s) and %d recurring rule(s)", budgets, len(rules))
			return nil
		})
	},
}

// confirm asks a yes/no question on stdin.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)
	answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func parseFilter(last int, category, from, to, source string) (expense.Filter, error) {
	now := time.Now()
	filter := expense.Filter{LastN: last, Category: category, Source: source}
	if from != "" {
		t, err := expense.ParseDate(from, now)
		if err != nil {
			return filter, err
		}
		filter.From = &t
	}
	if to != "" {
		t, err := expense.ParseDate(to, now)
		if err != nil {
			return filter, err
		}
		end := expense.EndOfDay(t)
		filter.To = &end
	}
	if err := filter.Validate(); err != nil {
		return filter, err
	}
	return filter, nil
}

func addFilterFlags(cmd *cobra.Command, category, from, to, source *string) {
	cmd.Flags().StringVarP(category, "category", "c", "", "only this category")
	cmd.Flags().StringVar(from, "from", "", "first day (YYYY-MM-DD, today, yesterday)")
	cmd.Flags().StringVar(to, "to", "", "last day, inclusive")
	cmd.Flags().StringVar(source, "source", "", "only manual, imported or recurring expenses")
}

func init() {
	addCmd.Flags().StringVarP(&addAmount, "amount", "a", "", "amount spent")
	addCmd.Flags().StringVarP(&addCategory, "category", "c", "", "category, e.g. Food")
	addCmd.Flags().StringVarP(&addNote, "note", "n", "", "short description")
	addCmd.Flags().StringVarP(&addDate, "date", "d", "", "date of the expense (default today)")
	addCmd.Flags().StringVar(&addCurrency, "currency", "", "ISO currency code (default the base currency)")

	listCmd.Flags().IntVarP(&listLast, "last", "l", 10, "show the last N expenses, 0 for all")
	addFilterFlags(listCmd, &listCategory, &listFrom, &listTo, &listSource)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print JSON instead of a table")

	editCmd.Flags().StringVarP(&editAmount, "amount", "a", "", "new amount")
	editCmd.Flags().StringVarP(&editCategory, "category", "c", "", "new category")
	editCmd.Flags().StringVarP(&editNote, "note", "n", "", "new note")
	editCmd.Flags().StringVarP(&editDate, "date", "d", "", "new date")
	editCmd.Flags().StringVar(&editCurrency, "currency", "", "new currency")

	nukeCmd.Flags().BoolVarP(&nukeYes, "yes", "y", false, "do not ask for confirmation")
	nukeCmd.Flags().BoolVar(&nukeAll, "all", false, "also remove budgets and recurring rules")

	rootCmd.AddCommand(addCmd, listCmd, deleteCmd, editCmd, nukeCmd)
}
