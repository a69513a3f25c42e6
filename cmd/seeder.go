package cmd

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/dot-spend/internal/expense"
	"github.com/frahmantamala/dot-spend/internal/recurring"
	"github.com/frahmantamala/dot-spend/internal/render"
)

var (
	seedClear  bool
	seedMonths int
)

type sampleExpense struct {
	Category string
	Note     string
	Amount   string
	Day      int
}

// sampleMonth repeats for each seeded month, shifted back one month at a time.
var sampleMonth = []sampleExpense{
	{"Groceries", "weekly shop", "84.20", 2},
	{"Dining", "lunch with team", "18.50", 4},
	{"Transport", "uber to airport", "42.00", 7},
	{"Groceries", "weekly shop", "76.35", 9},
	{"Entertainment", "cinema", "24.00", 12},
	{"Utilities", "electricity bill", "61.80", 15},
	{"Groceries", "weekly shop", "91.10", 16},
	{"Shopping", "amazon order", "35.99", 19},
	{"Dining", "pizza night", "27.40", 22},
	{"Groceries", "weekly shop", "69.75", 23},
	{"Transport", "train ticket", "12.60", 26},
}

var sampleBudgets = map[string]string{
	"Groceries": "350",
	"Dining":    "120",
	"Transport": "80",
}

var sampleRules = []recurring.AddRuleDTO{
	{Amount: decimal.RequireFromString("15.99"), Category: "Subscriptions", Note: "Netflix", Frequency: recurring.FrequencyMonthly},
	{Amount: decimal.RequireFromString("1200"), Category: "Rent", Note: "apartment", Frequency: recurring.FrequencyMonthly},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the ledger with sample data",
	Long:  `Seed the ledger with sample expenses, budgets and recurring rules for development and demos.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd.Context(), func(d *Dependencies) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if seedClear {
				n, err := d.Ledger.Nuke(ctx)
				if err != nil {
					return err
				}
				if _, err := d.Budgets.RemoveAll(); err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared %d existing expense(s)\n", n)
			}

			now := time.Now()
			var dtos []expense.AddExpenseDTO
			for m := seedMonths - 1; m >= 0; m-- {
				month := time.Date(now.Year(), now.Month()-time.Month(m), 1, 12, 0, 0, 0, now.Location())
				for _, s := range sampleMonth {
					date := month.AddDate(0, 0, s.Day-1)
					if date.After(now) {
						continue
					}
					dtos = append(dtos, expense.AddExpenseDTO{
						Amount:   decimal.RequireFromString(s.Amount),
						Category: s.Category,
						Note:     s.Note,
						Date:     &date,
						Source:   expense.SourceManual,
					})
				}
			}
			seeded, err := d.Ledger.ImportBatch(ctx, dtos)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Seeded %d expense(s) over %d month(s)\n", len(seeded), seedMonths)

			for category, limit := range sampleBudgets {
				if _, err := d.Budgets.Set(category, decimal.RequireFromString(limit)); err != nil {
					return err
				}
				fmt.Fprintf(out, "Seeded budget: %s %s\n", category, limit)
			}

			existing, err := d.Recurring.List(ctx)
			if err != nil {
				return err
			}
			for _, dto := range sampleRules {
				if hasRule(existing, dto) {
					continue
				}
				start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
				dto.StartDate = &start
				if _, err := d.Recurring.Add(ctx, dto); err != nil {
					return err
				}
				fmt.Fprintf(out, "Seeded recurring rule: %s %s\n", dto.Category, dto.Note)
			}

			render.Success(out, "Sample data seeded successfully")
			return nil
		})
	},
}

func hasRule(rules []*recurring.Rule, dto recurring.AddRuleDTO) bool {
	for _, r := range rules {
		if r.Category == expense.NormalizeCategory(dto.Category) && r.Note == dto.Note {
			return true
		}
	}
	return false
}

func init() {
	seedCmd.Flags().BoolVar(&seedClear, "clear", false, "remove existing expenses and budgets first")
	seedCmd.Flags().IntVar(&seedMonths, "months", 3, "number of months of sample expenses")

	rootCmd.AddCommand(seedCmd)
}
