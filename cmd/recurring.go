package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/expense"
	"github.com/frahmantamala/dot-spend/internal/recurring"
	"github.com/frahmantamala/dot-spend/internal/render"
)

var (
	recurringFrequency string
	recurringDay       string
	recurringStart     string
	recurringEnd       string
	recurringNote      string
	recurringCurrency  string
	recurringJSON      bool
)

var weekdays = map[string]int{
	"sun": 0, "mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6,
}

var recurringCmd = &cobra.Command{
	Use:     "recurring",
	Aliases: []string{"rec"},
	Short:   "Manage expenses that repeat on a schedule",
}

var recurringAddCmd = &cobra.Command{
	Use:   "add <amount> <category>",
	Short: "Add a recurring expense",
	Example: `  spend recurring add 15.99 subscriptions -f monthly --day 5 -n Netflix
  spend recurring add 50 transport -f weekly --day mon
  spend recurring add 120 insurance -f yearly --start 2024-03-01`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := expense.ParseAmount(args[0])
		if err != nil {
			return err
		}
		dto := recurring.AddRuleDTO{
			Amount:    amount,
			Currency:  recurringCurrency,
			Category:  args[1],
			Note:      recurringNote,
			Frequency: strings.ToLower(recurringFrequency),
		}
		if recurringDay != "" {
			day, err := parseRuleDay(recurringDay)
			if err != nil {
				return err
			}
			dto.Day = &day
		}
		now := time.Now()
		if recurringStart != "" {
			start, err := expense.ParseDate(recurringStart, now)
			if err != nil {
				return err
			}
			dto.StartDate = &start
		}
		if recurringEnd != "" {
			end, err := expense.ParseDate(recurringEnd, now)
			if err != nil {
				return err
			}
			end = expense.EndOfDay(end)
			dto.EndDate = &end
		}

		return withDeps(cmd.Context(), func(d *Dependencies) error {
			rule, err := d.Recurring.Add(cmd.Context(), dto)
			if err != nil {
				return err
			}
			render.Success(cmd.OutOrStdout(), "Recurring %s expense %s added: %s %s",
				rule.Frequency, rule.ID, render.Money(rule.Amount, rule.Currency), rule.Category)
			if next, ok, err := d.Recurring.NextOccurrence(rule, time.Now()); err == nil && ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Next occurrence: %s\n", next.Format("2006-01-02"))
			}
			return nil
		})
	},
}

var recurringListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List recurring expenses",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd.Context(), func(d *Dependencies) error {
			rules, err := d.Recurring.List(cmd.Context())
			if err != nil {
				return err
			}
			if recurringJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rules)
			}
			now := time.Now()
			fmt.Fprintln(cmd.OutOrStdout(), render.Rules(rules, func(r *recurring.Rule) (time.Time, bool) {
				next, ok, err := d.Recurring.NextOccurrence(r, now)
				if err != nil {
					d.Logger.Warn("next occurrence failed", "rule_id", r.ID, "error", err)
					return time.Time{}, false
				}
				return next, ok
			}))
			return nil
		})
	},
}

var recurringDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a recurring expense; expenses it generated are kept",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd.Context(), func(d *Dependencies) error {
			if err := d.Recurring.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			render.Success(cmd.OutOrStdout(), "Recurring expense %s deleted", args[0])
			return nil
		})
	},
}

var recurringPauseCmd = &cobra.Command{
	Use:   "pause <id>",
	Short: "Stop generating a recurring expense",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd.Context(), func(d *Dependencies) error {
			rule, err := d.Recurring.Pause(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			render.Success(cmd.OutOrStdout(), "Recurring expense %s paused", rule.ID)
			return nil
		})
	},
}

var recurringResumeCmd = &cobra.Command{
	Use:   "resume <id>",
	Short: "Resume a paused recurring expense",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd.Context(), func(d *Dependencies) error {
			rule, err := d.Recurring.Resume(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			render.Success(cmd.OutOrStdout(), "Recurring expense %s resumed", rule.ID)
			return nil
		})
	},
}

var recurringRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Write every recurring expense that is due",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd.Context(), func(d *Dependencies) error {
			generated, err := d.Recurring.Generate(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			if len(generated) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No recurring expenses due.")
				return nil
			}
			total := decimal.Zero
			for _, e := range generated {
				amount, err := d.Ledger.InBase(e)
				if err != nil {
					return err
				}
				total = total.Add(amount)
			}
			render.Success(cmd.OutOrStdout(), "Generated %d expense(s)", len(generated))
			fmt.Fprintln(cmd.OutOrStdout(), render.Expenses(generated, total, d.Ledger.BaseCurrency()))
			return nil
		})
	},
}

var recurringForecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Estimate the monthly cost of active recurring expenses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd.Context(), func(d *Dependencies) error {
			total, rules, err := d.Recurring.Forecast(cmd.Context())
			if err != nil {
				return err
			}
			base := d.Ledger.BaseCurrency()
			for _, r := range rules {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-12s %-8s %s\n", r.Category, r.Frequency, render.Money(r.MonthlyAmount(), r.Currency))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recurring expenses cost about %s per month\n", render.Money(total, base))
			return nil
		})
	},
}

// parseRuleDay accepts a number or a weekday name such as "mon".
func parseRuleDay(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	if len(s) >= 3 {
		if n, ok := weekdays[s[:3]]; ok {
			return n, nil
		}
	}
	return 0, internal.NewValidationFieldError("day", fmt.Sprintf("invalid day %q: use a day of month or a weekday", s), internal.ErrCodeInvalidFrequency)
}

func init() {
	recurringAddCmd.Flags().StringVarP(&recurringFrequency, "frequency", "f", recurring.FrequencyMonthly, "daily, weekly, monthly or yearly")
	recurringAddCmd.Flags().StringVar(&recurringDay, "day", "", "weekday for weekly rules, day of month for monthly rules (default: from the start date)")
	recurringAddCmd.Flags().StringVar(&recurringStart, "start", "", "first occurrence (default today)")
	recurringAddCmd.Flags().StringVar(&recurringEnd, "end", "", "last possible occurrence")
	recurringAddCmd.Flags().StringVarP(&recurringNote, "note", "n", "", "note")
	recurringAddCmd.Flags().StringVar(&recurringCurrency, "currency", "", "currency (default: the base currency)")
	recurringListCmd.Flags().BoolVar(&recurringJSON, "json", false, "print JSON instead of a table")

	recurringCmd.AddCommand(recurringAddCmd, recurringListCmd, recurringDeleteCmd, recurringPauseCmd,
		recurringResumeCmd, recurringRunCmd, recurringForecastCmd)
	rootCmd.AddCommand(recurringCmd)
}
