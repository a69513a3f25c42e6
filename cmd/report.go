package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/expense"
	"github.com/frahmantamala/dot-spend/internal/render"
)

var (
	graphBy       string
	graphPeriod   string
	graphWidth    int
	graphCategory string
	graphFrom     string
	graphTo       string
	graphSource   string

	statusStyle string

	insightsPeriod string
	insightsJSON   bool
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Draw spending as horizontal bars",
	Example: `  spend graph
  spend graph --by period --period week --from 2024-01-01`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		groupBy := expense.GroupBy(graphBy)
		if groupBy != expense.GroupByCategory && groupBy != expense.GroupByPeriod {
			return internal.NewValidationFieldError("by", "--by must be category or period", internal.ErrCodeValidationFailed)
		}
		granularity, err := expense.ParseGranularity(graphPeriod)
		if err != nil {
			return err
		}
		filter, err := parseFilter(0, graphCategory, graphFrom, graphTo, graphSource)
		if err != nil {
			return err
		}

		return withDeps(cmd.Context(), func(d *Dependencies) error {
			d.prepareReports(cmd.Context())
			buckets, err := d.Ledger.Aggregate(cmd.Context(), filter, groupBy, granularity)
			if err != nil {
				return err
			}
			title := "Spending by category"
			if groupBy == expense.GroupByPeriod {
				title = "Spending by " + string(granularity)
			}
			fmt.Fprintln(cmd.OutOrStdout(), title)
			fmt.Fprintln(cmd.OutOrStdout(), render.Bars(buckets, graphWidth, d.Ledger.BaseCurrency()))
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print today's and this month's totals for a status bar",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd.Context(), func(d *Dependencies) error {
			d.prepareReports(cmd.Context())
			now := time.Now()
			dayStart, dayEnd := expense.Day.Start(now), expense.EndOfDay(now)
			monthStart := expense.Month.Start(now)

			today, err := d.Ledger.Total(cmd.Context(), expense.Filter{From: &dayStart, To: &dayEnd})
			if err != nil {
				return err
			}
			month, err := d.Ledger.Total(cmd.Context(), expense.Filter{From: &monthStart, To: &dayEnd})
			if err != nil {
				return err
			}
			statuses, err := d.Budgets.Status(cmd.Context(), now)
			if err != nil {
				return err
			}

			st := render.Status{Today: today, Month: month, Currency: d.Ledger.BaseCurrency()}
			for _, s := range statuses {
				if s.Over {
					st.Over = append(st.Over, s.Category)
				}
			}
			line, err := st.Render(statusStyle)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
			return nil
		})
	},
}

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Summarize the current period with trends and a prediction",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		period, err := expense.ParseGranularity(insightsPeriod)
		if err != nil {
			return err
		}
		return withDeps(cmd.Context(), func(d *Dependencies) error {
			d.prepareReports(cmd.Context())
			summary, err := d.Insights.Summarize(cmd.Context(), period, time.Now())
			if err != nil {
				return err
			}
			if insightsJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.Insights(summary))
			return nil
		})
	},
}

func init() {
	graphCmd.Flags().StringVar(&graphBy, "by", string(expense.GroupByCategory), "group by category or period")
	graphCmd.Flags().StringVarP(&graphPeriod, "period", "p", string(expense.Month), "period length when grouping by period: day, week, month, year")
	graphCmd.Flags().IntVarP(&graphWidth, "width", "w", 40, "width of the longest bar")
	addFilterFlags(graphCmd, &graphCategory, &graphFrom, &graphTo, &graphSource)

	statusCmd.Flags().StringVarP(&statusStyle, "style", "s", render.StatusText, "output style: text, polybar, json")

	insightsCmd.Flags().StringVarP(&insightsPeriod, "period", "p", string(expense.Month), "day, week, month or year")
	insightsCmd.Flags().BoolVar(&insightsJSON, "json", false, "print JSON instead of a report")

	rootCmd.AddCommand(graphCmd, statusCmd, insightsCmd)
}
