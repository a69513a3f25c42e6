package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/currency"
	"github.com/frahmantamala/dot-spend/internal/expense"
	"github.com/frahmantamala/dot-spend/internal/render"
	"github.com/frahmantamala/dot-spend/pkg/logger"
)

var currencyCmd = &cobra.Command{
	Use:   "currency",
	Short: "Exchange rates and conversion",
}

var currencyUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Fetch the latest exchange rates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := internal.WithTimeout(cmd.Context(), cfg.Currency.Timeout)
		defer cancel()

		rates, err := newConverter(cfg, logger.LoggerWrapper()).Refresh(ctx)
		if err != nil {
			return err
		}
		render.Success(cmd.OutOrStdout(), "Fetched %d rate(s) for %s", len(rates.Rates), rates.Base)
		return nil
	},
}

var currencyConvertCmd = &cobra.Command{
	Use:     "convert <amount> <from> <to>",
	Short:   "Convert an amount with the cached rates",
	Example: "  spend currency convert 100 EUR USD",
	Args:    cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := expense.ParseAmount(args[0])
		if err != nil {
			return err
		}
		from, to := strings.ToUpper(args[1]), strings.ToUpper(args[2])

		converter := newConverter(cfg, logger.LoggerWrapper())
		converter.EnsureFresh(cmd.Context(), time.Now())
		converted, err := converter.Convert(amount, from, to)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", render.Money(amount, from), render.Money(converted, to))
		return nil
	},
}

var currencyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the cached exchange rates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rates := newConverter(cfg, logger.LoggerWrapper()).Rates()
		if rates == nil {
			render.Warn(cmd.ErrOrStderr(), "no exchange rates cached: run `spend currency update`")
			return nil
		}
		codes := rates.Codes()
		sort.Strings(codes)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "1 %s = (fetched %s, %s)\n", rates.Base, rates.FetchedAt.Local().Format("2006-01-02 15:04"), cfg.Path(currency.CacheFile))
		for _, code := range codes {
			fmt.Fprintf(out, "  %s %s\n", code, rates.Rates[code].String())
		}
		return nil
	},
}

func init() {
	currencyCmd.AddCommand(currencyUpdateCmd, currencyConvertCmd, currencyListCmd)
	rootCmd.AddCommand(currencyCmd)
}
