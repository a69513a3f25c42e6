package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/exporter"
	"github.com/frahmantamala/dot-spend/internal/importer"
	"github.com/frahmantamala/dot-spend/internal/render"
)

var (
	importFormat      string
	importMap         []string
	importDelimiter   string
	importSheet       string
	importCurrency    string
	importSkipCredits bool
	importSkipInvalid bool
	importDryRun      bool
	importJSON        bool

	exportFormat    string
	exportFields    string
	exportDelimiter string
	exportLast      int
	exportCategory  string
	exportFrom      string
	exportTo        string
	exportSource    string
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a bank statement (CSV, Excel or OFX)",
	Long: `Import reads a bank statement, files each transaction under a category and skips
transactions already in the ledger. Debits are stored as positive expenses. The whole file
is rejected when a row cannot be read, unless --skip-invalid is given.`,
	Example: `  spend import statement.csv --dry-run
  spend import export.xlsx --sheet Transactions --map "date=Posted" --map "amount=Value"
  spend import bank.ofx --skip-credits`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := importer.Options{
			Sheet:       importSheet,
			Currency:    strings.ToUpper(importCurrency),
			SkipCredits: importSkipCredits,
			SkipInvalid: importSkipInvalid,
			DryRun:      importDryRun,
		}
		if importFormat != "" {
			format, err := importer.ParseFormat(importFormat)
			if err != nil {
				return err
			}
			opts.Format = format
		}
		mapping, err := importer.ParseMapping(importMap)
		if err != nil {
			return err
		}
		opts.Mapping = mapping
		if importDelimiter != "" {
			r, err := singleRune("delimiter", importDelimiter)
			if err != nil {
				return err
			}
			opts.Delimiter = r
		}

		return withDeps(cmd.Context(), func(d *Dependencies) error {
			if d.Config.Categorize.LearnFromHistory {
				if err := d.Category.Train(cmd.Context()); err != nil {
					d.Logger.Warn("categorizer training failed", "error", err)
				}
			}
			report, err := d.Importer.ImportFile(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			if importJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.ImportReport(report, d.Ledger.BaseCurrency()))
			return nil
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Export expenses to CSV or JSON",
	Long: `Export writes the ledger to path, or to a timestamped file when path is a directory.
Use "-" to write to standard output.`,
	Example: `  spend export expenses.csv
  spend export ~/backups --format json --from 2024-01-01
  spend export - --fields date,category,amount`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) == 1 {
			path = args[0]
		}
		format, err := exporter.ParseFormat(exportFormat)
		if err != nil {
			return err
		}
		if exportFormat == "" && strings.EqualFold(fileExt(path), ".json") {
			format = exporter.FormatJSON
		}
		fields, err := exporter.ParseFields(exportFields)
		if err != nil {
			return err
		}
		filter, err := parseFilter(exportLast, exportCategory, exportFrom, exportTo, exportSource)
		if err != nil {
			return err
		}
		opts := exporter.Options{Format: format, Fields: fields, Filter: filter}
		if exportDelimiter != "" {
			r, err := singleRune("delimiter", exportDelimiter)
			if err != nil {
				return err
			}
			opts.Delimiter = r
		}

		return withDeps(cmd.Context(), func(d *Dependencies) error {
			d.prepareReports(cmd.Context())
			if path == "-" {
				_, err := d.Exporter.Write(cmd.Context(), cmd.OutOrStdout(), opts)
				return err
			}
			written, count, err := d.Exporter.ExportFile(cmd.Context(), path, opts)
			if err != nil {
				return err
			}
			render.Success(cmd.OutOrStdout(), "Exported %d expense(s) to %s", count, written)
			return nil
		})
	},
}

func fileExt(path string) string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return ""
	}
	return filepath.Ext(path)
}

func singleRune(field, s string) (rune, error) {
	if s == `\t` || s == "tab" {
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, internal.NewValidationFieldError(field, fmt.Sprintf("%s must be a single character", field), internal.ErrCodeValidationFailed)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

func init() {
	importCmd.Flags().StringVarP(&importFormat, "format", "f", "", "csv, xlsx or ofx (default: from the file extension)")
	importCmd.Flags().StringArrayVarP(&importMap, "map", "m", nil, "column mapping, e.g. date=\"Posting Date\" (repeatable)")
	importCmd.Flags().StringVar(&importDelimiter, "delimiter", "", "CSV delimiter (default: detected)")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "Excel sheet (default: the first one)")
	importCmd.Flags().StringVar(&importCurrency, "currency", "", "currency of the statement (default: the base currency)")
	importCmd.Flags().BoolVar(&importSkipCredits, "skip-credits", false, "leave out positive amounts such as refunds and deposits")
	importCmd.Flags().BoolVar(&importSkipInvalid, "skip-invalid", false, "skip unreadable rows instead of rejecting the file")
	importCmd.Flags().BoolVarP(&importDryRun, "dry-run", "n", false, "show what would be imported without storing anything")
	importCmd.Flags().BoolVar(&importJSON, "json", false, "print the report as JSON")

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "csv or json (default csv, or json for a .json path)")
	exportCmd.Flags().StringVar(&exportFields, "fields", "", "comma separated CSV/JSON fields (default "+strings.Join(exporter.DefaultFields, ",")+")")
	exportCmd.Flags().StringVar(&exportDelimiter, "delimiter", "", "CSV delimiter (default ,)")
	exportCmd.Flags().IntVarP(&exportLast, "last", "l", 0, "only the last N expenses")
	addFilterFlags(exportCmd, &exportCategory, &exportFrom, &exportTo, &exportSource)

	rootCmd.AddCommand(importCmd, exportCmd)
}
