package render

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/frahmantamala/dot-spend/internal/importer"
)

// ImportReport lists what an import stored, or would store on a dry run, and why rows were left out.
func ImportReport(r *importer.Report, base string) string {
	parts := make([]string, 0, 3)

	if len(r.Entries) > 0 {
		rows := make([][]string, 0, len(r.Entries))
		for _, e := range r.Entries {
			code := e.Currency
			if code == "" {
				code = base
			}
			rows = append(rows, []string{
				fmt.Sprint(e.Row),
				e.Date.Format("2006-01-02"),
				Money(e.Expense(), code),
				e.Category,
				e.CategorySource,
				truncate(e.Description, 40),
			})
		}
		parts = append(parts, newTable([]string{"Row", "Date", "Amount", "Category", "By", "Description"}, rows, 0, 2).String())
	}

	if len(r.Skipped) > 0 {
		rows := make([][]string, 0, len(r.Skipped))
		for _, s := range r.Skipped {
			rows = append(rows, []string{fmt.Sprint(s.Row), s.Reason})
		}
		parts = append(parts, newTable([]string{"Row", "Skipped because"}, rows, 0).String())
	}

	verb := "Imported"
	count := len(r.Imported)
	if r.DryRun {
		verb = "Would import"
		count = len(r.Entries)
	}
	parts = append(parts, styles.Title.Render(fmt.Sprintf("%s %d expense(s); %d duplicate(s), %d row(s) skipped",
		verb, count, len(r.Duplicates), len(r.Skipped))))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
