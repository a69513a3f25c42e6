// Package render formats ledger data for the terminal.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/dot-spend/internal/budget"
	"github.com/frahmantamala/dot-spend/internal/currency"
	"github.com/frahmantamala/dot-spend/internal/expense"
)

type Styles struct {
	Header  lipgloss.Style
	Cell    lipgloss.Style
	Amount  lipgloss.Style
	Muted   lipgloss.Style
	Over    lipgloss.Style
	Bar     lipgloss.Style
	Title   lipgloss.Style
	Summary lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#89b4fa")).Padding(0, 1),
		Cell:    lipgloss.NewStyle().Padding(0, 1),
		Amount:  lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#7f849c")),
		Over:    lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8")),
		Bar:     lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1")),
		Title:   lipgloss.NewStyle().Bold(true),
		Summary: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	}
}

var styles = DefaultStyles()

// Money formats amount in the given currency.
func Money(amount decimal.Decimal, code string) string {
	return currency.Format(amount, code)
}

func newTable(headers []string, rows [][]string, rightAligned ...int) *table.Table {
	right := make(map[int]bool, len(rightAligned))
	for _, c := range rightAligned {
		right[c] = true
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.Muted).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return styles.Header
			case right[col]:
				return styles.Amount
			}
			return styles.Cell
		})
}

// Expenses renders the ledger listing with a total line.
func Expenses(expenses []*expense.Expense, total decimal.Decimal, base string) string {
	if len(expenses) == 0 {
		return styles.Muted.Render("No expenses found.")
	}
	rows := make([][]string, 0, len(expenses))
	for _, e := range expenses {
		rows = append(rows, []string{
			e.ID,
			e.Date.Format("2006-01-02"),
			e.Category,
			Money(e.Amount, e.Currency),
			truncate(e.Note, 40),
			e.Source,
		})
	}
	t := newTable([]string{"ID", "Date", "Category", "Amount", "Note", "Source"}, rows, 3)
	footer := fmt.Sprintf("%d expense(s), total %s", len(expenses), Money(total, base))
	return lipgloss.JoinVertical(lipgloss.Left, t.String(), styles.Title.Render(footer))
}

// Budgets renders budget usage with a progress bar capped at 100%.
func Budgets(statuses []budget.Status, base string) string {
	if len(statuses) == 0 {
		return styles.Muted.Render("No budgets set. Use `spend budget set <category> <limit>`.")
	}
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		remaining := Money(s.Remaining, base)
		percent := s.PercentUsed.StringFixed(1) + "%"
		bar := progress(s.DisplayPercent(), 20)
		if s.Over {
			remaining = styles.Over.Render(remaining)
			percent = styles.Over.Render(percent + " over")
			bar = styles.Over.Render(bar)
		} else {
			bar = styles.Bar.Render(bar)
		}
		rows = append(rows, []string{s.Category, Money(s.Limit, base), Money(s.Spent, base), remaining, percent, bar})
	}
	return newTable([]string{"Category", "Limit", "Spent", "Remaining", "Used", ""}, rows, 1, 2, 3, 4).String()
}

// Bars draws one horizontal bar per bucket scaled to the largest total.
func Bars(buckets []expense.Bucket, width int, base string) string {
	if len(buckets) == 0 {
		return styles.Muted.Render("Nothing to graph.")
	}
	if width <= 0 {
		width = 40
	}
	labelWidth, max := 0, decimal.Zero
	for _, b := range buckets {
		if l := lipgloss.Width(b.Key); l > labelWidth {
			labelWidth = l
		}
		if b.Total.GreaterThan(max) {
			max = b.Total
		}
	}

	var sb strings.Builder
	for _, b := range buckets {
		n := 0
		if max.IsPositive() {
			n = int(b.Total.Div(max).Mul(decimal.NewFromInt(int64(width))).Round(0).IntPart())
		}
		if n == 0 && b.Total.IsPositive() {
			n = 1
		}
		fmt.Fprintf(&sb, "%-*s %s %s\n", labelWidth, b.Key, styles.Bar.Render(strings.Repeat("█", n)), Money(b.Total, base))
	}
	return strings.TrimRight(sb.String(), "\n")
}

var sparks = []rune("▁▂▃▄▅▆▇█")

// Sparkline maps values onto eight block heights.
func Sparkline(values []decimal.Decimal) string {
	if len(values) == 0 {
		return ""
	}
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v.LessThan(min) {
			min = v
		}
		if v.GreaterThan(max) {
			max = v
		}
	}
	span := max.Sub(min)
	out := make([]rune, len(values))
	for i, v := range values {
		idx := 0
		if span.IsPositive() {
			idx = int(v.Sub(min).Div(span).Mul(decimal.NewFromInt(int64(len(sparks) - 1))).Round(0).IntPart())
		}
		out[i] = sparks[idx]
	}
	return string(out)
}

func progress(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Warn prints a highlighted warning line.
func Warn(w io.Writer, format string, args ...interface{}) {
	color.New(color.FgYellow, color.Bold).Fprintf(w, "! "+format+"\n", args...)
}

func Success(w io.Writer, format string, args ...interface{}) {
	color.New(color.FgGreen).Fprintf(w, "✔ "+format+"\n", args...)
}

func Error(w io.Writer, format string, args ...interface{}) {
	color.New(color.FgRed, color.Bold).Fprintf(w, "✘ "+format+"\n", args...)
}
