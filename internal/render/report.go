package render

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	errors "github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/insights"
	"github.com/frahmantamala/dot-spend/internal/recurring"
)

// Insights renders a summary as an overview box followed by categories and the trend.
func Insights(s *insights.Summary) string {
	overview := []string{
		styles.Title.Render(fmt.Sprintf("%s %s", cases.Title(language.English).String(string(s.Period)), s.Key)),
		fmt.Sprintf("Total      %s across %d expense(s)", Money(s.Total, s.Currency), s.Count),
		fmt.Sprintf("Average    %s per expense, %s per day", Money(s.Average, s.Currency), Money(s.DailyAverage, s.Currency)),
		fmt.Sprintf("Active     %d day(s)", s.ActiveDays),
	}
	if s.Projection != nil {
		overview = append(overview, fmt.Sprintf("Projected  %s by period end", Money(*s.Projection, s.Currency)))
	}
	if s.Change != nil {
		overview = append(overview, fmt.Sprintf("Change     %s%% vs previous", signed(*s.Change)))
	}
	if s.Consistency != nil {
		overview = append(overview, fmt.Sprintf("Consistency %.0f (%s)", s.Consistency.Score, s.Consistency.Grade))
	}
	if s.BusiestWeekday != "" {
		overview = append(overview, fmt.Sprintf("Busiest    %s", s.BusiestWeekday))
	}
	if s.BiggestDay != nil {
		overview = append(overview, fmt.Sprintf("Biggest    %s on %s", Money(s.BiggestDay.Total, s.Currency), s.BiggestDay.Date.Format("2006-01-02")))
	}

	parts := []string{styles.Summary.Render(strings.Join(overview, "\n"))}

	if len(s.TopCategories) > 0 {
		rows := make([][]string, 0, len(s.TopCategories))
		for _, c := range s.TopCategories {
			rows = append(rows, []string{c.Category, Money(c.Total, s.Currency), c.Share.StringFixed(1) + "%", fmt.Sprint(c.Count)})
		}
		parts = append(parts, newTable([]string{"Top categories", "Spent", "Share", "Count"}, rows, 1, 2, 3).String())
	}

	if len(s.Trend) > 0 {
		values := make([]decimal.Decimal, len(s.Trend))
		keys := make([]string, len(s.Trend))
		for i, b := range s.Trend {
			values[i] = b.Total
			keys[i] = b.Key
		}
		parts = append(parts,
			fmt.Sprintf("Trend %s  %s → %s", Sparkline(values), keys[0], keys[len(keys)-1]),
			Bars(s.Trend, 30, s.Currency))
	}

	if s.Prediction.Points > 0 {
		parts = append(parts, fmt.Sprintf("Prediction for %s: %s (%d point fit, slope %s)",
			s.Prediction.Key, Money(s.Prediction.Amount, s.Currency), s.Prediction.Points, signed(s.Prediction.Slope.Round(2))))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func signed(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + d.StringFixed(1)
	}
	return d.StringFixed(1)
}

// Rules renders recurring rules with their next due date.
func Rules(rules []*recurring.Rule, next func(*recurring.Rule) (time.Time, bool)) string {
	if len(rules) == 0 {
		return styles.Muted.Render("No recurring expenses.")
	}
	rows := make([][]string, 0, len(rules))
	for _, r := range rules {
		due := "-"
		if t, ok := next(r); ok {
			due = t.Format("2006-01-02")
		}
		state := "active"
		if !r.Active {
			state = styles.Muted.Render("paused")
		}
		rows = append(rows, []string{r.ID, r.Category, Money(r.Amount, r.Currency), r.Frequency, due, state, truncate(r.Note, 30)})
	}
	return newTable([]string{"ID", "Category", "Amount", "Every", "Next", "State", "Note"}, rows, 2).String()
}

const (
	StatusText    = "text"
	StatusPolybar = "polybar"
	StatusJSON    = "json"
)

// Status is the compact today/month line for status bars.
type Status struct {
	Today    decimal.Decimal `json:"today"`
	Month    decimal.Decimal `json:"month"`
	Currency string          `json:"currency"`
	Over     []string        `json:"over_budget,omitempty"`
}

func (s Status) Render(style string) (string, error) {
	switch style {
	case StatusText, "":
		line := fmt.Sprintf("Today: %s | Month: %s", Money(s.Today, s.Currency), Money(s.Month, s.Currency))
		if len(s.Over) > 0 {
			line += " | Over: " + strings.Join(s.Over, ", ")
		}
		return line, nil
	case StatusPolybar:
		line := fmt.Sprintf(" %s / %s", Money(s.Today, s.Currency), Money(s.Month, s.Currency))
		if len(s.Over) > 0 {
			line = "%{F#f38ba8}" + line + "%{F-}"
		}
		return line, nil
	case StatusJSON:
		class := "expense"
		if len(s.Over) > 0 {
			class = "over-budget"
		}
		// text and class are what waybar's custom modules read.
		data, err := json.Marshal(struct {
			Status
			Text  string `json:"text"`
			Class string `json:"class"`
		}{s, fmt.Sprintf("%s / %s", Money(s.Today, s.Currency), Money(s.Month, s.Currency)), class})
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return "", errors.NewValidationFieldError("format", fmt.Sprintf("unknown status format %q: use text, polybar or json", style), errors.ErrCodeValidationFailed)
}
