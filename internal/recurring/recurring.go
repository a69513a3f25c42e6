package recurring

import (
	"strings"
	"time"

	recurringDatamodel "github.com/frahmantamala/dot-spend/internal/core/datamodel/recurring"
	"github.com/frahmantamala/dot-spend/internal/expense"
	"github.com/shopspring/decimal"
)

const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
	FrequencyYearly  = "yearly"
)

var Frequencies = []string{FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly}

// NoteSuffix marks generated expenses.
const NoteSuffix = "(Recurring)"

// Rule describes an expense that repeats on a schedule. Day is the weekday (0 = Sunday) for
// weekly rules and the day of month for monthly rules; yearly rules repeat on StartDate's date.
type Rule struct {
	ID            string          `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Category      string          `json:"category"`
	Note          string          `json:"note,omitempty"`
	Frequency     string          `json:"frequency"`
	Day           int             `json:"day,omitempty"`
	StartDate     time.Time       `json:"start_date"`
	EndDate       *time.Time      `json:"end_date,omitempty"`
	LastGenerated *time.Time      `json:"last_generated,omitempty"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
}

// MonthlyAmount is the rule's cost normalized to one month.
func (r *Rule) MonthlyAmount() decimal.Decimal {
	switch r.Frequency {
	case FrequencyDaily:
		return r.Amount.Mul(decimal.NewFromInt(30))
	case FrequencyWeekly:
		return r.Amount.Mul(decimal.NewFromInt(4))
	case FrequencyYearly:
		return r.Amount.Div(decimal.NewFromInt(12)).Round(2)
	default:
		return r.Amount
	}
}

// ExpenseNote is the note carried by expenses generated from the rule.
func (r *Rule) ExpenseNote() string {
	return strings.TrimSpace(r.Note + " " + NoteSuffix)
}

func (r *Rule) ended(t time.Time) bool {
	return r.EndDate != nil && t.After(*r.EndDate)
}

func ToDataModel(r *Rule) *recurringDatamodel.Rule {
	return &recurringDatamodel.Rule{
		ID:            r.ID,
		Amount:        r.Amount,
		Currency:      r.Currency,
		Category:      r.Category,
		Note:          r.Note,
		Frequency:     r.Frequency,
		Day:           r.Day,
		StartDate:     r.StartDate,
		EndDate:       r.EndDate,
		LastGenerated: r.LastGenerated,
		Active:        r.Active,
		CreatedAt:     r.CreatedAt,
	}
}

func FromDataModel(r *recurringDatamodel.Rule) *Rule {
	return &Rule{
		ID:            r.ID,
		Amount:        r.Amount,
		Currency:      r.Currency,
		Category:      r.Category,
		Note:          r.Note,
		Frequency:     r.Frequency,
		Day:           r.Day,
		StartDate:     r.StartDate,
		EndDate:       r.EndDate,
		LastGenerated: r.LastGenerated,
		Active:        r.Active,
		CreatedAt:     r.CreatedAt,
	}
}

// AddRuleDTO is the input of Service.Add. A nil Day is taken from StartDate.
type AddRuleDTO struct {
	Amount    decimal.Decimal
	Currency  string
	Category  string
	Note      string
	Frequency string
	Day       *int
	StartDate *time.Time
	EndDate   *time.Time
}

func newRule(id string, dto AddRuleDTO, baseCurrency string, now time.Time) *Rule {
	start := expense.Day.Start(now)
	if dto.StartDate != nil {
		start = expense.Day.Start(*dto.StartDate)
	}
	currency := strings.ToUpper(strings.TrimSpace(dto.Currency))
	if currency == "" {
		currency = baseCurrency
	}
	var day int
	if dto.Day != nil {
		day = *dto.Day
	} else {
		switch strings.ToLower(dto.Frequency) {
		case FrequencyWeekly:
			day = int(start.Weekday())
		case FrequencyMonthly:
			day = start.Day()
		}
	}
	return &Rule{
		ID:        id,
		Amount:    dto.Amount,
		Currency:  currency,
		Category:  expense.NormalizeCategory(dto.Category),
		Note:      strings.TrimSpace(dto.Note),
		Frequency: strings.ToLower(dto.Frequency),
		Day:       day,
		StartDate: start,
		EndDate:   dto.EndDate,
		Active:    true,
		CreatedAt: now,
	}
}
