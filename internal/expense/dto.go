package expense

import (
	"fmt"
	"sort"
	"strings"
	"time"

	errors "github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/core/common/validation"
	expenseDatamodel "github.com/frahmantamala/dot-spend/internal/core/datamodel/expense"
	"github.com/shopspring/decimal"
)

// AddExpenseDTO is the input of Service.Add. Zero Currency, Date and Source are filled with
// the base currency, the current time and "manual".
type AddExpenseDTO struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency,omitempty"`
	Category string          `json:"category"`
	Note     string          `json:"note,omitempty"`
	Date     *time.Time      `json:"date,omitempty"`
	Source   string          `json:"source,omitempty"`
}

func (dto AddExpenseDTO) withDefaults(baseCurrency string, now time.Time) AddExpenseDTO {
	if dto.Currency == "" {
		dto.Currency = baseCurrency
	}
	dto.Currency = strings.ToUpper(strings.TrimSpace(dto.Currency))
	if dto.Date == nil || dto.Date.IsZero() {
		dto.Date = &now
	}
	if dto.Source == "" {
		dto.Source = SourceManual
	}
	return dto
}

func (dto AddExpenseDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("amount", dto.Amount).Positive(errors.ErrCodeInvalidAmount)
	v.Field("category", dto.Category).Required().MaxLength(64)
	v.Field("note", dto.Note).MaxLength(500)
	v.Field("currency", dto.Currency).Required().ISOCurrency()
	v.Field("source", dto.Source).OneOf([]string{SourceManual, SourceImported, SourceRecurring}, errors.ErrCodeValidationFailed)
	if dto.Date != nil {
		v.Field("date", *dto.Date).NotFuture()
	}
	return v.Validate()
}

// EditExpenseDTO is a partial update; nil fields are left untouched.
type EditExpenseDTO struct {
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Currency *string          `json:"currency,omitempty"`
	Category *string          `json:"category,omitempty"`
	Note     *string          `json:"note,omitempty"`
	Date     *time.Time       `json:"date,omitempty"`
}

func (dto EditExpenseDTO) IsEmpty() bool {
	return dto.Amount == nil && dto.Currency == nil && dto.Category == nil && dto.Note == nil && dto.Date == nil
}

func (dto EditExpenseDTO) Validate() *errors.AppError {
	if dto.IsEmpty() {
		return errors.NewValidationError("nothing to edit: pass at least one field", errors.ErrCodeValidationFailed)
	}
	v := validation.NewValidator()
	if dto.Amount != nil {
		v.Field("amount", *dto.Amount).Positive(errors.ErrCodeInvalidAmount)
	}
	if dto.Category != nil {
		v.Field("category", *dto.Category).Required().MaxLength(64)
	}
	if dto.Note != nil {
		v.Field("note", *dto.Note).MaxLength(500)
	}
	if dto.Currency != nil {
		v.Field("currency", strings.ToUpper(*dto.Currency)).Required().ISOCurrency()
	}
	if dto.Date != nil {
		v.Field("date", *dto.Date).Required().NotFuture()
	}
	return v.Validate()
}

func (dto EditExpenseDTO) apply(rec *expenseDatamodel.Expense) {
	if dto.Amount != nil {
		rec.Amount = *dto.Amount
	}
	if dto.Currency != nil {
		rec.Currency = strings.ToUpper(strings.TrimSpace(*dto.Currency))
	}
	if dto.Category != nil {
		rec.Category = NormalizeCategory(*dto.Category)
	}
	if dto.Note != nil {
		rec.Note = strings.TrimSpace(*dto.Note)
	}
	if dto.Date != nil {
		rec.Date = *dto.Date
	}
}

// Filter selects ledger records. From and To are inclusive; LastN is applied last.
type Filter struct {
	LastN    int
	Category string
	From     *time.Time
	To       *time.Time
	Source   string
}

func (f Filter) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("last", f.LastN).MinInt(0, errors.ErrCodeValidationFailed)
	if f.From != nil && f.To != nil {
		v.Field("date range", f.From).Custom(func(interface{}) *errors.AppError {
			if f.From.After(*f.To) {
				return errors.NewValidationFieldError("date range", "from date must not be after to date", errors.ErrCodeInvalidDate)
			}
			return nil
		})
	}
	return v.Validate()
}

func (f Filter) Matches(e *expenseDatamodel.Expense) bool {
	if f.Category != "" && !SameCategory(f.Category, e.Category) {
		return false
	}
	if f.Source != "" && f.Source != e.Source {
		return false
	}
	if f.From != nil && e.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Date.After(*f.To) {
		return false
	}
	return true
}

// ApplyFilter filters, orders newest first and truncates to LastN. Repositories without a
// query language use it directly.
func ApplyFilter(records []*expenseDatamodel.Expense, f Filter) []*expenseDatamodel.Expense {
	out := make([]*expenseDatamodel.Expense, 0, len(records))
	for _, r := range records {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	SortNewestFirst(out)
	if f.LastN > 0 && len(out) > f.LastN {
		out = out[:f.LastN]
	}
	return out
}

func SortNewestFirst(records []*expenseDatamodel.Expense) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

type GroupBy string

const (
	GroupByCategory GroupBy = "category"
	GroupByPeriod   GroupBy = "period"
)

type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
	Year  Granularity = "year"
)

func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case Day, Week, Month, Year:
		return g, nil
	case "":
		return Month, nil
	}
	return "", errors.NewValidationFieldError("period", fmt.Sprintf("unknown period %q: use day, week, month or year", s), errors.ErrCodeInvalidPeriod)
}

// Start truncates t to the beginning of its period. Weeks start on Monday.
func (g Granularity) Start(t time.Time) time.Time {
	y, m, d := t.Date()
	switch g {
	case Day:
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	case Week:
		offset := (int(t.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
	case Year:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, t.Location())
	default:
		return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	}
}

// Shift moves the period start by n periods.
func (g Granularity) Shift(start time.Time, n int) time.Time {
	switch g {
	case Day:
		return start.AddDate(0, 0, n)
	case Week:
		return start.AddDate(0, 0, 7*n)
	case Year:
		return start.AddDate(n, 0, 0)
	default:
		return start.AddDate(0, n, 0)
	}
}

func (g Granularity) Key(t time.Time) string {
	switch g {
	case Day:
		return t.Format("2006-01-02")
	case Week:
		y, w := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	case Year:
		return t.Format("2006")
	default:
		return t.Format("2006-01")
	}
}

type Bucket struct {
	Key   string          `json:"key"`
	Start time.Time       `json:"start,omitempty"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// ParseSignedAmount reads a money string, tolerating currency symbols, thousands separators
// and accounting parentheses. The sign is preserved.
func ParseSignedAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case '$', '€', '£', '¥', '₹', ',', ' ', '\u00a0':
			return -1
		}
		return r
	}, s)
	if strings.HasSuffix(s, "-") {
		negative = !negative
		s = strings.TrimSuffix(s, "-")
	}
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q is not a number", raw)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// ParseAmount parses user input for an expense amount, which must be a positive number.
func ParseAmount(raw string) (decimal.Decimal, error) {
	d, err := ParseSignedAmount(raw)
	if err != nil {
		return decimal.Zero, errors.NewValidationFieldError("amount", fmt.Sprintf("amount %q is not numeric", raw), errors.ErrCodeInvalidAmount)
	}
	if appErr := validation.ValidateExpenseAmount(d); appErr != nil {
		return decimal.Zero, appErr
	}
	return d, nil
}

// ParseDate accepts YYYY-MM-DD, RFC 3339, "today" and "yesterday", in the given location.
func ParseDate(raw string, now time.Time) (time.Time, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "today":
		return Day.Start(now), nil
	case "yesterday":
		return Day.Start(now).AddDate(0, 0, -1), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, now.Location()); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, errors.NewValidationFieldError("date", fmt.Sprintf("date %q must look like 2006-01-02", raw), errors.ErrCodeInvalidDate)
}
