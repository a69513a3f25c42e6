package budget

import (
	"time"

	expenseDatamodel "github.com/frahmantamala/dot-spend/internal/core/datamodel/expense"
	"github.com/shopspring/decimal"
)

type Budget struct {
	Category  string          `json:"category"`
	Limit     decimal.Decimal `json:"limit"`
	Period    string          `json:"period"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Status is the usage of one budget over the current period. Remaining goes negative once
// the limit is exceeded; Over is the warning flag.
type Status struct {
	Category    string          `json:"category"`
	Limit       decimal.Decimal `json:"limit"`
	Spent       decimal.Decimal `json:"spent"`
	Remaining   decimal.Decimal `json:"remaining"`
	PercentUsed decimal.Decimal `json:"percent_used"`
	Over        bool            `json:"over"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
}

var hundred = decimal.NewFromInt(100)

func newStatus(b *Budget, spent decimal.Decimal, start, end time.Time) Status {
	percent := decimal.Zero
	if b.Limit.IsPositive() {
		percent = spent.Div(b.Limit).Mul(hundred).Round(2)
	}
	return Status{
		Category:    b.Category,
		Limit:       b.Limit,
		Spent:       spent,
		Remaining:   b.Limit.Sub(spent),
		PercentUsed: percent,
		Over:        spent.GreaterThan(b.Limit),
		PeriodStart: start,
		PeriodEnd:   end,
	}
}

// DisplayPercent caps the percentage at 100 for progress bars.
func (s Status) DisplayPercent() float64 {
	p := s.PercentUsed.InexactFloat64()
	if p > 100 {
		return 100
	}
	return p
}

func ToDataModel(b *Budget) *expenseDatamodel.Budget {
	return &expenseDatamodel.Budget{
		Category:  b.Category,
		Limit:     b.Limit,
		Period:    b.Period,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func FromDataModel(b *expenseDatamodel.Budget) *Budget {
	return &Budget{
		Category:  b.Category,
		Limit:     b.Limit,
		Period:    b.Period,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}
