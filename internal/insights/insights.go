package insights

import (
	"time"

	"github.com/frahmantamala/dot-spend/internal/expense"
	"github.com/shopspring/decimal"
)

// Summary is a descriptive report over one period of the ledger.
type Summary struct {
	Period         expense.Granularity `json:"period"`
	Key            string              `json:"key"`
	From           time.Time           `json:"from"`
	To             time.Time           `json:"to"`
	Currency       string              `json:"currency"`
	Total          decimal.Decimal     `json:"total"`
	Count          int                 `json:"count"`
	Average        decimal.Decimal     `json:"average"`
	ActiveDays     int                 `json:"active_days"`
	DailyAverage   decimal.Decimal     `json:"daily_average"`
	TopCategories  []CategoryShare     `json:"top_categories"`
	Trend          []expense.Bucket    `json:"trend"`
	Change         *decimal.Decimal    `json:"change_percent,omitempty"`
	Prediction     Prediction          `json:"prediction"`
	Projection     *decimal.Decimal    `json:"projection,omitempty"`
	Consistency    *Consistency        `json:"consistency,omitempty"`
	BusiestWeekday string              `json:"busiest_weekday,omitempty"`
	BiggestDay     *DayTotal           `json:"biggest_day,omitempty"`
}

type CategoryShare struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
	Share    decimal.Decimal `json:"share_percent"`
}

// Prediction extrapolates the completed periods of the trend onto the current one.
type Prediction struct {
	Key    string          `json:"key"`
	Amount decimal.Decimal `json:"amount"`
	Slope  decimal.Decimal `json:"slope"`
	Points int             `json:"points"`
}

type Consistency struct {
	Score float64 `json:"score"`
	Grade string  `json:"grade"`
}

type DayTotal struct {
	Date  time.Time       `json:"date"`
	Total decimal.Decimal `json:"total"`
}

// Grade maps a consistency score to a letter.
func Grade(score float64) string {
	switch {
	case score > 80:
		return "A"
	case score > 60:
		return "B"
	case score > 40:
		return "C"
	default:
		return "F"
	}
}
