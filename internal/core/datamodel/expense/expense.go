package expense

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SourceManual    = "manual"
	SourceImported  = "imported"
	SourceRecurring = "recurring"
)

const PeriodMonthly = "monthly"

type Expense struct {
	ID        string          `json:"id" gorm:"column:id;primaryKey"`
	Amount    decimal.Decimal `json:"amount" gorm:"column:amount;not null"`
	Currency  string          `json:"currency" gorm:"column:currency;not null"`
	Category  string          `json:"category" gorm:"column:category;not null;index"`
	Note      string          `json:"note" gorm:"column:note"`
	Date      time.Time       `json:"date" gorm:"column:date;not null;index"`
	Source    string          `json:"source" gorm:"column:source;not null"`
	CreatedAt time.Time       `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"column:updated_at"`
}

func (Expense) TableName() string {
	return "expenses"
}

type Budget struct {
	Category  string          `gorm:"column:category;primaryKey"`
	Limit     decimal.Decimal `gorm:"column:limit;not null"`
	Period    string          `gorm:"column:period;not null"`
	CreatedAt time.Time       `gorm:"column:created_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at"`
}

func (Budget) TableName() string {
	return "budgets"
}
