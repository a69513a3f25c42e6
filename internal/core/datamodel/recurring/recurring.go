package recurring

import (
	"time"

	"github.com/shopspring/decimal"
)

type Rule struct {
	ID            string          `json:"id" gorm:"column:id;primaryKey"`
	Amount        decimal.Decimal `json:"amount" gorm:"column:amount;not null"`
	Currency      string          `json:"currency" gorm:"column:currency;not null"`
	Category      string          `json:"category" gorm:"column:category;not null"`
	Note          string          `json:"note" gorm:"column:note"`
	Frequency     string          `json:"frequency" gorm:"column:frequency;not null"`
	Day           int             `json:"day" gorm:"column:day"`
	StartDate     time.Time       `json:"start_date" gorm:"column:start_date;not null"`
	EndDate       *time.Time      `json:"end_date,omitempty" gorm:"column:end_date"`
	LastGenerated *time.Time      `json:"last_generated,omitempty" gorm:"column:last_generated"`
	Active        bool            `json:"active" gorm:"column:active;not null"`
	CreatedAt     time.Time       `json:"created_at" gorm:"column:created_at"`
}

func (Rule) TableName() string {
	return "recurring_rules"
}
