package expense

import (
	"strings"
	"time"

	expenseDatamodel "github.com/frahmantamala/dot-spend/internal/core/datamodel/expense"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Expense struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Category  string          `json:"category"`
	Note      string          `json:"note,omitempty"`
	Date      time.Time       `json:"date"`
	Source    string          `json:"source"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

const (
	SourceManual    = expenseDatamodel.SourceManual
	SourceImported  = expenseDatamodel.SourceImported
	SourceRecurring = expenseDatamodel.SourceRecurring
)

// IDLength is the number of hex characters kept from a UUID when minting an expense id.
const IDLength = 8

func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:IDLength]
}

var titleCaser = cases.Title(language.English)

// NormalizeCategory folds a free-text label into the stored form: trimmed, single-spaced, Title Case.
func NormalizeCategory(category string) string {
	fields := strings.Fields(strings.ToLower(category))
	return titleCaser.String(strings.Join(fields, " "))
}

// SameCategory compares two labels the way the ledger does.
func SameCategory(a, b string) bool {
	return NormalizeCategory(a) == NormalizeCategory(b)
}

// NewExpense builds a ledger entry from a validated dto, stamped with now.
func NewExpense(id string, dto AddExpenseDTO, now time.Time) *Expense {
	return &Expense{
		ID:        id,
		Amount:    dto.Amount,
		Currency:  strings.ToUpper(dto.Currency),
		Category:  NormalizeCategory(dto.Category),
		Note:      strings.TrimSpace(dto.Note),
		Date:      *dto.Date,
		Source:    dto.Source,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func ToDataModel(e *Expense) *expenseDatamodel.Expense {
	return &expenseDatamodel.Expense{
		ID:        e.ID,
		Amount:    e.Amount,
		Currency:  e.Currency,
		Category:  e.Category,
		Note:      e.Note,
		Date:      e.Date,
		Source:    e.Source,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func FromDataModel(e *expenseDatamodel.Expense) *Expense {
	return &Expense{
		ID:        e.ID,
		Amount:    e.Amount,
		Currency:  e.Currency,
		Category:  e.Category,
		Note:      e.Note,
		Date:      e.Date,
		Source:    e.Source,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func FromDataModelSlice(expenses []*expenseDatamodel.Expense) []*Expense {
	result := make([]*Expense, len(expenses))
	for i, e := range expenses {
		result[i] = FromDataModel(e)
	}
	return result
}
