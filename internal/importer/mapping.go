package importer

import (
	"fmt"
	"strings"
	"time"

	errors "github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/expense"
	"github.com/shopspring/decimal"
)

// Mapping names the statement columns holding each field. Empty fields are auto-detected.
type Mapping struct {
	Date        string `json:"date,omitempty"`
	Amount      string `json:"amount,omitempty"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Debit       string `json:"debit,omitempty"`
	Credit      string `json:"credit,omitempty"`
}

var candidates = map[string][]string{
	"date":        {"date", "txn date", "transaction date", "posting date", "posted date", "value date"},
	"amount":      {"amount", "amt", "value", "transaction amount"},
	"description": {"description", "desc", "payee", "merchant", "narrative", "memo", "transaction description", "details"},
	"category":    {"category"},
	"debit":       {"debit", "withdrawal", "withdrawals", "money out", "paid out"},
	"credit":      {"credit", "deposit", "deposits", "money in", "paid in"},
}

// columns holds resolved header indexes; -1 means absent.
type columns struct {
	date, amount, description, category, debit, credit int
}

// ParseMapping reads "field=Column" pairs, e.g. from repeated --map flags.
func ParseMapping(pairs []string) (Mapping, error) {
	var m Mapping
	for _, pair := range pairs {
		field, column, ok := strings.Cut(pair, "=")
		column = strings.TrimSpace(column)
		if !ok || column == "" {
			return m, errors.NewValidationFieldError("map", fmt.Sprintf("mapping %q must look like date=Posting Date", pair), errors.ErrCodeValidationFailed)
		}
		switch strings.ToLower(strings.TrimSpace(field)) {
		case "date":
			m.Date = column
		case "amount":
			m.Amount = column
		case "description", "desc", "note":
			m.Description = column
		case "category":
			m.Category = column
		case "debit":
			m.Debit = column
		case "credit":
			m.Credit = column
		default:
			return m, errors.NewValidationFieldError("map", fmt.Sprintf("unknown field %q in mapping", field), errors.ErrCodeValidationFailed)
		}
	}
	return m, nil
}

// DetectMapping fills the unset fields of m from the header row.
func DetectMapping(header []string, m Mapping) Mapping {
	lower := make([]string, len(header))
	for i, h := range header {
		lower[i] = strings.ToLower(strings.TrimSpace(h))
	}
	find := func(field string) string {
		for _, c := range candidates[field] {
			for i, h := range lower {
				if h == c {
					return strings.TrimSpace(header[i])
				}
			}
		}
		return ""
	}
	if m.Date == "" {
		m.Date = find("date")
	}
	if m.Amount == "" && m.Debit == "" {
		m.Amount = find("amount")
	}
	if m.Description == "" {
		m.Description = find("description")
	}
	if m.Category == "" {
		m.Category = find("category")
	}
	if m.Amount == "" {
		if m.Debit == "" {
			m.Debit = find("debit")
		}
		if m.Credit == "" {
			m.Credit = find("credit")
		}
	}
	return m
}

func (m Mapping) resolve(header []string) (columns, error) {
	index := func(name string) int {
		if name == "" {
			return -1
		}
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
		return -1
	}
	c := columns{
		date:        index(m.Date),
		amount:      index(m.Amount),
		description: index(m.Description),
		category:    index(m.Category),
		debit:       index(m.Debit),
		credit:      index(m.Credit),
	}

	var missing []string
	if c.date < 0 {
		missing = append(missing, "date")
	}
	if c.amount < 0 && c.debit < 0 {
		missing = append(missing, "amount")
	}
	if c.description < 0 {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return c, errors.NewImportParseError(
			fmt.Sprintf("cannot map column(s) %s from header [%s]: pass --map field=Column", strings.Join(missing, ", "), strings.Join(header, ", ")),
			errors.ErrCodeImportColumns)
	}
	return c, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// amountOf reads the signed amount of a row, from the amount column or the debit/credit pair.
func (c columns) amountOf(row []string) (decimal.Decimal, error) {
	if c.amount >= 0 {
		return expense.ParseSignedAmount(cell(row, c.amount))
	}
	if raw := cell(row, c.debit); raw != "" {
		d, err := expense.ParseSignedAmount(raw)
		if err != nil {
			return d, err
		}
		return d.Abs().Neg(), nil
	}
	if raw := cell(row, c.credit); raw != "" {
		d, err := expense.ParseSignedAmount(raw)
		if err != nil {
			return d, err
		}
		return d.Abs(), nil
	}
	return decimal.Zero, nil
}

// table turns header-plus-rows input into transactions. Row numbers are 1-based with the
// header on firstRow.
func table(header []string, rows [][]string, firstRow int, opts Options, date func(string) (time.Time, error)) (*Parsed, error) {
	cols, err := DetectMapping(header, opts.Mapping).resolve(header)
	if err != nil {
		return nil, err
	}

	parsed := &Parsed{}
	for i, row := range rows {
		rowNum := firstRow + i + 1
		if blank(row) {
			continue
		}

		when, err := date(cell(row, cols.date))
		if err != nil {
			if err := parsed.reject(rowNum, err.Error(), opts); err != nil {
				return nil, err
			}
			continue
		}
		amount, err := cols.amountOf(row)
		if err != nil {
			if err := parsed.reject(rowNum, err.Error(), opts); err != nil {
				return nil, err
			}
			continue
		}

		parsed.admit(Transaction{
			Row:         rowNum,
			Date:        when,
			Amount:      amount,
			Description: cell(row, cols.description),
			Category:    cell(row, cols.category),
			Currency:    opts.Currency,
		}, opts)
	}
	return parsed, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
