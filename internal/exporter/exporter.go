package exporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	errors "github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/expense"
	"github.com/shopspring/decimal"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON:
		return f, nil
	case "":
		return FormatCSV, nil
	}
	return "", errors.NewValidationFieldError("format", fmt.Sprintf("unknown export format %q: use csv or json", s), errors.ErrCodeValidationFailed)
}

// Fields lists every exportable column in output order.
var Fields = []string{"id", "date", "category", "note", "amount", "currency", "source", "created_at", "updated_at"}

// DefaultFields is used when no selection is given.
var DefaultFields = []string{"id", "date", "category", "note", "amount", "currency", "source"}

// ParseFields reads a comma separated field selection.
func ParseFields(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return DefaultFields, nil
	}
	known := make(map[string]bool, len(Fields))
	for _, f := range Fields {
		known[f] = true
	}
	var out []string
	for _, f := range strings.Split(raw, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		if !known[f] {
			return nil, errors.NewValidationFieldError("fields", fmt.Sprintf("unknown field %q: choose from %s", f, strings.Join(Fields, ", ")), errors.ErrCodeValidationFailed)
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return DefaultFields, nil
	}
	return out, nil
}

func value(e *expense.Expense, field string) string {
	switch field {
	case "id":
		return e.ID
	case "date":
		return e.Date.Format("2006-01-02")
	case "category":
		return e.Category
	case "note":
		return e.Note
	case "amount":
		return e.Amount.StringFixed(2)
	case "currency":
		return e.Currency
	case "source":
		return e.Source
	case "created_at":
		return e.CreatedAt.Format(time.RFC3339)
	case "updated_at":
		return e.UpdatedAt.Format(time.RFC3339)
	}
	return ""
}

// Document is the JSON export layout.
type Document struct {
	ExportedAt time.Time                `json:"exported_at"`
	Currency   string                   `json:"currency"`
	Count      int                      `json:"count"`
	Total      decimal.Decimal          `json:"total"`
	Expenses   []map[string]interface{} `json:"expenses"`
}

// WriteCSV writes a header, one line per expense and a TOTAL line carrying the count and
// the base-currency total.
func WriteCSV(w io.Writer, expenses []*expense.Expense, fields []string, delimiter rune, total decimal.Decimal) error {
	cw := csv.NewWriter(w)
	if delimiter != 0 {
		cw.Comma = delimiter
	}

	if err := cw.Write(fields); err != nil {
		return err
	}
	row := make([]string, len(fields))
	for _, e := range expenses {
		for i, f := range fields {
			row[i] = value(e, f)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	if len(expenses) > 0 {
		summary := make([]string, len(fields))
		for i, f := range fields {
			switch f {
			case "id":
				summary[i] = "TOTAL"
			case "category":
				summary[i] = "Count: " + strconv.Itoa(len(expenses))
			case "amount":
				summary[i] = total.StringFixed(2)
			}
		}
		if err := cw.Write(summary); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func WriteJSON(w io.Writer, expenses []*expense.Expense, fields []string, currency string, total decimal.Decimal, now time.Time) error {
	doc := Document{
		ExportedAt: now,
		Currency:   currency,
		Count:      len(expenses),
		Total:      total.Round(2),
		Expenses:   make([]map[string]interface{}, 0, len(expenses)),
	}
	for _, e := range expenses {
		rec := make(map[string]interface{}, len(fields))
		for _, f := range fields {
			switch f {
			case "amount":
				rec[f] = e.Amount
			case "date":
				rec[f] = e.Date
			default:
				rec[f] = value(e, f)
			}
		}
		doc.Expenses = append(doc.Expenses, rec)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
