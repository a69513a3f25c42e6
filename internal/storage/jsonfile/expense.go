package jsonfile

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	errors "github.com/frahmantamala/dot-spend/internal"
	expenseDatamodel "github.com/frahmantamala/dot-spend/internal/core/datamodel/expense"
	"github.com/frahmantamala/dot-spend/internal/expense"
	"github.com/shopspring/decimal"
)

// expenseDocument is the on-disk shape of one expense. Timestamp is the legacy name of Date.
type expenseDocument struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency,omitempty"`
	Category  string          `json:"category"`
	Note      string          `json:"note"`
	Date      string          `json:"date,omitempty"`
	Timestamp legacyTimestamp `json:"timestamp,omitempty"`
	Source    string          `json:"source,omitempty"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
}

// legacyTimestamp accepts the timestamp field as an ISO string or as unix seconds.
type legacyTimestamp string

func (t *legacyTimestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = legacyTimestamp(s)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(data, &secs); err != nil {
		return fmt.Errorf("timestamp must be a string or unix seconds, got %s", data)
	}
	whole, frac := math.Modf(secs)
	*t = legacyTimestamp(time.Unix(int64(whole), int64(frac*1e9)).Format(time.RFC3339Nano))
	return nil
}

// displayLayout is the minute-precision date older files carry next to timestamp.
const displayLayout = "2006-01-02 15:04"

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	displayLayout,
	"2006-01-02",
}

func parseStoredDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t.Local(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}

func isDisplayDate(raw string) bool {
	_, err := time.ParseInLocation(displayLayout, strings.TrimSpace(raw), time.Local)
	return err == nil
}

// storedDate picks the most precise date of a document and reports whether it came from
// a legacy field.
func storedDate(d expenseDocument) (string, bool) {
	switch {
	case d.Date == "":
		return string(d.Timestamp), true
	case d.Timestamp != "" && isDisplayDate(d.Date):
		return string(d.Timestamp), true
	}
	return d.Date, false
}

func toDocument(e *expenseDatamodel.Expense) expenseDocument {
	created, updated := e.CreatedAt, e.UpdatedAt
	return expenseDocument{
		ID:        e.ID,
		Amount:    e.Amount,
		Currency:  e.Currency,
		Category:  e.Category,
		Note:      e.Note,
		Date:      e.Date.Format(time.RFC3339Nano),
		Source:    e.Source,
		CreatedAt: &created,
		UpdatedAt: &updated,
	}
}

// decodeExpenses validates docs and upgrades legacy records: missing ids are minted,
// timestamp becomes date, and missing currency and source get defaults. It returns how
// many records were upgraded.
func decodeExpenses(path string, docs []expenseDocument, baseCurrency string) ([]*expenseDatamodel.Expense, int, error) {
	seen := make(map[string]bool, len(docs))
	out := make([]*expenseDatamodel.Expense, 0, len(docs))
	upgraded := 0
	for i, d := range docs {
		rawDate, legacy := storedDate(d)
		date, err := parseStoredDate(rawDate)
		if err != nil {
			return nil, 0, corrupt(path, fmt.Sprintf("record %d: %v", i, err))
		}
		if !d.Amount.IsPositive() {
			return nil, 0, corrupt(path, fmt.Sprintf("record %d: amount must be positive", i))
		}
		if strings.TrimSpace(d.Category) == "" {
			return nil, 0, corrupt(path, fmt.Sprintf("record %d: category is empty", i))
		}

		id := d.ID
		if id == "" {
			for id == "" || seen[id] {
				id = expense.NewID()
			}
			legacy = true
		} else if seen[id] {
			return nil, 0, corrupt(path, fmt.Sprintf("record %d: duplicate id %q", i, id))
		}
		seen[id] = true

		currency := strings.ToUpper(d.Currency)
		if currency == "" {
			currency = baseCurrency
			legacy = true
		}
		source := d.Source
		if source == "" {
			source = expenseDatamodel.SourceManual
			legacy = true
		}
		rec := &expenseDatamodel.Expense{
			ID:       id,
			Amount:   d.Amount,
			Currency: currency,
			Category: d.Category,
			Note:     d.Note,
			Date:     date,
			Source:   source,
		}
		if d.CreatedAt != nil {
			rec.CreatedAt = d.CreatedAt.Local()
		} else {
			rec.CreatedAt = date
		}
		if d.UpdatedAt != nil {
			rec.UpdatedAt = d.UpdatedAt.Local()
		} else {
			rec.UpdatedAt = rec.CreatedAt
		}
		if legacy {
			upgraded++
		}
		out = append(out, rec)
	}
	return out, upgraded, nil
}

type ExpenseRepository struct {
	store *Store
}

// load reads and validates expenses.json. Upgraded legacy records are written back at once
// so minted ids stay stable across reads. Callers hold the store lock.
func (r *ExpenseRepository) load() ([]*expenseDatamodel.Expense, error) {
	path := r.store.path(ExpensesFile)
	var docs []expenseDocument
	if _, err := ReadJSON(path, &docs); err != nil {
		return nil, err
	}

	out, upgraded, err := decodeExpenses(path, docs, r.store.baseCurrency)
	if err != nil {
		return nil, err
	}
	if upgraded > 0 {
		r.store.logger.Info("upgraded legacy expense records", "count", upgraded)
		if err := r.save(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *ExpenseRepository) save(recs []*expenseDatamodel.Expense) error {
	docs := make([]expenseDocument, len(recs))
	for i, rec := range recs {
		docs[i] = toDocument(rec)
	}
	return WriteJSON(r.store.path(ExpensesFile), docs)
}

func (r *ExpenseRepository) Create(exp *expenseDatamodel.Expense) error {
	return r.CreateBatch([]*expenseDatamodel.Expense{exp})
}

func (r *ExpenseRepository) CreateBatch(exps []*expenseDatamodel.Expense) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	recs, err := r.load()
	if err != nil {
		return err
	}
	ids := make(map[string]bool, len(recs)+len(exps))
	for _, rec := range recs {
		ids[rec.ID] = true
	}
	for _, exp := range exps {
		if ids[exp.ID] {
			return errors.NewConflictError(fmt.Sprintf("expense %s already exists", exp.ID), errors.ErrCodeDuplicateID)
		}
		ids[exp.ID] = true
		clone := *exp
		recs = append(recs, &clone)
	}
	return r.save(recs)
}

func (r *ExpenseRepository) GetByID(id string) (*expenseDatamodel.Expense, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	recs, err := r.load()
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, errors.ErrRecordNotFound
}

func (r *ExpenseRepository) Update(exp *expenseDatamodel.Expense) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	recs, err := r.load()
	if err != nil {
		return err
	}
	for i, rec := range recs {
		if rec.ID == exp.ID {
			clone := *exp
			recs[i] = &clone
			return r.save(recs)
		}
	}
	return errors.ErrRecordNotFound
}

func (r *ExpenseRepository) Delete(id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	recs, err := r.load()
	if err != nil {
		return err
	}
	for i, rec := range recs {
		if rec.ID == id {
			recs = append(recs[:i], recs[i+1:]...)
			return r.save(recs)
		}
	}
	return errors.ErrRecordNotFound
}

func (r *ExpenseRepository) List(filter expense.Filter) ([]*expenseDatamodel.Expense, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	recs, err := r.load()
	if err != nil {
		return nil, err
	}
	return expense.ApplyFilter(recs, filter), nil
}

func (r *ExpenseRepository) DeleteAll() (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	recs, err := r.load()
	if err != nil {
		return 0, err
	}
	if err := r.save([]*expenseDatamodel.Expense{}); err != nil {
		return 0, err
	}
	return len(recs), nil
}
