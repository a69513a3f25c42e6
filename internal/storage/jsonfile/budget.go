package jsonfile

import (
	"fmt"
	"strings"

	errors "github.com/frahmantamala/dot-spend/internal"
	expenseDatamodel "github.com/frahmantamala/dot-spend/internal/core/datamodel/expense"
	"github.com/shopspring/decimal"
)

// BudgetRepository stores budgets.json as a {category: limit} object.
type BudgetRepository struct {
	store *Store
}

func (r *BudgetRepository) load() (map[string]decimal.Decimal, error) {
	path := r.store.path(BudgetsFile)
	doc := map[string]decimal.Decimal{}
	if _, err := ReadJSON(path, &doc); err != nil {
		return nil, err
	}
	if err := checkBudgets(path, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func checkBudgets(path string, doc map[string]decimal.Decimal) error {
	for category, limit := range doc {
		if strings.TrimSpace(category) == "" {
			return corrupt(path, "empty category")
		}
		if !limit.IsPositive() {
			return corrupt(path, fmt.Sprintf("limit of %q must be positive", category))
		}
	}
	return nil
}

func (r *BudgetRepository) save(doc map[string]decimal.Decimal) error {
	return WriteJSON(r.store.path(BudgetsFile), doc)
}

func toBudget(category string, limit decimal.Decimal) *expenseDatamodel.Budget {
	return &expenseDatamodel.Budget{
		Category: category,
		Limit:    limit,
		Period:   expenseDatamodel.PeriodMonthly,
	}
}

func (r *BudgetRepository) Upsert(b *expenseDatamodel.Budget) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return err
	}
	doc[b.Category] = b.Limit
	return r.save(doc)
}

func (r *BudgetRepository) Get(category string) (*expenseDatamodel.Budget, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return nil, err
	}
	limit, ok := doc[category]
	if !ok {
		return nil, errors.ErrRecordNotFound
	}
	return toBudget(category, limit), nil
}

func (r *BudgetRepository) Delete(category string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return err
	}
	if _, ok := doc[category]; !ok {
		return errors.ErrRecordNotFound
	}
	delete(doc, category)
	return r.save(doc)
}

func (r *BudgetRepository) List() ([]*expenseDatamodel.Budget, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return nil, err
	}
	out := make([]*expenseDatamodel.Budget, 0, len(doc))
	for category, limit := range doc {
		out = append(out, toBudget(category, limit))
	}
	return out, nil
}

func (r *BudgetRepository) DeleteAll() (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return 0, err
	}
	if err := r.save(map[string]decimal.Decimal{}); err != nil {
		return 0, err
	}
	return len(doc), nil
}
