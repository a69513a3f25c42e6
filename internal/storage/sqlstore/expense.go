package sqlstore

import (
	stderrors "errors"
	"fmt"

	errors "github.com/frahmantamala/dot-spend/internal"
	expenseDatamodel "github.com/frahmantamala/dot-spend/internal/core/datamodel/expense"
	"github.com/frahmantamala/dot-spend/internal/expense"
	"gorm.io/gorm"
)

// ExpenseRepository implements expense.Repository with GORM. Times are written in UTC so
// that SQLite's text timestamps compare in order, and read back in local time.
type ExpenseRepository struct {
	db *gorm.DB
}

func toRow(e *expenseDatamodel.Expense) *expenseDatamodel.Expense {
	row := *e
	row.Date = row.Date.UTC()
	row.CreatedAt = row.CreatedAt.UTC()
	row.UpdatedAt = row.UpdatedAt.UTC()
	return &row
}

func fromRow(e *expenseDatamodel.Expense) *expenseDatamodel.Expense {
	e.Date = e.Date.Local()
	e.CreatedAt = e.CreatedAt.Local()
	e.UpdatedAt = e.UpdatedAt.Local()
	return e
}

func (r *ExpenseRepository) Create(exp *expenseDatamodel.Expense) error {
	return r.CreateBatch([]*expenseDatamodel.Expense{exp})
}

// CreateBatch inserts every record in one transaction.
func (r *ExpenseRepository) CreateBatch(exps []*expenseDatamodel.Expense) error {
	if len(exps) == 0 {
		return nil
	}
	rows := make([]*expenseDatamodel.Expense, len(exps))
	for i, e := range exps {
		rows[i] = toRow(e)
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, 100).Error
	})
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.NewConflictError("expense id already exists", errors.ErrCodeDuplicateID).WithCause(err)
	}
	return err
}

func (r *ExpenseRepository) GetByID(id string) (*expenseDatamodel.Expense, error) {
	var exp expenseDatamodel.Expense
	err := r.db.Where("id = ?", id).First(&exp).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrRecordNotFound
		}
		return nil, err
	}
	return fromRow(&exp), nil
}

func (r *ExpenseRepository) Update(exp *expenseDatamodel.Expense) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&expenseDatamodel.Expense{}).Where("id = ?", exp.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return errors.ErrRecordNotFound
		}
		return tx.Save(toRow(exp)).Error
	})
}

func (r *ExpenseRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&expenseDatamodel.Expense{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errors.ErrRecordNotFound
		}
		return nil
	})
}

// List runs the filter in SQL, newest first.
func (r *ExpenseRepository) List(filter expense.Filter) ([]*expenseDatamodel.Expense, error) {
	q := r.db.Model(&expenseDatamodel.Expense{})
	if filter.Category != "" {
		q = q.Where("category = ?", expense.NormalizeCategory(filter.Category))
	}
	if filter.Source != "" {
		q = q.Where("source = ?", filter.Source)
	}
	if filter.From != nil {
		q = q.Where("date >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		q = q.Where("date <= ?", filter.To.UTC())
	}
	q = q.Order("date DESC").Order("created_at DESC").Order("id ASC")
	if filter.LastN > 0 {
		q = q.Limit(filter.LastN)
	}

	var rows []*expenseDatamodel.Expense
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	for _, row := range rows {
		fromRow(row)
	}
	return rows, nil
}

func (r *ExpenseRepository) DeleteAll() (int, error) {
	var removed int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&expenseDatamodel.Expense{})
		removed = result.RowsAffected
		return result.Error
	})
	return int(removed), err
}
