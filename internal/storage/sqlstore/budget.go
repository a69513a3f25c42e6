package sqlstore

import (
	stderrors "errors"
	"time"

	errors "github.com/frahmantamala/dot-spend/internal"
	expenseDatamodel "github.com/frahmantamala/dot-spend/internal/core/datamodel/expense"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BudgetRepository struct {
	db *gorm.DB
}

// Upsert inserts the budget or replaces the limit of an existing one.
func (r *BudgetRepository) Upsert(b *expenseDatamodel.Budget) error {
	row := *b
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.CreatedAt = row.CreatedAt.UTC()
	row.UpdatedAt = now
	if row.Period == "" {
		row.Period = expenseDatamodel.PeriodMonthly
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "category"}},
			DoUpdates: clause.AssignmentColumns([]string{"limit", "period", "updated_at"}),
		}).Create(&row).Error
	})
}

func (r *BudgetRepository) Get(category string) (*expenseDatamodel.Budget, error) {
	var b expenseDatamodel.Budget
	if err := r.db.Where("category = ?", category).First(&b).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrRecordNotFound
		}
		return nil, err
	}
	b.CreatedAt = b.CreatedAt.Local()
	b.UpdatedAt = b.UpdatedAt.Local()
	return &b, nil
}

func (r *BudgetRepository) Delete(category string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("category = ?", category).Delete(&expenseDatamodel.Budget{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errors.ErrRecordNotFound
		}
		return nil
	})
}

func (r *BudgetRepository) List() ([]*expenseDatamodel.Budget, error) {
	var budgets []*expenseDatamodel.Budget
	if err := r.db.Order("category ASC").Find(&budgets).Error; err != nil {
		return nil, err
	}
	return budgets, nil
}

func (r *BudgetRepository) DeleteAll() (int, error) {
	var removed int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&expenseDatamodel.Budget{})
		removed = result.RowsAffected
		return result.Error
	})
	return int(removed), err
}
