package sqlstore

import (
	stderrors "errors"
	"time"

	errors "github.com/frahmantamala/dot-spend/internal"
	recurringDatamodel "github.com/frahmantamala/dot-spend/internal/core/datamodel/recurring"
	"gorm.io/gorm"
)

type RecurringRepository struct {
	db *gorm.DB
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func localPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	l := t.Local()
	return &l
}

func ruleRow(r *recurringDatamodel.Rule) *recurringDatamodel.Rule {
	row := *r
	row.StartDate = row.StartDate.UTC()
	row.EndDate = utcPtr(row.EndDate)
	row.LastGenerated = utcPtr(row.LastGenerated)
	row.CreatedAt = row.CreatedAt.UTC()
	return &row
}

func ruleFromRow(r *recurringDatamodel.Rule) *recurringDatamodel.Rule {
	r.StartDate = r.StartDate.Local()
	r.EndDate = localPtr(r.EndDate)
	r.LastGenerated = localPtr(r.LastGenerated)
	r.CreatedAt = r.CreatedAt.Local()
	return r
}

func (r *RecurringRepository) Create(rule *recurringDatamodel.Rule) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(ruleRow(rule)).Error
	})
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.NewConflictError("recurring rule "+rule.ID+" already exists", errors.ErrCodeDuplicateID).WithCause(err)
	}
	return err
}

func (r *RecurringRepository) GetByID(id string) (*recurringDatamodel.Rule, error) {
	var rule recurringDatamodel.Rule
	if err := r.db.Where("id = ?", id).First(&rule).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrRecordNotFound
		}
		return nil, err
	}
	return ruleFromRow(&rule), nil
}

func (r *RecurringRepository) Update(rule *recurringDatamodel.Rule) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&recurringDatamodel.Rule{}).Where("id = ?", rule.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return errors.ErrRecordNotFound
		}
		return tx.Save(ruleRow(rule)).Error
	})
}

func (r *RecurringRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&recurringDatamodel.Rule{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errors.ErrRecordNotFound
		}
		return nil
	})
}

func (r *RecurringRepository) List() ([]*recurringDatamodel.Rule, error) {
	var rules []*recurringDatamodel.Rule
	if err := r.db.Order("created_at ASC").Find(&rules).Error; err != nil {
		return nil, err
	}
	for _, rule := range rules {
		ruleFromRow(rule)
	}
	return rules, nil
}
