package budget

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sort"
	"time"

	errors "github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/core/common/validation"
	expenseDatamodel "github.com/frahmantamala/dot-spend/internal/core/datamodel/expense"
	"github.com/frahmantamala/dot-spend/internal/expense"
	"github.com/shopspring/decimal"
)

// Repository stores at most one budget per category.
type Repository interface {
	Upsert(b *expenseDatamodel.Budget) error
	Get(category string) (*expenseDatamodel.Budget, error)
	Delete(category string) error
	List() ([]*expenseDatamodel.Budget, error)
	DeleteAll() (int, error)
}

// Ledger is the read side the tracker needs.
type Ledger interface {
	Aggregate(ctx context.Context, filter expense.Filter, groupBy expense.GroupBy, granularity expense.Granularity) ([]expense.Bucket, error)
}

type Service struct {
	repo   Repository
	ledger Ledger
	logger *slog.Logger
}

func NewService(repo Repository, ledger Ledger, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		ledger: ledger,
		logger: logger,
	}
}

// Set creates or replaces the monthly limit of a category.
func (s *Service) Set(category string, limit decimal.Decimal) (*Budget, error) {
	v := validation.NewValidator()
	v.Field("category", category).Required().MaxLength(64)
	v.Field("limit", limit).Positive(errors.ErrCodeInvalidLimit)
	if err := v.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	b := &Budget{
		Category:  expense.NormalizeCategory(category),
		Limit:     limit,
		Period:    expenseDatamodel.PeriodMonthly,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing, err := s.repo.Get(b.Category); err == nil {
		b.CreatedAt = existing.CreatedAt
	} else if !stderrors.Is(err, errors.ErrRecordNotFound) {
		return nil, storageError("failed to load budget", err)
	}

	if err := s.repo.Upsert(ToDataModel(b)); err != nil {
		s.logger.Error("failed to save budget", "error", err, "category", b.Category)
		return nil, storageError("failed to save budget", err)
	}

	s.logger.Info("budget set", "category", b.Category, "limit", limit.String())
	return b, nil
}

func (s *Service) Remove(category string) error {
	normalized := expense.NormalizeCategory(category)
	if err := s.repo.Delete(normalized); err != nil {
		if stderrors.Is(err, errors.ErrRecordNotFound) {
			return errors.NewBudgetNotFoundError(normalized)
		}
		return storageError("failed to remove budget", err)
	}
	s.logger.Info("budget removed", "category", normalized)
	return nil
}

func (s *Service) List() ([]*Budget, error) {
	recs, err := s.repo.List()
	if err != nil {
		return nil, storageError("failed to load budgets", err)
	}
	out := make([]*Budget, len(recs))
	for i, r := range recs {
		out[i] = FromDataModel(r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

// Status reports every budget against the spending of the calendar month containing now.
func (s *Service) Status(ctx context.Context, now time.Time) ([]Status, error) {
	budgets, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(budgets) == 0 {
		return []Status{}, nil
	}

	start := expense.Month.Start(now)
	end := expense.Month.Shift(start, 1).Add(-time.Nanosecond)
	buckets, err := s.ledger.Aggregate(ctx, expense.Filter{From: &start, To: &end}, expense.GroupByCategory, expense.Month)
	if err != nil {
		return nil, err
	}

	spent := make(map[string]decimal.Decimal, len(buckets))
	for _, b := range buckets {
		key := expense.NormalizeCategory(b.Key)
		spent[key] = spent[key].Add(b.Total)
	}

	statuses := make([]Status, 0, len(budgets))
	for _, b := range budgets {
		st := newStatus(b, spent[b.Category], start, end)
		if st.Over {
			s.logger.Warn("budget exceeded", "category", b.Category, "limit", b.Limit.String(), "spent", st.Spent.String())
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

// StatusFor reports a single category.
func (s *Service) StatusFor(ctx context.Context, category string, now time.Time) (*Status, error) {
	normalized := expense.NormalizeCategory(category)
	statuses, err := s.Status(ctx, now)
	if err != nil {
		return nil, err
	}
	for i := range statuses {
		if statuses[i].Category == normalized {
			return &statuses[i], nil
		}
	}
	return nil, errors.NewBudgetNotFoundError(normalized)
}

func (s *Service) RemoveAll() (int, error) {
	n, err := s.repo.DeleteAll()
	if err != nil {
		return 0, storageError("failed to remove budgets", err)
	}
	return n, nil
}

func storageError(message string, err error) error {
	if _, ok := errors.IsAppError(err); ok {
		return err
	}
	return errors.NewStorageError(message, errors.ErrCodeStorageWrite, err)
}
