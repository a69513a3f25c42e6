package recurring

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	errors "github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/core/common/validation"
	recurringDatamodel "github.com/frahmantamala/dot-spend/internal/core/datamodel/recurring"
	"github.com/frahmantamala/dot-spend/internal/expense"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

// maxOccurrences bounds the expenses written by a single Generate pass across all rules.
const maxOccurrences = 1000

type Repository interface {
	Create(r *recurringDatamodel.Rule) error
	GetByID(id string) (*recurringDatamodel.Rule, error)
	Update(r *recurringDatamodel.Rule) error
	Delete(id string) error
	List() ([]*recurringDatamodel.Rule, error)
}

// Ledger is where generated occurrences are written.
type Ledger interface {
	ImportBatch(ctx context.Context, dtos []expense.AddExpenseDTO) ([]*expense.Expense, error)
	Delete(ctx context.Context, id string) error
	BaseCurrency() string
}

type Service struct {
	repo   Repository
	ledger Ledger
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, ledger Ledger, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		ledger: ledger,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) Add(_ context.Context, dto AddRuleDTO) (*Rule, error) {
	v := validation.NewValidator()
	v.Field("amount", dto.Amount).Positive(errors.ErrCodeInvalidAmount)
	v.Field("category", dto.Category).Required().MaxLength(64)
	v.Field("note", dto.Note).MaxLength(500)
	v.Field("frequency", strings.ToLower(dto.Frequency)).Required().OneOf(Frequencies, errors.ErrCodeInvalidFrequency)
	if dto.Day != nil {
		switch strings.ToLower(dto.Frequency) {
		case FrequencyWeekly:
			v.Field("day", *dto.Day).MinInt(0, errors.ErrCodeInvalidFrequency).MaxInt(6, errors.ErrCodeInvalidFrequency)
		case FrequencyMonthly:
			v.Field("day", *dto.Day).MinInt(1, errors.ErrCodeInvalidFrequency).MaxInt(31, errors.ErrCodeInvalidFrequency)
		}
	}
	if dto.Currency != "" {
		v.Field("currency", strings.ToUpper(dto.Currency)).ISOCurrency()
	}
	if dto.StartDate != nil && dto.EndDate != nil && dto.EndDate.Before(*dto.StartDate) {
		v.Field("end_date", dto.EndDate).Custom(func(interface{}) *errors.AppError {
			return errors.NewValidationFieldError("end_date", "end date must not be before start date", errors.ErrCodeInvalidDate)
		})
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}

	id, err := s.newID()
	if err != nil {
		return nil, err
	}
	rule := newRule(id, dto, s.ledger.BaseCurrency(), s.now())
	if _, err := Schedule(rule); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ToDataModel(rule)); err != nil {
		s.logger.Error("failed to save recurring rule", "error", err, "rule_id", id)
		return nil, storageError("failed to save recurring rule", err)
	}
	s.logger.Info("recurring rule created", "rule_id", id, "frequency", rule.Frequency, "category", rule.Category)
	return rule, nil
}

func (s *Service) List(_ context.Context) ([]*Rule, error) {
	recs, err := s.repo.List()
	if err != nil {
		return nil, storageError("failed to load recurring rules", err)
	}
	rules := make([]*Rule, len(recs))
	for i, r := range recs {
		rules[i] = FromDataModel(r)
	}
	sort.Slice(rules, func(i, j int) bool {
		if !rules[i].CreatedAt.Equal(rules[j].CreatedAt) {
			return rules[i].CreatedAt.Before(rules[j].CreatedAt)
		}
		return rules[i].ID < rules[j].ID
	})
	return rules, nil
}

func (s *Service) Delete(_ context.Context, id string) error {
	if err := s.repo.Delete(id); err != nil {
		if stderrors.Is(err, errors.ErrRecordNotFound) {
			return errors.NewRecurringNotFoundError(id)
		}
		return storageError("failed to delete recurring rule", err)
	}
	s.logger.Info("recurring rule deleted", "rule_id", id)
	return nil
}

func (s *Service) Pause(ctx context.Context, id string) (*Rule, error) {
	return s.setActive(id, false)
}

func (s *Service) Resume(ctx context.Context, id string) (*Rule, error) {
	return s.setActive(id, true)
}

func (s *Service) setActive(id string, active bool) (*Rule, error) {
	rec, err := s.find(id)
	if err != nil {
		return nil, err
	}
	rec.Active = active
	if err := s.repo.Update(rec); err != nil {
		return nil, storageError("failed to update recurring rule", err)
	}
	s.logger.Info("recurring rule updated", "rule_id", id, "active", active)
	return FromDataModel(rec), nil
}

// NextOccurrence reports when the rule fires next after now. ok is false for paused or
// finished rules.
func (s *Service) NextOccurrence(r *Rule, now time.Time) (next time.Time, ok bool, err error) {
	if !r.Active {
		return time.Time{}, false, nil
	}
	sched, err := Schedule(r)
	if err != nil {
		return time.Time{}, false, err
	}
	from := r.StartDate.Add(-time.Nanosecond)
	if now.After(from) {
		from = now
	}
	if r.LastGenerated != nil && r.LastGenerated.After(from) {
		from = *r.LastGenerated
	}
	next = sched.Next(from)
	if next.IsZero() || r.ended(next) {
		return time.Time{}, false, nil
	}
	return next, true, nil
}

// Generate writes every occurrence of every active rule that is due up to now and not yet
// generated, then records the last generated occurrence on the rule. Each rule's
// occurrences are written in one batch, so a failed rule leaves nothing behind and is
// retried from the same point on the next pass.
func (s *Service) Generate(ctx context.Context, now time.Time) ([]*expense.Expense, error) {
	recs, err := s.repo.List()
	if err != nil {
		return nil, storageError("failed to load recurring rules", err)
	}

	var created []*expense.Expense
	for _, rec := range recs {
		remaining := maxOccurrences - len(created)
		if remaining <= 0 {
			s.logger.Warn("recurring generation limit reached", "limit", maxOccurrences)
			break
		}
		if !rec.Active {
			continue
		}
		rule := FromDataModel(rec)
		sched, err := Schedule(rule)
		if err != nil {
			s.logger.Warn("skipping recurring rule with invalid schedule", "rule_id", rule.ID, "error", err)
			continue
		}

		dtos, last := dueOccurrences(rule, sched, now, remaining)
		if len(dtos) == 0 {
			continue
		}

		batch, err := s.ledger.ImportBatch(ctx, dtos)
		if err != nil {
			s.logger.Error("failed to write recurring expenses", "rule_id", rule.ID, "error", err)
			return created, err
		}

		rec.LastGenerated = &last
		if err := s.repo.Update(rec); err != nil {
			s.rollback(ctx, rule.ID, batch)
			return created, storageError("failed to update recurring rule", err)
		}
		created = append(created, batch...)
		s.logger.Info("recurring expenses generated", "rule_id", rule.ID, "count", len(batch), "through", last.Format(time.DateOnly))
	}
	return created, nil
}

// dueOccurrences lists up to limit occurrences of rule after its cursor and not after now.
func dueOccurrences(rule *Rule, sched cron.Schedule, now time.Time, limit int) ([]expense.AddExpenseDTO, time.Time) {
	cursor := rule.StartDate.Add(-time.Nanosecond)
	if rule.LastGenerated != nil {
		cursor = *rule.LastGenerated
	}

	var dtos []expense.AddExpenseDTO
	for len(dtos) < limit {
		occ := sched.Next(cursor)
		if occ.IsZero() || occ.After(now) || rule.ended(occ) {
			break
		}
		date := occ
		dtos = append(dtos, expense.AddExpenseDTO{
			Amount:   rule.Amount,
			Currency: rule.Currency,
			Category: rule.Category,
			Note:     rule.ExpenseNote(),
			Date:     &date,
			Source:   expense.SourceRecurring,
		})
		cursor = occ
	}
	return dtos, cursor
}

// rollback removes a batch whose rule could not be advanced.
func (s *Service) rollback(ctx context.Context, ruleID string, batch []*expense.Expense) {
	for _, e := range batch {
		if err := s.ledger.Delete(ctx, e.ID); err != nil {
			s.logger.Error("failed to roll back recurring expense", "rule_id", ruleID, "expense_id", e.ID, "error", err)
		}
	}
}

// Forecast is the monthly cost of all active rules.
func (s *Service) Forecast(ctx context.Context) (decimal.Decimal, []*Rule, error) {
	rules, err := s.List(ctx)
	if err != nil {
		return decimal.Zero, nil, err
	}
	total := decimal.Zero
	active := make([]*Rule, 0, len(rules))
	for _, r := range rules {
		if !r.Active {
			continue
		}
		total = total.Add(r.MonthlyAmount())
		active = append(active, r)
	}
	return total, active, nil
}

func (s *Service) find(id string) (*recurringDatamodel.Rule, error) {
	rec, err := s.repo.GetByID(strings.TrimSpace(id))
	if err != nil {
		if stderrors.Is(err, errors.ErrRecordNotFound) {
			return nil, errors.NewRecurringNotFoundError(id)
		}
		return nil, storageError("failed to load recurring rule", err)
	}
	return rec, nil
}

func (s *Service) newID() (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		id := expense.NewID()
		_, err := s.repo.GetByID(id)
		if stderrors.Is(err, errors.ErrRecordNotFound) {
			return id, nil
		}
		if err != nil {
			return "", storageError("failed to check id", err)
		}
	}
	return "", errors.NewConflictError("could not allocate a unique rule id", errors.ErrCodeDuplicateID)
}

func storageError(message string, err error) error {
	if _, ok := errors.IsAppError(err); ok {
		return err
	}
	return errors.NewStorageError(message, errors.ErrCodeStorageWrite, err)
}
