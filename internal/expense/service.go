package expense

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	errors "github.com/frahmantamala/dot-spend/internal"
	expenseDatamodel "github.com/frahmantamala/dot-spend/internal/core/datamodel/expense"
	"github.com/frahmantamala/dot-spend/internal/core/events"
	"github.com/shopspring/decimal"
)

// Repository is the storage contract of the ledger. Lookups that match nothing return
// errors.ErrRecordNotFound.
type Repository interface {
	Create(exp *expenseDatamodel.Expense) error
	CreateBatch(exps []*expenseDatamodel.Expense) error
	GetByID(id string) (*expenseDatamodel.Expense, error)
	Update(exp *expenseDatamodel.Expense) error
	Delete(id string) error
	List(filter Filter) ([]*expenseDatamodel.Expense, error)
	DeleteAll() (int, error)
}

// Converter turns an amount from one currency into another.
type Converter interface {
	Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// Service is the ledger: the only writer of expense records.
type Service struct {
	repo         Repository
	bus          *events.EventBus
	converter    Converter
	baseCurrency string
	logger       *slog.Logger
	now          func() time.Time
}

// NewService creates the ledger service. bus and converter may be nil.
func NewService(repo Repository, bus *events.EventBus, converter Converter, baseCurrency string, logger *slog.Logger) *Service {
	return &Service{
		repo:         repo,
		bus:          bus,
		converter:    converter,
		baseCurrency: strings.ToUpper(baseCurrency),
		logger:       logger,
		now:          time.Now,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) BaseCurrency() string {
	return s.baseCurrency
}

func (s *Service) Add(ctx context.Context, dto AddExpenseDTO) (*Expense, error) {
	now := s.now()
	dto = dto.withDefaults(s.baseCurrency, now)
	if err := dto.Validate(); err != nil {
		s.logger.Warn("expense validation failed", "error", err.GetDetailedMessage())
		return nil, err
	}

	id, err := s.newID(nil)
	if err != nil {
		return nil, err
	}

	exp := NewExpense(id, dto, now)
	rec := ToDataModel(exp)
	if err := s.repo.Create(rec); err != nil {
		s.logger.Error("failed to create expense", "error", err, "expense_id", id)
		return nil, storageError("failed to save expense", err)
	}

	s.publish(ctx, events.NewExpenseChangedEvent(events.EventTypeExpenseAdded, nil, rec))

	s.logger.Info("expense created successfully",
		"expense_id", rec.ID,
		"amount", rec.Amount.String(),
		"currency", rec.Currency,
		"category", rec.Category)

	return FromDataModel(rec), nil
}

// ImportBatch validates every record first and stores them in one write: either all are
// added or none.
func (s *Service) ImportBatch(ctx context.Context, dtos []AddExpenseDTO) ([]*Expense, error) {
	if len(dtos) == 0 {
		return nil, nil
	}

	now := s.now()
	taken := make(map[string]bool, len(dtos))
	recs := make([]*expenseDatamodel.Expense, 0, len(dtos))
	for i, dto := range dtos {
		dto = dto.withDefaults(s.baseCurrency, now)
		if err := dto.Validate(); err != nil {
			s.logger.Warn("import record rejected", "index", i, "error", err.GetDetailedMessage())
			return nil, err
		}
		id, err := s.newID(taken)
		if err != nil {
			return nil, err
		}
		taken[id] = true
		recs = append(recs, ToDataModel(NewExpense(id, dto, now)))
	}

	if err := s.repo.CreateBatch(recs); err != nil {
		s.logger.Error("failed to import expenses", "error", err, "count", len(recs))
		return nil, storageError("failed to save imported expenses", err)
	}

	for _, rec := range recs {
		s.publish(ctx, events.NewExpenseChangedEvent(events.EventTypeExpenseAdded, nil, rec))
	}

	s.logger.Info("expenses imported", "count", len(recs))
	return FromDataModelSlice(recs), nil
}

func (s *Service) Get(_ context.Context, id string) (*Expense, error) {
	rec, err := s.find(id)
	if err != nil {
		return nil, err
	}
	return FromDataModel(rec), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	rec, err := s.find(id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(rec.ID); err != nil {
		if stderrors.Is(err, errors.ErrRecordNotFound) {
			return errors.NewExpenseNotFoundError(id)
		}
		s.logger.Error("failed to delete expense", "error", err, "expense_id", id)
		return storageError("failed to delete expense", err)
	}

	s.publish(ctx, events.NewExpenseChangedEvent(events.EventTypeExpenseDeleted, rec, nil))
	s.logger.Info("expense deleted", "expense_id", id)
	return nil
}

func (s *Service) Edit(ctx context.Context, id string, dto EditExpenseDTO) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Warn("expense edit validation failed", "error", err.GetDetailedMessage(), "expense_id", id)
		return nil, err
	}

	rec, err := s.find(id)
	if err != nil {
		return nil, err
	}

	before := *rec
	dto.apply(rec)
	rec.UpdatedAt = s.now()

	if err := s.repo.Update(rec); err != nil {
		s.logger.Error("failed to update expense", "error", err, "expense_id", id)
		return nil, storageError("failed to update expense", err)
	}

	s.publish(ctx, events.NewExpenseChangedEvent(events.EventTypeExpenseEdited, &before, rec))
	s.logger.Info("expense updated", "expense_id", id)
	return FromDataModel(rec), nil
}

// Replace overwrites a stored record with exp as-is. Undo uses it to revert an edit.
func (s *Service) Replace(ctx context.Context, exp *Expense) error {
	before, err := s.find(exp.ID)
	if err != nil {
		return err
	}
	rec := ToDataModel(exp)
	if err := s.repo.Update(rec); err != nil {
		return storageError("failed to update expense", err)
	}
	s.publish(ctx, events.NewExpenseChangedEvent(events.EventTypeExpenseEdited, before, rec))
	return nil
}

// Restore re-inserts a deleted record under its original id.
func (s *Service) Restore(ctx context.Context, exp *Expense) error {
	if _, err := s.repo.GetByID(exp.ID); err == nil {
		return errors.NewConflictError("expense "+exp.ID+" already exists", errors.ErrCodeDuplicateID)
	} else if !stderrors.Is(err, errors.ErrRecordNotFound) {
		return storageError("failed to load expense", err)
	}

	rec := ToDataModel(exp)
	if err := s.repo.Create(rec); err != nil {
		return storageError("failed to restore expense", err)
	}
	s.publish(ctx, events.NewExpenseChangedEvent(events.EventTypeExpenseRestored, nil, rec))
	s.logger.Info("expense restored", "expense_id", exp.ID)
	return nil
}

func (s *Service) List(_ context.Context, filter Filter) ([]*Expense, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	recs, err := s.repo.List(filter)
	if err != nil {
		s.logger.Error("failed to list expenses", "error", err)
		return nil, storageError("failed to load expenses", err)
	}
	return FromDataModelSlice(recs), nil
}

// Aggregate sums the filtered records in the base currency. Category buckets are ordered by
// total descending, period buckets chronologically.
func (s *Service) Aggregate(ctx context.Context, filter Filter, groupBy GroupBy, granularity Granularity) ([]Bucket, error) {
	if filter.LastN > 0 {
		return nil, errors.NewValidationFieldError("last", "aggregation does not take a record limit", errors.ErrCodeValidationFailed)
	}
	expenses, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]*Bucket)
	for _, e := range expenses {
		amount, err := s.InBase(e)
		if err != nil {
			return nil, err
		}

		var key string
		var start time.Time
		switch groupBy {
		case GroupByCategory:
			key = e.Category
		case GroupByPeriod:
			start = granularity.Start(e.Date)
			key = granularity.Key(start)
		default:
			return nil, errors.NewValidationFieldError("group_by", "group by must be category or period", errors.ErrCodeValidationFailed)
		}

		b, ok := byKey[key]
		if !ok {
			b = &Bucket{Key: key, Start: start, Total: decimal.Zero}
			byKey[key] = b
		}
		b.Total = b.Total.Add(amount)
		b.Count++
	}

	buckets := make([]Bucket, 0, len(byKey))
	for _, b := range byKey {
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		if groupBy == GroupByPeriod {
			return buckets[i].Start.Before(buckets[j].Start)
		}
		if !buckets[i].Total.Equal(buckets[j].Total) {
			return buckets[i].Total.GreaterThan(buckets[j].Total)
		}
		return buckets[i].Key < buckets[j].Key
	})
	return buckets, nil
}

// Total sums the filtered records in the base currency.
func (s *Service) Total(ctx context.Context, filter Filter) (decimal.Decimal, error) {
	expenses, err := s.List(ctx, filter)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, e := range expenses {
		amount, err := s.InBase(e)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(amount)
	}
	return total, nil
}

// InBase returns the expense amount expressed in the base currency.
func (s *Service) InBase(e *Expense) (decimal.Decimal, error) {
	if s.converter == nil || e.Currency == "" || strings.EqualFold(e.Currency, s.baseCurrency) {
		return e.Amount, nil
	}
	converted, err := s.converter.Convert(e.Amount, e.Currency, s.baseCurrency)
	if err != nil {
		s.logger.Error("currency conversion failed", "error", err, "expense_id", e.ID, "currency", e.Currency)
		return decimal.Zero, err
	}
	return converted, nil
}

// Nuke removes every record and returns how many were removed.
func (s *Service) Nuke(ctx context.Context) (int, error) {
	removed, err := s.repo.DeleteAll()
	if err != nil {
		s.logger.Error("failed to nuke ledger", "error", err)
		return 0, storageError("failed to remove expenses", err)
	}
	s.publish(ctx, events.NewLedgerNukedEvent(removed))
	s.logger.Warn("ledger nuked", "removed", removed)
	return removed, nil
}

func (s *Service) find(id string) (*expenseDatamodel.Expense, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.NewValidationFieldError("id", "id is required", errors.ErrCodeValidationFailed)
	}
	rec, err := s.repo.GetByID(id)
	if err != nil {
		if stderrors.Is(err, errors.ErrRecordNotFound) {
			return nil, errors.NewExpenseNotFoundError(id)
		}
		s.logger.Error("failed to get expense", "error", err, "expense_id", id)
		return nil, storageError("failed to load expense", err)
	}
	return rec, nil
}

// newID mints an id unused both in the store and in taken.
func (s *Service) newID(taken map[string]bool) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		id := NewID()
		if taken[id] {
			continue
		}
		_, err := s.repo.GetByID(id)
		if stderrors.Is(err, errors.ErrRecordNotFound) {
			return id, nil
		}
		if err != nil {
			return "", storageError("failed to check id", err)
		}
		s.logger.Debug("expense id collision, retrying", "expense_id", id)
	}
	return "", errors.NewConflictError("could not allocate a unique expense id", errors.ErrCodeDuplicateID)
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishSync(ctx, event); err != nil {
		s.logger.Warn("ledger event handler failed", "event_type", event.EventType(), "error", err)
	}
}

// storageError keeps AppErrors raised by the backend and wraps anything else.
func storageError(message string, err error) error {
	if _, ok := errors.IsAppError(err); ok {
		return err
	}
	return errors.NewStorageError(message, errors.ErrCodeStorageWrite, err)
}
