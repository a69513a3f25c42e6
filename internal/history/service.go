package history

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	errors "github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/core/events"
	"github.com/frahmantamala/dot-spend/internal/expense"
	"github.com/frahmantamala/dot-spend/internal/storage/jsonfile"
)

// Ledger is the write side undo needs.
type Ledger interface {
	Delete(ctx context.Context, id string) error
	Replace(ctx context.Context, exp *expense.Expense) error
	Restore(ctx context.Context, exp *expense.Expense) error
}

// Service keeps the undo log in history.json inside the data directory.
type Service struct {
	path   string
	ledger Ledger
	logger *slog.Logger
	mu     sync.Mutex
}

func NewService(dataDir string, ledger Ledger, logger *slog.Logger) *Service {
	return &Service{
		path:   filepath.Join(dataDir, File),
		ledger: ledger,
		logger: logger,
	}
}

func (s *Service) RegisterEventHandlers(bus *events.EventBus) {
	bus.SubscribeAll(s.HandleExpenseChanged,
		events.EventTypeExpenseAdded,
		events.EventTypeExpenseEdited,
		events.EventTypeExpenseDeleted,
		events.EventTypeExpenseRestored)
	bus.Subscribe(events.EventTypeLedgerNuked, s.HandleLedgerNuked)

	s.logger.Debug("history event handlers registered")
}

// HandleExpenseChanged appends the mutation to the log. Mutations made by Undo itself are
// not recorded.
func (s *Service) HandleExpenseChanged(ctx context.Context, event events.Event) error {
	if errors.IsUndo(ctx) {
		return nil
	}
	changed, ok := event.(*events.ExpenseChangedEvent)
	if !ok {
		s.logger.Error("invalid event type for history handler", "event_type", event.EventType())
		return fmt.Errorf("expected ExpenseChangedEvent, got %T", event)
	}
	entry, ok := entryFromEvent(changed)
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	if len(entries) > MaxEntries {
		entries = entries[len(entries)-MaxEntries:]
	}
	return s.save(entries)
}

// HandleLedgerNuked clears the log; none of its entries can be reverted afterwards.
func (s *Service) HandleLedgerNuked(ctx context.Context, event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Info("history cleared", "event_id", event.EventID())
	return s.save([]Entry{})
}

// List returns up to n entries, newest first. n <= 0 returns all.
func (s *Service) List(n int) ([]Entry, error) {
	s.mu.Lock()
	entries, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, entries[i])
		if n > 0 && len(out) == n {
			break
		}
	}
	return out, nil
}

// Undo reverts the most recent entry and removes it from the log.
func (s *Service) Undo(ctx context.Context) (*Entry, error) {
	s.mu.Lock()
	entries, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.ErrHistoryEmpty
	}
	last := entries[len(entries)-1]

	ctx = errors.ContextWithUndo(ctx)
	switch last.Action {
	case ActionAdd, ActionRestore:
		err = s.ledger.Delete(ctx, last.ExpenseID)
	case ActionDelete:
		err = s.ledger.Restore(ctx, expense.FromDataModel(last.Before))
	case ActionEdit:
		err = s.ledger.Replace(ctx, expense.FromDataModel(last.Before))
	default:
		err = errors.NewInternalError("unknown history action "+string(last.Action), nil)
	}
	if err != nil {
		s.logger.Warn("undo failed", "action", last.Action, "expense_id", last.ExpenseID, "error", err)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := len(current) - 1; i >= 0; i-- {
		if current[i].ID == last.ID {
			current = append(current[:i], current[i+1:]...)
			break
		}
	}
	if err := s.save(current); err != nil {
		return nil, err
	}

	s.logger.Info("undo applied", "action", last.Action, "expense_id", last.ExpenseID)
	return &last, nil
}

func (s *Service) load() ([]Entry, error) {
	var entries []Entry
	if _, err := jsonfile.ReadJSON(s.path, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Service) save(entries []Entry) error {
	return jsonfile.WriteJSON(s.path, entries)
}
