// Package jsonfile keeps the ledger in plain JSON documents inside the data directory.
package jsonfile

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	errors "github.com/frahmantamala/dot-spend/internal"
)

const (
	ExpensesFile  = "expenses.json"
	BudgetsFile   = "budgets.json"
	RecurringFile = "recurring.json"
)

// Files lists the documents owned by the store.
var Files = []string{ExpensesFile, BudgetsFile, RecurringFile}

// Store serializes access to the documents of one data directory. Every mutation is a full
// read-modify-write of one document.
type Store struct {
	dir          string
	baseCurrency string
	logger       *slog.Logger
	mu           sync.Mutex
}

func Open(dir, baseCurrency string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.NewStorageError("failed to create data directory", errors.ErrCodeStorageWrite, err)
	}
	return &Store{dir: dir, baseCurrency: baseCurrency, logger: logger}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// Ping checks that the data directory is still reachable.
func (s *Store) Ping(_ context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.NewStorageError(s.dir+" is not a directory", errors.ErrCodeStorageRead, nil)
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) Expenses() *ExpenseRepository {
	return &ExpenseRepository{store: s}
}

func (s *Store) Budgets() *BudgetRepository {
	return &BudgetRepository{store: s}
}

func (s *Store) Recurring() *RecurringRepository {
	return &RecurringRepository{store: s}
}
