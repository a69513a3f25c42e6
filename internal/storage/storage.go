// Package storage selects the persistence backend named in the configuration.
package storage

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/budget"
	"github.com/frahmantamala/dot-spend/internal/expense"
	"github.com/frahmantamala/dot-spend/internal/recurring"
	"github.com/frahmantamala/dot-spend/internal/storage/jsonfile"
	"github.com/frahmantamala/dot-spend/internal/storage/sqlstore"
)

// Backend bundles the repositories of one storage backend.
type Backend struct {
	Kind      string
	Expenses  expense.Repository
	Budgets   budget.Repository
	Recurring recurring.Repository

	// SQL is set for the sqlite and postgres backends.
	SQL *sqlstore.Store

	ping  func(ctx context.Context) error
	close func() error
}

func (b *Backend) Ping(ctx context.Context) error {
	return b.ping(ctx)
}

func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// New opens the backend named by cfg.Storage.Backend. SQL backends are migrated to the latest
// schema before use.
func New(ctx context.Context, cfg *internal.Config, logger *slog.Logger) (*Backend, error) {
	return Open(ctx, cfg, cfg.Storage.Backend, logger)
}

// Open opens a specific backend kind with the rest of cfg.
func Open(ctx context.Context, cfg *internal.Config, kind string, logger *slog.Logger) (*Backend, error) {
	switch kind {
	case internal.BackendSQLite, internal.BackendPostgres:
		opts := sqlstore.Options{
			Dialect:      kind,
			MaxOpenConns: cfg.Storage.MaxOpenConns,
			MaxIdleConns: cfg.Storage.MaxIdleConns,
		}
		if kind == internal.BackendSQLite {
			opts.DSN = cfg.Storage.SQLiteFile
			if !filepath.IsAbs(opts.DSN) {
				opts.DSN = cfg.Path(opts.DSN)
			}
		} else {
			opts.DSN = cfg.Storage.PostgresDSN
		}

		store, err := sqlstore.Open(opts, logger)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx, false); err != nil {
			store.Close()
			return nil, err
		}
		return &Backend{
			Kind:      kind,
			Expenses:  store.Expenses(),
			Budgets:   store.Budgets(),
			Recurring: store.Recurring(),
			SQL:       store,
			ping:      store.Ping,
			close:     store.Close,
		}, nil

	case internal.BackendJSON, "":
		store, err := jsonfile.Open(cfg.DataDir, cfg.Currency.Base, logger)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Kind:      internal.BackendJSON,
			Expenses:  store.Expenses(),
			Budgets:   store.Budgets(),
			Recurring: store.Recurring(),
			ping:      store.Ping,
			close:     store.Close,
		}, nil
	}
	return nil, internal.NewValidationError("unknown storage backend "+kind, internal.ErrCodeInvalidConfig)
}
