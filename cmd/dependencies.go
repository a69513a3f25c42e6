package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/budget"
	"github.com/frahmantamala/dot-spend/internal/category"
	"github.com/frahmantamala/dot-spend/internal/core/events"
	"github.com/frahmantamala/dot-spend/internal/currency"
	"github.com/frahmantamala/dot-spend/internal/expense"
	"github.com/frahmantamala/dot-spend/internal/exporter"
	"github.com/frahmantamala/dot-spend/internal/history"
	"github.com/frahmantamala/dot-spend/internal/importer"
	"github.com/frahmantamala/dot-spend/internal/insights"
	"github.com/frahmantamala/dot-spend/internal/recurring"
	"github.com/frahmantamala/dot-spend/internal/storage"
	"github.com/frahmantamala/dot-spend/pkg/logger"
)

// insightWindow is how many periods the insights trend covers.
const insightWindow = 6

type Dependencies struct {
	Config    *internal.Config
	Logger    *slog.Logger
	Backend   *storage.Backend
	EventBus  *events.EventBus
	Converter *currency.Converter
	Ledger    *expense.Service
	Budgets   *budget.Service
	Insights  *insights.Engine
	Category  *category.Service
	Recurring *recurring.Service
	History   *history.Service
	Importer  *importer.Service
	Exporter  *exporter.Service
}

func initializeDependencies(ctx context.Context, config *internal.Config) (*Dependencies, error) {
	lg := logger.LoggerWrapper()

	backend, err := storage.New(ctx, config, lg)
	if err != nil {
		return nil, err
	}

	bus := events.NewEventBus(lg)
	converter := newConverter(config, lg)

	ledger := expense.NewService(backend.Expenses, bus, converter, config.Currency.Base, lg)

	rules, err := category.RulesFromConfig(config.Categorize)
	if err != nil {
		backend.Close()
		return nil, err
	}
	categorizer := category.NewService(rules, ledger, lg)

	deps := &Dependencies{
		Config:    config,
		Logger:    lg,
		Backend:   backend,
		EventBus:  bus,
		Converter: converter,
		Ledger:    ledger,
		Budgets:   budget.NewService(backend.Budgets, ledger, lg),
		Insights:  insights.NewEngine(ledger, insightWindow, lg),
		Category:  categorizer,
		Recurring: recurring.NewService(backend.Recurring, ledger, lg),
		History:   history.NewService(config.DataDir, ledger, lg),
		Importer:  importer.NewService(ledger, categorizer, config.Import, lg),
		Exporter:  exporter.NewService(ledger, lg),
	}
	registerEventHandlers(deps)
	return deps, nil
}

func newConverter(config *internal.Config, lg *slog.Logger) *currency.Converter {
	return currency.NewConverter(
		currency.NewClient(config.Currency.RatesURL, config.Currency.Timeout, lg),
		config.DataDir, config.Currency.Base, config.Currency.CacheTTL, lg)
}

func (d *Dependencies) Close() {
	if err := d.Backend.Close(); err != nil {
		d.Logger.Error("storage close error", "error", err)
	}
}

// withDeps opens the ledger for the duration of fn.
func withDeps(ctx context.Context, fn func(d *Dependencies) error) error {
	deps, err := initializeDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()
	return fn(deps)
}

// prepareReports brings the ledger up to date before anything is summarized: due recurring
// expenses are written and stale exchange rates refreshed.
func (d *Dependencies) prepareReports(ctx context.Context) {
	now := time.Now()
	if d.Config.Recurring.AutoGenerate {
		generated, err := d.Recurring.Generate(ctx, now)
		if err != nil {
			d.Logger.Warn("recurring catch-up failed", "error", err)
		} else if len(generated) > 0 {
			d.Logger.Info("recurring expenses generated", "count", len(generated))
		}
	}
	if d.needsRates(ctx) {
		d.Converter.EnsureFresh(ctx, now)
	}
}

// needsRates reports whether any expense is in a currency other than the base one.
func (d *Dependencies) needsRates(ctx context.Context) bool {
	expenses, err := d.Ledger.List(ctx, expense.Filter{})
	if err != nil {
		return false
	}
	for _, e := range expenses {
		if e.Currency != "" && e.Currency != d.Config.Currency.Base {
			return true
		}
	}
	return false
}
