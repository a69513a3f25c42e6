package cmd

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/frahmantamala/dot-spend/internal"
	"github.com/frahmantamala/dot-spend/internal/core/events"
	"github.com/frahmantamala/dot-spend/internal/render"
	"github.com/frahmantamala/dot-spend/pkg/logger"
)

func registerEventHandlers(d *Dependencies) {
	d.History.RegisterEventHandlers(d.EventBus)
	d.EventBus.SubscribeAll(newBudgetAlert(d).handle,
		events.EventTypeExpenseAdded,
		events.EventTypeExpenseEdited)
}

// budgetAlert warns once per category when a change pushes it over its budget.
type budgetAlert struct {
	deps   *Dependencies
	mu     sync.Mutex
	warned map[string]bool
}

func newBudgetAlert(d *Dependencies) *budgetAlert {
	return &budgetAlert{deps: d, warned: map[string]bool{}}
}

func (a *budgetAlert) handle(ctx context.Context, event events.Event) error {
	if internal.IsUndo(ctx) {
		return nil
	}
	changed, ok := event.(*events.ExpenseChangedEvent)
	if !ok || changed.After == nil {
		return nil
	}
	category := changed.After.Category

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.warned[category] {
		return nil
	}

	status, err := a.deps.Budgets.StatusFor(ctx, category, time.Now())
	if err != nil {
		if internal.IsType(err, internal.ErrorTypeNotFound) {
			return nil
		}
		logger.FromOr(ctx, a.deps.Logger).Warn("budget check failed", "category", category, "error", err)
		return nil
	}
	if status.Over {
		a.warned[category] = true
		render.Warn(os.Stderr, "%s is over budget: %s spent of %s (%s%%)",
			category,
			render.Money(status.Spent, a.deps.Config.Currency.Base),
			render.Money(status.Limit, a.deps.Config.Currency.Base),
			status.PercentUsed.StringFixed(1))
	}
	return nil
}
