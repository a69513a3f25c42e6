package history

import (
	"time"

	expenseDatamodel "github.com/frahmantamala/dot-spend/internal/core/datamodel/expense"
	"github.com/frahmantamala/dot-spend/internal/core/events"
)

const (
	File       = "history.json"
	MaxEntries = 1000
)

type Action string

const (
	ActionAdd     Action = "add"
	ActionEdit    Action = "edit"
	ActionDelete  Action = "delete"
	ActionRestore Action = "restore"
)

var actions = map[string]Action{
	events.EventTypeExpenseAdded:    ActionAdd,
	events.EventTypeExpenseEdited:   ActionEdit,
	events.EventTypeExpenseDeleted:  ActionDelete,
	events.EventTypeExpenseRestored: ActionRestore,
}

// Entry is one ledger mutation with the record state on both sides of it.
type Entry struct {
	ID        string                    `json:"id"`
	Action    Action                    `json:"action"`
	ExpenseID string                    `json:"expense_id"`
	Before    *expenseDatamodel.Expense `json:"before,omitempty"`
	After     *expenseDatamodel.Expense `json:"after,omitempty"`
	At        time.Time                 `json:"at"`
}

func entryFromEvent(e *events.ExpenseChangedEvent) (Entry, bool) {
	action, ok := actions[e.EventType()]
	if !ok {
		return Entry{}, false
	}
	return Entry{
		ID:        e.EventID(),
		Action:    action,
		ExpenseID: e.ExpenseID,
		Before:    e.Before,
		After:     e.After,
		At:        e.OccurredAt(),
	}, true
}

// Describe renders the entry for the history listing.
func (e Entry) Describe() string {
	switch e.Action {
	case ActionAdd:
		return "added " + summary(e.After)
	case ActionDelete:
		return "deleted " + summary(e.Before)
	case ActionRestore:
		return "restored " + summary(e.After)
	case ActionEdit:
		return "edited " + summary(e.Before) + " -> " + summary(e.After)
	}
	return string(e.Action)
}

func summary(rec *expenseDatamodel.Expense) string {
	if rec == nil {
		return "?"
	}
	s := rec.Amount.StringFixed(2) + " " + rec.Currency + " " + rec.Category
	if rec.Note != "" {
		s += " (" + rec.Note + ")"
	}
	return s
}
