package events

import (
	"time"

	expenseDatamodel "github.com/frahmantamala/dot-spend/internal/core/datamodel/expense"
	"github.com/google/uuid"
)

const (
	EventTypeExpenseAdded    = "expense.added"
	EventTypeExpenseEdited   = "expense.edited"
	EventTypeExpenseDeleted  = "expense.deleted"
	EventTypeExpenseRestored = "expense.restored"
	EventTypeLedgerNuked     = "ledger.nuked"
)

// LedgerEventTypes lists every event the ledger emits.
var LedgerEventTypes = []string{
	EventTypeExpenseAdded,
	EventTypeExpenseEdited,
	EventTypeExpenseDeleted,
	EventTypeExpenseRestored,
	EventTypeLedgerNuked,
}

// ExpenseChangedEvent carries the record state around a ledger mutation.
// Before is nil for additions; After is nil for deletions.
type ExpenseChangedEvent struct {
	BaseEvent
	ExpenseID string                    `json:"expense_id"`
	Before    *expenseDatamodel.Expense `json:"before,omitempty"`
	After     *expenseDatamodel.Expense `json:"after,omitempty"`
}

func NewExpenseChangedEvent(eventType string, before, after *expenseDatamodel.Expense) *ExpenseChangedEvent {
	var id string
	switch {
	case after != nil:
		id = after.ID
	case before != nil:
		id = before.ID
	}
	return &ExpenseChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"expense_id": id,
			},
		},
		ExpenseID: id,
		Before:    before,
		After:     after,
	}
}

type LedgerNukedEvent struct {
	BaseEvent
	Removed int `json:"removed"`
}

func NewLedgerNukedEvent(removed int) *LedgerNukedEvent {
	return &LedgerNukedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeLedgerNuked,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"removed": removed,
			},
		},
		Removed: removed,
	}
}
