package ledger

import (
	"context"
	"time"

	"busticket/internal/core"
)

// EventKind names a ledger mutation.
type EventKind string

const (
	TicketCreated  EventKind = "ticket.created"
	TicketDeleted  EventKind = "ticket.deleted"
	ExpenseCreated EventKind = "expense.created"
	ExpenseDeleted EventKind = "expense.deleted"
)

// Event describes one successful, persisted mutation. For deletions the
// removed entry is attached.
type Event struct {
	Kind    EventKind
	ID      string
	Ticket  *core.TicketEntry
	Expense *core.ExpenseEntry
	At      time.Time
}

// Listener is notified after each successful mutation.
type Listener interface {
	OnLedgerEvent(ctx context.Context, ev Event) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, ev Event) error

func (f ListenerFunc) OnLedgerEvent(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}
