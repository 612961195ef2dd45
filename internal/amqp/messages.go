package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"busticket/internal/core"
	"busticket/internal/ledger"
)

// LedgerEventMessage is the wire form of a ledger mutation. Deletions carry
// the removed entry so consumers need no lookup.
type LedgerEventMessage struct {
	Kind      ledger.EventKind   `json:"kind"`
	ID        string             `json:"id"`
	Ticket    *core.TicketEntry  `json:"ticket,omitempty"`
	Expense   *core.ExpenseEntry `json:"expense,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// FromEvent converts a store event to its message.
func FromEvent(ev ledger.Event) *LedgerEventMessage {
	ts := ev.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return &LedgerEventMessage{
		Kind:      ev.Kind,
		ID:        ev.ID,
		Ticket:    ev.Ticket,
		Expense:   ev.Expense,
		Timestamp: ts.UTC(),
	}
}

func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON decodes and checks a message body.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("ledger event without id")
	}
	switch msg.Kind {
	case ledger.TicketCreated, ledger.TicketDeleted:
		if msg.Kind == ledger.TicketCreated && msg.Ticket == nil {
			return nil, fmt.Errorf("%s event %s has no ticket", msg.Kind, msg.ID)
		}
	case ledger.ExpenseCreated, ledger.ExpenseDeleted:
		if msg.Kind == ledger.ExpenseCreated && msg.Expense == nil {
			return nil, fmt.Errorf("%s event %s has no expense", msg.Kind, msg.ID)
		}
	default:
		return nil, fmt.Errorf("unknown ledger event kind %q", msg.Kind)
	}
	return &msg, nil
}
