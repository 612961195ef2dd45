// Package worker applies ledger events to the spreadsheet mirror.
package worker

import (
	"context"
	"fmt"

	"busticket/internal/amqp"
	"busticket/internal/core"
	"busticket/internal/ledger"
	"busticket/internal/log"
	"busticket/internal/sheets"
)

// MirrorWorker keeps a LedgerMirror in step with the ledger.
type MirrorWorker struct {
	mirror sheets.LedgerMirror
	logger *log.Logger
}

func NewMirrorWorker(mirror sheets.LedgerMirror, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &MirrorWorker{mirror: mirror, logger: logger.WithComponent(log.ComponentWorker)}
}

// HandleEvent applies one ledger event. A returned error requeues the
// message.
func (w *MirrorWorker) HandleEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	w.logger.InfoContext(ctx, "Processing ledger event",
		log.FieldEventKind, msg.Kind, log.FieldEntryID, msg.ID)

	switch msg.Kind {
	case ledger.TicketCreated:
		if msg.Ticket == nil {
			return fmt.Errorf("%s %s: missing ticket", msg.Kind, msg.ID)
		}
		return w.append(ctx, sheets.RowFromTicket(*msg.Ticket))
	case ledger.ExpenseCreated:
		if msg.Expense == nil {
			return fmt.Errorf("%s %s: missing expense", msg.Kind, msg.ID)
		}
		return w.append(ctx, sheets.RowFromExpense(*msg.Expense))
	case ledger.TicketDeleted, ledger.ExpenseDeleted:
		if err := w.mirror.DeleteEntry(ctx, msg.ID); err != nil {
			return fmt.Errorf("delete mirrored entry %s: %w", msg.ID, err)
		}
		return nil
	default:
		w.logger.WarnContext(ctx, "Ignoring unknown ledger event", log.FieldEventKind, msg.Kind)
		return nil
	}
}

func (w *MirrorWorker) append(ctx context.Context, row sheets.Row) error {
	if err := w.mirror.AppendEntry(ctx, row); err != nil {
		return fmt.Errorf("mirror entry %s: %w", row.ID, err)
	}
	return nil
}

// Backfill appends every entry of a snapshot, oldest first. Rows already in
// the mirror are skipped by the mirror itself.
func (w *MirrorWorker) Backfill(ctx context.Context, tickets []core.TicketEntry, expenses []core.ExpenseEntry) error {
	w.logger.InfoContext(ctx, "Starting mirror backfill",
		"tickets", len(tickets), "expenses", len(expenses))

	for i := len(tickets) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.append(ctx, sheets.RowFromTicket(tickets[i])); err != nil {
			return err
		}
	}
	for i := len(expenses) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.append(ctx, sheets.RowFromExpense(expenses[i])); err != nil {
			return err
		}
	}

	w.logger.InfoContext(ctx, "Mirror backfill complete")
	return nil
}

// EventConsumer delivers ledger events and can redial after a broker drop.
type EventConsumer interface {
	ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEventMessage) error) error
	Reconnect(ctx context.Context) error
}

// Run consumes events into the mirror until ctx ends, reconnecting whenever
// the delivery channel drops.
func (w *MirrorWorker) Run(ctx context.Context, consumer EventConsumer) error {
	for {
		err := consumer.ConsumeLedgerEvents(ctx, w.HandleEvent)
		if ctx.Err() != nil {
			return nil
		}
		w.logger.WarnContext(ctx, "Ledger event consumption stopped, reconnecting", log.FieldError, err)
		if err := consumer.Reconnect(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reconnect consumer: %w", err)
		}
	}
}
