// Package sheets mirrors ledger entries into a spreadsheet, one row per
// entry keyed by the entry id in column A.
package sheets

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"

	"busticket/internal/core"
)

// Row types written to the Type column.
const (
	TypeCommission = "Commission"
	TypeExpense    = "Expense"
)

// Header is the first row of the mirror sheet.
var Header = []any{"ID", "Date", "Type", "Category/Description", "Amount", "Tickets"}

type (
	Row struct {
		ID      string
		Date    string
		Type    string
		Detail  string
		Amount  decimal.Decimal
		Tickets int64
	}

	// LedgerMirror keeps an external copy of the ledger. Both operations
	// are idempotent so redelivered events are harmless.
	LedgerMirror interface {
		AppendEntry(ctx context.Context, row Row) error
		DeleteEntry(ctx context.Context, id string) error
	}
)

// RowFromTicket mirrors a ticket batch. Manual entries have no subject.
func RowFromTicket(t core.TicketEntry) Row {
	detail := t.SourceEmailSubject
	if detail == "" {
		detail = "Manual"
	}
	return Row{
		ID:      t.ID,
		Date:    t.Date,
		Type:    TypeCommission,
		Detail:  detail,
		Amount:  t.TotalCommission,
		Tickets: t.Count,
	}
}

// RowFromExpense mirrors an expense as a negative amount.
func RowFromExpense(e core.ExpenseEntry) Row {
	return Row{
		ID:     e.ID,
		Date:   e.Date,
		Type:   TypeExpense,
		Detail: e.Category.String() + ": " + e.Description,
		Amount: e.Amount.Neg(),
	}
}

// Values renders r in column order. Amount is sent as a number string so
// USER_ENTERED input parses it.
func (r Row) Values() []any {
	return []any{r.ID, r.Date, r.Type, r.Detail, r.Amount.String(), strconv.FormatInt(r.Tickets, 10)}
}
