package sheets

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"busticket/internal/core"
)

func TestRowFromTicket(t *testing.T) {
	tk := core.NewTicketEntry("t1", core.TicketDraft{Date: "2024-03-01", Count: 4, Rate: decimal.RequireFromString("12.5")}, time.Now())
	row := RowFromTicket(tk)
	want := []any{"t1", "2024-03-01", "Commission", "Manual", "50", "4"}
	got := row.Values()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %d = %v, want %v", i, got[i], want[i])
		}
	}

	tk.SourceEmailSubject = "Shohagh Paribahan"
	if RowFromTicket(tk).Detail != "Shohagh Paribahan" {
		t.Error("subject should be used as detail")
	}
}

func TestRowFromExpense(t *testing.T) {
	e := core.NewExpenseEntry("e1", core.ExpenseDraft{Date: "2024-03-05", Category: core.CategoryUtility, Amount: decimal.NewFromInt(900), Description: "Electricity"})
	got := RowFromExpense(e).Values()
	want := []any{"e1", "2024-03-05", "Expense", "Utility: Electricity", "-900", "0"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %d = %v, want %v", i, got[i], want[i])
		}
	}
	if len(Header) != len(got) {
		t.Errorf("header has %d columns, row has %d", len(Header), len(got))
	}
}
