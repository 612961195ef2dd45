package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"busticket/internal/sheets"
)

func TestMirrorAppendDelete(t *testing.T) {
	ctx := context.Background()
	m := New()

	a := sheets.Row{ID: "a", Date: "2024-03-01", Type: sheets.TypeCommission, Amount: decimal.NewFromInt(500), Tickets: 10}
	b := sheets.Row{ID: "b", Date: "2024-03-02", Type: sheets.TypeExpense, Amount: decimal.NewFromInt(-200)}

	for _, r := range []sheets.Row{a, b, a} {
		if err := m.AppendEntry(ctx, r); err != nil {
			t.Fatalf("AppendEntry: %v", err)
		}
	}
	if got := len(m.Rows()); got != 2 {
		t.Fatalf("rows = %d, want 2 (duplicate append ignored)", got)
	}

	if err := m.DeleteEntry(ctx, "a"); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if err := m.DeleteEntry(ctx, "missing"); err != nil {
		t.Fatalf("DeleteEntry missing: %v", err)
	}
	rows := m.Rows()
	if len(rows) != 1 || rows[0].ID != "b" {
		t.Errorf("rows = %+v, want only b", rows)
	}
}
