package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"busticket/internal/core"
)

// ExportHeader is the first line of every export.
var ExportHeader = []string{"Date", "Type", "Category/Description", "Amount", "Tickets"}

// ExportFilename names the download for month.
func ExportFilename(month string) string {
	return fmt.Sprintf("report_%s.csv", month)
}

// ExportRows renders the month's tickets then expenses, each in store order.
// Fields are written as is: a comma inside a description or subject shifts
// the columns of that row.
func ExportRows(tickets []core.TicketEntry, expenses []core.ExpenseEntry, month string) []string {
	rows := []string{strings.Join(ExportHeader, ",")}
	for _, t := range FilterTickets(tickets, month) {
		source := t.SourceEmailSubject
		if source == "" {
			source = "Manual"
		}
		rows = append(rows, strings.Join([]string{
			t.Date, "Commission", source, t.TotalCommission.String(), strconv.FormatInt(t.Count, 10),
		}, ","))
	}
	for _, e := range FilterExpenses(expenses, month) {
		rows = append(rows, strings.Join([]string{
			e.Date, "Expense", e.Description, e.Amount.Neg().String(), "0",
		}, ","))
	}
	return rows
}

// WriteCSV writes the export for month to w. Lines are joined with "\n" and
// there is no trailing newline.
func WriteCSV(w io.Writer, tickets []core.TicketEntry, expenses []core.ExpenseEntry, month string) error {
	_, err := io.WriteString(w, strings.Join(ExportRows(tickets, expenses, month), "\n"))
	if err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}
