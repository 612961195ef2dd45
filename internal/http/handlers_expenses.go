package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"busticket/internal/core"
	"busticket/internal/log"
)

type expensesView struct {
	Expenses    []core.ExpenseEntry
	Categories  []core.Category
	DefaultDate string
}

func (s *Server) expensesPage(w http.ResponseWriter, r *http.Request, status int, flash *Flash) {
	_, expenses, _ := s.ledger.Snapshot()
	s.render(w, r, status, "expenses.html", pageData{
		Title:  "Expense Manager",
		Active: "expenses",
		Flash:  flash,
		Data: expensesView{
			Expenses:    expenses,
			Categories:  core.Categories(),
			DefaultDate: core.DateKey(s.ledger.Now()),
		},
	})
}

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	s.expensesPage(w, r, http.StatusOK, flashFromQuery(r))
}

// handleCreateExpense requires a non-empty amount and description. Sign
// and magnitude of the amount are not checked.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.logger.ErrorContext(r.Context(), "Parse form error", "error", err)
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	amountStr := strings.TrimSpace(r.Form.Get("amount"))
	desc := sanitizeInput(r.Form.Get("description"))
	if amountStr == "" || desc == "" {
		s.expensesPage(w, r, http.StatusUnprocessableEntity, &Flash{Kind: "error", Message: "Amount and description are required."})
		return
	}
	amount, err := core.ParseAmount(amountStr)
	if err != nil {
		s.expensesPage(w, r, http.StatusUnprocessableEntity, &Flash{Kind: "error", Message: "Amount must be a number."})
		return
	}
	category, err := core.ParseCategory(r.Form.Get("category"))
	if err != nil {
		s.expensesPage(w, r, http.StatusUnprocessableEntity, &Flash{Kind: "error", Message: "Unknown expense category."})
		return
	}

	entry, err := s.ledger.AddExpense(r.Context(), core.ExpenseDraft{
		Date:        dateValue(r.Form.Get("date"), s.ledger.Now()),
		Category:    category,
		Amount:      amount,
		Description: desc,
	})
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Expense add error", "error", err)
		s.expensesPage(w, r, http.StatusInternalServerError, &Flash{Kind: "error", Message: "Could not save the expense."})
		return
	}

	s.logger.InfoContext(r.Context(), "Expense added",
		log.NewFields().WithExpense(entry.ID, entry.Date, entry.Category.String(), entry.Amount).ToSlice()...)
	redirectWithFlash(w, r, "/expenses", "success", "Expense recorded.")
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.ledger.DeleteExpense(r.Context(), id); err != nil {
		s.logger.ErrorContext(r.Context(), "Expense delete error", "error", err, log.FieldEntryID, id)
		s.expensesPage(w, r, http.StatusInternalServerError, &Flash{Kind: "error", Message: "Could not delete the expense."})
		return
	}
	http.Redirect(w, r, "/expenses", http.StatusSeeOther)
}
