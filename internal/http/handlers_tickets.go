package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"busticket/internal/core"
	"busticket/internal/extract"
	"busticket/internal/log"
)

type ticketsView struct {
	Tickets      []core.TicketEntry
	SyncEnabled  bool
	Syncing      bool
	EmailText    string
	DefaultDate  string
	RateStandard string
	RatePremium  string
}

func (s *Server) ticketsPage(w http.ResponseWriter, r *http.Request, status int, flash *Flash, emailText string) {
	tickets, _, _ := s.ledger.Snapshot()
	view := ticketsView{
		Tickets:      tickets,
		SyncEnabled:  s.syncer != nil,
		EmailText:    emailText,
		DefaultDate:  core.DateKey(s.ledger.Now()),
		RateStandard: core.RateStandard.String(),
		RatePremium:  core.RatePremium.String(),
	}
	if s.syncer != nil {
		view.Syncing = s.syncer.IsSyncing()
	}
	s.render(w, r, status, "tickets.html", pageData{
		Title:  "Ticket Ledger",
		Active: "tickets",
		Flash:  flash,
		Data:   view,
	})
}

func (s *Server) handleTickets(w http.ResponseWriter, r *http.Request) {
	s.ticketsPage(w, r, http.StatusOK, flashFromQuery(r), "")
}

// handleCreateTicket records a batch typed in by hand.
func (s *Server) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.logger.ErrorContext(r.Context(), "Parse form error", "error", err)
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	count, err := strconv.ParseInt(strings.TrimSpace(r.Form.Get("count")), 10, 64)
	if err != nil {
		s.ticketsPage(w, r, http.StatusUnprocessableEntity, &Flash{Kind: "error", Message: "Ticket count must be a whole number."}, "")
		return
	}
	rate, err := core.ParseAmount(r.Form.Get("rate"))
	if err != nil {
		s.ticketsPage(w, r, http.StatusUnprocessableEntity, &Flash{Kind: "error", Message: "Rate must be a number."}, "")
		return
	}

	entry, err := s.ledger.AddTicket(r.Context(), core.TicketDraft{
		Date:    dateValue(r.Form.Get("date"), s.ledger.Now()),
		Count:   count,
		Rate:    rate,
		Subject: sanitizeInput(r.Form.Get("subject")),
	})
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Ticket add error", "error", err)
		s.ticketsPage(w, r, http.StatusInternalServerError, &Flash{Kind: "error", Message: "Could not save the ticket entry."}, "")
		return
	}

	s.logger.InfoContext(r.Context(), "Ticket batch added",
		log.NewFields().WithTicket(entry.ID, entry.Date, entry.Count, entry.Rate, entry.TotalCommission).ToSlice()...)
	redirectWithFlash(w, r, "/tickets", "success", "Ticket entry added.")
}

// handleSyncTickets runs AI extraction over the pasted email text.
func (s *Server) handleSyncTickets(w http.ResponseWriter, r *http.Request) {
	if s.syncer == nil {
		s.ticketsPage(w, r, http.StatusServiceUnavailable, &Flash{Kind: "error", Message: "Smart Sync is not configured."}, "")
		return
	}
	if err := r.ParseForm(); err != nil {
		s.logger.ErrorContext(r.Context(), "Parse form error", "error", err)
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	text := r.Form.Get("email")
	if strings.TrimSpace(text) == "" {
		http.Redirect(w, r, "/tickets", http.StatusSeeOther)
		return
	}

	entry, err := s.syncer.Sync(r.Context(), text)
	switch {
	case errors.Is(err, extract.ErrSyncInProgress):
		s.ticketsPage(w, r, http.StatusConflict, &Flash{Kind: "error", Message: "A sync is already in progress."}, text)
		return
	case errors.Is(err, extract.ErrExtraction):
		s.logger.WarnContext(r.Context(), "Ticket extraction failed", "error", err)
		s.ticketsPage(w, r, http.StatusUnprocessableEntity, &Flash{Kind: "error", Message: extract.UserMessage}, text)
		return
	case err != nil:
		s.logger.ErrorContext(r.Context(), "Ticket sync error", "error", err)
		s.ticketsPage(w, r, http.StatusInternalServerError, &Flash{Kind: "error", Message: extract.UserMessage}, text)
		return
	}

	redirectWithFlash(w, r, "/tickets", "success", extract.SuccessMessage(entry))
}

func (s *Server) handleDeleteTicket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.ledger.DeleteTicket(r.Context(), id); err != nil {
		s.logger.ErrorContext(r.Context(), "Ticket delete error", "error", err, log.FieldEntryID, id)
		s.ticketsPage(w, r, http.StatusInternalServerError, &Flash{Kind: "error", Message: "Could not delete the ticket entry."}, "")
		return
	}
	http.Redirect(w, r, "/tickets", http.StatusSeeOther)
}
