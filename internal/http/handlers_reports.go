package http

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"busticket/internal/core"
	"busticket/internal/log"
	"busticket/internal/report"
)

type reportsView struct {
	report.Monthly
	Months []string
}

// monthOptions lists the current month and the eleven before it for the
// month picker, adding selected when it falls outside that window.
func monthOptions(now time.Time, selected string) []string {
	first := time.Date(now.UTC().Year(), now.UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
	months := make([]string, 0, 13)
	found := false
	for i := 0; i < 12; i++ {
		m := core.MonthKey(first.AddDate(0, -i, 0))
		months = append(months, m)
		found = found || m == selected
	}
	if !found {
		months = append([]string{selected}, months...)
	}
	return months
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	month := monthParam(r, s.ledger.Now())
	s.render(w, r, http.StatusOK, "reports.html", pageData{
		Title:  "Financial Reports",
		Active: "reports",
		Data:   reportsView{Monthly: s.reports.Get(month), Months: monthOptions(s.ledger.Now(), month)},
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	month := monthParam(r, s.ledger.Now())
	tickets, expenses, _ := s.ledger.Snapshot()

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, tickets, expenses, month); err != nil {
		s.logger.ErrorContext(r.Context(), "Export failed", "error", err, log.FieldOperation, log.OpExport)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, report.ExportFilename(month)))
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleAPIReport(w http.ResponseWriter, r *http.Request) {
	month := chi.URLParam(r, "month")
	if !core.IsMonthKey(month) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "month must be YYYY-MM"})
		return
	}
	writeJSON(w, http.StatusOK, s.reports.Get(month))
}
