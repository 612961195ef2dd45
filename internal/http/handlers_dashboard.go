package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"busticket/internal/report"
)

type dashboardView struct {
	report.Dashboard
	Peak decimal.Decimal
}

func (s *Server) dashboard() report.Dashboard {
	tickets, expenses, _ := s.ledger.Snapshot()
	return report.NewDashboard(tickets, expenses, s.ledger.Now())
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d := s.dashboard()
	s.render(w, r, http.StatusOK, "dashboard.html", pageData{
		Title:  "Operational Overview",
		Active: "dashboard",
		Data:   dashboardView{Dashboard: d, Peak: report.TrendPeak(d.Trend)},
	})
}

func (s *Server) handleAPIDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dashboard())
}
