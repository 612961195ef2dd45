package http

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"busticket/internal/core"
	"busticket/internal/log"
	"busticket/internal/middleware/security"
	"busticket/internal/middleware/trace"
	"busticket/internal/report"
	appweb "busticket/web"
)

// Ledger is the store surface the handlers use.
type Ledger interface {
	Login(ctx context.Context, email string) (core.User, error)
	Logout(ctx context.Context) error
	CurrentUser() (core.User, bool)

	AddTicket(ctx context.Context, d core.TicketDraft) (core.TicketEntry, error)
	DeleteTicket(ctx context.Context, id string) error
	AddExpense(ctx context.Context, d core.ExpenseDraft) (core.ExpenseEntry, error)
	DeleteExpense(ctx context.Context, id string) error

	Snapshot() ([]core.TicketEntry, []core.ExpenseEntry, uint64)
	Now() time.Time
}

// TicketSyncer turns pasted email text into a ticket batch.
type TicketSyncer interface {
	Sync(ctx context.Context, text string) (core.TicketEntry, error)
	IsSyncing() bool
}

// MonthlyReporter returns the report for a YYYY-MM month.
type MonthlyReporter interface {
	Get(month string) report.Monthly
}

type Server struct {
	http.Server
	templates *template.Template
	logger    *log.Logger

	ledger  Ledger
	syncer  TicketSyncer
	reports MonthlyReporter

	traceMiddleware *trace.Middleware
	started         time.Time
	shutdownOnce    sync.Once
}

type Option func(*Server)

// WithSyncer enables POST /tickets/sync. Without it the route answers 503.
func WithSyncer(syncer TicketSyncer) Option {
	return func(s *Server) { s.syncer = syncer }
}

// WithReports replaces the uncached monthly report builder.
func WithReports(reports MonthlyReporter) Option {
	return func(s *Server) { s.reports = reports }
}

// directReports builds each report on demand.
type directReports struct{ ledger Ledger }

func (d directReports) Get(month string) report.Monthly {
	tickets, expenses, _ := d.ledger.Snapshot()
	return report.NewMonthly(tickets, expenses, month)
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, ledger Ledger, logger *log.Logger, opts ...Option) (*Server, error) {
	if logger == nil {
		logger = log.Discard()
	}
	httpLogger := logger.WithComponent(log.ComponentHTTP)

	t, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		templates: t,
		logger:    httpLogger,
		ledger:    ledger,
		reports:   directReports{ledger: ledger},
		started:   time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	ipResolver := security.NewClientIPResolver()
	s.traceMiddleware = trace.NewMiddleware(httpLogger, ipResolver.ClientIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	r := chi.NewRouter()
	r.Use(log.Middleware(httpLogger))
	r.Use(s.traceMiddleware.Middleware)
	r.Use(headers.Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	r.With(security.StaticAssetMiddleware(3600)).
		Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(security.NoStore)
		r.Use(s.requireLogin)

		r.Post("/logout", s.handleLogout)
		r.Get("/", s.handleDashboard)

		r.Get("/tickets", s.handleTickets)
		r.Post("/tickets", s.handleCreateTicket)
		r.Post("/tickets/sync", s.handleSyncTickets)
		r.Post("/tickets/{id}/delete", s.handleDeleteTicket)

		r.Get("/expenses", s.handleExpenses)
		r.Post("/expenses", s.handleCreateExpense)
		r.Post("/expenses/{id}/delete", s.handleDeleteExpense)

		r.Get("/reports", s.handleReports)
		r.Get("/reports/export", s.handleExport)

		r.Get("/api/dashboard", s.handleAPIDashboard)
		r.Get("/api/reports/{month}", s.handleAPIReport)
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	_, _, version := s.ledger.Snapshot()
	checks := map[string]any{
		"templates":      "ok",
		"ledger_version": version,
		"sync":           "disabled",
	}
	if s.syncer != nil {
		checks["sync"] = "enabled"
	}
	if st, ok := s.reports.(interface{ Stats() (int64, int64) }); ok {
		hits, misses := st.Stats()
		checks["report_cache"] = map[string]int64{"hits": hits, "misses": misses}
	}
	metrics := s.traceMiddleware.GetMetrics()
	checks["requests"] = metrics.TotalRequests

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"checks": checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
