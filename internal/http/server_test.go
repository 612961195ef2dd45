package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busticket/internal/cache"
	"busticket/internal/core"
	"busticket/internal/extract"
	"busticket/internal/ledger"
	"busticket/internal/report"
	"busticket/internal/storage"
)

type fakeSyncer struct {
	entry   core.TicketEntry
	err     error
	syncing bool
	calls   int
}

func (f *fakeSyncer) Sync(context.Context, string) (core.TicketEntry, error) {
	f.calls++
	return f.entry, f.err
}

func (f *fakeSyncer) IsSyncing() bool { return f.syncing }

func newTestServer(t *testing.T, opts ...Option) (*Server, *ledger.Store) {
	t.Helper()
	n := 0
	clock := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	store, err := ledger.Open(context.Background(), storage.NewMemoryKV(),
		ledger.WithClock(func() time.Time { return clock }),
		ledger.WithIDGenerator(func() (string, error) {
			n++
			return fmt.Sprintf("id%03d", n), nil
		}))
	require.NoError(t, err)

	srv, err := NewServer(":0", store, nil, opts...)
	require.NoError(t, err)
	return srv, store
}

func login(t *testing.T, store *ledger.Store) {
	t.Helper()
	_, err := store.Login(context.Background(), "agent@example.com")
	require.NoError(t, err)
}

func do(srv *Server, method, target string, form url.Values) *httptest.ResponseRecorder {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(srv, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	}
}

func TestLoginGate(t *testing.T) {
	srv, store := newTestServer(t)

	rr := do(srv, http.MethodGet, "/tickets", nil)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))

	rr = do(srv, http.MethodGet, "/api/dashboard", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(srv, http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Welcome Back")

	rr = do(srv, http.MethodPost, "/login", url.Values{"email": {"agent@example.com"}, "password": {"anything"}})
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	user, ok := store.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "agent@example.com", user.Email)

	rr = do(srv, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Operational Overview")
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	assert.NotEmpty(t, rr.Header().Get("Content-Security-Policy"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	rr = do(srv, http.MethodPost, "/logout", nil)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	_, ok = store.CurrentUser()
	assert.False(t, ok)
}

func TestCreateAndDeleteTicket(t *testing.T) {
	srv, store := newTestServer(t)
	login(t, store)

	rr := do(srv, http.MethodPost, "/tickets", url.Values{
		"date": {"2024-03-01"}, "count": {"10"}, "rate": {"50"}, "subject": {"Morning Express"},
	})
	require.Equal(t, http.StatusSeeOther, rr.Code)

	tickets := store.Tickets()
	require.Len(t, tickets, 1)
	assert.Equal(t, "500", tickets[0].TotalCommission.String())
	assert.Equal(t, "Morning Express", tickets[0].SourceEmailSubject)

	rr = do(srv, http.MethodGet, "/tickets", nil)
	assert.Contains(t, rr.Body.String(), "Morning Express")

	rr = do(srv, http.MethodPost, "/tickets", url.Values{"count": {"ten"}, "rate": {"50"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = do(srv, http.MethodPost, "/tickets/"+tickets[0].ID+"/delete", nil)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Empty(t, store.Tickets())
}

func TestManualTicketDefaultsToToday(t *testing.T) {
	srv, store := newTestServer(t)
	login(t, store)

	do(srv, http.MethodPost, "/tickets", url.Values{"count": {"3"}, "rate": {"100"}})
	require.Len(t, store.Tickets(), 1)
	assert.Equal(t, "2024-03-15", store.Tickets()[0].Date)
}

func TestSyncTickets(t *testing.T) {
	tests := []struct {
		name       string
		syncer     *fakeSyncer
		text       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "success",
			syncer:     &fakeSyncer{entry: core.TicketEntry{Count: 5}},
			text:       "5 tickets issued",
			wantStatus: http.StatusSeeOther,
		},
		{
			name:       "extraction failure",
			syncer:     &fakeSyncer{err: &extract.ExtractionError{Reason: "missing rate"}},
			text:       "5 tickets issued",
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   extract.UserMessage,
		},
		{
			name:       "already syncing",
			syncer:     &fakeSyncer{err: extract.ErrSyncInProgress, syncing: true},
			text:       "5 tickets issued",
			wantStatus: http.StatusConflict,
			wantBody:   "already in progress",
		},
		{
			name:       "blank input",
			syncer:     &fakeSyncer{},
			text:       "   ",
			wantStatus: http.StatusSeeOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, store := newTestServer(t, WithSyncer(tt.syncer))
			login(t, store)

			rr := do(srv, http.MethodPost, "/tickets/sync", url.Values{"email": {tt.text}})
			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rr.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestSyncSuccessFlash(t *testing.T) {
	srv, store := newTestServer(t, WithSyncer(&fakeSyncer{entry: core.TicketEntry{Count: 5}}))
	login(t, store)

	rr := do(srv, http.MethodPost, "/tickets/sync", url.Values{"email": {"text"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)

	rr = do(srv, http.MethodGet, rr.Header().Get("Location"), nil)
	assert.Contains(t, rr.Body.String(), "Successfully synced 5 tickets!")
}

func TestSyncDisabled(t *testing.T) {
	srv, store := newTestServer(t)
	login(t, store)

	rr := do(srv, http.MethodPost, "/tickets/sync", url.Values{"email": {"text"}})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestCreateExpenseValidation(t *testing.T) {
	srv, store := newTestServer(t)
	login(t, store)

	tests := []struct {
		name       string
		form       url.Values
		wantStatus int
	}{
		{"missing amount", url.Values{"description": {"Office"}, "category": {"Rent"}}, http.StatusUnprocessableEntity},
		{"missing description", url.Values{"amount": {"200"}, "category": {"Rent"}}, http.StatusUnprocessableEntity},
		{"bad amount", url.Values{"amount": {"abc"}, "description": {"Office"}, "category": {"Rent"}}, http.StatusUnprocessableEntity},
		{"bad category", url.Values{"amount": {"200"}, "description": {"Office"}, "category": {"Fuel"}}, http.StatusUnprocessableEntity},
		{"valid", url.Values{"amount": {"200"}, "description": {"Office"}, "category": {"Rent"}, "date": {"2024-03-02"}}, http.StatusSeeOther},
		{"negative amount accepted", url.Values{"amount": {"-5"}, "description": {"Refund"}, "category": {"Other"}}, http.StatusSeeOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(srv, http.MethodPost, "/expenses", tt.form)
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}

	expenses := store.Expenses()
	require.Len(t, expenses, 2)
	assert.Equal(t, "Refund", expenses[0].Description)
	assert.Equal(t, core.CategoryRent, expenses[1].Category)

	rr := do(srv, http.MethodPost, "/expenses/"+expenses[1].ID+"/delete", nil)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Len(t, store.Expenses(), 1)
}

func seedMarch(t *testing.T, store *ledger.Store) {
	t.Helper()
	ctx := context.Background()
	_, err := store.AddTicket(ctx, core.TicketDraft{Date: "2024-03-01", Count: 10, Rate: core.RateStandard})
	require.NoError(t, err)
	_, err = store.AddTicket(ctx, core.TicketDraft{Date: "2024-03-02", Count: 4, Rate: core.RatePremium, Subject: "Night Coach"})
	require.NoError(t, err)
	_, err = store.AddExpense(ctx, core.ExpenseDraft{Date: "2024-03-01", Category: core.CategoryRent, Amount: core.RatePremium.Mul(core.RatePremium).Div(core.RateStandard), Description: "Office"})
	require.NoError(t, err)
}

func TestReportsAndExport(t *testing.T) {
	srv, store := newTestServer(t)
	login(t, store)
	seedMarch(t, store)

	rr := do(srv, http.MethodGet, "/reports?month=2024-03", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Financial Reports")
	assert.Contains(t, body, "৳900")
	assert.Contains(t, body, "01")

	rr = do(srv, http.MethodGet, "/reports/export?month=2024-03", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `attachment; filename="report_2024-03.csv"`, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	lines := strings.Split(rr.Body.String(), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Date,Type,Category/Description,Amount,Tickets", lines[0])
	assert.Equal(t, "2024-03-02,Commission,Night Coach,400,4", lines[1])
	assert.Equal(t, "2024-03-01,Expense,Office,-200,0", lines[3])
}

func TestReportsDefaultMonth(t *testing.T) {
	srv, store := newTestServer(t)
	login(t, store)

	rr := do(srv, http.MethodGet, "/reports?month=garbage", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `value="2024-03" selected`)
	assert.Contains(t, rr.Body.String(), "No expenses for this period.")
}

func TestAPIViews(t *testing.T) {
	srv, store := newTestServer(t)
	login(t, store)
	seedMarch(t, store)

	rr := do(srv, http.MethodGet, "/api/reports/2024-03", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var monthly report.Monthly
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &monthly))
	assert.Equal(t, int64(14), monthly.TotalTickets)
	assert.Equal(t, "700", monthly.NetProfit.String())
	assert.Equal(t, "2024-03-01", monthly.BusiestDay)
	assert.Contains(t, rr.Body.String(), `"netProfit":700`)

	rr = do(srv, http.MethodGet, "/api/reports/March", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(srv, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var dash report.Dashboard
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &dash))
	assert.Len(t, dash.Trend, report.TrendDays)
	assert.Equal(t, "2024-03-15", dash.Today.Date)
	assert.Equal(t, "900", dash.Lifetime.TotalCommission.String())
}

func TestBarWidth(t *testing.T) {
	peak := core.RatePremium
	assert.Equal(t, 0, barWidth(core.RateStandard, peak.Sub(peak)))
	assert.Equal(t, 50, barWidth(core.RateStandard, peak))
	assert.Equal(t, 2, barWidth(core.RateStandard.Div(core.RatePremium), peak))
	assert.Equal(t, 100, barWidth(peak.Add(peak), peak))
}

func TestMonthOptions(t *testing.T) {
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	months := monthOptions(now, "2024-03")
	require.Len(t, months, 12)
	assert.Equal(t, "2024-03", months[0])
	assert.Equal(t, "2023-04", months[11])

	months = monthOptions(now, "2020-01")
	assert.Equal(t, "2020-01", months[0])
	assert.Len(t, months, 13)
}

func TestReadyReportsCacheStats(t *testing.T) {
	store, err := ledger.Open(context.Background(), storage.NewMemoryKV())
	require.NoError(t, err)
	reports := cache.NewMonthlyReports(store, 4, time.Minute)
	reports.Get("2024-03")

	srv, err := NewServer(":0", store, nil, WithReports(reports))
	require.NoError(t, err)

	rr := do(srv, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Checks struct {
			ReportCache map[string]int64 `json:"report_cache"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.Checks.ReportCache["misses"])
}
