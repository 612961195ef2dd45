// Package report derives dashboard and monthly figures from ledger snapshots.
//
// Every function here is pure: the caller passes the collections and the
// reference time. Dates are matched as strings, never parsed.
package report

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"busticket/internal/core"
)

// TrendDays is the number of points in the dashboard trend.
const TrendDays = 7

var hundred = decimal.NewFromInt(100)

type (
	TodayStats struct {
		Date        string          `json:"date"`
		TicketCount int64           `json:"ticketCount"`
		Commission  decimal.Decimal `json:"commission"`
	}

	// LifetimeStats sums every entry ever recorded. The overview labels
	// TotalExpenses "Monthly Expenses" even though it is not month scoped.
	LifetimeStats struct {
		TotalCommission decimal.Decimal `json:"totalCommission"`
		TotalExpenses   decimal.Decimal `json:"totalExpenses"`
		NetProfit       decimal.Decimal `json:"netProfit"`
	}

	TrendPoint struct {
		Date       string          `json:"date"`
		Commission decimal.Decimal `json:"commission"`
		Expenses   decimal.Decimal `json:"expenses"`
	}

	// CategoryAmount is one row of the expense breakdown. Share is the
	// percentage of the month's expenses.
	CategoryAmount struct {
		Category core.Category   `json:"category"`
		Amount   decimal.Decimal `json:"amount"`
		Share    decimal.Decimal `json:"share"`
	}

	Monthly struct {
		Month             string              `json:"month"`
		Tickets           []core.TicketEntry  `json:"tickets"`
		Expenses          []core.ExpenseEntry `json:"expenses"`
		TotalTickets      int64               `json:"totalTickets"`
		TotalCommission   decimal.Decimal     `json:"totalComm"`
		TotalExpenses     decimal.Decimal     `json:"totalExp"`
		NetProfit         decimal.Decimal     `json:"netProfit"`
		ExpenseByCategory []CategoryAmount    `json:"expenseByCategory"`
		AvgCommPerTicket  decimal.Decimal     `json:"avgCommPerTicket"`
		ProfitMargin      decimal.Decimal     `json:"profitMargin"`
		EntriesCount      int                 `json:"entriesCount"`
		// BusiestDay is the date of the batch with the largest count, empty
		// when the month has no tickets.
		BusiestDay string `json:"busiestDay,omitempty"`
	}

	Dashboard struct {
		Today    TodayStats    `json:"today"`
		Lifetime LifetimeStats `json:"lifetime"`
		Trend    []TrendPoint  `json:"trend"`
	}
)

// Today totals the tickets dated today.
func Today(tickets []core.TicketEntry, today string) TodayStats {
	stats := TodayStats{Date: today, Commission: decimal.Zero}
	for _, t := range tickets {
		if t.Date != today {
			continue
		}
		stats.TicketCount += t.Count
		stats.Commission = stats.Commission.Add(t.TotalCommission)
	}
	return stats
}

func Lifetime(tickets []core.TicketEntry, expenses []core.ExpenseEntry) LifetimeStats {
	comm := sumCommission(tickets)
	exp := sumExpenses(expenses)
	return LifetimeStats{
		TotalCommission: comm,
		TotalExpenses:   exp,
		NetProfit:       comm.Sub(exp),
	}
}

// TrendDates returns the TrendDays calendar dates ending at now, oldest first.
func TrendDates(now time.Time) []string {
	now = now.UTC()
	dates := make([]string, 0, TrendDays)
	for i := TrendDays - 1; i >= 0; i-- {
		dates = append(dates, core.DateKey(now.AddDate(0, 0, -i)))
	}
	return dates
}

// Trend produces exactly TrendDays points. Days without entries are zero.
func Trend(tickets []core.TicketEntry, expenses []core.ExpenseEntry, now time.Time) []TrendPoint {
	points := make([]TrendPoint, 0, TrendDays)
	for _, date := range TrendDates(now) {
		p := TrendPoint{Date: date, Commission: decimal.Zero, Expenses: decimal.Zero}
		for _, t := range tickets {
			if t.Date == date {
				p.Commission = p.Commission.Add(t.TotalCommission)
			}
		}
		for _, e := range expenses {
			if e.Date == date {
				p.Expenses = p.Expenses.Add(e.Amount)
			}
		}
		points = append(points, p)
	}
	return points
}

// TrendPeak returns the largest commission or expense value in points, used
// to scale the overview bars. It is never below one.
func TrendPeak(points []TrendPoint) decimal.Decimal {
	peak := decimal.NewFromInt(1)
	for _, p := range points {
		peak = decimal.Max(peak, p.Commission, p.Expenses)
	}
	return peak
}

func NewDashboard(tickets []core.TicketEntry, expenses []core.ExpenseEntry, now time.Time) Dashboard {
	return Dashboard{
		Today:    Today(tickets, core.DateKey(now)),
		Lifetime: Lifetime(tickets, expenses),
		Trend:    Trend(tickets, expenses, now),
	}
}

// FilterTickets keeps tickets whose date starts with month, in store order.
func FilterTickets(tickets []core.TicketEntry, month string) []core.TicketEntry {
	out := []core.TicketEntry{}
	for _, t := range tickets {
		if strings.HasPrefix(t.Date, month) {
			out = append(out, t)
		}
	}
	return out
}

// FilterExpenses keeps expenses whose date starts with month, in store order.
func FilterExpenses(expenses []core.ExpenseEntry, month string) []core.ExpenseEntry {
	out := []core.ExpenseEntry{}
	for _, e := range expenses {
		if strings.HasPrefix(e.Date, month) {
			out = append(out, e)
		}
	}
	return out
}

// NewMonthly builds the report for month, a YYYY-MM prefix.
//
// Average commission and profit margin divide by one when the denominator
// is zero, so an empty month reports zeros and a month with commission but
// no tickets reports the raw commission as its average.
func NewMonthly(tickets []core.TicketEntry, expenses []core.ExpenseEntry, month string) Monthly {
	mt := FilterTickets(tickets, month)
	me := FilterExpenses(expenses, month)

	r := Monthly{
		Month:           month,
		Tickets:         mt,
		Expenses:        me,
		TotalCommission: sumCommission(mt),
		TotalExpenses:   sumExpenses(me),
		EntriesCount:    len(mt) + len(me),
	}
	for _, t := range mt {
		r.TotalTickets += t.Count
	}
	r.NetProfit = r.TotalCommission.Sub(r.TotalExpenses)
	r.ExpenseByCategory = breakdown(me, r.TotalExpenses)
	r.AvgCommPerTicket = r.TotalCommission.Div(orOne(decimal.NewFromInt(r.TotalTickets)))
	r.ProfitMargin = r.NetProfit.Div(orOne(r.TotalCommission)).Mul(hundred)
	r.BusiestDay = busiestDay(mt)
	return r
}

// BusiestDayOfMonth returns the day part of BusiestDay, or "N/A".
func (m Monthly) BusiestDayOfMonth() string {
	if m.BusiestDay == "" {
		return "N/A"
	}
	parts := strings.Split(m.BusiestDay, "-")
	if len(parts) < 3 {
		return ""
	}
	return strings.Join(parts[2:], "")
}

// breakdown sums expenses per category in first-seen order.
func breakdown(expenses []core.ExpenseEntry, total decimal.Decimal) []CategoryAmount {
	out := []CategoryAmount{}
	index := map[core.Category]int{}
	for _, e := range expenses {
		i, ok := index[e.Category]
		if !ok {
			i = len(out)
			index[e.Category] = i
			out = append(out, CategoryAmount{Category: e.Category, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(e.Amount)
	}
	denom := orOne(total)
	for i := range out {
		out[i].Share = out[i].Amount.Div(denom).Mul(hundred)
	}
	return out
}

// busiestDay picks the first ticket in store order with the maximal count.
func busiestDay(tickets []core.TicketEntry) string {
	if len(tickets) == 0 {
		return ""
	}
	best := tickets[0]
	for _, t := range tickets[1:] {
		if t.Count > best.Count {
			best = t
		}
	}
	return best.Date
}

func orOne(d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return decimal.NewFromInt(1)
	}
	return d
}

func sumCommission(tickets []core.TicketEntry) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range tickets {
		sum = sum.Add(t.TotalCommission)
	}
	return sum
}

func sumExpenses(expenses []core.ExpenseEntry) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range expenses {
		sum = sum.Add(e.Amount)
	}
	return sum
}
