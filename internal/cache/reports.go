package cache

import (
	"fmt"
	"sync/atomic"
	"time"

	"busticket/internal/core"
	"busticket/internal/report"
)

// LedgerSnapshot is the read side of the ledger store.
type LedgerSnapshot interface {
	Snapshot() ([]core.TicketEntry, []core.ExpenseEntry, uint64)
}

// MonthlyReports memoizes report.NewMonthly per month and ledger version.
// Any mutation bumps the version, so a stale report is never served.
type MonthlyReports struct {
	source LedgerSnapshot
	lru    *LRUCache[report.Monthly]
	hits   atomic.Int64
	misses atomic.Int64
}

func NewMonthlyReports(source LedgerSnapshot, maxSize int, ttl time.Duration) *MonthlyReports {
	return &MonthlyReports{
		source: source,
		lru:    NewLRUCache[report.Monthly](maxSize, ttl),
	}
}

func reportKey(version uint64, month string) string {
	return fmt.Sprintf("%d:%s", version, month)
}

// Get returns the monthly report for month at the current ledger version.
func (m *MonthlyReports) Get(month string) report.Monthly {
	tickets, expenses, version := m.source.Snapshot()
	key := reportKey(version, month)
	if r, ok := m.lru.Get(key); ok {
		m.hits.Add(1)
		return r
	}
	m.misses.Add(1)
	r := report.NewMonthly(tickets, expenses, month)
	m.lru.Set(key, r)
	return r
}

// CleanExpired implements Cleaner.
func (m *MonthlyReports) CleanExpired() int {
	return m.lru.CleanExpired()
}

// Stats returns cache hit and miss counts.
func (m *MonthlyReports) Stats() (hits, misses int64) {
	return m.hits.Load(), m.misses.Load()
}
