package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	CategoryRent    Category = "Rent"
	CategorySalary  Category = "Salary"
	CategoryUtility Category = "Utility"
	CategoryOther   Category = "Other"
)

// DateLayout and MonthLayout are the string forms entries are matched on.
const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// Conventional per-ticket commission rates offered by the ticket form.
var (
	RateStandard = decimal.NewFromInt(50)
	RatePremium  = decimal.NewFromInt(100)
)

type (
	// Category is the closed set of expense categories.
	Category string

	TicketEntry struct {
		ID                 string          `json:"id"`
		Date               string          `json:"date"`
		Timestamp          int64           `json:"timestamp"` // unix millis
		Count              int64           `json:"count"`
		Rate               decimal.Decimal `json:"rate"`
		TotalCommission    decimal.Decimal `json:"totalCommission"`
		SourceEmailSubject string          `json:"sourceEmailSubject,omitempty"`
	}

	ExpenseEntry struct {
		ID          string          `json:"id"`
		Date        string          `json:"date"`
		Category    Category        `json:"category"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
	}

	// TicketDraft carries the caller-supplied fields of a new ticket batch.
	TicketDraft struct {
		Date    string
		Count   int64
		Rate    decimal.Decimal
		Subject string
	}

	// ExpenseDraft carries the caller-supplied fields of a new expense.
	ExpenseDraft struct {
		Date        string
		Category    Category
		Amount      decimal.Decimal
		Description string
	}

	// User is the local session marker. No credential is ever checked.
	User struct {
		Email      string `json:"email"`
		IsLoggedIn bool   `json:"isLoggedIn"`
	}

	// DailyReport describes a closed business day. Nothing populates it yet.
	DailyReport struct {
		Date            string          `json:"date"`
		TicketCount     int64           `json:"ticketCount"`
		TotalCommission decimal.Decimal `json:"totalCommission"`
		IsClosed        bool            `json:"isClosed"`
	}
)

var ErrInvalidCategory = errors.New("invalid category")

// Categories returns the expense categories in display order.
func Categories() []Category {
	return []Category{CategoryRent, CategorySalary, CategoryUtility, CategoryOther}
}

func (c Category) IsValid() bool {
	switch c {
	case CategoryRent, CategorySalary, CategoryUtility, CategoryOther:
		return true
	default:
		return false
	}
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory matches s against the known categories, ignoring case and
// surrounding whitespace.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories() {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

func (c *Category) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseCategory(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// NewTicketEntry builds a ticket batch. TotalCommission is fixed here and
// never recomputed.
func NewTicketEntry(id string, d TicketDraft, createdAt time.Time) TicketEntry {
	return TicketEntry{
		ID:                 id,
		Date:               d.Date,
		Timestamp:          createdAt.UnixMilli(),
		Count:              d.Count,
		Rate:               d.Rate,
		TotalCommission:    decimal.NewFromInt(d.Count).Mul(d.Rate),
		SourceEmailSubject: d.Subject,
	}
}

func NewExpenseEntry(id string, d ExpenseDraft) ExpenseEntry {
	return ExpenseEntry{
		ID:          id,
		Date:        d.Date,
		Category:    d.Category,
		Amount:      d.Amount,
		Description: d.Description,
	}
}

// CreatedAt returns the creation instant recorded on the entry.
func (t TicketEntry) CreatedAt() time.Time {
	return time.UnixMilli(t.Timestamp)
}

// DateKey formats t as the YYYY-MM-DD key entries are matched on. The UTC
// calendar date is used.
func DateKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// MonthKey formats t as the YYYY-MM prefix used by monthly reports.
func MonthKey(t time.Time) string {
	return t.UTC().Format(MonthLayout)
}

// IsMonthKey reports whether s looks like YYYY-MM.
func IsMonthKey(s string) bool {
	_, err := time.Parse(MonthLayout, s)
	return err == nil && len(s) == len(MonthLayout)
}
