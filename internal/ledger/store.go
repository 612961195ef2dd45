// Package ledger owns the ticket and expense collections and mirrors every
// change into a storage.KV as a full-collection snapshot.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"busticket/internal/core"
	"busticket/internal/log"
	"busticket/internal/storage"
)

// Snapshot keys.
const (
	KeyUser     = "bt_user"
	KeyTickets  = "bt_tickets"
	KeyExpenses = "bt_expenses"
)

const (
	idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	idLength   = 9
)

var (
	// ErrCorruptSnapshot is returned by Open when a stored snapshot does not
	// parse. Nothing is discarded.
	ErrCorruptSnapshot = errors.New("corrupt ledger snapshot")

	// ErrPersist wraps write-through failures. The in-memory collection is
	// left as it was before the mutation.
	ErrPersist = errors.New("persist ledger snapshot")
)

// Store is the single owner of both entry collections. Collections are kept
// most-recent-first by insertion.
type Store struct {
	mu        sync.Mutex
	kv        storage.KV
	tickets   []core.TicketEntry
	expenses  []core.ExpenseEntry
	user      *core.User
	version   uint64
	listeners []Listener

	now    func() time.Time
	newID  func() (string, error)
	logger *log.Logger
}

type Option func(*Store)

// WithClock overrides the time source used for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for ledger events.
func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger.WithComponent(log.ComponentLedger)
		}
	}
}

// WithIDGenerator overrides entry id generation.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(s *Store) { s.newID = gen }
}

// NewID returns a 9 character lowercase base-36 identifier.
func NewID() (string, error) {
	return gonanoid.Generate(idAlphabet, idLength)
}

// Open loads the collections from kv. Missing keys start empty; a snapshot
// that fails to parse aborts with ErrCorruptSnapshot.
func Open(ctx context.Context, kv storage.KV, opts ...Option) (*Store, error) {
	s := &Store{
		kv:       kv,
		tickets:  []core.TicketEntry{},
		expenses: []core.ExpenseEntry{},
		now:      time.Now,
		newID:    NewID,
		logger:   log.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := load(ctx, kv, KeyTickets, &s.tickets); err != nil {
		return nil, err
	}
	if err := load(ctx, kv, KeyExpenses, &s.expenses); err != nil {
		return nil, err
	}
	var user *core.User
	if err := load(ctx, kv, KeyUser, &user); err != nil {
		return nil, err
	}
	s.user = user

	if s.tickets == nil {
		s.tickets = []core.TicketEntry{}
	}
	if s.expenses == nil {
		s.expenses = []core.ExpenseEntry{}
	}

	s.logger.InfoContext(ctx, "Ledger loaded",
		"tickets", len(s.tickets),
		"expenses", len(s.expenses),
		"logged_in", s.user != nil)

	return s, nil
}

func load(ctx context.Context, kv storage.KV, key string, dst any) error {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptSnapshot, key, err)
	}
	return nil
}

// persist writes v under key. Callers hold s.mu.
func (s *Store) persist(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrPersist, key, err)
	}
	if err := s.kv.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPersist, key, err)
	}
	return nil
}

// Subscribe registers l for all future mutations.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Store) notify(ctx context.Context, ev Event) {
	s.mu.Lock()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		if err := l.OnLedgerEvent(ctx, ev); err != nil {
			// The entry is already persisted; listeners are best effort.
			s.logger.ErrorContext(ctx, "Ledger listener failed",
				"kind", ev.Kind, "id", ev.ID, "error", err)
		}
	}
}

// AddTicket records a ticket batch at the front of the collection.
func (s *Store) AddTicket(ctx context.Context, d core.TicketDraft) (core.TicketEntry, error) {
	id, err := s.newID()
	if err != nil {
		return core.TicketEntry{}, fmt.Errorf("generate ticket id: %w", err)
	}
	entry := core.NewTicketEntry(id, d, s.now())

	s.mu.Lock()
	next := make([]core.TicketEntry, 0, len(s.tickets)+1)
	next = append(next, entry)
	next = append(next, s.tickets...)
	if err := s.persist(ctx, KeyTickets, next); err != nil {
		s.mu.Unlock()
		return core.TicketEntry{}, err
	}
	s.tickets = next
	s.version++
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Ticket entry added",
		"id", entry.ID,
		"date", entry.Date,
		"count", entry.Count,
		"total_commission", entry.TotalCommission.String())

	s.notify(ctx, Event{Kind: TicketCreated, ID: entry.ID, Ticket: &entry, At: s.now()})
	return entry, nil
}

// DeleteTicket removes the ticket with id. An unknown id is a no-op.
func (s *Store) DeleteTicket(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := -1
	for i, t := range s.tickets {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	removed := s.tickets[idx]
	next := make([]core.TicketEntry, 0, len(s.tickets)-1)
	next = append(next, s.tickets[:idx]...)
	next = append(next, s.tickets[idx+1:]...)
	if err := s.persist(ctx, KeyTickets, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.tickets = next
	s.version++
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Ticket entry deleted", "id", id)
	s.notify(ctx, Event{Kind: TicketDeleted, ID: id, Ticket: &removed, At: s.now()})
	return nil
}

// AddExpense records an expense at the front of the collection.
func (s *Store) AddExpense(ctx context.Context, d core.ExpenseDraft) (core.ExpenseEntry, error) {
	id, err := s.newID()
	if err != nil {
		return core.ExpenseEntry{}, fmt.Errorf("generate expense id: %w", err)
	}
	entry := core.NewExpenseEntry(id, d)

	s.mu.Lock()
	next := make([]core.ExpenseEntry, 0, len(s.expenses)+1)
	next = append(next, entry)
	next = append(next, s.expenses...)
	if err := s.persist(ctx, KeyExpenses, next); err != nil {
		s.mu.Unlock()
		return core.ExpenseEntry{}, err
	}
	s.expenses = next
	s.version++
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Expense entry added",
		"id", entry.ID,
		"date", entry.Date,
		"category", entry.Category,
		"amount", entry.Amount.String())

	s.notify(ctx, Event{Kind: ExpenseCreated, ID: entry.ID, Expense: &entry, At: s.now()})
	return entry, nil
}

// DeleteExpense removes the expense with id. An unknown id is a no-op.
func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := -1
	for i, e := range s.expenses {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	removed := s.expenses[idx]
	next := make([]core.ExpenseEntry, 0, len(s.expenses)-1)
	next = append(next, s.expenses[:idx]...)
	next = append(next, s.expenses[idx+1:]...)
	if err := s.persist(ctx, KeyExpenses, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.expenses = next
	s.version++
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Expense entry deleted", "id", id)
	s.notify(ctx, Event{Kind: ExpenseDeleted, ID: id, Expense: &removed, At: s.now()})
	return nil
}

// Tickets returns a copy of the ticket collection in store order.
func (s *Store) Tickets() []core.TicketEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.TicketEntry(nil), s.tickets...)
}

// Expenses returns a copy of the expense collection in store order.
func (s *Store) Expenses() []core.ExpenseEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.ExpenseEntry(nil), s.expenses...)
}

// Snapshot returns both collections and the version they were read at.
func (s *Store) Snapshot() ([]core.TicketEntry, []core.ExpenseEntry, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.TicketEntry(nil), s.tickets...),
		append([]core.ExpenseEntry(nil), s.expenses...),
		s.version
}

// Version increases by one on every successful mutation.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Now returns the store's clock reading.
func (s *Store) Now() time.Time {
	return s.now()
}
