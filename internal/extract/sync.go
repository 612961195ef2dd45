package extract

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"busticket/internal/core"
)

// ErrSyncInProgress is returned when a sync is requested while another is
// still waiting on the model.
var ErrSyncInProgress = errors.New("sync already in progress")

type TicketAdder interface {
	AddTicket(ctx context.Context, d core.TicketDraft) (core.TicketEntry, error)
}

type DraftExtractor interface {
	Extract(ctx context.Context, text string) (Draft, error)
}

// Syncer runs extraction and records the result as a ticket batch. At most
// one sync runs at a time.
type Syncer struct {
	extractor DraftExtractor
	store     TicketAdder
	busy      atomic.Bool
}

func NewSyncer(extractor DraftExtractor, store TicketAdder) *Syncer {
	return &Syncer{extractor: extractor, store: store}
}

// IsSyncing reports whether a sync is in flight.
func (s *Syncer) IsSyncing() bool {
	return s.busy.Load()
}

// Sync extracts a draft from text and adds it. Nothing is added when
// extraction fails.
func (s *Syncer) Sync(ctx context.Context, text string) (core.TicketEntry, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return core.TicketEntry{}, ErrSyncInProgress
	}
	defer s.busy.Store(false)

	draft, err := s.extractor.Extract(ctx, text)
	if err != nil {
		return core.TicketEntry{}, err
	}
	entry, err := s.store.AddTicket(ctx, draft.TicketDraft())
	if err != nil {
		return core.TicketEntry{}, fmt.Errorf("record synced tickets: %w", err)
	}
	return entry, nil
}

// SuccessMessage is shown after a sync added entry.
func SuccessMessage(entry core.TicketEntry) string {
	return fmt.Sprintf("Successfully synced %d tickets!", entry.Count)
}
