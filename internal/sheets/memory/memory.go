// Package memory is an in-process ledger mirror for local runs and tests.
package memory

import (
	"context"
	"sync"

	"busticket/internal/sheets"
)

type Mirror struct {
	mu   sync.Mutex
	rows []sheets.Row
}

var _ sheets.LedgerMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{}
}

func (m *Mirror) AppendEntry(_ context.Context, row sheets.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ID == row.ID {
			return nil
		}
	}
	m.rows = append(m.rows, row)
	return nil
}

func (m *Mirror) DeleteEntry(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// Rows returns a copy of the mirrored rows in append order.
func (m *Mirror) Rows() []sheets.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sheets.Row(nil), m.rows...)
}
