// Package memory is an in-process stand-in for the Google Sheets backup,
// used in tests and sheets-less development.
package memory

import (
	"context"
	"sync"

	"somiti/internal/core"
	ports "somiti/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows []core.Transaction
}

var (
	_ ports.TransactionWriter  = (*Store)(nil)
	_ ports.TransactionDeleter = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

func (s *Store) Append(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, t)
	return nil
}

func (s *Store) DeleteByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, row := range s.rows {
		if row.ID == id {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	// Absent rows are tolerated, matching the sheet-backed implementation.
	return nil
}

// Rows returns a copy of the mirrored transactions in append order.
func (s *Store) Rows() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.rows...)
}
