// Package ledger owns the in-memory working set of transactions and keeps it
// reconciled with SQLite. Reads are served from memory; writes go to storage
// and roll the memory change back when storage refuses.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"somiti/internal/core"
	"somiti/internal/storage"
)

// ErrNotFound is returned when a transaction id is absent from the session.
var ErrNotFound = errors.New("transaction not found")

// Store is the slice of the repository the service needs.
type Store interface {
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	InsertTransaction(ctx context.Context, t core.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
}

// EventPublisher emits spreadsheet sync events. A nil publisher is fine;
// publishing is best effort and never fails a request.
type EventPublisher interface {
	PublishSync(ctx context.Context, id string) error
	PublishDelete(ctx context.Context, id string) error
}

// ItemInput is the user-entered half of a line item; totals are computed here.
type ItemInput struct {
	Title        string        `json:"title"`
	Category     core.Category `json:"category"`
	Quantity     int           `json:"quantity"`
	PricePerUnit float64       `json:"pricePerUnit"`
}

// AddRequest describes a new transaction. The id and date are assigned by the
// service, not the caller.
type AddRequest struct {
	Type          core.TransactionType `json:"type"`
	PaymentMethod core.PaymentMethod   `json:"paymentMethod"`
	ReceivedFrom  string               `json:"receivedFrom"`
	MobileNumber  string               `json:"mobileNumber"`
	Items         []ItemInput          `json:"items"`
}

// Service orchestrates transaction operations across the in-memory collection,
// SQLite and AMQP.
type Service struct {
	mu     sync.Mutex
	store  Store
	events EventPublisher
	txs    []core.Transaction
	now    func() time.Time
}

func NewService(store Store, events EventPublisher) *Service {
	return &Service{
		store:  store,
		events: events,
		now:    time.Now,
	}
}

// Load pulls the full transaction history into memory, newest first. A failed
// read leaves the session empty rather than blocking startup; the next
// successful write still lands in storage.
func (s *Service) Load(ctx context.Context) {
	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load transactions, starting empty", "error", err)
		txs = nil
	}

	s.mu.Lock()
	s.txs = txs
	s.mu.Unlock()

	slog.InfoContext(ctx, "Transaction history loaded", "count", len(txs))
}

// Add assigns the next receipt number, records the transaction in memory and
// in SQLite, and publishes a sync event. The memory insert happens first and
// is reverted if SQLite rejects the row, so readers never keep seeing a
// transaction that was refused.
func (s *Service) Add(ctx context.Context, req AddRequest) (core.Transaction, error) {
	items := make([]core.TransactionItem, 0, len(req.Items))
	var total float64
	for _, in := range req.Items {
		item, err := core.NewItem(in.Title, in.Category, in.Quantity, in.PricePerUnit)
		if err != nil {
			return core.Transaction{}, err
		}
		items = append(items, item)
		total += item.Total
	}

	now := s.now()

	s.mu.Lock()
	t := core.Transaction{
		ID:            core.ReceiptID(now.Year(), len(s.txs)),
		Date:          now.Format("2006-01-02"),
		Type:          req.Type,
		Items:         items,
		TotalAmount:   total,
		PaymentMethod: req.PaymentMethod,
		ReceivedFrom:  req.ReceivedFrom,
		MobileNumber:  req.MobileNumber,
	}
	if err := t.Validate(); err != nil {
		s.mu.Unlock()
		return core.Transaction{}, err
	}
	s.txs = append([]core.Transaction{t}, s.txs...)
	s.mu.Unlock()

	if err := s.store.InsertTransaction(ctx, t); err != nil {
		s.mu.Lock()
		s.txs = removeByID(s.txs, t.ID)
		s.mu.Unlock()
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	if err := s.publishSync(ctx, t.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message", "id", t.ID, "error", err)
		// Don't fail the request, the transaction is saved locally.
	}

	return t, nil
}

// Delete removes a transaction from memory and from SQLite. Like Add, the
// memory change is reverted when storage fails, so memory and SQLite stay in
// step in both directions.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	idx := indexOf(s.txs, id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	removed := s.txs[idx]
	s.txs = append(s.txs[:idx:idx], s.txs[idx+1:]...)
	s.mu.Unlock()

	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.mu.Lock()
			s.txs = insertAt(s.txs, idx, removed)
			s.mu.Unlock()
			return fmt.Errorf("delete transaction: %w", err)
		}
		// Absent from storage but present in memory: the memory removal
		// already restored agreement, treat it as deleted.
		slog.WarnContext(ctx, "Transaction missing from storage on delete", "id", id)
	}

	if err := s.publishDelete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message", "id", id, "error", err)
	}

	return nil
}

// Transactions returns a copy of the session collection, newest first.
func (s *Service) Transactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.txs))
	copy(out, s.txs)
	return out
}

// Get finds one transaction by its receipt number.
func (s *Service) Get(id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := indexOf(s.txs, id); idx >= 0 {
		return s.txs[idx], nil
	}
	return core.Transaction{}, ErrNotFound
}

// Summary recomputes the financial summary for the current wall-clock month.
func (s *Service) Summary() core.FinancialSummary {
	return core.Summarize(s.Transactions(), core.CurrentMonth(s.now()))
}

// CategoryChart returns the income-by-category distribution with labels in
// the given language.
func (s *Service) CategoryChart(lang core.Language) []core.ChartPoint {
	return core.CategoryDistribution(s.Transactions(), lang)
}

// WeeklyChart returns income totals for the last seven active days.
func (s *Service) WeeklyChart(lang core.Language) []core.ChartPoint {
	return core.WeeklyTrend(s.Transactions(), lang)
}

// Filter narrows the session collection by free-text query and month.
func (s *Service) Filter(query, month string) []core.Transaction {
	return core.Filter(s.Transactions(), query, month)
}

func (s *Service) publishSync(ctx context.Context, id string) error {
	if s.events == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}
	return s.events.PublishSync(ctx, id)
}

func (s *Service) publishDelete(ctx context.Context, id string) error {
	if s.events == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping delete message")
		return nil
	}
	return s.events.PublishDelete(ctx, id)
}

func indexOf(txs []core.Transaction, id string) int {
	for i, t := range txs {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func removeByID(txs []core.Transaction, id string) []core.Transaction {
	if idx := indexOf(txs, id); idx >= 0 {
		return append(txs[:idx:idx], txs[idx+1:]...)
	}
	return txs
}

func insertAt(txs []core.Transaction, idx int, t core.Transaction) []core.Transaction {
	if idx < 0 || idx > len(txs) {
		idx = len(txs)
	}
	out := make([]core.Transaction, 0, len(txs)+1)
	out = append(out, txs[:idx]...)
	out = append(out, t)
	out = append(out, txs[idx:]...)
	return out
}
