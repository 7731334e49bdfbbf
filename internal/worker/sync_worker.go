// Package worker mirrors the SQLite ledger into the configured backup sheet.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"somiti/internal/amqp"
	"somiti/internal/core"
	"somiti/internal/sheets"
)

// LedgerStore is the slice of the repository the worker needs.
type LedgerStore interface {
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	ListUnsynced(ctx context.Context, limit int) ([]core.Transaction, error)
	MarkSynced(ctx context.Context, id string) error
}

// SyncWorker consumes ledger change events and applies them to the backup
// destination.
type SyncWorker struct {
	store     LedgerStore
	writer    sheets.TransactionWriter
	deleter   sheets.TransactionDeleter
	batchSize int
}

func NewSyncWorker(store LedgerStore, writer sheets.TransactionWriter, deleter sheets.TransactionDeleter, batchSize int) *SyncWorker {
	return &SyncWorker{
		store:     store,
		writer:    writer,
		deleter:   deleter,
		batchSize: batchSize,
	}
}

// HandleMessage processes one queued change event.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.SyncMessage) error {
	switch msg.Kind {
	case amqp.KindSync:
		return w.syncOne(ctx, msg.ID)
	case amqp.KindDelete:
		slog.InfoContext(ctx, "Processing delete message", "id", msg.ID)
		if err := w.deleter.DeleteByID(ctx, msg.ID); err != nil {
			return fmt.Errorf("delete %s from backup: %w", msg.ID, err)
		}
		return nil
	default:
		return fmt.Errorf("unknown message kind %q", msg.Kind)
	}
}

func (w *SyncWorker) syncOne(ctx context.Context, id string) error {
	slog.InfoContext(ctx, "Processing sync message", "id", id)

	t, err := w.store.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("load transaction %s: %w", id, err)
	}
	if err := w.writer.Append(ctx, t); err != nil {
		return fmt.Errorf("append %s to backup: %w", id, err)
	}
	if err := w.store.MarkSynced(ctx, id); err != nil {
		return fmt.Errorf("mark %s synced: %w", id, err)
	}
	return nil
}

// StartupSyncCheck pushes transactions that were recorded while the worker
// was down. It drains in batches until nothing is pending.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	for {
		pending, err := w.store.ListUnsynced(ctx, w.batchSize)
		if err != nil {
			return fmt.Errorf("list unsynced: %w", err)
		}
		if len(pending) == 0 {
			return nil
		}

		slog.InfoContext(ctx, "Catching up unsynced transactions", "count", len(pending))
		for _, t := range pending {
			if err := w.writer.Append(ctx, t); err != nil {
				return fmt.Errorf("append %s to backup: %w", t.ID, err)
			}
			if err := w.store.MarkSynced(ctx, t.ID); err != nil {
				return fmt.Errorf("mark %s synced: %w", t.ID, err)
			}
		}
	}
}
