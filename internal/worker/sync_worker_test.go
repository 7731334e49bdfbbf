package worker

import (
	"context"
	"path/filepath"
	"testing"

	"somiti/internal/amqp"
	"somiti/internal/core"
	"somiti/internal/sheets/memory"
	"somiti/internal/storage"
)

func setup(t *testing.T) (*SyncWorker, *storage.SQLiteRepository, *memory.Store) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	sheet := memory.New()
	return NewSyncWorker(repo, sheet, sheet, 2), repo, sheet
}

func record(t *testing.T, repo *storage.SQLiteRepository, id, date string, amount float64) {
	t.Helper()
	tx := core.Transaction{
		ID: id, Date: date, Type: core.TypeIncome,
		Items: []core.TransactionItem{
			{ID: "itm00001", Title: "Monthly Savings", Category: core.CategorySavings, Quantity: 1, PricePerUnit: amount, Total: amount},
		},
		TotalAmount: amount, PaymentMethod: core.PaymentCash,
	}
	if err := repo.InsertTransaction(context.Background(), tx); err != nil {
		t.Fatalf("insert %s: %v", id, err)
	}
}

func TestHandleMessage_SyncAndDelete(t *testing.T) {
	w, repo, sheet := setup(t)
	ctx := context.Background()

	record(t, repo, "USS-2026-001", "2026-01-05", 2000)

	if err := w.HandleMessage(ctx, amqp.NewSyncMessage("USS-2026-001")); err != nil {
		t.Fatalf("sync message: %v", err)
	}
	if rows := sheet.Rows(); len(rows) != 1 || rows[0].ID != "USS-2026-001" {
		t.Fatalf("sheet rows = %+v", rows)
	}
	pending, _ := repo.ListUnsynced(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("transaction still marked unsynced after handling")
	}

	if err := w.HandleMessage(ctx, amqp.NewDeleteMessage("USS-2026-001")); err != nil {
		t.Fatalf("delete message: %v", err)
	}
	if rows := sheet.Rows(); len(rows) != 0 {
		t.Fatalf("sheet rows after delete = %+v", rows)
	}
}

func TestHandleMessage_MissingTransaction(t *testing.T) {
	w, _, _ := setup(t)
	if err := w.HandleMessage(context.Background(), amqp.NewSyncMessage("USS-2026-404")); err == nil {
		t.Fatal("syncing a missing transaction must fail so the message is nacked")
	}
}

func TestStartupSyncCheck_DrainsInBatches(t *testing.T) {
	w, repo, sheet := setup(t)
	ctx := context.Background()

	// Five pending rows against a batch size of two.
	for i, id := range []string{"USS-2026-001", "USS-2026-002", "USS-2026-003", "USS-2026-004", "USS-2026-005"} {
		record(t, repo, id, "2026-01-05", float64(100*(i+1)))
	}

	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("StartupSyncCheck: %v", err)
	}
	if rows := sheet.Rows(); len(rows) != 5 {
		t.Fatalf("sheet rows = %d, want 5", len(rows))
	}
	pending, _ := repo.ListUnsynced(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("still %d unsynced after catch-up", len(pending))
	}
}
