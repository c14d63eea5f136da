package worker

import (
	"context"
	"errors"
	"testing"

	"dompet/internal/amqp"
	"dompet/internal/core"
	"dompet/internal/sheets/memory"
	"dompet/internal/storage"
)

type failingMirror struct{ upserts, deletes int }

func (f *failingMirror) Upsert(context.Context, core.Transaction) (string, error) {
	f.upserts++
	return "", errors.New("quota exceeded")
}

func (f *failingMirror) Delete(context.Context, core.Transaction) error {
	f.deletes++
	return errors.New("quota exceeded")
}

func seed(t *testing.T, store *storage.MemoryStore, n int) []core.Transaction {
	t.Helper()
	ctx := context.Background()
	acct, err := store.CreateAccount(ctx, core.Account{Name: "Maybank", Balance: core.MoneyFromInt(1000)})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	var out []core.Transaction
	for i := 0; i < n; i++ {
		tx, _, err := store.AddTransaction(ctx, core.Transaction{
			AccountID:   acct.ID,
			Date:        core.NewDate(2026, 3, i+1),
			Description: "Groceries",
			Amount:      core.MoneyFromInt(10),
			IsExpense:   true,
			Category:    "Food",
		})
		if err != nil {
			t.Fatalf("AddTransaction: %v", err)
		}
		out = append(out, tx)
	}
	return out
}

func pendingCount(t *testing.T, store *storage.MemoryStore) int {
	t.Helper()
	p, err := store.PendingSync(context.Background(), 0)
	if err != nil {
		t.Fatalf("PendingSync: %v", err)
	}
	return len(p)
}

func TestHandleSync(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	mirror := memory.New()
	w := NewSyncWorker(store, mirror, 10, nil)
	tx := seed(t, store, 1)[0]

	if err := w.HandleSync(ctx, amqp.NewTransactionSyncMessage(tx.ID, tx.Version)); err != nil {
		t.Fatalf("HandleSync: %v", err)
	}
	if rows := mirror.Rows(2026); len(rows) != 1 || rows[0].ID != tx.ID {
		t.Fatalf("mirrored rows = %+v", rows)
	}
	if n := pendingCount(t, store); n != 0 {
		t.Errorf("pending after sync = %d, want 0", n)
	}
}

func TestHandleSync_StaleMessageIsSkipped(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	mirror := memory.New()
	w := NewSyncWorker(store, mirror, 10, nil)
	tx := seed(t, store, 1)[0]

	edited := tx
	edited.Amount = core.MoneyFromInt(20)
	if _, err := store.UpdateTransaction(ctx, edited); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}

	if err := w.HandleSync(ctx, amqp.NewTransactionSyncMessage(tx.ID, 1)); err != nil {
		t.Fatalf("HandleSync: %v", err)
	}
	if rows := mirror.Rows(2026); len(rows) != 0 {
		t.Errorf("stale message wrote %d rows", len(rows))
	}

	if err := w.HandleSync(ctx, amqp.NewTransactionSyncMessage(tx.ID, 2)); err != nil {
		t.Fatalf("HandleSync v2: %v", err)
	}
	rows := mirror.Rows(2026)
	if len(rows) != 1 || rows[0].Amount.String() != "20.00" || rows[0].Version != 2 {
		t.Errorf("rows after current message = %+v", rows)
	}
}

func TestHandleSync_MissingTransaction(t *testing.T) {
	w := NewSyncWorker(storage.NewMemoryStore(), memory.New(), 10, nil)
	if err := w.HandleSync(context.Background(), amqp.NewTransactionSyncMessage(404, 1)); err != nil {
		t.Errorf("HandleSync for missing transaction = %v, want nil", err)
	}
}

func TestHandleSync_MirrorFailure(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	mirror := &failingMirror{}
	w := NewSyncWorker(store, mirror, 10, nil)
	tx := seed(t, store, 1)[0]

	if err := w.HandleSync(ctx, amqp.NewTransactionSyncMessage(tx.ID, tx.Version)); err == nil {
		t.Fatal("HandleSync should return the mirror error so the message is requeued")
	}
	// Errored rows are retried by the catch-up job.
	if n := pendingCount(t, store); n != 1 {
		t.Errorf("pending after failure = %d, want 1", n)
	}
}

func TestHandleDelete(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	mirror := memory.New()
	w := NewSyncWorker(store, mirror, 10, nil)
	tx := seed(t, store, 1)[0]

	if _, err := mirror.Upsert(ctx, tx); err != nil {
		t.Fatal(err)
	}
	deleted, err := store.DeleteTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatal(err)
	}

	if err := w.HandleDelete(ctx, amqp.NewTransactionDeleteMessage(deleted)); err != nil {
		t.Fatalf("HandleDelete: %v", err)
	}
	if rows := mirror.Rows(2026); len(rows) != 0 {
		t.Errorf("rows after delete = %+v", rows)
	}

	if err := w.HandleDelete(ctx, &amqp.TransactionDeleteMessage{ID: 1, Date: "not-a-date"}); err != nil {
		t.Errorf("malformed delete message should be dropped, got %v", err)
	}

	failing := NewSyncWorker(store, &failingMirror{}, 10, nil)
	if err := failing.HandleDelete(ctx, amqp.NewTransactionDeleteMessage(deleted)); err == nil {
		t.Error("HandleDelete should surface mirror errors")
	}
}

func TestProcessPending(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	mirror := memory.New()
	w := NewSyncWorker(store, mirror, 2, nil)
	seed(t, store, 3)

	for _, want := range []int{2, 1, 0} {
		got, err := w.ProcessPending(ctx)
		if err != nil {
			t.Fatalf("ProcessPending: %v", err)
		}
		if got != want {
			t.Errorf("ProcessPending synced %d, want %d", got, want)
		}
	}
	if rows := mirror.Rows(2026); len(rows) != 3 {
		t.Errorf("mirrored rows = %d, want 3", len(rows))
	}
}

func TestProcessPending_CountsFailures(t *testing.T) {
	store := storage.NewMemoryStore()
	mirror := &failingMirror{}
	w := NewSyncWorker(store, mirror, 10, nil)
	seed(t, store, 2)

	got, err := w.ProcessPending(context.Background())
	if err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}
	if got != 0 || mirror.upserts != 2 {
		t.Errorf("synced = %d, upserts = %d; want 0 and 2", got, mirror.upserts)
	}
}

func TestStartupSyncCheck(t *testing.T) {
	store := storage.NewMemoryStore()
	mirror := memory.New()
	w := NewSyncWorker(store, mirror, 1, nil)
	seed(t, store, 4)

	if err := w.StartupSyncCheck(context.Background()); err != nil {
		t.Fatalf("StartupSyncCheck: %v", err)
	}
	if n := pendingCount(t, store); n != 0 {
		t.Errorf("pending after startup check = %d, want 0", n)
	}
}
