package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"dompet/internal/core"
	"dompet/internal/storage"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 6, 0, 0, 0, time.UTC)
}

func TestRecurringProcessor_ProcessDue(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	ledger := NewLedgerService(store, nil, nil)

	acct, err := ledger.CreateAccount(ctx, "Maybank", core.MoneyFromInt(1000))
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	_, err = ledger.CreateRecurring(ctx, core.RecurringTransaction{
		AccountID:   acct.ID,
		StartDate:   core.NewDate(2026, 1, 15),
		EndDate:     core.NewDate(2026, 3, 31),
		Every:       core.Monthly,
		Description: "Rent",
		Amount:      core.MoneyFromInt(200),
		IsExpense:   true,
		Category:    "Housing",
	})
	if err != nil {
		t.Fatalf("CreateRecurring: %v", err)
	}

	proc := NewRecurringProcessor(store, ledger, nil)

	runs := []struct {
		now  time.Time
		want int
	}{
		{day(2026, 1, 10), 0}, // before start
		{day(2026, 1, 15), 1},
		{day(2026, 1, 20), 0}, // already ran this month
		{day(2026, 2, 10), 0}, // before the 15th
		{day(2026, 2, 15), 1},
		{day(2026, 3, 16), 1},
		{day(2026, 4, 15), 0}, // past end date
	}
	for _, r := range runs {
		got, err := proc.ProcessDue(ctx, r.now)
		if err != nil {
			t.Fatalf("ProcessDue(%s): %v", r.now.Format("2006-01-02"), err)
		}
		if got != r.want {
			t.Errorf("ProcessDue(%s) = %d, want %d", r.now.Format("2006-01-02"), got, r.want)
		}
	}

	after, _ := ledger.GetAccount(ctx, acct.ID)
	if after.Balance.String() != "400.00" {
		t.Errorf("balance = %s, want 400.00", after.Balance)
	}
	txs, _ := ledger.ListTransactions(ctx, storage.TransactionFilter{AccountID: acct.ID})
	if len(txs) != 3 {
		t.Fatalf("transactions = %d, want 3", len(txs))
	}
}

type failingRecorder struct{ calls int }

func (f *failingRecorder) RecordTransaction(context.Context, core.Transaction) (core.Transaction, core.Account, error) {
	f.calls++
	return core.Transaction{}, core.Account{}, errors.New("store down")
}

func TestRecurringProcessor_FailuresAreSkipped(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	acct, _ := store.CreateAccount(ctx, core.Account{Name: "Cash"})
	re, _ := store.CreateRecurring(ctx, core.RecurringTransaction{
		AccountID:   acct.ID,
		StartDate:   core.NewDate(2026, 1, 1),
		Every:       core.Daily,
		Description: "Coffee",
		Amount:      core.MoneyFromInt(8),
		IsExpense:   true,
		Category:    "Food",
	})

	rec := &failingRecorder{}
	proc := NewRecurringProcessor(store, rec, nil)

	got, err := proc.ProcessDue(ctx, day(2026, 1, 2))
	if err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if got != 0 || rec.calls != 1 {
		t.Errorf("processed = %d, calls = %d; want 0 and 1", got, rec.calls)
	}

	// A failed run leaves the template due.
	saved, _ := store.GetRecurring(ctx, re.ID)
	if !saved.LastExecution.IsZero() {
		t.Errorf("LastExecution = %v, want zero", saved.LastExecution)
	}
}

func TestRecurringProcessor_NotInitialized(t *testing.T) {
	if _, err := (&RecurringProcessor{}).ProcessDue(context.Background(), time.Now()); err == nil {
		t.Error("expected error from uninitialized processor")
	}
}

func TestRecurringProcessor_CancelledContext(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	acct, _ := store.CreateAccount(ctx, core.Account{Name: "Cash"})
	_, _ = store.CreateRecurring(ctx, core.RecurringTransaction{
		AccountID: acct.ID, StartDate: core.NewDate(2026, 1, 1), Every: core.Daily,
		Description: "Coffee", Amount: core.MoneyFromInt(8), IsExpense: true, Category: "Food",
	})

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	proc := NewRecurringProcessor(store, NewLedgerService(store, nil, nil), nil)
	if _, err := proc.ProcessDue(cancelled, day(2026, 1, 2)); !errors.Is(err, context.Canceled) {
		t.Errorf("ProcessDue error = %v, want context.Canceled", err)
	}
}
