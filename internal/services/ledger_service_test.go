package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"dompet/internal/amqp"
	"dompet/internal/core"
	"dompet/internal/storage"
)

type fakePublisher struct {
	mu      sync.Mutex
	syncs   []int64
	deletes []*amqp.TransactionDeleteMessage
	err     error
	closed  bool
}

func (f *fakePublisher) PublishTransactionSync(_ context.Context, id, version int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncs = append(f.syncs, id*1000+version)
	return f.err
}

func (f *fakePublisher) PublishTransactionDelete(_ context.Context, msg *amqp.TransactionDeleteMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, msg)
	return f.err
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

func newLedger(t *testing.T) (*LedgerService, *fakePublisher, core.Account) {
	t.Helper()
	pub := &fakePublisher{}
	svc := NewLedgerService(storage.NewMemoryStore(), pub, nil)
	acct, err := svc.CreateAccount(context.Background(), "  Maybank  ", core.MoneyFromInt(1000))
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return svc, pub, acct
}

func groceries(accountID int64, amount int64) core.Transaction {
	return core.Transaction{
		AccountID:   accountID,
		Date:        core.NewDate(2026, 3, 14),
		Description: " Groceries ",
		Amount:      core.MoneyFromInt(amount),
		IsExpense:   true,
		Category:    "Food",
	}
}

func TestLedgerService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	svc, pub, acct := newLedger(t)

	if acct.Name != "Maybank" {
		t.Errorf("account name = %q, want trimmed", acct.Name)
	}

	tx, after, err := svc.RecordTransaction(ctx, groceries(acct.ID, 100))
	if err != nil {
		t.Fatalf("RecordTransaction: %v", err)
	}
	if after.Balance.String() != "900.00" {
		t.Errorf("balance = %s, want 900.00", after.Balance)
	}
	if tx.Description != "Groceries" {
		t.Errorf("description = %q, want trimmed", tx.Description)
	}

	tx.Amount = core.MoneyFromInt(100)
	tx.IsExpense = false
	edited, err := svc.EditTransaction(ctx, tx)
	if err != nil {
		t.Fatalf("EditTransaction: %v", err)
	}
	got, _ := svc.GetAccount(ctx, acct.ID)
	if got.Balance.String() != "1100.00" {
		t.Errorf("balance after edit = %s, want 1100.00", got.Balance)
	}

	if _, err := svc.DeleteTransaction(ctx, edited.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	got, _ = svc.GetAccount(ctx, acct.ID)
	if got.Balance.String() != "1000.00" {
		t.Errorf("balance after delete = %s, want 1000.00", got.Balance)
	}

	wantSyncs := []int64{tx.ID*1000 + 1, tx.ID*1000 + 2}
	if len(pub.syncs) != 2 || pub.syncs[0] != wantSyncs[0] || pub.syncs[1] != wantSyncs[1] {
		t.Errorf("sync messages = %v, want %v", pub.syncs, wantSyncs)
	}
	if len(pub.deletes) != 1 || pub.deletes[0].ID != tx.ID || pub.deletes[0].IsExpense {
		t.Errorf("delete messages = %+v", pub.deletes)
	}
}

func TestLedgerService_Validation(t *testing.T) {
	ctx := context.Background()
	svc, pub, acct := newLedger(t)

	tests := []struct {
		name   string
		mutate func(*core.Transaction)
		want   error
	}{
		{"zero amount", func(tx *core.Transaction) { tx.Amount = core.Money{} }, core.ErrInvalidAmount},
		{"sub-sen amount", func(tx *core.Transaction) {
			tx.Amount = core.Money{Amount: decimal.RequireFromString("100.005")}
		}, core.ErrInvalidAmount},
		{"blank description", func(tx *core.Transaction) { tx.Description = "   " }, core.ErrEmptyDescription},
		{"blank category", func(tx *core.Transaction) { tx.Category = "" }, core.ErrEmptyCategory},
		{"missing account", func(tx *core.Transaction) { tx.AccountID = 0 }, core.ErrInvalidAccount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := groceries(acct.ID, 10)
			tt.mutate(&tx)
			_, _, err := svc.RecordTransaction(ctx, tx)
			if !errors.Is(err, tt.want) {
				t.Errorf("RecordTransaction error = %v, want %v", err, tt.want)
			}
			if !core.IsValidationError(err) {
				t.Errorf("IsValidationError(%v) = false", err)
			}
		})
	}

	if _, err := svc.CreateAccount(ctx, " ", core.Money{}); !errors.Is(err, core.ErrEmptyAccountName) {
		t.Errorf("CreateAccount(blank) error = %v", err)
	}
	if _, err := svc.EditTransaction(ctx, groceries(acct.ID, 10)); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("EditTransaction(no id) error = %v, want ErrNotFound", err)
	}
	if _, err := svc.DeleteTransaction(ctx, 404); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("DeleteTransaction(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := svc.MonthOverview(ctx, 2026, 13); !errors.Is(err, core.ErrInvalidMonth) {
		t.Errorf("MonthOverview(13) error = %v, want ErrInvalidMonth", err)
	}
	if _, err := svc.ListTransactions(ctx, storage.TransactionFilter{Year: 2026, Month: -1}); !errors.Is(err, core.ErrInvalidMonth) {
		t.Errorf("ListTransactions(month -1) error = %v, want ErrInvalidMonth", err)
	}
	if len(pub.syncs) != 0 {
		t.Errorf("rejected input published %d messages", len(pub.syncs))
	}
	got, err := svc.GetAccount(ctx, acct.ID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if got.Balance.String() != "1000.00" {
		t.Errorf("balance after rejected input = %s, want 1000.00", got.Balance)
	}
}

func TestLedgerService_PublishFailureDoesNotFailRequest(t *testing.T) {
	ctx := context.Background()
	svc, pub, acct := newLedger(t)
	pub.err = errors.New("broker unavailable")

	tx, _, err := svc.RecordTransaction(ctx, groceries(acct.ID, 25))
	if err != nil {
		t.Fatalf("RecordTransaction: %v", err)
	}
	if _, err := svc.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
}

func TestLedgerService_WithoutPublisher(t *testing.T) {
	ctx := context.Background()
	svc := NewLedgerService(storage.NewMemoryStore(), nil, nil)
	acct, _ := svc.CreateAccount(ctx, "Cash", core.Money{})

	if _, _, err := svc.RecordTransaction(ctx, groceries(acct.ID, 5)); err != nil {
		t.Fatalf("RecordTransaction: %v", err)
	}
	ov, err := svc.MonthOverview(ctx, 2026, 3)
	if err != nil {
		t.Fatalf("MonthOverview: %v", err)
	}
	if ov.Expense.String() != "5.00" || ov.Net.String() != "-5.00" {
		t.Errorf("overview = %+v", ov)
	}
	if err := svc.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestLedgerService_Recurring(t *testing.T) {
	ctx := context.Background()
	svc, pub, acct := newLedger(t)

	re := core.RecurringTransaction{
		AccountID:   acct.ID,
		StartDate:   core.NewDate(2026, 1, 1),
		Every:       core.Monthly,
		Description: " Internet ",
		Amount:      core.MoneyFromInt(129),
		IsExpense:   true,
		Category:    "Utilities",
	}
	saved, err := svc.CreateRecurring(ctx, re)
	if err != nil {
		t.Fatalf("CreateRecurring: %v", err)
	}
	if saved.Description != "Internet" {
		t.Errorf("description = %q", saved.Description)
	}

	re.Every = core.RepetitionTypes("hourly")
	if _, err := svc.CreateRecurring(ctx, re); !errors.Is(err, core.ErrInvalidRepetition) {
		t.Errorf("CreateRecurring(hourly) error = %v", err)
	}

	list, _ := svc.ListRecurring(ctx)
	if len(list) != 1 {
		t.Fatalf("ListRecurring = %d, want 1", len(list))
	}
	got, err := svc.GetRecurring(ctx, saved.ID)
	if err != nil || got.Category != "Utilities" {
		t.Fatalf("GetRecurring = %+v, %v", got, err)
	}
	if err := svc.DeleteRecurring(ctx, saved.ID); err != nil {
		t.Fatalf("DeleteRecurring: %v", err)
	}
	if _, err := svc.GetRecurring(ctx, saved.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetRecurring(deleted) error = %v, want ErrNotFound", err)
	}

	if err := svc.Close(); err != nil || !pub.closed {
		t.Errorf("Close() = %v, publisher closed = %v", err, pub.closed)
	}
}
