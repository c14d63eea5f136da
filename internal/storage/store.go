package storage

import (
	"context"
	"errors"
	"time"

	"dompet/internal/core"
)

// ErrStaleVersion is returned by MarkSynced when the transaction has been
// edited since the version being acknowledged.
var ErrStaleVersion = errors.New("stale transaction version")

// SyncStatus tracks whether a transaction has been mirrored to Google Sheets.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
	SyncError   SyncStatus = "error"
)

// TransactionFilter narrows ListTransactions. Zero fields match everything;
// Month is only honoured together with Year.
type TransactionFilter struct {
	AccountID int64
	Year      int
	Month     int
}

// PendingSync is the minimal data needed to enqueue a sync message.
type PendingSync struct {
	ID        int64
	Version   int64
	CreatedAt time.Time
}

// Ports implemented by both the SQLite repository and the memory store.
// Every mutation that touches an account balance runs the ledger
// reconciliation and the row change as one atomic unit.
type (
	AccountStore interface {
		CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
		GetAccount(ctx context.Context, id int64) (core.Account, error)
		ListAccounts(ctx context.Context) ([]core.Account, error)
	}

	TransactionStore interface {
		// AddTransaction records t and applies its effect to the account balance.
		AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, core.Account, error)
		// UpdateTransaction replaces the stored transaction with t, reversing
		// the old effect and applying the new one. A changed AccountID moves
		// the effect between accounts.
		UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		// DeleteTransaction removes the transaction, reverses its effect and
		// returns the row as it was before deletion.
		DeleteTransaction(ctx context.Context, id int64) (core.Transaction, error)
		GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
		ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
		ReadMonthOverview(ctx context.Context, year, month int) (core.MonthOverview, error)
	}

	RecurringStore interface {
		CreateRecurring(ctx context.Context, re core.RecurringTransaction) (core.RecurringTransaction, error)
		GetRecurring(ctx context.Context, id int64) (core.RecurringTransaction, error)
		ListRecurring(ctx context.Context) ([]core.RecurringTransaction, error)
		DeleteRecurring(ctx context.Context, id int64) error
		MarkRecurringExecuted(ctx context.Context, id int64, at time.Time) error
	}

	SyncStore interface {
		PendingSync(ctx context.Context, limit int) ([]PendingSync, error)
		// MarkSynced only succeeds for the given version so a newer edit
		// stays pending.
		MarkSynced(ctx context.Context, id, version int64) error
		MarkSyncError(ctx context.Context, id int64) error
	}

	LedgerStore interface {
		AccountStore
		TransactionStore
		RecurringStore
		SyncStore
		Close() error
	}
)

var (
	_ LedgerStore = (*SQLiteRepository)(nil)
	_ LedgerStore = (*MemoryStore)(nil)
)

// monthRange returns the [from, to) date strings covering the filter period.
func monthRange(year, month int) (string, string, bool) {
	if year <= 0 {
		return "", "", false
	}
	if month < 1 || month > 12 {
		from := core.NewDate(year, 1, 1)
		return from.String(), core.NewDate(year+1, 1, 1).String(), true
	}
	from := core.NewDate(year, month, 1)
	return from.String(), core.Date{Time: from.AddDate(0, 1, 0)}.String(), true
}
