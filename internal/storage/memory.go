package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"dompet/internal/core"
	"dompet/internal/ledger"
)

type memTransaction struct {
	tx      core.Transaction
	status  SyncStatus
	deleted bool
}

// MemoryStore is a process-local LedgerStore. The mutex is held for the
// whole of each balance mutation.
type MemoryStore struct {
	mu sync.Mutex

	accounts     map[int64]core.Account
	transactions map[int64]*memTransaction
	recurring    map[int64]core.RecurringTransaction
	nextID       int64

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:     make(map[int64]core.Account),
		transactions: make(map[int64]*memTransaction),
		recurring:    make(map[int64]core.RecurringTransaction),
		now:          time.Now,
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemoryStore) CreateAccount(_ context.Context, a core.Account) (core.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	a.ID = m.id()
	a.Balance = a.Balance.Rounded()
	a.CreatedAt, a.UpdatedAt = now, now
	m.accounts[a.ID] = a
	return a, nil
}

func (m *MemoryStore) GetAccount(_ context.Context, id int64) (core.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.account(id)
}

func (m *MemoryStore) account(id int64) (core.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return core.Account{}, fmt.Errorf("account %d: %w", id, core.ErrNotFound)
	}
	return a, nil
}

func (m *MemoryStore) ListAccounts(_ context.Context) ([]core.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]core.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) AddTransaction(_ context.Context, t core.Transaction) (core.Transaction, core.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, err := m.account(t.AccountID)
	if err != nil {
		return core.Transaction{}, core.Account{}, err
	}

	now := m.now().UTC()
	t.ID = m.id()
	t.Amount = t.Amount.Rounded()
	t.Version = 1
	t.CreatedAt, t.UpdatedAt = now, now
	m.transactions[t.ID] = &memTransaction{tx: t, status: SyncPending}

	account.Balance = ledger.ApplyAdd(account.Balance, t.Amount, t.IsExpense)
	account.UpdatedAt = now
	m.accounts[account.ID] = account
	return t, account, nil
}

func (m *MemoryStore) UpdateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, err := m.live(t.ID)
	if err != nil {
		return core.Transaction{}, err
	}
	old := row.tx

	source, err := m.account(old.AccountID)
	if err != nil {
		return core.Transaction{}, err
	}
	now := m.now().UTC()
	t.Amount = t.Amount.Rounded()

	if old.AccountID == t.AccountID {
		source.Balance = ledger.ApplyEdit(source.Balance, old.Amount, old.IsExpense, t.Amount, t.IsExpense)
	} else {
		target, err := m.account(t.AccountID)
		if err != nil {
			return core.Transaction{}, err
		}
		source.Balance, target.Balance = ledger.Move(source.Balance, target.Balance, ledger.EffectOf(old), ledger.EffectOf(t))
		target.UpdatedAt = now
		m.accounts[target.ID] = target
	}
	source.UpdatedAt = now
	m.accounts[source.ID] = source

	t.Version = old.Version + 1
	t.CreatedAt = old.CreatedAt
	t.UpdatedAt = now
	row.tx = t
	row.status = SyncPending
	return t, nil
}

func (m *MemoryStore) DeleteTransaction(_ context.Context, id int64) (core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, err := m.live(id)
	if err != nil {
		return core.Transaction{}, err
	}
	account, err := m.account(row.tx.AccountID)
	if err != nil {
		return core.Transaction{}, err
	}

	old := row.tx
	row.deleted = true
	row.tx.Version++

	account.Balance = ledger.ApplyDelete(account.Balance, old.Amount, old.IsExpense)
	account.UpdatedAt = m.now().UTC()
	m.accounts[account.ID] = account
	return old, nil
}

func (m *MemoryStore) live(id int64) (*memTransaction, error) {
	row, ok := m.transactions[id]
	if !ok || row.deleted {
		return nil, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return row, nil
}

func (m *MemoryStore) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, err := m.live(id)
	if err != nil {
		return core.Transaction{}, err
	}
	return row.tx, nil
}

func (m *MemoryStore) ListTransactions(_ context.Context, f TransactionFilter) ([]core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	from, to, byDate := monthRange(f.Year, f.Month)
	var out []core.Transaction
	for _, row := range m.transactions {
		if row.deleted {
			continue
		}
		if f.AccountID > 0 && row.tx.AccountID != f.AccountID {
			continue
		}
		if byDate {
			d := row.tx.Date.String()
			if d < from || d >= to {
				continue
			}
		}
		out = append(out, row.tx)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) ReadMonthOverview(ctx context.Context, year, month int) (core.MonthOverview, error) {
	txs, err := m.ListTransactions(ctx, TransactionFilter{Year: year, Month: month})
	if err != nil {
		return core.MonthOverview{}, err
	}
	return core.SummarizeMonth(year, month, txs), nil
}

func (m *MemoryStore) CreateRecurring(_ context.Context, re core.RecurringTransaction) (core.RecurringTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.account(re.AccountID); err != nil {
		return core.RecurringTransaction{}, err
	}
	re.ID = m.id()
	re.Amount = re.Amount.Rounded()
	m.recurring[re.ID] = re
	return re, nil
}

func (m *MemoryStore) GetRecurring(_ context.Context, id int64) (core.RecurringTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	re, ok := m.recurring[id]
	if !ok {
		return core.RecurringTransaction{}, fmt.Errorf("recurring transaction %d: %w", id, core.ErrNotFound)
	}
	return re, nil
}

func (m *MemoryStore) ListRecurring(_ context.Context) ([]core.RecurringTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]core.RecurringTransaction, 0, len(m.recurring))
	for _, re := range m.recurring {
		out = append(out, re)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate.Time) {
			return out[i].StartDate.Before(out[j].StartDate.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) DeleteRecurring(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.recurring[id]; !ok {
		return fmt.Errorf("recurring transaction %d: %w", id, core.ErrNotFound)
	}
	delete(m.recurring, id)
	return nil
}

func (m *MemoryStore) MarkRecurringExecuted(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	re, ok := m.recurring[id]
	if !ok {
		return fmt.Errorf("recurring transaction %d: %w", id, core.ErrNotFound)
	}
	re.LastExecution = at.UTC()
	m.recurring[id] = re
	return nil
}

func (m *MemoryStore) PendingSync(_ context.Context, limit int) ([]PendingSync, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []PendingSync
	for _, row := range m.transactions {
		if row.deleted || row.status == SyncSynced {
			continue
		}
		out = append(out, PendingSync{ID: row.tx.ID, Version: row.tx.Version, CreatedAt: row.tx.CreatedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) MarkSynced(_ context.Context, id, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, err := m.live(id)
	if err != nil {
		return err
	}
	if row.tx.Version != version {
		return fmt.Errorf("transaction %d version %d: %w", id, version, ErrStaleVersion)
	}
	row.status = SyncSynced
	return nil
}

func (m *MemoryStore) MarkSyncError(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if row, ok := m.transactions[id]; ok {
		row.status = SyncError
	}
	return nil
}
