package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dompet/internal/core"
	"dompet/internal/ledger"
	"dompet/internal/log"

	_ "modernc.org/sqlite"
)

const (
	timestampLayout = time.RFC3339Nano

	accountColumns   = "id, name, balance_cents, created_at, updated_at"
	txColumns        = "id, account_id, date, description, amount_cents, is_expense, category, version, created_at, updated_at"
	recurringColumns = "id, account_id, start_date, end_date, repetition_type, description, amount_cents, is_expense, category, last_execution_date"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
	now    func() time.Time
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithComponent(log.ComponentStorage)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serializes writers, so every read-reconcile-write
	// sequence below sees a consistent balance.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("SQLite repository ready", "db_path", dbPath, "schema_version", version)

	return &SQLiteRepository{db: db, logger: logger, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) timestamp() (time.Time, string) {
	now := r.now().UTC()
	return now, now.Format(timestampLayout)
}

// Accounts

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	now, ts := r.timestamp()
	a.Balance = a.Balance.Rounded()

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (name, balance_cents, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		a.Name, a.Balance.Cents(), ts, ts)
	if err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}
	if a.ID, err = res.LastInsertId(); err != nil {
		return core.Account{}, fmt.Errorf("read account id: %w", err)
	}
	a.CreatedAt, a.UpdatedAt = now, now

	r.logger.InfoContext(ctx, "Account created",
		log.FieldAccountID, a.ID,
		"name", a.Name,
		log.FieldBalance, a.Balance.String())
	return a, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	return getAccount(ctx, r.db, id)
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func getAccount(ctx context.Context, q querier, id int64) (core.Account, error) {
	row := q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("account %d: %w", id, core.ErrNotFound)
	}
	return a, err
}

func saveBalance(ctx context.Context, q querier, a core.Account, ts string) error {
	_, err := q.ExecContext(ctx,
		`UPDATE accounts SET balance_cents = ?, updated_at = ? WHERE id = ?`,
		a.Balance.Cents(), ts, a.ID)
	if err != nil {
		return fmt.Errorf("update balance of account %d: %w", a.ID, err)
	}
	return nil
}

func scanAccount(s scanner) (core.Account, error) {
	var (
		a                    core.Account
		cents                int64
		createdAt, updatedAt string
	)
	if err := s.Scan(&a.ID, &a.Name, &cents, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, err
		}
		return a, fmt.Errorf("scan account: %w", err)
	}
	a.Balance = core.MoneyFromCents(cents)
	a.CreatedAt = parseTimestamp(createdAt)
	a.UpdatedAt = parseTimestamp(updatedAt)
	return a, nil
}

// Transactions

func (r *SQLiteRepository) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, core.Account, error) {
	var account core.Account
	now, ts := r.timestamp()
	t.Amount = t.Amount.Rounded()

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if account, err = getAccount(ctx, tx, t.AccountID); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (account_id, date, description, amount_cents, is_expense, category, version, sync_status, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?, ?)`,
			t.AccountID, t.Date.String(), t.Description, t.Amount.Cents(), t.IsExpense, t.Category, string(SyncPending), ts, ts)
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		if t.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("read transaction id: %w", err)
		}

		account.Balance = ledger.ApplyAdd(account.Balance, t.Amount, t.IsExpense)
		account.UpdatedAt = now
		return saveBalance(ctx, tx, account, ts)
	})
	if err != nil {
		return core.Transaction{}, core.Account{}, err
	}

	t.Version = 1
	t.CreatedAt, t.UpdatedAt = now, now
	return t, account, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now, ts := r.timestamp()
	t.Amount = t.Amount.Rounded()

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		old, err := getTransaction(ctx, tx, t.ID)
		if err != nil {
			return err
		}

		source, err := getAccount(ctx, tx, old.AccountID)
		if err != nil {
			return err
		}

		if old.AccountID == t.AccountID {
			source.Balance = ledger.ApplyEdit(source.Balance, old.Amount, old.IsExpense, t.Amount, t.IsExpense)
		} else {
			target, err := getAccount(ctx, tx, t.AccountID)
			if err != nil {
				return err
			}
			source.Balance, target.Balance = ledger.Move(source.Balance, target.Balance, ledger.EffectOf(old), ledger.EffectOf(t))
			if err := saveBalance(ctx, tx, target, ts); err != nil {
				return err
			}
		}
		if err := saveBalance(ctx, tx, source, ts); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE transactions
			 SET account_id = ?, date = ?, description = ?, amount_cents = ?, is_expense = ?, category = ?,
			     version = version + 1, sync_status = ?, updated_at = ?
			 WHERE id = ?`,
			t.AccountID, t.Date.String(), t.Description, t.Amount.Cents(), t.IsExpense, t.Category,
			string(SyncPending), ts, t.ID)
		if err != nil {
			return fmt.Errorf("update transaction %d: %w", t.ID, err)
		}

		t.Version = old.Version + 1
		t.CreatedAt = old.CreatedAt
		t.UpdatedAt = now
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	var old core.Transaction
	now, ts := r.timestamp()

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if old, err = getTransaction(ctx, tx, id); err != nil {
			return err
		}
		account, err := getAccount(ctx, tx, old.AccountID)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE transactions SET deleted_at = ?, updated_at = ?, version = version + 1 WHERE id = ?`,
			ts, ts, id); err != nil {
			return fmt.Errorf("delete transaction %d: %w", id, err)
		}

		account.Balance = ledger.ApplyDelete(account.Balance, old.Amount, old.IsExpense)
		account.UpdatedAt = now
		return saveBalance(ctx, tx, account, ts)
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return old, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return getTransaction(ctx, r.db, id)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE deleted_at IS NULL`
	var args []any
	if f.AccountID > 0 {
		query += ` AND account_id = ?`
		args = append(args, f.AccountID)
	}
	if from, to, ok := monthRange(f.Year, f.Month); ok {
		query += ` AND date >= ? AND date < ?`
		args = append(args, from, to)
	}
	query += ` ORDER BY date, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (r *SQLiteRepository) ReadMonthOverview(ctx context.Context, year, month int) (core.MonthOverview, error) {
	txs, err := r.ListTransactions(ctx, TransactionFilter{Year: year, Month: month})
	if err != nil {
		return core.MonthOverview{}, fmt.Errorf("read month overview: %w", err)
	}
	return core.SummarizeMonth(year, month, txs), nil
}

func getTransaction(ctx context.Context, q querier, id int64) (core.Transaction, error) {
	row := q.QueryRowContext(ctx, `SELECT `+txColumns+` FROM transactions WHERE id = ? AND deleted_at IS NULL`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return t, err
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t                    core.Transaction
		date                 string
		cents                int64
		createdAt, updatedAt string
	)
	err := s.Scan(&t.ID, &t.AccountID, &date, &t.Description, &cents, &t.IsExpense, &t.Category, &t.Version, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, err
		}
		return t, fmt.Errorf("scan transaction: %w", err)
	}
	if t.Date, err = core.ParseDate(date); err != nil {
		return t, fmt.Errorf("transaction %d: %w", t.ID, err)
	}
	t.Amount = core.MoneyFromCents(cents)
	t.CreatedAt = parseTimestamp(createdAt)
	t.UpdatedAt = parseTimestamp(updatedAt)
	return t, nil
}

// Recurring templates

func (r *SQLiteRepository) CreateRecurring(ctx context.Context, re core.RecurringTransaction) (core.RecurringTransaction, error) {
	if _, err := getAccount(ctx, r.db, re.AccountID); err != nil {
		return core.RecurringTransaction{}, err
	}
	_, ts := r.timestamp()
	re.Amount = re.Amount.Rounded()

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_transactions (account_id, start_date, end_date, repetition_type, description, amount_cents, is_expense, category, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		re.AccountID, re.StartDate.String(), nullString(re.EndDate.String()), string(re.Every),
		re.Description, re.Amount.Cents(), re.IsExpense, re.Category, ts)
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("insert recurring transaction: %w", err)
	}
	if re.ID, err = res.LastInsertId(); err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("read recurring id: %w", err)
	}
	return re, nil
}

func (r *SQLiteRepository) GetRecurring(ctx context.Context, id int64) (core.RecurringTransaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recurringColumns+` FROM recurring_transactions WHERE id = ?`, id)
	re, err := scanRecurring(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringTransaction{}, fmt.Errorf("recurring transaction %d: %w", id, core.ErrNotFound)
	}
	return re, err
}

func (r *SQLiteRepository) ListRecurring(ctx context.Context) ([]core.RecurringTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+recurringColumns+` FROM recurring_transactions ORDER BY start_date, id`)
	if err != nil {
		return nil, fmt.Errorf("list recurring transactions: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringTransaction
	for rows.Next() {
		re, err := scanRecurring(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteRecurring(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recurring_transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recurring transaction %d: %w", id, err)
	}
	return expectOneRow(res, fmt.Sprintf("recurring transaction %d", id))
}

func (r *SQLiteRepository) MarkRecurringExecuted(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_transactions SET last_execution_date = ? WHERE id = ?`,
		at.UTC().Format(timestampLayout), id)
	if err != nil {
		return fmt.Errorf("update last execution of %d: %w", id, err)
	}
	return expectOneRow(res, fmt.Sprintf("recurring transaction %d", id))
}

func scanRecurring(s scanner) (core.RecurringTransaction, error) {
	var (
		re                 core.RecurringTransaction
		start, every       string
		end, lastExecution sql.NullString
		cents              int64
	)
	err := s.Scan(&re.ID, &re.AccountID, &start, &end, &every, &re.Description, &cents, &re.IsExpense, &re.Category, &lastExecution)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return re, err
		}
		return re, fmt.Errorf("scan recurring transaction: %w", err)
	}
	if re.StartDate, err = core.ParseDate(start); err != nil {
		return re, fmt.Errorf("recurring %d start date: %w", re.ID, err)
	}
	if end.Valid && end.String != "" {
		if re.EndDate, err = core.ParseDate(end.String); err != nil {
			return re, fmt.Errorf("recurring %d end date: %w", re.ID, err)
		}
	}
	re.Every = core.RepetitionTypes(every)
	re.Amount = core.MoneyFromCents(cents)
	if lastExecution.Valid {
		re.LastExecution = parseTimestamp(lastExecution.String)
	}
	return re, nil
}

// Sync bookkeeping

func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]PendingSync, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, version, created_at FROM transactions
		 WHERE deleted_at IS NULL AND sync_status IN (?, ?)
		 ORDER BY id LIMIT ?`,
		string(SyncPending), string(SyncError), limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	defer rows.Close()

	var out []PendingSync
	for rows.Next() {
		var (
			p         PendingSync
			createdAt string
		)
		if err := rows.Scan(&p.ID, &p.Version, &createdAt); err != nil {
			return nil, fmt.Errorf("scan pending sync: %w", err)
		}
		p.CreatedAt = parseTimestamp(createdAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id, version int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = ? WHERE id = ? AND version = ? AND deleted_at IS NULL`,
		string(SyncSynced), id, version)
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		r.logger.InfoContext(ctx, "Transaction marked as synced", log.FieldTransactionID, id, log.FieldVersion, version)
		return nil
	}

	if _, err := getTransaction(ctx, r.db, id); err != nil {
		return err
	}
	return fmt.Errorf("transaction %d version %d: %w", id, version, ErrStaleVersion)
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = ? WHERE id = ?`, string(SyncError), id); err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	r.logger.WarnContext(ctx, "Transaction marked with sync error", log.FieldTransactionID, id)
	return nil
}

func expectOneRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
