package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dompet/internal/amqp"
	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/storage"
)

// EventPublisher announces ledger changes to the sheets mirror.
type EventPublisher interface {
	PublishTransactionSync(ctx context.Context, id, version int64) error
	PublishTransactionDelete(ctx context.Context, msg *amqp.TransactionDeleteMessage) error
	Close() error
}

// LedgerService orchestrates account and transaction operations across the
// store and the event publisher. Balance reconciliation happens inside the
// store so that it is atomic with the row change.
type LedgerService struct {
	store     storage.LedgerStore
	publisher EventPublisher
	logger    *log.Logger
	events    *log.StructuredLogger
}

// NewLedgerService wires a store and an optional publisher. A nil publisher
// disables the sheets mirror.
func NewLedgerService(store storage.LedgerStore, publisher EventPublisher, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithComponent(log.ComponentLedger)
	return &LedgerService{
		store:     store,
		publisher: publisher,
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
	}
}

func (s *LedgerService) CreateAccount(ctx context.Context, name string, opening core.Money) (core.Account, error) {
	a := core.Account{Name: strings.TrimSpace(name), Balance: opening}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	return s.store.CreateAccount(ctx, a)
}

func (s *LedgerService) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	return s.store.GetAccount(ctx, id)
}

func (s *LedgerService) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return s.store.ListAccounts(ctx)
}

// RecordTransaction stores a new transaction, applies it to the account
// balance and announces it for syncing.
func (s *LedgerService) RecordTransaction(ctx context.Context, t core.Transaction) (core.Transaction, core.Account, error) {
	t = normalize(t)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, core.Account{}, err
	}

	saved, account, err := s.store.AddTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, core.Account{}, fmt.Errorf("record transaction: %w", err)
	}

	s.events.LogTransactionRecorded(ctx, log.OpCreate, saved.ID, saved.AccountID,
		saved.Description, saved.Amount.String(), saved.Kind(), saved.Category, account.Balance.String())
	s.publishSync(ctx, saved)
	return saved, account, nil
}

// EditTransaction replaces an existing transaction. Moving it to another
// account is allowed.
func (s *LedgerService) EditTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID <= 0 {
		return core.Transaction{}, fmt.Errorf("transaction id %d: %w", t.ID, core.ErrNotFound)
	}
	t = normalize(t)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	saved, err := s.store.UpdateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("edit transaction: %w", err)
	}

	account, err := s.store.GetAccount(ctx, saved.AccountID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("reload account: %w", err)
	}
	s.events.LogTransactionRecorded(ctx, log.OpUpdate, saved.ID, saved.AccountID,
		saved.Description, saved.Amount.String(), saved.Kind(), saved.Category, account.Balance.String())
	s.publishSync(ctx, saved)
	return saved, nil
}

// DeleteTransaction removes a transaction and reverses its balance effect.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	deleted, err := s.store.DeleteTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("delete transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldTransactionID, deleted.ID,
		log.FieldAccountID, deleted.AccountID,
		log.FieldAmount, deleted.Amount.String(),
		log.FieldKind, deleted.Kind())

	if s.publisher != nil {
		if err := s.publisher.PublishTransactionDelete(ctx, amqp.NewTransactionDeleteMessage(deleted)); err != nil {
			// Deletes are not retried; the mirror keeps the row until removed by hand.
			s.logger.ErrorContext(ctx, "Failed to publish delete message",
				log.FieldTransactionID, deleted.ID, log.FieldError, err)
		}
	}
	return deleted, nil
}

func (s *LedgerService) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

func (s *LedgerService) ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error) {
	if f.Month != 0 && (f.Month < 1 || f.Month > 12) {
		return nil, core.ErrInvalidMonth
	}
	return s.store.ListTransactions(ctx, f)
}

func (s *LedgerService) MonthOverview(ctx context.Context, year, month int) (core.MonthOverview, error) {
	if month < 1 || month > 12 {
		return core.MonthOverview{}, core.ErrInvalidMonth
	}
	return s.store.ReadMonthOverview(ctx, year, month)
}

func (s *LedgerService) CreateRecurring(ctx context.Context, re core.RecurringTransaction) (core.RecurringTransaction, error) {
	re.Description = strings.TrimSpace(re.Description)
	re.Category = strings.TrimSpace(re.Category)
	if err := re.Validate(); err != nil {
		return core.RecurringTransaction{}, err
	}
	saved, err := s.store.CreateRecurring(ctx, re)
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("create recurring transaction: %w", err)
	}
	s.logger.InfoContext(ctx, "Recurring transaction created",
		log.FieldRecurringID, saved.ID,
		log.FieldAccountID, saved.AccountID,
		log.FieldAmount, saved.Amount.String(),
		"every", string(saved.Every))
	return saved, nil
}

func (s *LedgerService) GetRecurring(ctx context.Context, id int64) (core.RecurringTransaction, error) {
	return s.store.GetRecurring(ctx, id)
}

func (s *LedgerService) ListRecurring(ctx context.Context) ([]core.RecurringTransaction, error) {
	return s.store.ListRecurring(ctx)
}

func (s *LedgerService) DeleteRecurring(ctx context.Context, id int64) error {
	return s.store.DeleteRecurring(ctx, id)
}

func (s *LedgerService) publishSync(ctx context.Context, t core.Transaction) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not configured, skipping sync message", log.FieldTransactionID, t.ID)
		return
	}
	if err := s.publisher.PublishTransactionSync(ctx, t.ID, t.Version); err != nil {
		// Row stays pending and is picked up by the catch-up job.
		s.logger.ErrorContext(ctx, "Failed to publish sync message",
			log.FieldTransactionID, t.ID, log.FieldVersion, t.Version, log.FieldError, err)
	}
}

// Close closes both the store and the publisher.
func (s *LedgerService) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	return errors.Join(errs...)
}

func normalize(t core.Transaction) core.Transaction {
	t.Description = strings.TrimSpace(t.Description)
	t.Category = strings.TrimSpace(t.Category)
	return t
}
