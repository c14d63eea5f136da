package worker

import (
	"context"
	"errors"
	"fmt"

	"dompet/internal/amqp"
	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/sheets"
	"dompet/internal/storage"
)

// Store is what the worker needs from the ledger storage.
type Store interface {
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	storage.SyncStore
}

var _ amqp.Handler = (*SyncWorker)(nil)

// SyncWorker mirrors transactions from the ledger store into a spreadsheet.
type SyncWorker struct {
	store     Store
	mirror    sheets.Mirror
	batchSize int
	logger    *log.Logger
}

func NewSyncWorker(store Store, mirror sheets.Mirror, batchSize int, logger *log.Logger) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	if logger == nil {
		logger = log.Default()
	}
	return &SyncWorker{
		store:     store,
		mirror:    mirror,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleSync processes a single transaction sync message from AMQP
func (w *SyncWorker) HandleSync(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	w.logger.InfoContext(ctx, "Processing sync message",
		log.FieldTransactionID, msg.ID,
		log.FieldVersion, msg.Version)

	tx, err := w.store.GetTransaction(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted after the message was sent; the delete message handles the row.
		w.logger.InfoContext(ctx, "Transaction no longer exists, skipping sync",
			log.FieldTransactionID, msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	if tx.Version > msg.Version {
		w.logger.DebugContext(ctx, "Newer version pending, skipping stale sync message",
			log.FieldTransactionID, msg.ID,
			"message_version", msg.Version,
			"current_version", tx.Version)
		return nil
	}

	return w.sync(ctx, tx)
}

// HandleDelete removes the mirrored row of a deleted transaction.
func (w *SyncWorker) HandleDelete(ctx context.Context, msg *amqp.TransactionDeleteMessage) error {
	w.logger.InfoContext(ctx, "Processing delete message",
		log.FieldTransactionID, msg.ID,
		"timestamp", msg.Timestamp)

	tx, err := msg.Transaction()
	if err != nil {
		// Requeueing cannot fix a malformed message.
		w.logger.ErrorContext(ctx, "Dropping malformed delete message",
			log.FieldTransactionID, msg.ID, log.FieldError, err)
		return nil
	}

	if err := w.mirror.Delete(ctx, tx); err != nil {
		return fmt.Errorf("delete transaction row: %w", err)
	}

	w.logger.InfoContext(ctx, "Successfully deleted transaction row",
		log.FieldTransactionID, msg.ID)
	return nil
}

// ProcessPending syncs one batch of transactions that were never mirrored
// or failed to mirror. It backs up the message path when AMQP messages are
// lost and returns how many rows were synced.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	return w.processPending(ctx, w.batchSize)
}

// StartupSyncCheck catches up on a larger batch at worker startup, to
// recover from missed messages or worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	w.logger.InfoContext(ctx, "Startup sync completed", "synced", synced)
	return nil
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) (int, error) {
	pending, err := w.store.PendingSync(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	w.logger.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	synced, failed := 0, 0
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return synced, err
		}

		tx, err := w.store.GetTransaction(ctx, p.ID)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to get transaction",
				log.FieldTransactionID, p.ID, log.FieldError, err)
			if err := w.store.MarkSyncError(ctx, p.ID); err != nil {
				w.logger.ErrorContext(ctx, "Failed to mark sync error",
					log.FieldTransactionID, p.ID, log.FieldError, err)
			}
			failed++
			continue
		}

		if err := w.sync(ctx, tx); err != nil {
			w.logger.ErrorContext(ctx, "Failed to sync transaction",
				log.FieldTransactionID, p.ID, log.FieldError, err)
			failed++
			continue
		}
		synced++
	}

	w.logger.InfoContext(ctx, "Pending sync completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)
	return synced, nil
}

func (w *SyncWorker) sync(ctx context.Context, tx core.Transaction) error {
	ref, err := w.mirror.Upsert(ctx, tx)
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, tx.ID); markErr != nil {
			w.logger.ErrorContext(ctx, "Failed to mark sync error",
				log.FieldTransactionID, tx.ID, log.FieldError, markErr)
		}
		return fmt.Errorf("write to sheets: %w", err)
	}

	switch err := w.store.MarkSynced(ctx, tx.ID, tx.Version); {
	case errors.Is(err, storage.ErrStaleVersion):
		// Edited while we were writing; the newer version is still pending.
		w.logger.DebugContext(ctx, "Transaction changed during sync",
			log.FieldTransactionID, tx.ID, log.FieldVersion, tx.Version)
	case err != nil:
		// Don't return error here - the row was written
		w.logger.ErrorContext(ctx, "Failed to mark as synced",
			log.FieldTransactionID, tx.ID, log.FieldError, err)
	}

	w.logger.InfoContext(ctx, "Successfully synced transaction",
		log.FieldOperation, log.OpSync,
		log.FieldTransactionID, tx.ID,
		log.FieldVersion, tx.Version,
		log.FieldSheetsRef, ref,
		log.FieldAmount, tx.Amount.String(),
		log.FieldKind, tx.Kind())
	return nil
}
