package services

import (
	"context"
	"fmt"
	"time"

	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/storage"
)

// TransactionRecorder is the part of LedgerService the processor needs.
type TransactionRecorder interface {
	RecordTransaction(ctx context.Context, t core.Transaction) (core.Transaction, core.Account, error)
}

// RecurringProcessor materializes due recurring templates into real
// transactions through the ledger, so balances stay reconciled.
type RecurringProcessor struct {
	templates storage.RecurringStore
	ledger    TransactionRecorder
	logger    *log.Logger
}

func NewRecurringProcessor(templates storage.RecurringStore, ledger TransactionRecorder, logger *log.Logger) *RecurringProcessor {
	if logger == nil {
		logger = log.Default()
	}
	return &RecurringProcessor{
		templates: templates,
		ledger:    ledger,
		logger:    logger.WithComponent(log.ComponentRecurring),
	}
}

// ProcessDue records every template that is active and due on now and
// returns how many transactions were created. A failing template is logged
// and skipped.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.templates == nil || p.ledger == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	templates, err := p.templates.ListRecurring(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recurring transactions: %w", err)
	}

	p.logger.InfoContext(ctx, "Processing recurring transactions",
		"total", len(templates),
		"processing_date", now.Format("2006-01-02"))

	processed := 0
	for _, re := range templates {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		if !re.ActiveOn(now) {
			continue
		}

		checker, err := GetDuenessChecker(re.Every)
		if err != nil {
			p.logger.ErrorContext(ctx, "Skipping recurring transaction",
				log.FieldRecurringID, re.ID, log.FieldError, err)
			continue
		}
		if !checker.IsDue(re.LastExecution, now, re.StartDate) {
			continue
		}

		tx, account, err := p.ledger.RecordTransaction(ctx, re.Instantiate(now))
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to record transaction from recurring template",
				log.FieldRecurringID, re.ID,
				log.FieldDescription, re.Description,
				log.FieldError, err)
			continue
		}

		if err := p.templates.MarkRecurringExecuted(ctx, re.ID, now); err != nil {
			// The transaction exists; the next run would record it twice.
			p.logger.ErrorContext(ctx, "Failed to update last execution date",
				log.FieldRecurringID, re.ID, log.FieldError, err)
		}

		processed++
		p.logger.InfoContext(ctx, "Recorded transaction from recurring template",
			log.FieldRecurringID, re.ID,
			log.FieldTransactionID, tx.ID,
			log.FieldAmount, tx.Amount.String(),
			log.FieldBalance, account.Balance.String(),
			"every", string(re.Every))
	}

	p.logger.InfoContext(ctx, "Recurring processing complete",
		"processed", processed,
		"total_checked", len(templates))
	return processed, nil
}
