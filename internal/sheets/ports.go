package sheets

import (
	"context"

	"dompet/internal/core"
)

// Ports for outbound adapters. Rows are keyed by transaction ID, so writing
// the same transaction twice updates its row in place.
type (
	TransactionWriter interface {
		Upsert(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}

	TransactionDeleter interface {
		Delete(ctx context.Context, t core.Transaction) error
	}

	// Mirror is a spreadsheet that tracks the ledger.
	Mirror interface {
		TransactionWriter
		TransactionDeleter
	}
)

// Header is the first row of every transactions sheet.
var Header = []string{"ID", "Date", "Description", "Amount", "Kind", "Category", "Account", "Version"}
