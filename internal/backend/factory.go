package backend

import (
	"context"
	"errors"
	"fmt"

	"dompet/internal/amqp"
	"dompet/internal/config"
	"dompet/internal/log"
	"dompet/internal/sheets"
	gsheet "dompet/internal/sheets/google"
	"dompet/internal/sheets/memory"
	"dompet/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Default()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var store storage.LedgerStore
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		store = repo
	case MemoryBackend:
		store = storage.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	client, err := f.connectAMQP(ctx, config)
	if err != nil {
		store.Close()
		return nil, err
	}

	f.logger.InfoContext(ctx, "Initialized ledger backend",
		"type", config.Type.String(),
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", client != nil)

	return &Result{
		Store: store,
		AMQP:  client,
		Cleanup: func() error {
			var errs []error
			if client != nil {
				if err := client.Close(); err != nil {
					errs = append(errs, fmt.Errorf("amqp: %w", err))
				}
			}
			if err := store.Close(); err != nil {
				errs = append(errs, fmt.Errorf("storage: %w", err))
			}
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) connectAMQP(ctx context.Context, config Config) (*amqp.Client, error) {
	if config.AMQPURL == "" {
		return nil, nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
	if err != nil {
		if config.AMQPRequired {
			return nil, fmt.Errorf("failed to connect to AMQP: %w", err)
		}
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without sync", log.FieldError, err)
		return nil, nil
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client, nil
}

// NewMirror returns the Google Sheets writer when a spreadsheet is
// configured, and an in-memory mirror otherwise.
func NewMirror(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.Mirror, error) {
	if logger == nil {
		logger = log.Default()
	}
	if !cfg.SheetsEnabled() {
		logger.WithComponent(log.ComponentBackend).WarnContext(ctx, "GOOGLE_SPREADSHEET_ID not set, mirroring transactions in memory only")
		return memory.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	return client, nil
}
