package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"dompet/internal/core"
	"dompet/internal/log"
	ports "dompet/internal/sheets"
)

// Ensure interface conformance
var _ ports.Mirror = (*Client)(nil)

// Config selects the spreadsheet and the service account used to reach it.
type Config struct {
	SpreadsheetID string
	// Base sheet name without year (e.g. "Transactions"); the transaction's
	// year is prefixed automatically.
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// Client mirrors transactions into one sheet per year, one row per
// transaction keyed by ID in column A.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	logger        *log.Logger

	// mu serializes find-then-write so two writers never append the same ID.
	mu       sync.Mutex
	sheetIDs map[string]int64
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	creds, err := credentialsOption(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx, creds, goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	base := strings.TrimSpace(cfg.SheetName)
	if base == "" {
		base = "Transactions"
	}
	logger.InfoContext(ctx, "Google Sheets service created",
		"spreadsheet_id", cfg.SpreadsheetID,
		"sheet", base)

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetBase:     base,
		logger:        logger,
		sheetIDs:      make(map[string]int64),
	}, nil
}

// credentialsOption prefers inline JSON, then the configured file, then
// GOOGLE_APPLICATION_CREDENTIALS.
func credentialsOption(cfg Config) (goption.ClientOption, error) {
	if js := strings.TrimSpace(cfg.CredentialsJSON); js != "" {
		return goption.WithCredentialsJSON([]byte(js)), nil
	}
	file := strings.TrimSpace(cfg.CredentialsFile)
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if file == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	if _, err := os.Stat(file); err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return goption.WithCredentialsFile(file), nil
}

// Upsert writes the transaction's row, updating it in place when the ID is
// already present and appending otherwise.
func (c *Client) Upsert(ctx context.Context, t core.Transaction) (string, error) {
	if t.ID <= 0 {
		return "", fmt.Errorf("transaction without id: %w", core.ErrNotFound)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	sheet := yearPrefixedName(c.sheetBase, t.Date.Year())
	if _, err := c.ensureSheet(ctx, sheet); err != nil {
		return "", err
	}

	ids, err := c.readIDs(ctx, sheet)
	if err != nil {
		return "", err
	}
	row := findRow(ids, t.ID)
	op := "update"
	if row == 0 {
		// Next row is number of existing rows + 1
		row = len(ids) + 1
		op = "append"
	}

	ref := rowRange(sheet, row)
	vr := &gsheet.ValueRange{Values: [][]any{transactionRow(t)}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, ref, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to write %s: %w", ref, err)
	}

	c.logger.DebugContext(ctx, "Transaction row written",
		log.FieldTransactionID, t.ID,
		log.FieldVersion, t.Version,
		"row_ref", ref,
		"op", op)
	return ref, nil
}

// Delete removes the transaction's row. A missing row is not an error.
func (c *Client) Delete(ctx context.Context, t core.Transaction) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	sheet := yearPrefixedName(c.sheetBase, t.Date.Year())
	sheetID, err := c.ensureSheet(ctx, sheet)
	if err != nil {
		return err
	}
	ids, err := c.readIDs(ctx, sheet)
	if err != nil {
		return err
	}
	row := findRow(ids, t.ID)
	if row == 0 {
		c.logger.WarnContext(ctx, "Row not found for deleted transaction",
			log.FieldTransactionID, t.ID, "sheet", sheet)
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:         sheetID,
					Dimension:       "ROWS",
					StartIndex:      int64(row - 1),
					EndIndex:        int64(row),
					ForceSendFields: []string{"SheetId"},
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d in %s: %w", row, sheet, err)
	}

	c.logger.DebugContext(ctx, "Transaction row deleted",
		log.FieldTransactionID, t.ID, "sheet", sheet, "row", row)
	return nil
}

func (c *Client) readIDs(ctx context.Context, sheet string) ([][]any, error) {
	rng := quoteSheet(sheet) + "!A:A"
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// ensureSheet returns the numeric ID of the named sheet, creating it with a
// header row when the year has no sheet yet. Callers hold c.mu.
func (c *Client) ensureSheet(ctx context.Context, title string) (int64, error) {
	if id, ok := c.sheetIDs[title]; ok {
		return id, nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			c.sheetIDs[s.Properties.Title] = s.Properties.SheetId
		}
	}
	if id, ok := c.sheetIDs[title]; ok {
		return id, nil
	}

	resp, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}}}},
	}).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("create sheet %s: %w", title, err)
	}
	var id int64
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil && resp.Replies[0].AddSheet.Properties != nil {
		id = resp.Replies[0].AddSheet.Properties.SheetId
	}
	c.sheetIDs[title] = id

	header := make([]any, len(ports.Header))
	for i, h := range ports.Header {
		header[i] = h
	}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rowRange(title, 1), &gsheet.ValueRange{Values: [][]any{header}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("write header in %s: %w", title, err)
	}

	c.logger.InfoContext(ctx, "Created sheet", "sheet", title, "sheet_id", id)
	return id, nil
}
