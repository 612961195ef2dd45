// Package google implements the ledger mirror on the Google Sheets API.
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

	"busticket/internal/log"
	ports "busticket/internal/sheets"
)

var _ ports.LedgerMirror = (*Client)(nil)

type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger

	mu      sync.Mutex
	sheetID *int64
}

// NewFromConfig builds a service-account authenticated client. Extra options
// are appended after the credentials.
func NewFromConfig(ctx context.Context, cfg Config, logger *log.Logger, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}

	all := append([]goption.ClientOption{
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, opts...)
	svc, err := gsheet.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return New(svc, cfg.SpreadsheetID, cfg.SheetName, logger), nil
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// New wraps an existing service.
func New(svc *gsheet.Service, spreadsheetID, sheetName string, logger *log.Logger) *Client {
	if sheetName == "" {
		sheetName = "Ledger"
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger.WithComponent(log.ComponentSheets),
	}
}

func (c *Client) rng(cells string) string {
	return fmt.Sprintf("%s!%s", c.sheetName, cells)
}

// EnsureHeader writes the header row when A1:F1 is empty.
func (c *Client) EnsureHeader(ctx context.Context) error {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.rng("A1:F1")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", c.sheetName, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}
	vr := &gsheet.ValueRange{Values: [][]any{ports.Header}}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.rng("A1:F1"), vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write header of %s: %w", c.sheetName, err)
	}
	c.logger.InfoContext(ctx, "Header row written", "sheet", c.sheetName)
	return nil
}

// AppendEntry adds row unless its id is already present.
func (c *Client) AppendEntry(ctx context.Context, row ports.Row) error {
	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	if findRowByID(ids, row.ID) >= 0 {
		c.logger.DebugContext(ctx, "Row already mirrored", log.FieldEntryID, row.ID)
		return nil
	}

	vr := &gsheet.ValueRange{Values: [][]any{row.Values()}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.rng("A:F"), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append %s to %s: %w", row.ID, c.sheetName, err)
	}

	ref := ""
	if resp != nil && resp.Updates != nil {
		ref = resp.Updates.UpdatedRange
	}
	c.logger.InfoContext(ctx, "Row appended",
		log.FieldOperation, log.OpAppend, log.FieldEntryID, row.ID, "range", ref)
	return nil
}

// DeleteEntry removes the row whose column A equals id. A missing row is
// not an error.
func (c *Client) DeleteEntry(ctx context.Context, id string) error {
	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	idx := findRowByID(ids, id)
	if idx < 0 {
		c.logger.DebugContext(ctx, "Row to delete not found", log.FieldEntryID, id)
		return nil
	}

	sheetID, err := c.lookupSheetID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:         sheetID,
					Dimension:       "ROWS",
					StartIndex:      int64(idx),
					EndIndex:        int64(idx + 1),
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d (%s) from %s: %w", idx+1, id, c.sheetName, err)
	}

	c.logger.InfoContext(ctx, "Row deleted",
		log.FieldOperation, log.OpDelete, log.FieldEntryID, id, "row", idx+1)
	return nil
}

func (c *Client) readIDs(ctx context.Context) ([][]any, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.rng("A:A")).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read ids from %s: %w", c.sheetName, err)
	}
	return resp.Values, nil
}

func (c *Client) lookupSheetID(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sheetID != nil {
		return *c.sheetID, nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet properties: %w", err)
	}
	id, ok := sheetIDByTitle(ss.Sheets, c.sheetName)
	if !ok {
		return 0, fmt.Errorf("sheet %q not found in spreadsheet", c.sheetName)
	}
	c.sheetID = &id
	return id, nil
}
