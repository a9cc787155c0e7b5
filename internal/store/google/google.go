// Package google stores expenses in a Google Sheets spreadsheet through the
// Sheets API v4, authenticated with a service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"gastos/internal/core"
	"gastos/internal/store"
	"gastos/internal/store/tabular"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

var _ store.Store = (*Client)(nil)

// Config selects the spreadsheet and the credentials used to reach it.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
	// Timestamped sheets keep a submission timestamp in column A, ahead of
	// the fixed header. Appends fill it with the current time.
	Timestamped bool
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	timestamped   bool
	now           func() time.Time
	logger        *slog.Logger
}

// New creates a Sheets client from service account credentials.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	credentialsJSON, err := readCredentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
		goption.WithHTTPClient(newHTTPClientWithPooling()))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg, logger), nil
}

// NewWithService wraps an already configured service.
func NewWithService(svc *gsheet.Service, cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = "Gastos"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		sheetName:     sheet,
		timestamped:   cfg.Timestamped,
		now:           time.Now,
		logger:        logger.With("component", "sheets_store", "sheet", sheet),
	}
}

// readCredentials resolves inline JSON, a file path, or GOOGLE_APPLICATION_CREDENTIALS.
func readCredentials(cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// newHTTPClientWithPooling creates an HTTP client for the Sheets API with
// connection pooling and bounded timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

func (c *Client) Name() string { return "sheets" }

func (c *Client) lastColumn() string {
	if c.timestamped {
		return "G"
	}
	return "F"
}

// Append adds one row below the last row of the table. The API inserts the
// row server-side, so concurrent appends cannot overwrite each other. Cells
// are written RAW so a note like "=1+1" or "0012" is stored as typed.
func (c *Client) Append(ctx context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	row := make([]any, 0, len(tabular.Header)+1)
	if c.timestamped {
		row = append(row, c.now().Format("2006-01-02 15:04:05"))
	}
	for _, cell := range tabular.EncodeRow(e) {
		row = append(row, cell)
	}

	rng := fmt.Sprintf("%s!A:%s", c.sheetName, c.lastColumn())
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{row}}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", c.sheetName, err)
	}
	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	c.logger.DebugContext(ctx, "Row appended", "range", ref)
	return ref, nil
}

// Load reads the whole table including its header row.
func (c *Client) Load(ctx context.Context) ([]core.Expense, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:G", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	dec, err := tabular.Decode(tabular.ToStrings(resp.Values))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", rng, err)
	}
	if dec.Skipped > 0 {
		c.logger.WarnContext(ctx, "Skipped unparseable rows", "skipped", dec.Skipped)
	}
	return dec.Records, nil
}

// EnsureHeader writes the header row when the sheet is empty. It only
// touches row 1 and only when nothing is there.
func (c *Client) EnsureHeader(ctx context.Context) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	first := fmt.Sprintf("%s!A1:%s1", c.sheetName, c.lastColumn())
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, first).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", first, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}
	header := make([]any, 0, len(tabular.Header)+1)
	if c.timestamped {
		header = append(header, "Marca temporal")
	}
	for _, h := range tabular.Header {
		header = append(header, h)
	}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, first, &gsheet.ValueRange{Values: [][]any{header}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header to %s: %w", c.sheetName, err)
	}
	c.logger.InfoContext(ctx, "Header row created")
	return nil
}
