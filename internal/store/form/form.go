// Package form records expenses by submitting a public web form and reads
// them back from the CSV export of the sheet the form collects into.
package form

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gastos/internal/core"
	"gastos/internal/store"
	"gastos/internal/store/tabular"
)

const DefaultBaseURL = "https://docs.google.com/forms/d/e/"

var (
	// ErrRejected is returned when the form endpoint answers with a status
	// outside 2xx/3xx.
	ErrRejected = errors.New("form submission rejected")
	// ErrNotConfirmed is returned by verified appends when the submitted row
	// does not show up in the export.
	ErrNotConfirmed = errors.New("form submission not confirmed")
)

var _ store.Store = (*Store)(nil)

// FieldIDs are the opaque input names of the form questions, e.g. "entry.1234567".
type FieldIDs struct {
	Date        string
	Category    string
	Description string
	Amount      string
	Payer       string
	Payment     string
}

func (f FieldIDs) validate() error {
	var missing []string
	for name, v := range map[string]string{
		"date": f.Date, "category": f.Category, "description": f.Description,
		"amount": f.Amount, "payer": f.Payer, "payment": f.Payment,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing form field ids: %s", strings.Join(missing, ","))
	}
	return nil
}

type Config struct {
	FormID  string
	Fields  FieldIDs
	CSVURL  string
	BaseURL string
	// Verify reloads the export after each submission and requires the row
	// to be present.
	Verify         bool
	VerifyAttempts int
	VerifyDelay    time.Duration
	HTTPClient     *http.Client
}

// CSVLoader reads the dataset from a public CSV export URL.
type CSVLoader struct {
	URL    string
	Client *http.Client
	logger *slog.Logger
}

func NewCSVLoader(rawURL string, client *http.Client, logger *slog.Logger) *CSVLoader {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVLoader{URL: rawURL, Client: client, logger: logger.With("component", "csv_export")}
}

// ExportURL returns the public CSV export of the first sheet of a spreadsheet.
func ExportURL(spreadsheetID string) string {
	return "https://docs.google.com/spreadsheets/d/" + url.PathEscape(spreadsheetID) + "/gviz/tq?tqx=out:csv"
}

func (l *CSVLoader) Load(ctx context.Context) ([]core.Expense, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build export request: %w", err)
	}
	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch export: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch export: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	dec, err := tabular.ParseCSV(data)
	if err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}
	if dec.Skipped > 0 {
		l.logger.WarnContext(ctx, "Skipped unparseable rows", "skipped", dec.Skipped)
	}
	return dec.Records, nil
}

// Store posts to the form and loads from the export.
type Store struct {
	*CSVLoader
	postURL        string
	fields         FieldIDs
	client         *http.Client
	verify         bool
	verifyAttempts int
	verifyDelay    time.Duration
	logger         *slog.Logger
}

func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.FormID) == "" {
		return nil, errors.New("missing FORM_ID")
	}
	if strings.TrimSpace(cfg.CSVURL) == "" {
		return nil, errors.New("missing SHEET_CSV_URL")
	}
	if err := cfg.Fields.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	// The form answers a successful submission with a redirect to a
	// confirmation page; that status is the result, the page is not needed.
	poster := *client
	poster.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	attempts := cfg.VerifyAttempts
	if attempts <= 0 {
		attempts = 3
	}
	delay := cfg.VerifyDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}
	return &Store{
		CSVLoader:      NewCSVLoader(cfg.CSVURL, client, logger),
		postURL:        strings.TrimRight(base, "/") + "/" + url.PathEscape(cfg.FormID) + "/formResponse",
		fields:         cfg.Fields,
		client:         &poster,
		verify:         cfg.Verify,
		verifyAttempts: attempts,
		verifyDelay:    delay,
		logger:         logger.With("component", "form_store"),
	}, nil
}

func (s *Store) Name() string { return "form" }

func (s *Store) encode(e core.Expense) url.Values {
	v := url.Values{}
	v.Set(s.fields.Date, e.Date.String())
	v.Set(s.fields.Category, string(e.Category))
	v.Set(s.fields.Description, e.Description)
	v.Set(s.fields.Amount, e.Amount.String())
	v.Set(s.fields.Payer, string(e.Payer))
	v.Set(s.fields.Payment, string(e.Payment))
	return v
}

// Append submits one response. Any 2xx or 3xx status counts as accepted;
// the endpoint gives no stronger signal unless verification is enabled.
func (s *Store) Append(ctx context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}

	var before int
	if s.verify {
		existing, err := s.Load(ctx)
		if err != nil {
			return "", fmt.Errorf("read before submit: %w", err)
		}
		before = countMatching(existing, e)
	}

	body := s.encode(e).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.postURL, strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build form request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit form: %w", err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}
	ref := fmt.Sprintf("form:%d", resp.StatusCode)

	if !s.verify {
		return ref, nil
	}
	for attempt := 1; attempt <= s.verifyAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.verifyDelay):
		}
		after, err := s.Load(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "Verification reload failed", "attempt", attempt, "error", err)
			continue
		}
		if countMatching(after, e) > before {
			return ref + ":confirmed", nil
		}
	}
	return "", ErrNotConfirmed
}

func countMatching(records []core.Expense, e core.Expense) int {
	n := 0
	for _, r := range records {
		if r.Equal(e) {
			n++
		}
	}
	return n
}
