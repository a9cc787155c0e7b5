package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"gastos/internal/core"
)

// fakeSheets is a minimal stand-in for the values endpoints of the Sheets API.
type fakeSheets struct {
	mu      sync.Mutex
	rows    [][]any
	queries []string
	bodies  []gsheet.ValueRange
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, r.Method+" "+r.URL.Path+"?"+r.URL.RawQuery)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.bodies = append(f.bodies, vr)
		f.rows = append(f.rows, vr.Values...)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"spreadsheetId": "sheet-id",
			"updates":       map[string]any{"updatedRange": "Gastos!A2:F2", "updatedRows": 1},
		})
	case r.Method == http.MethodPut:
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.bodies = append(f.bodies, vr)
		f.rows = append(vr.Values, f.rows...)
		_ = json.NewEncoder(w).Encode(map[string]any{"updatedRows": 1})
	case r.Method == http.MethodGet:
		rows := f.rows
		if strings.Contains(r.URL.Path, "A1:") && len(rows) > 1 {
			rows = rows[:1]
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"range": "Gastos!A:G", "values": rows})
	default:
		http.Error(w, "unexpected", http.StatusBadRequest)
	}
}

func (f *fakeSheets) snapshot() ([]string, []gsheet.ValueRange) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...), append([]gsheet.ValueRange(nil), f.bodies...)
}

func newTestClient(t *testing.T, f *fakeSheets, timestamped bool) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return NewWithService(svc, Config{SpreadsheetID: "sheet-id", Timestamped: timestamped}, nil)
}

func expense() core.Expense {
	return core.Expense{
		Date:        core.NewDate(2024, 3, 5),
		Category:    core.CategoryUtilities,
		Description: "luz",
		Amount:      core.Money{Cents: 45000},
		Payer:       core.PayerGustavo,
		Payment:     core.PaymentTransfer,
	}
}

func TestAppendUsesInsertRows(t *testing.T) {
	f := &fakeSheets{}
	c := newTestClient(t, f, false)

	ref, err := c.Append(context.Background(), expense())
	require.NoError(t, err)
	assert.Equal(t, "Gastos!A2:F2", ref)

	queries, bodies := f.snapshot()
	require.Len(t, queries, 1)
	assert.Contains(t, queries[0], ":append")
	assert.Contains(t, queries[0], "insertDataOption=INSERT_ROWS")
	assert.Contains(t, queries[0], "valueInputOption=RAW")
	require.Len(t, bodies, 1)
	assert.Equal(t, [][]any{{"2024-03-05", "Servicios", "luz", "450.00", "Gustavo", "Transferencia"}}, bodies[0].Values)
}

func TestAppendKeepsNotesVerbatim(t *testing.T) {
	f := &fakeSheets{rows: [][]any{{"Fecha", "Categoría", "Descripción", "Monto", "Usuario", "Pago"}}}
	c := newTestClient(t, f, false)

	notes := []string{"=1+1", "3/4", "0012", `=IMPORTXML("http://example.com","//a")`}
	for _, note := range notes {
		e := expense()
		e.Description = note
		_, err := c.Append(context.Background(), e)
		require.NoError(t, err)
	}

	queries, _ := f.snapshot()
	for _, q := range queries {
		assert.NotContains(t, q, "USER_ENTERED")
	}

	got, err := c.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, len(notes))
	for i, note := range notes {
		assert.Equal(t, note, got[i].Description)
	}
}

func TestAppendTimestampedPrependsSubmissionTime(t *testing.T) {
	f := &fakeSheets{}
	c := newTestClient(t, f, true)
	c.now = func() time.Time { return time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC) }

	_, err := c.Append(context.Background(), expense())
	require.NoError(t, err)
	_, bodies := f.snapshot()
	require.Len(t, bodies, 1)
	assert.Equal(t, "2024-03-05 09:30:00", bodies[0].Values[0][0])
	assert.Len(t, bodies[0].Values[0], 7)
}

func TestAppendRejectsInvalidWithoutCallingAPI(t *testing.T) {
	f := &fakeSheets{}
	c := newTestClient(t, f, false)
	bad := expense()
	bad.Payer = "Nadie"
	_, err := c.Append(context.Background(), bad)
	require.ErrorIs(t, err, core.ErrInvalidPayer)
	queries, _ := f.snapshot()
	assert.Empty(t, queries)
}

func TestLoadDecodesSheet(t *testing.T) {
	f := &fakeSheets{rows: [][]any{
		{"Fecha", "Categoría", "Descripción", "Monto", "Usuario", "Pago"},
		{"05/03/2024", "⚡ Servicios", "luz", "$450.00", "Gustavo", "📱 Transferencia / App"},
		{"n/a", "Otros", "", "1", "Gustavo", "Efectivo"},
	}}
	c := newTestClient(t, f, false)

	got, err := c.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, expense().Equal(got[0]))
}

func TestEnsureHeaderOnlyWhenEmpty(t *testing.T) {
	f := &fakeSheets{}
	c := newTestClient(t, f, false)
	require.NoError(t, c.EnsureHeader(context.Background()))
	_, bodies := f.snapshot()
	require.Len(t, bodies, 1)
	assert.Equal(t, "Fecha", bodies[0].Values[0][0])

	require.NoError(t, c.EnsureHeader(context.Background()))
	_, bodies = f.snapshot()
	assert.Len(t, bodies, 1, "header must not be written twice")
}

func TestNewRequiresSpreadsheetAndCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{}, nil)
	require.Error(t, err)
	assert.Equal(t, "missing GOOGLE_SPREADSHEET_ID", err.Error())

	_, err = New(context.Background(), Config{SpreadsheetID: "x"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing service account credentials")

	_, err = New(context.Background(), Config{SpreadsheetID: "x", CredentialsFile: "/nonexistent/sa.json"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read service account file")
}
