package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/the-deals-must-flow/internal/model"
)

var generated = time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)

func reportDeals() []model.AgedDeal {
	closeDate := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	deals := []model.Deal{
		{ID: 1, Title: "Website revamp", Company: "Acme", Value: 100, Stage: model.StageLead, Priority: model.PriorityHigh},
		{ID: 2, Title: "Data platform", Company: "Globex", Value: 200, Stage: model.StageLead, Priority: model.PriorityMedium},
		{ID: 3, Title: "Support plan", Company: "Hooli", Contact: "Gavin", Value: 3000, Stage: model.StageProposal, Priority: model.PriorityLow, ExpectedCloseDate: &closeDate},
	}
	out := make([]model.AgedDeal, 0, len(deals))
	for _, d := range deals {
		d.CreatedAt = generated.AddDate(0, 0, -10)
		d.UpdatedAt = generated.AddDate(0, 0, -1)
		out = append(out, model.Decorate(d, generated))
	}
	return out
}

func TestConfig_Validate(t *testing.T) {
	oauth := func(mod func(*Config)) Config {
		c := DefaultConfig()
		c.ClientID = "test-client"
		c.ClientSecret = "test-secret"
		c.RefreshToken = "test-token"
		if mod != nil {
			mod(&c)
		}
		return c
	}

	tests := []struct {
		name   string
		errMsg string
		config Config
	}{
		{name: "valid oauth config", config: oauth(nil)},
		{
			name: "valid service account config",
			config: func() Config {
				c := DefaultConfig()
				c.ServiceAccountPath = "/path/to/key.json"
				return c
			}(),
		},
		{name: "missing auth", config: DefaultConfig(), errMsg: "no authentication method configured"},
		{name: "partial oauth credentials", config: oauth(func(c *Config) { c.ClientSecret = "" }), errMsg: "no authentication method configured"},
		{name: "multiple auth methods", config: oauth(func(c *Config) { c.ServiceAccountPath = "/k.json" }), errMsg: "multiple authentication methods configured"},
		{name: "empty sheet title", config: oauth(func(c *Config) { c.SheetTitle = "" }), errMsg: "sheet title cannot be empty"},
		{name: "invalid batch size", config: oauth(func(c *Config) { c.BatchSize = 0 }), errMsg: "batch size must be positive"},
		{name: "negative retry attempts", config: oauth(func(c *Config) { c.RetryAttempts = -1 }), errMsg: "retry attempts cannot be negative"},
		{name: "negative retry delay", config: oauth(func(c *Config) { c.RetryDelay = -time.Second }), errMsg: "retry delay cannot be negative"},
		{name: "zero retries is valid", config: oauth(func(c *Config) { c.RetryAttempts = 0; c.RetryDelay = 0 })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfig_LoadFromEnv(t *testing.T) {
	t.Run("fills empty fields", func(t *testing.T) {
		t.Setenv("GOOGLE_SHEETS_CLIENT_ID", "env-client")
		t.Setenv("GOOGLE_SHEETS_CLIENT_SECRET", "env-secret")
		t.Setenv("GOOGLE_SHEETS_REFRESH_TOKEN", "env-token")
		t.Setenv("GOOGLE_SHEETS_SPREADSHEET_ID", "env-id")
		t.Setenv("GOOGLE_SHEETS_SPREADSHEET_NAME", "Q3 Pipeline")

		c := DefaultConfig()
		c.LoadFromEnv()
		assert.Equal(t, "env-client", c.ClientID)
		assert.Equal(t, "env-secret", c.ClientSecret)
		assert.Equal(t, "env-token", c.RefreshToken)
		assert.Equal(t, "env-id", c.SpreadsheetID)
		assert.Equal(t, "Q3 Pipeline", c.SpreadsheetName)
		assert.NoError(t, c.Validate())
	})

	t.Run("keeps configured values", func(t *testing.T) {
		t.Setenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", "/env/key.json")
		t.Setenv("GOOGLE_SHEETS_SPREADSHEET_NAME", "From env")

		c := DefaultConfig()
		c.ServiceAccountPath = "/configured/key.json"
		c.SpreadsheetName = "Configured"
		c.LoadFromEnv()
		assert.Equal(t, "/configured/key.json", c.ServiceAccountPath)
		assert.Equal(t, "Configured", c.SpreadsheetName)
	})
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.True(t, config.EnableFormatting)
	assert.Equal(t, DefaultSpreadsheetName, config.SpreadsheetName)
	assert.Equal(t, "Pipeline", config.SheetTitle)
	assert.Equal(t, 1000, config.BatchSize)
	assert.Equal(t, 3, config.RetryAttempts)
	assert.Equal(t, time.Second, config.RetryDelay)
}

func TestBuildReport(t *testing.T) {
	report := BuildReport(reportDeals(), generated)

	assert.Equal(t, generated, report.GeneratedAt)
	assert.Equal(t, 3, report.TotalDeals)
	assert.Equal(t, int64(3300), report.TotalValue)

	require.Len(t, report.Stages, len(model.Stages()))
	assert.Equal(t, "Lead", report.Stages[0].Stage)
	assert.Equal(t, 2, report.Stages[0].TotalDeals)
	assert.Equal(t, int64(300), report.Stages[0].TotalValue)
	assert.InDelta(t, 150.0, report.Stages[0].AvgDealSize, 1e-9)
	assert.InDelta(t, 50.0, report.Stages[0].ConversionRate, 1e-9)

	require.Len(t, report.Deals, 3)
	assert.Equal(t, []int{2, 1, 3}, []int{report.Deals[0].ID, report.Deals[1].ID, report.Deals[2].ID})
	assert.Equal(t, "Proposal", report.Deals[2].Stage)
	assert.Equal(t, "Gavin", report.Deals[2].Contact)
	assert.Equal(t, string(model.AgeAging), report.Deals[2].Age)
}

func TestWriter_prepareReportData(t *testing.T) {
	writer := &Writer{config: DefaultConfig()}
	report := BuildReport(reportDeals(), generated)

	values := writer.prepareReportData(report)

	assert.Equal(t, "Deal Pipeline", values[0][0])
	assert.Equal(t, "Jun 3, 2024 14:30", values[0][1])
	assert.Equal(t, "Stage", values[stageHeaderRow][0])
	assert.Equal(t, []any{"Lead", 2, int64(300), 150.0, "50.0"}, values[stageFirstRow])
	assert.Equal(t, []any{"Total", 3, int64(3300)}, values[stageFirstRow+len(report.Stages)])

	header := dealHeaderRow(report)
	assert.Equal(t, "Deals", values[header-1][0])
	assert.Len(t, values[header], dealColumns)
	require.Len(t, values, header+1+len(report.Deals))

	last := values[len(values)-1]
	assert.Equal(t, 3, last[0])
	assert.Equal(t, "Support plan", last[1])
	assert.Equal(t, int64(3000), last[6])
	assert.Equal(t, "2024-07-01", last[8])
	assert.Equal(t, "2024-06-02", last[9])

	first := values[header+1]
	assert.Empty(t, first[8])
}

func TestFormattingRequests(t *testing.T) {
	report := BuildReport(reportDeals(), generated)
	requests := formattingRequests(42, report)

	require.NotEmpty(t, requests)
	for _, r := range requests {
		switch {
		case r.RepeatCell != nil:
			assert.Equal(t, int64(42), r.RepeatCell.Range.SheetId)
			assert.Less(t, r.RepeatCell.Range.StartRowIndex, r.RepeatCell.Range.EndRowIndex)
		case r.AutoResizeDimensions != nil:
			assert.Equal(t, int64(dealColumns), r.AutoResizeDimensions.Dimensions.EndIndex)
		case r.UpdateSheetProperties != nil:
			assert.Equal(t, int64(42), r.UpdateSheetProperties.Properties.SheetId)
		}
	}
}

// fakeSheetsAPI serves the handful of Sheets endpoints the writer calls.
type fakeSheetsAPI struct {
	written      [][]any
	updateFails  int
	updates      int
	batchUpdates int
	clears       int
	mu           sync.Mutex
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/spreadsheets/sheet-1"):
		_, _ = io.WriteString(w, `{"spreadsheetId":"sheet-1","sheets":[{"properties":{"sheetId":7,"title":"Pipeline"}}]}`)
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		f.clears++
		_, _ = io.WriteString(w, `{}`)
	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		f.updates++
		if f.updateFails > 0 {
			f.updateFails--
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"code":400,"message":"try again"}}`)
			return
		}
		var body sheets.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			f.written = append(f.written, body.Values...)
		}
		_, _ = io.WriteString(w, `{}`)
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		f.batchUpdates++
		_, _ = io.WriteString(w, `{}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newFakeWriter(t *testing.T, api *fakeSheetsAPI, mod func(*Config)) *Writer {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	svc, err := sheets.NewService(context.Background(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)

	config := DefaultConfig()
	config.SpreadsheetID = "sheet-1"
	config.RetryDelay = time.Millisecond
	if mod != nil {
		mod(&config)
	}
	return &Writer{service: svc, config: config, logger: discardLogger()}
}

func TestWriter_Write(t *testing.T) {
	api := &fakeSheetsAPI{}
	writer := newFakeWriter(t, api, func(c *Config) { c.BatchSize = 5 })
	report := BuildReport(reportDeals(), generated)

	require.NoError(t, writer.Write(context.Background(), report))

	expected := writer.prepareReportData(report)
	assert.Equal(t, 1, api.clears)
	assert.Equal(t, (len(expected)+4)/5, api.updates)
	assert.Equal(t, 1, api.batchUpdates)
	require.Len(t, api.written, len(expected))
	assert.Equal(t, "Deal Pipeline", api.written[0][0])
}

func TestWriter_WriteRetriesFailedBatch(t *testing.T) {
	api := &fakeSheetsAPI{updateFails: 1}
	writer := newFakeWriter(t, api, func(c *Config) { c.EnableFormatting = false })

	require.NoError(t, writer.Write(context.Background(), BuildReport(reportDeals(), generated)))
	assert.Equal(t, 2, api.updates)
	assert.Equal(t, 0, api.batchUpdates)
}

func TestWriter_WriteGivesUp(t *testing.T) {
	api := &fakeSheetsAPI{updateFails: 10}
	writer := newFakeWriter(t, api, func(c *Config) { c.RetryAttempts = 2 })

	err := writer.Write(context.Background(), BuildReport(reportDeals(), generated))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write data")
	assert.Equal(t, 2, api.updates)
}

func TestMockWriter(t *testing.T) {
	mock := NewMockWriter()
	report := BuildReport(reportDeals(), generated)

	require.NoError(t, mock.Write(context.Background(), report))
	require.NotNil(t, mock.LastReport)
	assert.Equal(t, 3, mock.LastReport.TotalDeals)

	boom := errors.New("quota exceeded")
	mock.SetWriteError(boom)
	require.ErrorIs(t, mock.Write(context.Background(), report), boom)

	calls := mock.Calls()
	require.Len(t, calls, 2)
	assert.NoError(t, calls[0].Error)
	assert.ErrorIs(t, calls[1].Error, boom)
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	token := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       generated,
	}

	require.NoError(t, SaveToken(path, token))
	loaded, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "refresh", loaded.RefreshToken)
	assert.True(t, loaded.Expiry.Equal(generated))

	_, err = LoadToken(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
