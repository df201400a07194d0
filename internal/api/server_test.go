package api_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/buybox-analyzer/internal/adapters/export"
	"github.com/eshaffer321/buybox-analyzer/internal/api"
	"github.com/eshaffer321/buybox-analyzer/internal/api/dto"
	"github.com/eshaffer321/buybox-analyzer/internal/application/service"
	"github.com/eshaffer321/buybox-analyzer/internal/domain/buybox"
	"github.com/eshaffer321/buybox-analyzer/internal/infrastructure/config"
	"github.com/eshaffer321/buybox-analyzer/internal/infrastructure/storage"
)

// These tests run the full stack against a real SQLite database:
// HTTP request → Router → Handlers → Service → Pipeline → Storage.

type staticFetcher struct{}

func (staticFetcher) FetchTitle(ctx context.Context, asin string) (string, error) {
	return "Echo Dot (4th Gen)", nil
}

func (staticFetcher) FetchOffers(ctx context.Context, asin string) ([]buybox.Offer, error) {
	return []buybox.Offer{
		{SellerID: "A1", ListingPrice: decimal.RequireFromString("49.99"), IsBuyBoxWinner: true, IsPrime: true},
		{SellerID: "B2", ListingPrice: decimal.RequireFromString("52.00")},
	}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) (*httptest.Server, *storage.Storage) {
	t.Helper()

	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)

	cfg := &config.Config{Output: config.OutputConfig{Dir: t.TempDir()}}
	svc := service.NewAnalysisService(cfg, staticFetcher{}, export.NewExcelWriter(quietLogger()), store, quietLogger())

	server := api.NewServer(api.DefaultConfig(), api.Dependencies{
		Repo:            store,
		AnalysisService: svc,
		Configured:      func() bool { return true },
	}, quietLogger())

	ts := httptest.NewServer(server.Router())
	t.Cleanup(func() {
		ts.Close()
		_ = store.Close()
	})
	return ts, store
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp.StatusCode
}

func TestServer_HealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	var response dto.HealthResponse
	status := getJSON(t, ts.URL+"/health", &response)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", response.Status)
	assert.True(t, response.CredentialsConfigured)
}

func TestServer_AnalysisEndToEnd(t *testing.T) {
	ts, _ := newTestServer(t)

	body := `{"asins":["B08N5WRWNW","B07XJ8C8F5"],"output_path":"weekly/report.xlsx"}`
	resp, err := http.Post(ts.URL+"/api/analyses", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var started dto.StartAnalysisResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&started))

	var job dto.AnalysisJobResponse
	require.Eventually(t, func() bool {
		getJSON(t, ts.URL+"/api/analyses/"+started.JobID, &job)
		return job.Status == string(service.StatusCompleted)
	}, 5*time.Second, 20*time.Millisecond)

	require.NotNil(t, job.Summary)
	assert.Equal(t, 2, job.Summary.SuccessCount)
	assert.Equal(t, started.OutputPath, job.Summary.OutputPath)
	assert.True(t, strings.HasSuffix(job.Summary.OutputPath, filepath.Join("weekly", "report.xlsx")))
	assert.FileExists(t, job.Summary.OutputPath)

	var run dto.RunResponse
	status := getJSON(t, ts.URL+"/api/runs/"+started.JobID, &run)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, storage.RunStatusCompleted, run.Status)
	assert.Equal(t, "api", run.Source)

	var items dto.RunItemListResponse
	getJSON(t, ts.URL+"/api/runs/"+started.JobID+"/items", &items)
	require.Equal(t, 2, items.Count)
	assert.Equal(t, "B08N5WRWNW", items.Items[0].ASIN)
	assert.True(t, items.Items[0].HasWinner)

	var runs dto.RunListResponse
	getJSON(t, ts.URL+"/api/runs", &runs)
	assert.Equal(t, 1, runs.Count)
}

func TestServer_RejectsOutputPathOutsideOutputDir(t *testing.T) {
	ts, _ := newTestServer(t)
	target := filepath.Join(t.TempDir(), "not", "under", "output", "report.xlsx")

	body := `{"asins":["B08N5WRWNW"],"output_path":"` + target + `"}`
	resp, err := http.Post(ts.URL+"/api/analyses", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var apiErr dto.APIError
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&apiErr))
	assert.Equal(t, dto.ErrCodeValidation, apiErr.Code)
	assert.NoFileExists(t, target)
	assert.NoDirExists(t, filepath.Dir(target))
}

func TestServer_RunNotFound(t *testing.T) {
	ts, _ := newTestServer(t)

	var apiErr dto.APIError
	status := getJSON(t, ts.URL+"/api/runs/does-not-exist", &apiErr)

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, dto.ErrCodeNotFound, apiErr.Code)
}

func TestServer_OptionalRoutes(t *testing.T) {
	server := api.NewServer(api.DefaultConfig(), api.Dependencies{}, quietLogger())

	for _, path := range []string{"/api/runs", "/api/analyses"} {
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/credentials/test", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_CORS(t *testing.T) {
	ts, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/runs", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}
