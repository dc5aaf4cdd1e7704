package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swa/agilemetrics/internal/auth"
	"github.com/swa/agilemetrics/internal/config"
	"github.com/swa/agilemetrics/internal/dashboard"
	"github.com/swa/agilemetrics/internal/handlers"
	"github.com/swa/agilemetrics/internal/initialization"
	"github.com/swa/agilemetrics/internal/logging"
	testutil "github.com/swa/agilemetrics/internal/testing"
)

const testSecret = "client-test-secret-0123456789abcdef"

func newServer(t *testing.T, mode string) *httptest.Server {
	t.Helper()
	logger := logging.NewNop()
	store := dashboard.NewStore(testutil.NewFixtureLoader(), logger)
	_, err := store.Reload(context.Background())
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Auth.Mode = mode
	cfg.Auth.JWTSecret = testSecret
	handler, err := handlers.NewRouter(handlers.RouterDeps{
		Config:  cfg,
		Store:   store,
		Health:  initialization.NewHealthChecker(nil, store, 0, logger),
		Logger:  logger,
		Version: "test",
	})
	require.NoError(t, err)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestQuery(t *testing.T) {
	assert.Empty(t, Query(dashboard.SelectionRequest{}).Encode())

	q := Query(dashboard.SelectionRequest{MinDate: "2024-03-01", Exclude: []string{}})
	assert.Equal(t, []string{""}, q["exclude"])
	assert.Equal(t, "2024-03-01", q.Get("min_date"))

	q = Query(dashboard.SelectionRequest{Exclude: []string{"Done", "Archived"}, HourlyBound: "exclusive"})
	assert.Equal(t, []string{"Done", "Archived"}, q["exclude"])
	assert.Equal(t, "exclusive", q.Get("hourly_bound"))
}

func TestClient_Flow(t *testing.T) {
	server := newServer(t, "none")
	c := NewClient(server.URL+"/", "")
	ctx := context.Background()

	extent, err := c.Extent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", extent.MinDate)
	assert.Equal(t, "2024-03-03", extent.MaxDate)

	report, err := c.Report(ctx, dashboard.SelectionRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Archived", "Done"}, report.Excluded)
	assert.InDelta(t, 8.0/3.0, float64(report.LeadTime.Mean), 1e-9)
	assert.Len(t, report.WIP, 6)

	report, err = c.Report(ctx, dashboard.SelectionRequest{Exclude: []string{}})
	require.NoError(t, err)
	assert.Empty(t, report.Excluded)
	assert.Len(t, report.WIP, 10)

	lt, err := c.LeadTime(ctx, dashboard.SelectionRequest{})
	require.NoError(t, err)
	assert.Equal(t, 3, lt.Days)
	assert.InDelta(t, 2.25, float64(lt.MeanDaily), 1e-9)

	stats, err := c.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.DailyFlowRows)
}

func TestClient_ValidationError(t *testing.T) {
	server := newServer(t, "none")
	c := NewClient(server.URL, "")

	_, err := c.Report(context.Background(), dashboard.SelectionRequest{MinDate: "March"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, handlers.CodeValidation, apiErr.Code)
	assert.Equal(t, "min_date", apiErr.Details["field"])
	assert.NotEmpty(t, apiErr.RequestID)
}

func TestClient_Token(t *testing.T) {
	server := newServer(t, "jwt")

	_, err := NewClient(server.URL, "").Extent(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, handlers.CodeUnauthorized, apiErr.Code)
	assert.Equal(t, "Missing authorization header", apiErr.Message)
	assert.NotEmpty(t, apiErr.RequestID)

	token, err := auth.GenerateToken([]byte(testSecret), "viewer", 0)
	require.NoError(t, err)
	_, err = NewClient(server.URL, token).Extent(context.Background())
	assert.NoError(t, err)
}

func TestClient_PlainErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "").Extent(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream down", apiErr.ErrorText)
	assert.Contains(t, apiErr.Error(), "502")
}
