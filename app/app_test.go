package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/circular-table-server/app"
	"github.com/stevemurr/circular-table-server/config"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Store.Backend = "sqlite"
	cfg.Store.DataDir = t.TempDir()
	cfg.Log.Level = "error"
	return cfg
}

func TestApp_RoutesSmoke(t *testing.T) {
	a, cleanup, err := app.Initialize(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer cleanup()

	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/restaurants",
		strings.NewReader(`{"name":"Joe's Diner","lat":40.7,"lng":-74.0}`)))
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `circulartable_restaurant_mutations_total{operation="create",result="ok"} 1`)
}

func TestApp_DataSurvivesRestart(t *testing.T) {
	cfg := testConfig(t)

	a, cleanup, err := app.Initialize(context.Background(), cfg)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/restaurants",
		strings.NewReader(`{"name":"Persisted","lat":1,"lng":2}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	cleanup()

	a, cleanup, err = app.Initialize(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()
	rec = httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/restaurants", nil))
	assert.Contains(t, rec.Body.String(), `"name":"Persisted"`)
}

func TestApp_MetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = false
	a, cleanup, err := app.Initialize(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApp_BadBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Backend = "floppy"
	_, _, err := app.Initialize(context.Background(), cfg)
	assert.Error(t, err)
}
