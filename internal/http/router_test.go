package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/climate-grid/internal/adapter/interp"
	"go.ngs.io/climate-grid/internal/adapter/store/gridnc"
	"go.ngs.io/climate-grid/internal/domain"
	"go.ngs.io/climate-grid/internal/observability"
	"go.ngs.io/climate-grid/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	dir := t.TempDir()
	geo, err := domain.NewGeometry(-94, 41.5, 0.125, 0.125, 8, 8, 0.125)
	require.NoError(t, err)

	path := gridnc.Path(dir, gridnc.Daily, 2024)
	require.NoError(t, gridnc.Create(path, gridnc.Daily, 2024, geo, gridnc.DailyVars))
	st, err := gridnc.Open(context.Background(), path, gridnc.Daily, 2024, gridnc.ReadWrite, time.Second)
	require.NoError(t, err)
	_, err = st.WriteSlice("high_tmpk", 185, interp.NewGrid2D(geo.XAxis(), geo.YAxis(), 305.15))
	require.NoError(t, err)
	require.NoError(t, st.Close())

	metrics := observability.NewMetrics()
	metrics.SlicesWritten.WithLabelValues("high_tmpk").Inc()
	var gatherer prometheus.Gatherer = metrics.Registry()
	return SetupRouter(usecase.NewGridQuery(dir, geo, time.Second), nil, gatherer)
}

func get(t *testing.T, router *gin.Engine, url string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	req.Header.Set("Origin", "https://example.org")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var body map[string]any
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t)
	w, body := get(t, router, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestGetCell(t *testing.T) {
	router := newTestRouter(t)

	w, body := get(t, router, "/v1/grid/cell?lat=41.99&lon=-93.62")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3.0, body["i"])
	assert.Equal(t, 3.0, body["j"])

	w, _ = get(t, router, "/v1/grid/cell?lat=61.2&lon=-149.9")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = get(t, router, "/v1/grid/cell?lat=abc&lon=-93")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = get(t, router, "/v1/grid/cell?lat=41")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetValue(t *testing.T) {
	router := newTestRouter(t)

	w, body := get(t, router, "/v1/grid/value?lat=41.99&lon=-93.62&var=high_tmpk&time=2024-07-04")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.InDelta(t, 305.15, body["value"], 0.005)
	assert.Equal(t, "K", body["units"])

	w, body = get(t, router, "/v1/grid/value?lat=41.99&lon=-93.62&var=low_tmpk&time=2024-07-04")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, body["value"], "missing cells are null, not zero")

	w, _ = get(t, router, "/v1/grid/value?lat=41.99&lon=-93.62&var=high_tmpk&time=2023-07-04")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = get(t, router, "/v1/grid/value?lat=41.99&lon=-93.62&var=high_tmpk&time=yesterday")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = get(t, router, "/v1/grid/value?lat=41.99&lon=-93.62&time=2024-07-04")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = get(t, router, "/v1/grid/value?lat=41.99&lon=-93.62&var=high_tmpk&time=2024-07-04&cadence=weekly")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetCoverage(t *testing.T) {
	router := newTestRouter(t)

	w, body := get(t, router, "/v1/grid/coverage?lat=41.99&lon=-93.62&year=2024")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, false, body["covered"])
	assert.Equal(t, 0.0, body["covered_cells"])

	w, _ = get(t, router, "/v1/grid/coverage?lat=41.99&lon=-93.62&year=twenty")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)
	w, _ := get(t, router, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `climate_grid_slices_written_total{variable="high_tmpk"} 1`)
}
