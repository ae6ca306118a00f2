package handlers

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"helplink/internal/mockdata"
	"helplink/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	logger := zap.NewNop()
	source := mockdata.NewSource(mockdata.DefaultOptions())
	dashboard := service.NewDashboardService(source, nil, nil, service.DashboardConfig{}, logger)
	exports := service.NewExportService(dashboard, nil, t.TempDir(), time.Hour, logger)

	r := gin.New()
	NewDashboardHandler(dashboard, exports, logger).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	w := get(newTestRouter(t), "/api/v1/health")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "mock", body["services"].(map[string]interface{})["source"])
}

func TestGetDashboard(t *testing.T) {
	w := get(newTestRouter(t), "/api/v1/dashboard?from=2025-11-10&to=2025-11-10")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "mock", body["source"])
	assert.Equal(t, float64(18), body["totals"].(map[string]interface{})["users"])

	result := body["result"].(map[string]interface{})
	assert.Equal(t, "ok", result["outcome"])
	// Only the first request time of the demo cycle falls on 2025-11-10.
	assert.Len(t, result["filtered"], 5)
	assert.Len(t, result["heat_matrix"], 7)
}

func TestGetDashboardRejectsMalformedCriteria(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{
		"/api/v1/dashboard?from=10/11/2025",
		"/api/v1/dashboard?to=yesterday",
		"/api/v1/dashboard?institution=abc",
		"/api/v1/donations?from=2025-13-01",
	} {
		w := get(r, path)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		body := decode(t, w)
		assert.Equal(t, "invalid request", body["error"])
		assert.NotEmpty(t, body["message"])
	}
}

func TestGetDonationsStatusFilter(t *testing.T) {
	r := newTestRouter(t)

	w := get(r, "/api/v1/donations?status=CONCLUIDA,AGENDADA")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(10), decode(t, w)["count"])

	w = get(r, "/api/v1/donations?status=CONCLUIDA&status=ABERTA")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(10), decode(t, w)["count"])
}

func TestGetDonationsEmptyOutcome(t *testing.T) {
	w := get(newTestRouter(t), "/api/v1/donations?from=2025-12-01&to=2025-11-01")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "empty", body["outcome"])
	assert.Equal(t, float64(0), body["count"])
	assert.Equal(t, []interface{}{}, body["donations"])
}

func TestGetAggregate(t *testing.T) {
	r := newTestRouter(t)

	w := get(r, "/api/v1/aggregates/status")
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(5), data["CONCLUIDA"])
	assert.Equal(t, float64(5), data["AGENDADA"])
	assert.Equal(t, float64(5), data["ABERTA"])

	w = get(r, "/api/v1/aggregates/timeseries")
	require.Equal(t, http.StatusOK, w.Code)
	series := decode(t, w)["data"].([]interface{})
	require.Len(t, series, 3)
	assert.Equal(t, "2025-11-10", series[0].(map[string]interface{})["date"])

	w = get(r, "/api/v1/aggregates/forecast")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetTable(t *testing.T) {
	r := newTestRouter(t)

	w := get(r, "/api/v1/tables/instituicoes")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["rows"], 15)

	w = get(r, "/api/v1/tables/enderecos")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportCSV(t *testing.T) {
	w := get(newTestRouter(t), "/api/v1/export?format=csv&status=ABERTA")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".csv")

	records, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 6)
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	w := get(newTestRouter(t), "/api/v1/export?format=pdf")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListExportsWithoutStore(t *testing.T) {
	w := get(newTestRouter(t), "/api/v1/exports")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRefresh(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(15), decode(t, w)["donations"])
}

func TestClassifyItem(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/items/1/classify", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/items/one/classify", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
