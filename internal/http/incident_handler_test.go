package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/igmahardika/antic-sub002/internal/ingest"
	"github.com/igmahardika/antic-sub002/internal/repository"
	"github.com/igmahardika/antic-sub002/internal/service"
)

// newTestRouter 内存仓储 + 真实服务的完整路由，供 httptest 驱动
func newTestRouter(t *testing.T) (*Router, *repository.MemoryIncidentsRepo) {
	t.Helper()
	logger := zap.NewNop()
	incidents := repository.NewMemoryIncidentsRepo()
	sessions := repository.NewMemoryUploadSessionsRepo()

	importSvc := service.NewImportService(incidents, sessions, ingest.DefaultCaps(), 500, logger)
	incidentSvc := service.NewIncidentService(incidents, logger)
	recalcSvc := service.NewRecalcService(incidents, ingest.DefaultCaps(), 500, logger)
	statsSvc := service.NewStatsService(incidents, nil, logger)

	router := NewRouter(logger)
	router.RegisterHealth()
	router.RegisterIncidentRoutes(
		NewIncidentHandler(importSvc, incidentSvc, recalcSvc, statsSvc, logger),
		NewUploadsHandler(importSvc, statsSvc, logger),
	)
	return router, incidents
}

var handlerTestHeader = []any{"Priority", "Site", "No Case", "NCAL", "Status", "Start", "End"}

func buildHandlerWorkbook(t *testing.T, dataRows ...[]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "Gangguan"))
	rows := append([][]any{handlerTestHeader}, dataRows...)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Gangguan", cell, &row))
	}

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

// multipartUpload 把 xlsx 封装成 multipart POST 请求
func multipartUpload(t *testing.T, fileName string, payload []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/incidents/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type envelope struct {
	Code    int            `json:"code"`
	Type    string         `json:"type"`
	Message string         `json:"message"`
	Result  map[string]any `json:"result"`
}

func doRequest(t *testing.T, router *Router, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func uploadFixture(t *testing.T, router *Router, fileName string, rows ...[]any) envelope {
	t.Helper()
	req := multipartUpload(t, fileName, buildHandlerWorkbook(t, rows...))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.Equal(t, ResultSuccess, env.Code, "upload failed: %s", w.Body.String())
	return env
}

func TestUpload_ImportsWorkbook(t *testing.T) {
	router, incidents := newTestRouter(t)

	env := uploadFixture(t, router, "january.xlsx",
		[]any{"High", "Jakarta", "C-1", "Blue", "Open", "15/01/2024 08:00", "15/01/2024 10:00"},
		[]any{"Low", "Bandung", "C-2", "Merah", "Closed", "16/01/2024 09:00", "16/01/2024 09:30"},
	)

	assert.Equal(t, float64(2), env.Result["success_count"])
	assert.Equal(t, float64(0), env.Result["failed_count"])
	assert.NotEmpty(t, env.Result["batch_id"])

	preview, ok := env.Result["preview"].([]any)
	require.True(t, ok)
	assert.Len(t, preview, 2)

	n, err := incidents.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestUpload_ReportsRowErrors(t *testing.T) {
	router, _ := newTestRouter(t)

	env := uploadFixture(t, router, "january.xlsx",
		[]any{"High", "Jakarta", "C-1", "Purple", "Open", "15/01/2024 08:00", "15/01/2024 10:00"},
		[]any{"Low", "Bandung", "C-2", "Blue", "Open", "15/01/2024 08:00", "15/01/2024 10:00"},
	)

	assert.Equal(t, float64(1), env.Result["success_count"])
	assert.Equal(t, float64(1), env.Result["failed_count"])
	errs, ok := env.Result["errors"].([]any)
	require.True(t, ok)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "row 2")
}

func TestUpload_RejectsNonMultipart(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/incidents/upload",
		bytes.NewBufferString("not a form"))
	_, env := doRequest(t, router, req)
	assert.Equal(t, ResultError, env.Code)
}

func TestUpload_RejectsOversizedBody(t *testing.T) {
	router, _ := newTestRouter(t)

	req := multipartUpload(t, "huge.xlsx", make([]byte, maxUploadBytes+1))
	_, env := doRequest(t, router, req)
	assert.Equal(t, ResultError, env.Code)
}

func TestUpload_MethodNotAllowed(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/incidents/upload", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestList_FiltersAndPaginates(t *testing.T) {
	router, _ := newTestRouter(t)
	uploadFixture(t, router, "january.xlsx",
		[]any{"High", "Jakarta", "C-1", "Blue", "Open", "15/01/2024 08:00", "15/01/2024 10:00"},
		[]any{"Low", "Bandung", "C-2", "Red", "Closed", "16/01/2024 09:00", "16/01/2024 09:30"},
	)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/incidents?status=Open&page=1&size=10", nil)
	_, env := doRequest(t, router, req)

	require.Equal(t, ResultSuccess, env.Code)
	assert.Equal(t, float64(1), env.Result["total"])
	items, ok := env.Result["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "C-1", item["case_number"])
}

func TestStats_AggregatesBySeverity(t *testing.T) {
	router, _ := newTestRouter(t)
	uploadFixture(t, router, "january.xlsx",
		[]any{"High", "Jakarta", "C-1", "Blue", "Open", "15/01/2024 08:00", "15/01/2024 10:00"},
		[]any{"Low", "Bandung", "C-2", "Red", "Closed", "16/01/2024 09:00", "16/01/2024 09:30"},
	)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/incidents/stats", nil)
	_, env := doRequest(t, router, req)

	require.Equal(t, ResultSuccess, env.Code)
	assert.Equal(t, float64(2), env.Result["total"])
	assert.Equal(t, float64(1), env.Result["open_count"])
	assert.Equal(t, float64(1), env.Result["closed_count"])

	bySeverity, ok := env.Result["by_severity"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), bySeverity["Blue"])
	assert.Equal(t, float64(1), bySeverity["Red"])
}

func TestRecalculate_ReturnsFixedCount(t *testing.T) {
	router, _ := newTestRouter(t)
	uploadFixture(t, router, "january.xlsx",
		[]any{"High", "Jakarta", "C-1", "Blue", "Open", "15/01/2024 08:00", "15/01/2024 10:00"},
	)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/incidents/recalculate", nil)
	_, env := doRequest(t, router, req)

	require.Equal(t, ResultSuccess, env.Code)
	assert.Equal(t, float64(1), env.Result["fixed_count"])
}

func TestCleanDuplicates_Empty(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/incidents/clean-duplicates", nil)
	_, env := doRequest(t, router, req)

	require.Equal(t, ResultSuccess, env.Code)
	assert.Equal(t, float64(0), env.Result["removed_count"])
}

func TestDeleteAll_ClearsIncidents(t *testing.T) {
	router, incidents := newTestRouter(t)
	uploadFixture(t, router, "january.xlsx",
		[]any{"High", "Jakarta", "C-1", "Blue", "Open", "15/01/2024 08:00", "15/01/2024 10:00"},
		[]any{"Low", "Bandung", "C-2", "Red", "Closed", "16/01/2024 09:00", "16/01/2024 09:30"},
	)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/incidents", nil)
	_, env := doRequest(t, router, req)

	require.Equal(t, ResultSuccess, env.Code)
	assert.Equal(t, float64(2), env.Result["deleted_count"])

	n, err := incidents.Count(req.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestExport_ReturnsWorkbook(t *testing.T) {
	router, _ := newTestRouter(t)
	uploadFixture(t, router, "january.xlsx",
		[]any{"High", "Jakarta", "C-1", "Blue", "Open", "15/01/2024 08:00", "15/01/2024 10:00"},
	)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/incidents/export", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		w.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Incidents")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Contains(t, rows[1], "C-1")
}

func TestImportTemplate_ReturnsHeaderOnly(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/incidents/import-template", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		w.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Incidents")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0], "No Case")
	assert.Contains(t, rows[0], "NCAL")
}

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
