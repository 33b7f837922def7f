package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/room-usage-monitor/internal/models"
	"github.com/noah-isme/room-usage-monitor/internal/service"
	appErrors "github.com/noah-isme/room-usage-monitor/pkg/errors"
)

type fakeStatusSrv struct {
	report    *models.StatusReport
	reportErr error
	entries   []models.ScheduleEntry
	entryErr  error
	today     models.CivilDate
	lastDate  models.CivilDate
}

func (f *fakeStatusSrv) LatestReport(context.Context) (*models.StatusReport, error) {
	return f.report, f.reportErr
}

func (f *fakeStatusSrv) ScheduleOn(_ context.Context, date models.CivilDate) ([]models.ScheduleEntry, error) {
	f.lastDate = date
	return f.entries, f.entryErr
}

func (f *fakeStatusSrv) Today() models.CivilDate { return f.today }

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Meta  map[string]interface{} `json:"meta"`
	Error map[string]interface{} `json:"error"`
}

func serve(t *testing.T, h gin.HandlerFunc, target string) (*httptest.ResponseRecorder, responseEnvelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	h(c)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return rec, envelope
}

func TestStatusHandlerReturnsLatestReport(t *testing.T) {
	handler := NewStatusHandler(&fakeStatusSrv{report: &models.StatusReport{
		StatusText:    string(models.StatusNormalUse),
		BookingStatus: "○",
		CO2Value:      "1200.0",
		CurrentPeriod: "1限",
		LastUpdated:   "2025-04-10 09:00:00",
	}}, "R3-301")

	rec, envelope := serve(t, handler.Status, "/api/v1/status")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "✅ 正常利用中", envelope.Data["status_text"])
	assert.Equal(t, "1200.0", envelope.Data["co2_value"])
	assert.Equal(t, "R3-301", envelope.Meta["room"])
}

func TestStatusHandlerNoReportYet(t *testing.T) {
	handler := NewStatusHandler(&fakeStatusSrv{reportErr: appErrors.ErrNoReport}, "R3-301")

	rec, envelope := serve(t, handler.Status, "/api/v1/status")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NO_REPORT", envelope.Error["code"])
}

func TestStatusHandlerScheduleDefaultsToToday(t *testing.T) {
	today := models.CivilDate{Year: 2025, Month: time.April, Day: 10}
	srv := &fakeStatusSrv{
		today: today,
		entries: []models.ScheduleEntry{
			{Date: today, Period: models.Period1, Booking: "○"},
			{Date: today, Period: models.Period2, Booking: ""},
		},
	}
	handler := NewStatusHandler(srv, "R3-301")

	rec, envelope := serve(t, handler.Schedule, "/api/v1/schedule")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, today, srv.lastDate)
	assert.Equal(t, "2025-04-10", envelope.Data["date"])
	entries, ok := envelope.Data["entries"].([]interface{})
	require.True(t, ok)
	require.Len(t, entries, 2)
	first := entries[0].(map[string]interface{})
	assert.Equal(t, "1限", first["label"])
	assert.Equal(t, "reserved", first["state"])
	assert.Equal(t, "unknown", entries[1].(map[string]interface{})["state"])
}

func TestStatusHandlerScheduleDateParam(t *testing.T) {
	srv := &fakeStatusSrv{}
	handler := NewStatusHandler(srv, "R3-301")

	rec, _ := serve(t, handler.Schedule, "/api/v1/schedule?date=2025-05-01")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.CivilDate{Year: 2025, Month: time.May, Day: 1}, srv.lastDate)

	rec, envelope := serve(t, handler.Schedule, "/api/v1/schedule?date=05/01")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error["code"])
}

func TestStatusHandlerScheduleNotFetched(t *testing.T) {
	handler := NewStatusHandler(&fakeStatusSrv{entryErr: appErrors.Clone(appErrors.ErrNotFound, "schedule has not been fetched yet")}, "R3-301")

	rec, _ := serve(t, handler.Schedule, "/api/v1/schedule")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsHandlerReady(t *testing.T) {
	metrics := service.NewMetricsService()
	handler := NewMetricsHandler(metrics)

	rec, _ := serve(t, handler.Ready, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	metrics.ObserveCycle(nil, time.Second)
	rec, _ = serve(t, handler.Ready, "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = serve(t, handler.Health, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	metrics.ObserveStatus(models.StatusPossibleNoShow)
	handler := NewMetricsHandler(metrics)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	handler.Prometheus(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `usage_status_total{status="possible_no_show"} 1`)
}
