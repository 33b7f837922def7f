package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/room-usage-monitor/pkg/errors"
	"github.com/noah-isme/room-usage-monitor/pkg/middleware/requestid"
)

type envelope struct {
	Data  map[string]interface{} `json:"data"`
	Error map[string]interface{} `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func do(t *testing.T, h gin.HandlerFunc, reqID string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(requestid.Middleware())
	r.GET("/", h)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", reqID)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestOKOmitsEmptyMeta(t *testing.T) {
	rec, env := do(t, func(c *gin.Context) {
		OK(c, gin.H{"co2_value": "1200.0"}, map[string]interface{}{})
	}, "req-1")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "1200.0", env.Data["co2_value"])
	assert.Nil(t, env.Meta)
}

func TestErrorEchoesRequestID(t *testing.T) {
	rec, env := do(t, func(c *gin.Context) {
		Error(c, appErrors.ErrNoReport)
	}, "req-2")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NO_REPORT", env.Error["code"])
	assert.Equal(t, "req-2", env.Meta["request_id"])
}

func TestErrorHidesUnknownCauses(t *testing.T) {
	rec, env := do(t, func(c *gin.Context) {
		Error(c, errors.New("redis: connection refused"))
	}, "req-3")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", env.Error["message"])
}
