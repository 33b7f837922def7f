package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/room-usage-monitor/internal/dto"
	"github.com/noah-isme/room-usage-monitor/internal/middleware"
	"github.com/noah-isme/room-usage-monitor/internal/models"
	appErrors "github.com/noah-isme/room-usage-monitor/pkg/errors"
	"github.com/noah-isme/room-usage-monitor/pkg/response"
)

type statusService interface {
	LatestReport(ctx context.Context) (*models.StatusReport, error)
	ScheduleOn(ctx context.Context, date models.CivilDate) ([]models.ScheduleEntry, error)
	Today() models.CivilDate
}

// StatusHandler serves the latest classification and the parsed schedule.
type StatusHandler struct {
	service statusService
	roomID  string
}

// NewStatusHandler constructs the handler.
func NewStatusHandler(service statusService, roomID string) *StatusHandler {
	return &StatusHandler{service: service, roomID: roomID}
}

// Status godoc
// @Summary Latest room status
// @Tags Status
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /status [get]
func (h *StatusHandler) Status(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	report, err := h.service.LatestReport(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "room", h.roomID)
	response.OK(c, report, middleware.ExtractMeta(c))
}

// Schedule godoc
// @Summary Parsed bookings for a date
// @Tags Status
// @Produce json
// @Param date query string false "Date (YYYY-MM-DD). Defaults to today"
// @Success 200 {object} response.Envelope
// @Router /schedule [get]
func (h *StatusHandler) Schedule(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	date := h.service.Today()
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		parsed, err := models.ParseCivilDate(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD"))
			return
		}
		date = parsed
	}
	entries, err := h.service.ScheduleOn(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewScheduleResponse(h.roomID, date, entries), middleware.ExtractMeta(c))
}
