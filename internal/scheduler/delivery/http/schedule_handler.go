package http

import (
	"errors"
	"net/http"

	"golang-stock-suggester/internal/scheduler/dto"
	"golang-stock-suggester/internal/scheduler/service"
	"golang-stock-suggester/pkg/config"
	"golang-stock-suggester/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ScheduleHandler handles HTTP requests for the pipeline cadence.
type ScheduleHandler struct {
	scheduler service.SchedulerService
	logger    *logger.Logger
}

// NewScheduleHandler creates a new ScheduleHandler.
func NewScheduleHandler(scheduler service.SchedulerService, logger *logger.Logger) *ScheduleHandler {
	return &ScheduleHandler{scheduler: scheduler, logger: logger}
}

// RegisterRoutes registers the schedule routes to the Echo group.
func (h *ScheduleHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetSchedule)
	g.PUT("", h.UpdateSchedule)
}

// GetSchedule godoc
// @Summary Get the scheduler status
// @Tags schedule
// @Produce  json
// @Success 200 {object} service.Status
// @Router /schedule [get]
func (h *ScheduleHandler) GetSchedule(c echo.Context) error {
	return c.JSON(http.StatusOK, h.scheduler.Status())
}

// UpdateSchedule godoc
// @Summary Change the pipeline cadence
// @Description Omitted fields keep their current value.
// @Tags schedule
// @Accept  json
// @Produce  json
// @Param   schedule  body    dto.UpdateScheduleRequest   true    "Cadence changes"
// @Success 200 {object} service.Status
// @Failure 400 {object} dto.ErrorResponse
// @Router /schedule [put]
func (h *ScheduleHandler) UpdateSchedule(c echo.Context) error {
	var req dto.UpdateScheduleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request payload"})
	}
	if err := config.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	next := req.Apply(h.scheduler.Status().Cadence)
	if err := h.scheduler.Reschedule(next); err != nil {
		if errors.Is(err, service.ErrInvalidCadence) {
			return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		}
		h.logger.Error("Failed to reschedule", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update schedule"})
	}

	return c.JSON(http.StatusOK, h.scheduler.Status())
}
