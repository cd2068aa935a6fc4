package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang-stock-suggester/internal/entity"
	executordto "golang-stock-suggester/internal/executor/dto"
	pipeline "golang-stock-suggester/internal/executor/service"
	"golang-stock-suggester/internal/scheduler/dto"
	"golang-stock-suggester/internal/scheduler/service"
	"golang-stock-suggester/pkg/config"
	"golang-stock-suggester/pkg/logger"
	"golang-stock-suggester/pkg/utils"

	"github.com/labstack/echo/v4"
)

const defaultSuggestionLimit = 50

// SuggestionReader answers suggestion queries without running the pipeline.
type SuggestionReader interface {
	LatestBatch(ctx context.Context) ([]executordto.Suggestion, error)
	Batch(ctx context.Context, batchID string) ([]executordto.Suggestion, error)
	SuggestionsFor(ctx context.Context, date time.Time, minScore float64, limit int) ([]executordto.Suggestion, error)
	LatestRun(ctx context.Context) (*entity.PipelineRun, error)
}

// PipelineHandler handles HTTP requests for pipeline runs and suggestions.
type PipelineHandler struct {
	scheduler service.SchedulerService
	reader    SuggestionReader
	logger    *logger.Logger
}

// NewPipelineHandler creates a new PipelineHandler.
func NewPipelineHandler(scheduler service.SchedulerService, reader SuggestionReader, logger *logger.Logger) *PipelineHandler {
	return &PipelineHandler{scheduler: scheduler, reader: reader, logger: logger}
}

// RegisterRoutes registers the pipeline and suggestion routes to the Echo group.
func (h *PipelineHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/pipeline/run", h.RunPipeline)
	g.GET("/pipeline/runs/latest", h.GetLatestRun)
	g.GET("/suggestions/latest", h.GetLatestSuggestions)
	g.GET("/suggestions", h.GetSuggestions)
	g.GET("/suggestions/batches/:batch_id", h.GetBatch)
}

// RunPipeline godoc
// @Summary Run the suggestion pipeline now
// @Description Fetches news, scores it and stores a new suggestion batch. Zero options use the configured values.
// @Tags pipeline
// @Accept  json
// @Produce  json
// @Param   options  body    executordto.RunOptions   false    "Run options"
// @Success 200 {object} executordto.RunResult
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /pipeline/run [post]
func (h *PipelineHandler) RunPipeline(c echo.Context) error {
	var opts executordto.RunOptions
	if err := c.Bind(&opts); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request payload"})
	}
	if err := config.Validate(&opts); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	result, err := h.scheduler.RunNow(c.Request().Context(), opts)
	if errors.Is(err, pipeline.ErrRunInProgress) {
		return c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	}
	if err != nil {
		h.logger.Error("Manual pipeline run failed", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Pipeline failed: " + err.Error()})
	}

	return c.JSON(http.StatusOK, result)
}

// GetLatestRun godoc
// @Summary Get the latest pipeline run
// @Tags pipeline
// @Produce  json
// @Success 200 {object} entity.PipelineRun
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /pipeline/runs/latest [get]
func (h *PipelineHandler) GetLatestRun(c echo.Context) error {
	run, err := h.reader.LatestRun(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to get latest run", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get latest run"})
	}
	if run == nil {
		return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "No pipeline run recorded yet"})
	}
	return c.JSON(http.StatusOK, run)
}

// GetLatestSuggestions godoc
// @Summary Get the most recent suggestion batch
// @Tags suggestions
// @Produce  json
// @Success 200 {object} dto.SuggestionsResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /suggestions/latest [get]
func (h *PipelineHandler) GetLatestSuggestions(c echo.Context) error {
	suggestions, err := h.reader.LatestBatch(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to get latest suggestions", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get suggestions"})
	}
	return c.JSON(http.StatusOK, dto.SuggestionsResponse{Count: len(suggestions), Suggestions: suggestions})
}

// GetBatch godoc
// @Summary Get the suggestions of one batch
// @Tags suggestions
// @Produce  json
// @Param   batch_id  path  string  true  "Batch ID"
// @Success 200 {object} dto.SuggestionsResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /suggestions/batches/{batch_id} [get]
func (h *PipelineHandler) GetBatch(c echo.Context) error {
	batchID := c.Param("batch_id")
	suggestions, err := h.reader.Batch(c.Request().Context(), batchID)
	if err != nil {
		h.logger.Error("Failed to get batch", logger.ErrorField(err), logger.StringField("batch_id", batchID))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get suggestions"})
	}
	if len(suggestions) == 0 {
		return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Batch not found"})
	}
	return c.JSON(http.StatusOK, dto.SuggestionsResponse{Count: len(suggestions), Suggestions: suggestions})
}

// GetSuggestions godoc
// @Summary List suggestions of a day
// @Description Dates are calendar days in the scheduler timezone; today when omitted.
// @Tags suggestions
// @Produce  json
// @Param   date       query  string  false  "Day (YYYY-MM-DD)"
// @Param   min_score  query  number  false  "Minimum average sentiment (0-1)"
// @Param   limit      query  int     false  "Maximum results (1-50)"
// @Success 200 {object} dto.SuggestionsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /suggestions [get]
func (h *PipelineHandler) GetSuggestions(c echo.Context) error {
	var query dto.SuggestionsQuery
	if err := c.Bind(&query); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid query parameters"})
	}
	if err := config.Validate(&query); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}

	location := utils.LoadLocation(h.scheduler.Status().Cadence.Timezone)
	date := time.Now().In(location)
	if query.Date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", query.Date, location)
		if err != nil {
			return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid date"})
		}
		date = parsed
	}
	limit := query.Limit
	if limit == 0 {
		limit = defaultSuggestionLimit
	}

	suggestions, err := h.reader.SuggestionsFor(c.Request().Context(), date, query.MinScore, limit)
	if err != nil {
		h.logger.Error("Failed to get suggestions", logger.ErrorField(err), logger.StringField("date", date.Format("2006-01-02")))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get suggestions"})
	}
	return c.JSON(http.StatusOK, dto.SuggestionsResponse{Count: len(suggestions), Suggestions: suggestions})
}
