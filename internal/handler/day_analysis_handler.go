package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/almas-dev/college-timetable-api/internal/dto"
	"github.com/almas-dev/college-timetable-api/internal/models"
	"github.com/almas-dev/college-timetable-api/internal/service"
	appErrors "github.com/almas-dev/college-timetable-api/pkg/errors"
	"github.com/almas-dev/college-timetable-api/pkg/response"
)

type dayLookup interface {
	FindByDate(ctx context.Context, date time.Time) (*models.DaySchedule, error)
}

// DayAnalysisHandler handles conflict analysis and approval endpoints.
type DayAnalysisHandler struct {
	analysis *service.DayAnalysisService
	days     dayLookup
}

// NewDayAnalysisHandler constructs an analysis handler.
func NewDayAnalysisHandler(analysis *service.DayAnalysisService, days dayLookup) *DayAnalysisHandler {
	return &DayAnalysisHandler{analysis: analysis, days: days}
}

func (h *DayAnalysisHandler) resolveDay(c *gin.Context) (*models.DaySchedule, bool) {
	date, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD"))
		return nil, false
	}
	day, err := h.days.FindByDate(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	if day == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "no schedule exists for this date"))
		return nil, false
	}
	return day, true
}

// Analyze returns the conflict report for a date, optionally narrowed to one
// group via the group query parameter.
func (h *DayAnalysisHandler) Analyze(c *gin.Context) {
	day, ok := h.resolveDay(c)
	if !ok {
		return
	}
	report, err := h.analysis.AnalyzeDay(c.Request.Context(), day.ID, c.Query("group"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Approve locks a date (or one group within it) after a blocking-issue check.
func (h *DayAnalysisHandler) Approve(c *gin.Context) {
	day, ok := h.resolveDay(c)
	if !ok {
		return
	}
	var req dto.ApproveDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid approve payload"))
		return
	}
	result, err := h.analysis.ApproveDay(c.Request.Context(), day.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
